package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/docxflow/internal/conversion"
	"github.com/Lllllllleong/docxflow/internal/models"
	"github.com/Lllllllleong/docxflow/internal/segment"
	"github.com/Lllllllleong/docxflow/internal/services"
)

var (
	converterInstance *services.ConverterFunction
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleConvertDocument", handleConvertDocument)
}

// The function runtime owns the server; see cmd/docxflow for a local binary.
func main() {}

// handleConvertDocument runs one job for the workflow.
func handleConvertDocument(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		converterInstance, initErr = services.NewConverter(context.Background())
	})
	if initErr != nil {
		slog.Error("Converter setup failed", "error", initErr)
		http.Error(w, "converter unavailable", http.StatusInternalServerError)
		return
	}

	var req models.ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Rejected convert request", "error", err)
		http.Error(w, "convert request must be a JSON object", http.StatusBadRequest)
		return
	}

	res, err := converterInstance.Process(r.Context(), &req)
	if err != nil {
		code := failureStatus(err)
		msg := "conversion failed"
		if code == http.StatusUnprocessableEntity {
			msg = err.Error()
		}
		http.Error(w, msg, code)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Convert response not delivered", "error", err, "documentId", req.DocumentID)
	}
}

// failureStatus picks 422 for input the workflow must not retry and 500 for
// everything else.
func failureStatus(err error) int {
	var segErr *segment.SegmentationError
	if errors.Is(err, conversion.ErrSelectionEmpty) || errors.As(err, &segErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
