package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/docxflow/internal/services"
)

var (
	intakeInstance *services.IntakeFunction
	once           sync.Once
	initErr        error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("ConvertOnUpload", convertOnUpload)
}

// The function runtime owns the server; see cmd/docxflow for a local binary.
func main() {}

// convertOnUpload turns an upload into a conversion job. Clients are built on
// the first event so a cold start with bad config fails the event, not init.
func convertOnUpload(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		intakeInstance, initErr = services.NewIntake(context.Background())
	})
	if initErr != nil {
		slog.Error("Intake setup failed", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Storage event payload is not a GCS object", "error", err, "eventId", e.ID(), "data", string(e.Data()))
		return fmt.Errorf("decode storage event %s: %w", e.ID(), err)
	}

	return intakeInstance.Process(ctx, gcsEvent)
}
