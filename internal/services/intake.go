package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"

	"github.com/Lllllllleong/docxflow/internal/conversion"
	"github.com/Lllllllleong/docxflow/internal/gcp"
	"github.com/Lllllllleong/docxflow/internal/models"
	"github.com/Lllllllleong/docxflow/internal/pagerange"
	"github.com/Lllllllleong/docxflow/internal/segment"
)

// PageSelectionMetadataKey is the custom object metadata carrying the page spec.
const PageSelectionMetadataKey = "pageSelection"

type IntakeConfig struct {
	ProjectID        string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string
}

type IntakeFunction struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client
	config           IntakeConfig
}

// GCSEvent is the storage object payload of a finalize CloudEvent.
type GCSEvent struct {
	Bucket      string            `json:"bucket"`
	Name        string            `json:"name"`
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata"`
}

func NewIntake(ctx context.Context) (*IntakeFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := IntakeConfig{
		ProjectID:        projectID,
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", "conversions"),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", "docx-conversion"),
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}

	f := &IntakeFunction{
		firestoreClient:  firestoreClient,
		storageClient:    storageClient,
		executionsClient: executionsClient,
		config:           config,
	}
	slog.Info("Intake logic initialized.", "workflowId", config.WorkflowID)
	return f, nil
}

func (f *IntakeFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !isPDFObject(e.Name, e.ContentType) {
		logCtx.Info("Object is not a PDF. Skipping.", "contentType", e.ContentType)
		return nil
	}
	logCtx.Info("Processing new GCS object.")

	data, err := gcp.ReadObject(ctx, f.storageClient.Bucket(e.Bucket), e.Name)
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	fileHash := calculateFileHash(data)
	pageSelection := strings.TrimSpace(e.Metadata[PageSelectionMetadataKey])
	logCtx = logCtx.With("fileHash", fileHash, "pageSelection", pageSelection)

	isDuplicate, docID, err := f.isDuplicate(ctx, fileHash, pageSelection)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Duplicate conversion detected. Skipping.", "existingDocId", docID)
		return nil
	}

	docRef, err := f.createJob(ctx, fileHash, e, pageSelection)
	if err != nil {
		logCtx.Error("Failed to create conversion job", "error", err)
		return err
	}
	logCtx = logCtx.With("documentId", docRef.ID)
	logCtx.Info("Created conversion job in Firestore.")

	if err := f.checkSource(ctx, logCtx, docRef, data, pageSelection); err != nil {
		return err
	}

	executionID, err := gcp.StartExecution(ctx, f.executionsClient,
		gcp.WorkflowName(f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID),
		models.WorkflowArgument{
			DocumentID:    docRef.ID,
			Bucket:        e.Bucket,
			Object:        e.Name,
			PageSelection: pageSelection,
		})
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to trigger workflow execution", err)
	}
	if _, err := docRef.Update(ctx, []firestore.Update{{Path: "workflowExecutionId", Value: executionID}}); err != nil {
		logCtx.Warn("Failed to record workflow execution.", "executionId", executionID, "error", err)
	}

	logCtx.Info("Hand-off to workflow complete.", "executionId", executionID)
	return nil
}

// checkSource rejects unreadable documents and empty selections before any
// workflow is started.
func (f *IntakeFunction) checkSource(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, data []byte, pageSelection string) error {
	src, err := segment.Load(data)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to validate PDF", err)
	}
	sel := pagerange.Parse(pageSelection, src.PageCount())
	if len(sel) == 0 {
		return f.handleError(ctx, logCtx, docRef, "invalid page selection",
			fmt.Errorf("%w: %q against %d pages", conversion.ErrSelectionEmpty, pageSelection, src.PageCount()))
	}
	updates := []firestore.Update{
		{Path: "pageCount", Value: src.PageCount()},
		{Path: "selectedPages", Value: sel.String()},
		{Path: "updatedAt", Value: time.Now()},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to record page count", err)
	}
	logCtx.Info("Source validated.", "pageCount", src.PageCount(), "selectedPages", sel.String())
	return nil
}

func (f *IntakeFunction) isDuplicate(ctx context.Context, fileHash, pageSelection string) (bool, string, error) {
	q := f.firestoreClient.Collection(f.config.CollectionName).
		Where("fileHash", "==", fileHash).
		Where("pageSelection", "==", pageSelection)
	doc, err := gcp.FirstMatch(ctx, q, func(doc *firestore.DocumentSnapshot) bool {
		status, _ := doc.Data()["status"].(string)
		return blocksResubmission(status)
	})
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if doc != nil {
		return true, doc.Ref.ID, nil
	}
	return false, "", nil
}

// blocksResubmission reports whether an existing job with this status makes a
// new upload of the same file and selection a duplicate. Failed jobs may be
// retried by uploading again.
func blocksResubmission(status string) bool {
	return status != models.StatusFailed
}

func (f *IntakeFunction) createJob(ctx context.Context, fileHash string, e GCSEvent, pageSelection string) (*firestore.DocumentRef, error) {
	now := time.Now()
	job := models.ConversionJob{
		FileHash:         fileHash,
		OriginalFilename: path.Base(e.Name),
		SourceURI:        gcp.ObjectURI(e.Bucket, e.Name),
		PageSelection:    pageSelection,
		Status:           models.StatusQueued,
		StatusMessage:    "Waiting for conversion.",
		OutputFilename:   pagerange.OutputFilename(e.Name, pageSelection),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	docRef, _, err := f.firestoreClient.Collection(f.config.CollectionName).Add(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversion job: %w", err)
	}
	return docRef, nil
}

func (f *IntakeFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	return recordFailure(ctx, logCtx, docRef, message, originalErr)
}

func isPDFObject(name, contentType string) bool {
	if strings.EqualFold(contentType, "application/pdf") {
		return true
	}
	return strings.EqualFold(path.Ext(name), ".pdf")
}

func calculateFileHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
