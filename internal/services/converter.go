package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/docxflow/internal/conversion"
	"github.com/Lllllllleong/docxflow/internal/extraction"
	"github.com/Lllllllleong/docxflow/internal/gcp"
	"github.com/Lllllllleong/docxflow/internal/models"
	"github.com/Lllllllleong/docxflow/internal/render"
	"github.com/Lllllllleong/docxflow/internal/segment"
)

// ConverterConfig holds all configuration for the converter service.
type ConverterConfig struct {
	ProjectID      string
	VertexAIRegion string
	VertexModel    string
	OutputBucket   string
	CollectionName string
	ChunkSize      int
	Retry          extraction.RetryPolicy
}

// ConverterFunction holds the dependencies for the conversion logic.
type ConverterFunction struct {
	storageClient   *storage.Client
	firestoreClient *firestore.Client
	vertexClient    *gcp.VertexClient
	converter       *conversion.Converter
	config          ConverterConfig
}

func loadConverterConfig() (*ConverterConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	outputBucket := gcp.GetEnv("OUTPUT_BUCKET", "")
	if outputBucket == "" {
		return nil, fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}
	chunkSize, err := gcp.GetEnvInt("CHUNK_SIZE", segment.DefaultChunkSize)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := gcp.GetEnvInt("CHUNK_MAX_ATTEMPTS", extraction.DefaultRetry.MaxAttempts)
	if err != nil {
		return nil, err
	}
	baseDelay, err := gcp.GetEnvDuration("CHUNK_RETRY_BASE_DELAY", extraction.DefaultRetry.BaseDelay)
	if err != nil {
		return nil, err
	}

	return &ConverterConfig{
		ProjectID:      projectID,
		VertexAIRegion: gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		VertexModel:    gcp.GetEnv("VERTEX_MODEL", gcp.DefaultModel),
		OutputBucket:   outputBucket,
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "conversions"),
		ChunkSize:      chunkSize,
		Retry: extraction.RetryPolicy{
			MaxAttempts: maxAttempts,
			BaseDelay:   baseDelay,
			MaxDelay:    extraction.DefaultRetry.MaxDelay,
		},
	}, nil
}

// NewConverter creates a new ConverterFunction instance.
func NewConverter(ctx context.Context) (*ConverterFunction, error) {
	config, err := loadConverterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion, config.VertexModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	f := &ConverterFunction{
		storageClient:   storageClient,
		firestoreClient: firestoreClient,
		vertexClient:    vertexClient,
		converter: conversion.New(vertexClient,
			conversion.WithChunkSize(config.ChunkSize),
			conversion.WithRetry(config.Retry),
		),
		config: *config,
	}
	slog.Info("Converter logic initialized.", "model", config.VertexModel, "chunkSize", config.ChunkSize, "maxAttempts", config.Retry.MaxAttempts)
	return f, nil
}

// Process converts the source PDF named in req and stores the .docx in the output bucket.
func (f *ConverterFunction) Process(ctx context.Context, req *models.ConvertRequest) (*models.ConvertResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID, "executionId", req.ExecutionID)
	logCtx.Info("Starting conversion.", "gcsUri", req.GCSUri, "pageSelection", req.PageSelection)

	if req.DocumentID == "" {
		return nil, fmt.Errorf("documentId is required")
	}
	docRef := f.firestoreClient.Collection(f.config.CollectionName).Doc(req.DocumentID)

	bucket, object, err := gcp.ParseObjectURI(req.GCSUri)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "invalid source uri", err)
	}
	source, err := gcp.ReadObject(ctx, f.storageClient.Bucket(bucket), object)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to download source PDF", err)
	}

	res, err := f.converter.Convert(ctx, conversion.Request{
		Source:     source,
		SourceName: path.Base(object),
		PageSpec:   req.PageSelection,
	}, f.jobObserver(ctx, logCtx, docRef))
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "conversion failed", err)
	}

	objectName := fmt.Sprintf("%s/%s", req.DocumentID, res.Filename)
	created, err := gcp.SaveToGCSAtomically(ctx, f.storageClient.Bucket(f.config.OutputBucket), objectName, res.Document, res.ContentType)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to save document to GCS", err)
	}
	outputURI := gcp.ObjectURI(f.config.OutputBucket, objectName)

	chunks := skippedChunks(res.SkippedChunks())
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusCompleted},
		{Path: "progress", Value: 100},
		{Path: "statusMessage", Value: "Conversion complete."},
		{Path: "pageCount", Value: res.PageCount},
		{Path: "selectedPages", Value: res.Selection.String()},
		{Path: "chunkCount", Value: res.Chunks},
		{Path: "skippedChunks", Value: chunks},
		{Path: "skippedSections", Value: skippedSections(res.Report.Skipped)},
		{Path: "outputUri", Value: outputURI},
		{Path: "outputFilename", Value: res.Filename},
		{Path: "updatedAt", Value: time.Now()},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to update status to COMPLETED", err)
	}

	logCtx.Info("Conversion complete.", "outputUri", outputURI, "created", created, "sections", res.Sections, "skippedChunks", len(chunks))
	return &models.ConvertResponse{
		Status:         "success",
		OutputGCSUri:   outputURI,
		OutputFilename: res.Filename,
		Sections:       res.Sections,
		SkippedChunks:  chunks,
	}, nil
}

// jobObserver mirrors pipeline progress into the job record. Write failures
// are logged and never stop the conversion.
func (f *ConverterFunction) jobObserver(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef) conversion.Observer {
	return func(ev conversion.Event) {
		updates := progressUpdates(ev)
		if len(updates) == 0 {
			return
		}
		if _, err := docRef.Update(ctx, updates); err != nil {
			logCtx.Warn("Failed to record job progress.", "state", ev.State.String(), "error", err)
		}
	}
}

// jobStatus maps a pipeline state to the job status it is recorded as. Done
// and Failed are recorded by Process itself.
func jobStatus(s conversion.State) string {
	switch s {
	case conversion.StateSegmenting:
		return models.StatusSegmenting
	case conversion.StateExtractingChunk:
		return models.StatusExtracting
	case conversion.StateAssembling:
		return models.StatusAssembling
	case conversion.StateRendering:
		return models.StatusRendering
	}
	return ""
}

func progressUpdates(ev conversion.Event) []firestore.Update {
	status := jobStatus(ev.State)
	if status == "" {
		return nil
	}
	return []firestore.Update{
		{Path: "status", Value: status},
		{Path: "progress", Value: ev.Percent},
		{Path: "statusMessage", Value: ev.Message},
		{Path: "updatedAt", Value: time.Now()},
	}
}

func skippedChunks(outcomes []extraction.ChunkOutcome) []models.SkippedChunk {
	out := make([]models.SkippedChunk, 0, len(outcomes))
	for _, o := range outcomes {
		chunk := segment.Chunk{Pages: o.Pages}
		out = append(out, models.SkippedChunk{Index: o.Index, Pages: chunk.PageLabel(), Error: o.Err.Error()})
	}
	return out
}

func skippedSections(errs []*render.SectionError) []models.SkippedSection {
	out := make([]models.SkippedSection, 0, len(errs))
	for _, e := range errs {
		out = append(out, models.SkippedSection{Index: e.Index, Type: string(e.Kind), Error: e.Err.Error()})
	}
	return out
}

func (f *ConverterFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	return recordFailure(ctx, logCtx, docRef, message, originalErr)
}
