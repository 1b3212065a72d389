package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/docxflow/internal/conversion"
	"github.com/Lllllllleong/docxflow/internal/extraction"
	"github.com/Lllllllleong/docxflow/internal/models"
	"github.com/Lllllllleong/docxflow/internal/render"
	"github.com/Lllllllleong/docxflow/internal/structure"
)

func TestIsPDFObject(t *testing.T) {
	tests := []struct {
		name, contentType string
		want              bool
	}{
		{"uploads/report.pdf", "", true},
		{"uploads/REPORT.PDF", "application/octet-stream", true},
		{"uploads/report", "application/pdf", true},
		{"uploads/report.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", false},
		{"uploads/notes.txt", "text/plain", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPDFObject(tt.name, tt.contentType))
		})
	}
}

func TestCalculateFileHash(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		calculateFileHash(nil))
	assert.NotEqual(t, calculateFileHash([]byte("a")), calculateFileHash([]byte("b")))
}

func TestBlocksResubmission(t *testing.T) {
	for _, status := range []string{
		models.StatusQueued,
		models.StatusExtracting,
		models.StatusRendering,
		models.StatusCompleted,
		"",
	} {
		assert.True(t, blocksResubmission(status), status)
	}
	assert.False(t, blocksResubmission(models.StatusFailed))
}

func TestJobStatus(t *testing.T) {
	assert.Equal(t, models.StatusSegmenting, jobStatus(conversion.StateSegmenting))
	assert.Equal(t, models.StatusExtracting, jobStatus(conversion.StateExtractingChunk))
	assert.Equal(t, models.StatusAssembling, jobStatus(conversion.StateAssembling))
	assert.Equal(t, models.StatusRendering, jobStatus(conversion.StateRendering))
	assert.Empty(t, jobStatus(conversion.StateDone))
	assert.Empty(t, jobStatus(conversion.StateFailed))
}

func TestProgressUpdates(t *testing.T) {
	updates := progressUpdates(conversion.Event{State: conversion.StateExtractingChunk, Percent: 40, Message: "Processing pages 6-10 (Batch 2/3)..."})
	require.Len(t, updates, 4)
	assert.Equal(t, "status", updates[0].Path)
	assert.Equal(t, models.StatusExtracting, updates[0].Value)
	assert.Equal(t, 40, updates[1].Value)
	assert.Equal(t, "Processing pages 6-10 (Batch 2/3)...", updates[2].Value)

	assert.Empty(t, progressUpdates(conversion.Event{State: conversion.StateFailed}))
}

func TestSkippedDiagnostics(t *testing.T) {
	chunks := skippedChunks([]extraction.ChunkOutcome{
		{Index: 1, Pages: []int{5, 6, 7}, Err: errors.New("schema violation")},
	})
	assert.Equal(t, []models.SkippedChunk{{Index: 1, Pages: "6-8", Error: "schema violation"}}, chunks)

	sections := skippedSections([]*render.SectionError{
		{Index: 3, Kind: structure.KindList, Err: errors.New("font size too large")},
	})
	assert.Equal(t, []models.SkippedSection{{Index: 3, Type: "list", Error: "font size too large"}}, sections)

	assert.NotNil(t, skippedChunks(nil))
}
