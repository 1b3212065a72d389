package models

import "time"

// Job statuses as stored in Firestore.
const (
	StatusQueued     = "QUEUED"
	StatusSegmenting = "SEGMENTING"
	StatusExtracting = "EXTRACTING"
	StatusAssembling = "ASSEMBLING"
	StatusRendering  = "RENDERING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// ConversionJob is the Firestore record for one PDF to DOCX conversion.
type ConversionJob struct {
	FileHash            string           `firestore:"fileHash,omitempty"`
	OriginalFilename    string           `firestore:"originalFilename,omitempty"`
	SourceURI           string           `firestore:"sourceUri,omitempty"`
	PageSelection       string           `firestore:"pageSelection"`
	Status              string           `firestore:"status,omitempty"`
	Progress            int              `firestore:"progress"`
	StatusMessage       string           `firestore:"statusMessage,omitempty"`
	PageCount           int              `firestore:"pageCount,omitempty"`
	SelectedPages       string           `firestore:"selectedPages,omitempty"`
	ChunkCount          int              `firestore:"chunkCount,omitempty"`
	SkippedChunks       []SkippedChunk   `firestore:"skippedChunks,omitempty"`
	SkippedSections     []SkippedSection `firestore:"skippedSections,omitempty"`
	OutputURI           string           `firestore:"outputUri,omitempty"`
	OutputFilename      string           `firestore:"outputFilename,omitempty"`
	ErrorDetails        string           `firestore:"errorDetails,omitempty"`
	WorkflowExecutionID string           `firestore:"workflowExecutionId,omitempty"`
	CreatedAt           time.Time        `firestore:"createdAt,omitempty"`
	UpdatedAt           time.Time        `firestore:"updatedAt,omitempty"`
}

// SkippedChunk records a chunk that contributed no sections.
type SkippedChunk struct {
	Index int    `firestore:"index" json:"index"`
	Pages string `firestore:"pages" json:"pages"`
	Error string `firestore:"error" json:"error"`
}

// SkippedSection records a section the renderer dropped.
type SkippedSection struct {
	Index int    `firestore:"index" json:"index"`
	Type  string `firestore:"type" json:"type"`
	Error string `firestore:"error" json:"error"`
}
