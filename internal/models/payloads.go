package models

// These structs define the JSON payloads exchanged between the intake function,
// the conversion workflow and the converter function.

// WorkflowArgument is the argument the intake function starts the workflow with.
type WorkflowArgument struct {
	DocumentID    string `json:"documentId"`
	Bucket        string `json:"bucket"`
	Object        string `json:"object"`
	PageSelection string `json:"pageSelection"`
}

// ConvertRequest is the input for the docx-converter function.
type ConvertRequest struct {
	DocumentID    string `json:"documentId"`
	GCSUri        string `json:"gcsUri"`
	PageSelection string `json:"pageSelection"`
	ExecutionID   string `json:"executionId"`
}

// ConvertResponse is the output of the docx-converter function.
type ConvertResponse struct {
	Status         string         `json:"status"`
	OutputGCSUri   string         `json:"outputGcsUri"`
	OutputFilename string         `json:"outputFilename"`
	Sections       int            `json:"sections"`
	SkippedChunks  []SkippedChunk `json:"skippedChunks,omitempty"`
}
