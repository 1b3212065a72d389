package gcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/docxflow/internal/segment"
)

// DefaultModel is used when VERTEX_MODEL is not set.
const DefaultModel = "gemini-2.5-flash"

// --- Structurer Model Prompts ---
const StructurerSystemPrompt = "You are a professional document conversion specialist. You read PDF segments and describe their content as structured JSON sections so they can be rebuilt as an editable Word document."
const StructurerUserPrompt = `Analyze this document segment and extract ALL text content while preserving the original layout structure and visual fidelity.

Requirements:
1. Maintain headings, lists, and paragraphs exactly as they appear.
2. IDENTIFY THE FONT: For each section, identify the dominant font family (e.g., Arial, Times New Roman, Calibri, Georgia) and the font size in points (e.g., 10, 12, 14.5).
3. Do not summarize; extract the full content.
4. Output ONLY strictly valid JSON matching the schema.`

var (
	// ErrRefusal is returned when the model declines to process a segment.
	ErrRefusal = errors.New("gemini response indicates refusal")
	// ErrNoContent is returned when the response carries no text part.
	ErrNoContent = errors.New("gemini response contained no text")
)

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// SectionsSchema mirrors the JSON shape decoded by the structure package.
var SectionsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"sections": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"type":       {Type: genai.TypeString, Description: "One of 'heading', 'paragraph', 'list'"},
					"level":      {Type: genai.TypeNumber, Description: "Heading level (1-3)"},
					"text":       {Type: genai.TypeString},
					"items":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					"fontFamily": {Type: genai.TypeString, Description: "The closest standard font family name"},
					"fontSize":   {Type: genai.TypeNumber, Description: "The font size in points"},
				},
				Required: []string{"type"},
			},
		},
	},
	Required: []string{"sections"},
}

// VertexClient holds the pre-configured structurer model.
type VertexClient struct {
	StructurerModel *genai.GenerativeModel
	baseClient      *genai.Client
}

// NewVertexClient creates a client whose model answers with JSON sections.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := baseClient.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(StructurerSystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   SectionsSchema,
		Temperature:      genai.Ptr[float32](0.0),
	}
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &VertexClient{
		StructurerModel: model,
		baseClient:      baseClient,
	}, nil
}

// Structure sends the chunk inline and returns the model's raw JSON answer.
func (c *VertexClient) Structure(ctx context.Context, chunk segment.Chunk) ([]byte, error) {
	logCtx := slog.With("chunk", chunk.Index, "pages", chunk.PageLabel())

	resp, err := c.StructurerModel.GenerateContent(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: chunk.Payload},
		genai.Text(StructurerUserPrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	text, parts := responseText(resp)
	if parts > 1 {
		logCtx.Warn("Gemini response contained several text parts; they have been concatenated.", "parts", parts)
	}
	if err := checkResponse(text); err != nil {
		logCtx.Warn("Unusable gemini response.", "error", err)
		return nil, err
	}
	return []byte(text), nil
}

// Close releases the underlying client.
func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, int) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", 0
	}
	var b strings.Builder
	var parts int
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
			parts++
		}
	}
	return strings.TrimSpace(b.String()), parts
}

// checkResponse only scans prose for refusals. A JSON body, bare or fenced,
// is document content and left for the decoder to judge.
func checkResponse(text string) error {
	if text == "" {
		return ErrNoContent
	}
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "```") {
		return nil
	}
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return fmt.Errorf("%w: %q", ErrRefusal, phrase)
		}
	}
	return nil
}
