package structure

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var (
	// ErrEmptyResponse is returned when the structuring response has no content.
	ErrEmptyResponse = errors.New("structuring response is empty")
	// ErrMalformedResponse is returned when the response is not JSON.
	ErrMalformedResponse = errors.New("structuring response is not valid JSON")
	// ErrSchemaViolation is returned when the response does not match ResponseSchemaJSON.
	ErrSchemaViolation = errors.New("structuring response does not match the section schema")
)

const responseSchemaURL = "https://github.com/Lllllllleong/docxflow/schema/sections.json"

// ResponseSchemaJSON is the contract every structuring response must satisfy.
const ResponseSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["sections"],
  "properties": {
    "sections": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"type": "string"},
          "level": {"type": ["number", "null"]},
          "text": {"type": ["string", "null"]},
          "items": {"type": ["array", "null"], "items": {"type": ["string", "null"]}},
          "fontFamily": {"type": ["string", "null"]},
          "fontSize": {"type": ["number", "null"]}
        }
      }
    }
  }
}`

var responseSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(ResponseSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("structure: invalid response schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(responseSchemaURL, doc); err != nil {
		panic(fmt.Sprintf("structure: add response schema: %v", err))
	}
	return c.MustCompile(responseSchemaURL)
}

// Coercion records a section whose declared type was not recognised and was
// decoded as a paragraph instead.
type Coercion struct {
	Index    int
	Declared string
}

func (c Coercion) String() string {
	return fmt.Sprintf("section %d: unknown type %q decoded as paragraph", c.Index, c.Declared)
}

type rawResponse struct {
	Sections []rawSection `json:"sections"`
}

type rawSection struct {
	Type       string    `json:"type"`
	Level      *float64  `json:"level"`
	Text       *string   `json:"text"`
	Items      []*string `json:"items"`
	FontFamily *string   `json:"fontFamily"`
	FontSize   *float64  `json:"fontSize"`
}

// Decode validates a raw structuring response and converts it into sections.
// Surrounding Markdown code fences are tolerated. Unknown section types are
// decoded as paragraphs and reported in the returned coercions.
func Decode(raw []byte) ([]Section, []Coercion, error) {
	body := StripCodeFence(string(raw))
	if body == "" {
		return nil, nil, ErrEmptyResponse
	}

	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if err := responseSchema.Validate(inst); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}

	var resp rawResponse
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&resp); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	sections := make([]Section, 0, len(resp.Sections))
	var coerced []Coercion
	for i, rs := range resp.Sections {
		var s Section
		if rs.Text != nil {
			s.Text = *rs.Text
		}
		if rs.FontFamily != nil {
			s.FontFamily = strings.TrimSpace(*rs.FontFamily)
		}
		if rs.FontSize != nil && !math.IsNaN(*rs.FontSize) && !math.IsInf(*rs.FontSize, 0) {
			s.FontSize = *rs.FontSize
		}

		switch Kind(strings.ToLower(strings.TrimSpace(rs.Type))) {
		case KindHeading:
			s.Kind = KindHeading
			s.Level = 1
			if rs.Level != nil {
				s.Level = int(math.Round(*rs.Level))
			}
		case KindList:
			s.Kind = KindList
			s.Items = listItems(rs.Items)
		case KindParagraph:
			s.Kind = KindParagraph
		default:
			s.Kind = KindParagraph
			coerced = append(coerced, Coercion{Index: i, Declared: rs.Type})
		}
		sections = append(sections, s)
	}
	return sections, coerced, nil
}

// listItems keeps a null item as an empty entry so item positions survive.
func listItems(raw []*string) []string {
	if raw == nil {
		return nil
	}
	items := make([]string, len(raw))
	for i, item := range raw {
		if item != nil {
			items[i] = *item
		}
	}
	return items
}

// StripCodeFence removes a surrounding ```json ... ``` fence, if present.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
