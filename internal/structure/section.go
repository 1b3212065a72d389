// Package structure holds the semantic document model produced by extraction
// and consumed by rendering, together with the boundary decoder for
// structuring responses and the style resolution shared by every renderer.
package structure

// Kind tags the variant of a Section.
type Kind string

const (
	KindHeading   Kind = "heading"
	KindParagraph Kind = "paragraph"
	KindList      Kind = "list"
)

// FallbackText is the paragraph text used when nothing was extracted.
const FallbackText = "No content extracted."

// Section is one semantic unit of extracted content. Level is only meaningful
// for headings and Items only for lists. FontFamily and FontSize are optional
// hints; the zero value means "use the default".
type Section struct {
	Kind       Kind     `json:"type" yaml:"type"`
	Level      int      `json:"level,omitempty" yaml:"level,omitempty"`
	Text       string   `json:"text,omitempty" yaml:"text,omitempty"`
	Items      []string `json:"items,omitempty" yaml:"items,omitempty"`
	FontFamily string   `json:"fontFamily,omitempty" yaml:"fontFamily,omitempty"`
	FontSize   float64  `json:"fontSize,omitempty" yaml:"fontSize,omitempty"`
}

// Heading builds a heading section.
func Heading(level int, text string) Section {
	return Section{Kind: KindHeading, Level: level, Text: text}
}

// Paragraph builds a paragraph section.
func Paragraph(text string) Section {
	return Section{Kind: KindParagraph, Text: text}
}

// List builds a bulleted list section.
func List(items ...string) Section {
	return Section{Kind: KindList, Items: items}
}

// WithFont returns a copy of s carrying the given font hints.
func (s Section) WithFont(family string, sizePt float64) Section {
	s.FontFamily = family
	s.FontSize = sizePt
	return s
}

// Document is the ordered section sequence handed to a renderer.
type Document struct {
	Sections []Section `json:"sections" yaml:"sections"`
}

// Assemble turns the concatenated extraction output into a Document. An empty
// input yields a single fallback paragraph so a renderer never sees an empty
// document; anything else passes through in order.
func Assemble(sections []Section) Document {
	if len(sections) == 0 {
		return Document{Sections: []Section{Paragraph(FallbackText)}}
	}
	return Document{Sections: sections}
}
