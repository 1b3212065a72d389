package textlayer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/docxflow/internal/pdftest"
	"github.com/Lllllllleong/docxflow/internal/segment"
	"github.com/Lllllllleong/docxflow/internal/structure"
)

func structureChunk(t *testing.T, pages ...pdftest.Page) []structure.Section {
	t.Helper()
	raw, err := New().Structure(context.Background(), segment.Chunk{Payload: pdftest.Build(pages...)})
	require.NoError(t, err)

	sections, coerced, err := structure.Decode(raw)
	require.NoError(t, err)
	assert.Empty(t, coerced)
	return sections
}

func TestStructureHeadingsParagraphsAndLists(t *testing.T) {
	sections := structureChunk(t, pdftest.Page{Lines: []pdftest.Line{
		{Text: "Annual Report", Size: 24},
		{Text: "This is the body.", Size: 12},
		{Text: "It continues here.", Size: 12},
		{Text: "- First point", Size: 12},
		{Text: "- Second point", Size: 12},
	}})

	assert.Equal(t, []structure.Section{
		structure.Heading(1, "Annual Report").WithFont("Arial", 24),
		structure.Paragraph("This is the body. It continues here.").WithFont("Arial", 12),
		structure.List("First point", "Second point").WithFont("Arial", 12),
	}, sections)
}

func TestStructureHeadingLevelsBySize(t *testing.T) {
	sections := structureChunk(t, pdftest.Page{Lines: []pdftest.Line{
		{Text: "Title", Size: 28},
		{Text: "Chapter", Size: 20},
		{Text: "Body text that is long enough to dominate the page.", Size: 11},
		{Text: "Section", Size: 16},
		{Text: "More body text that keeps the body size obvious.", Size: 11},
		{Text: "Subsection", Size: 14},
	}})

	var levels []int
	for _, s := range sections {
		if s.Kind == structure.KindHeading {
			levels = append(levels, s.Level)
		}
	}
	assert.Equal(t, []int{1, 2, 3, 3}, levels)
}

func TestStructureAcrossPages(t *testing.T) {
	sections := structureChunk(t,
		pdftest.Page{Lines: []pdftest.Line{{Text: "A sentence that runs over", Size: 12}}},
		pdftest.Page{Lines: []pdftest.Line{{Text: "the page break.", Size: 12}, {Text: "Done:", Size: 12}}},
		pdftest.Page{Lines: []pdftest.Line{{Text: "New page paragraph.", Size: 12}}},
	)

	require.Len(t, sections, 2)
	assert.Equal(t, "A sentence that runs over the page break. Done:", sections[0].Text)
	assert.Equal(t, "New page paragraph.", sections[1].Text)
}

func TestStructureEmptyPage(t *testing.T) {
	sections := structureChunk(t, pdftest.Page{})
	assert.Empty(t, sections)
}

func TestStructureRejectsNonPDF(t *testing.T) {
	_, err := New().Structure(context.Background(), segment.Chunk{Payload: []byte("plain text, definitely not a pdf file ...................................................")})
	assert.Error(t, err)
}

func TestCleanFontName(t *testing.T) {
	tests := map[string]string{
		"ABCDEF+TimesNewRomanPS-BoldMT": "Times New Roman",
		"Helvetica":                     "Arial",
		"Courier":                       "Courier New",
		"Garamond-Italic":               "Garamond",
		"SourceSansPro-Regular":         "Source Sans Pro",
		"":                              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanFontName(in), in)
	}
}

func TestJoinLine(t *testing.T) {
	assert.Equal(t, "hyphenated", joinLine("hyphen-", "ated"))
	assert.Equal(t, "a b", joinLine("a", "b"))
	assert.Equal(t, "x - y", joinLine("x -", "y"))
}
