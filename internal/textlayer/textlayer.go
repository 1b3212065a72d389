// Package textlayer structures a chunk from the PDF's own text layer. It needs
// no network access and is used for offline conversions and tests; scanned
// pages without a text layer yield no sections.
package textlayer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/Lllllllleong/docxflow/internal/segment"
	"github.com/Lllllllleong/docxflow/internal/structure"
)

// headingRatio is how much larger than body text a line must be to count as
// a heading.
const headingRatio = 1.2

var bulletPrefixes = []string{"•", "◦", "▪", "‣", "-", "*", "–"}

// Structurer implements extraction.Structurer over the chunk's text layer.
type Structurer struct{}

// New returns a text-layer Structurer.
func New() *Structurer { return &Structurer{} }

// Structure reads every page of the chunk and returns {"sections": [...]}.
func (s *Structurer) Structure(ctx context.Context, chunk segment.Chunk) ([]byte, error) {
	r, err := pdflib.NewReader(bytes.NewReader(chunk.Payload), int64(len(chunk.Payload)))
	if err != nil {
		return nil, fmt.Errorf("open chunk: %w", err)
	}

	var lines []line
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageLines, err := readPage(r.Page(i))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		lines = append(lines, pageLines...)
	}

	resp := struct {
		Sections []structure.Section `json:"sections"`
	}{Sections: classify(lines)}
	if resp.Sections == nil {
		resp.Sections = []structure.Section{}
	}
	return json.Marshal(resp)
}

type line struct {
	text string
	font string
	size float64
	y    float64
	// pageBreak marks the first line of a page.
	pageBreak bool
}

func readPage(p pdflib.Page) (lines []line, err error) {
	if p.V.IsNull() {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			lines, err = nil, fmt.Errorf("unreadable content stream: %v", r)
		}
	}()

	texts := p.Content().Text
	if len(texts) == 0 {
		return nil, nil
	}

	var cur *line
	var prevEnd float64
	flush := func() {
		if cur != nil {
			cur.text = strings.TrimSpace(cur.text)
			if cur.text != "" {
				lines = append(lines, *cur)
			}
		}
		cur = nil
	}
	for _, t := range texts {
		if cur == nil || math.Abs(t.Y-cur.y) > t.FontSize*0.5 {
			flush()
			cur = &line{font: t.Font, size: t.FontSize, y: t.Y}
			prevEnd = t.X
		}
		if gap := t.X - prevEnd; gap > t.FontSize*0.2 && !strings.HasSuffix(cur.text, " ") && t.S != " " {
			cur.text += " "
		}
		cur.text += t.S
		if t.FontSize > cur.size {
			cur.size = t.FontSize
			cur.font = t.Font
		}
		prevEnd = t.X + t.W
	}
	flush()
	if len(lines) > 0 {
		lines[0].pageBreak = true
	}
	return lines, nil
}

// classify turns lines into sections. Lines of the same size that follow
// each other closely are merged into one block.
func classify(lines []line) []structure.Section {
	if len(lines) == 0 {
		return nil
	}
	body := bodySize(lines)
	levels := headingLevels(lines, body)

	var sections []structure.Section
	var para *structure.Section
	var list *structure.Section
	var last line
	flushPara := func() {
		if para != nil {
			sections = append(sections, *para)
			para = nil
		}
	}
	flushList := func() {
		if list != nil {
			sections = append(sections, *list)
			list = nil
		}
	}

	for i, l := range lines {
		font := cleanFontName(l.font)
		size := roundSize(l.size)

		if lvl, ok := levels[size]; ok {
			flushPara()
			flushList()
			sections = append(sections, structure.Heading(lvl, l.text).WithFont(font, size))
			last = l
			continue
		}

		if item, ok := bulletItem(l.text); ok {
			flushPara()
			if list == nil {
				s := structure.List().WithFont(font, size)
				list = &s
			}
			list.Items = append(list.Items, item)
			last = l
			continue
		}
		flushList()

		if para != nil && i > 0 && continues(last, l) {
			para.Text = joinLine(para.Text, l.text)
		} else {
			flushPara()
			s := structure.Paragraph(l.text).WithFont(font, size)
			para = &s
		}
		last = l
	}
	flushPara()
	flushList()
	return sections
}

// continues reports whether next reads as the same paragraph as prev.
func continues(prev, next line) bool {
	if next.pageBreak {
		return !endsSentence(prev.text)
	}
	if roundSize(prev.size) != roundSize(next.size) {
		return false
	}
	gap := prev.y - next.y
	return gap > 0 && gap <= next.size*1.8
}

func endsSentence(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.ContainsAny(s[len(s)-1:], ".!?:")
}

func joinLine(a, b string) string {
	if strings.HasSuffix(a, "-") && len(a) > 1 && unicode.IsLetter(rune(a[len(a)-2])) {
		return a[:len(a)-1] + b
	}
	return a + " " + b
}

func bulletItem(s string) (string, bool) {
	for _, p := range bulletPrefixes {
		if rest, ok := strings.CutPrefix(s, p); ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t') {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// bodySize is the size carrying the most characters.
func bodySize(lines []line) float64 {
	weight := make(map[float64]int)
	for _, l := range lines {
		weight[roundSize(l.size)] += len(l.text)
	}
	var best float64
	bestWeight := -1
	for size, w := range weight {
		if w > bestWeight || (w == bestWeight && size < best) {
			best, bestWeight = size, w
		}
	}
	return best
}

// headingLevels maps every size clearly above body to a heading level: the
// largest is 1, the next 2, and everything smaller 3.
func headingLevels(lines []line, body float64) map[float64]int {
	var sizes []float64
	seen := make(map[float64]bool)
	for _, l := range lines {
		s := roundSize(l.size)
		if body > 0 && s >= body*headingRatio && !seen[s] {
			seen[s] = true
			sizes = append(sizes, s)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))
	levels := make(map[float64]int, len(sizes))
	for i, s := range sizes {
		levels[s] = min(i+1, 3)
	}
	return levels
}

func roundSize(s float64) float64 {
	return math.Round(s*2) / 2
}

// cleanFontName maps a PostScript name such as "TimesNewRomanPS-BoldMT" to a
// family name Word understands.
func cleanFontName(name string) string {
	if i := strings.IndexByte(name, '+'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexAny(name, "-,"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSuffix(name, "MT")
	name = strings.TrimSuffix(name, "PS")
	switch strings.ToLower(name) {
	case "":
		return ""
	case "helvetica", "arial", "arialmt":
		return "Arial"
	case "times", "timesroman", "timesnewroman":
		return "Times New Roman"
	case "courier", "couriernew":
		return "Courier New"
	}
	var b strings.Builder
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) && !unicode.IsUpper(rune(name[i-1])) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
