// Package pdftest builds small but well-formed PDF documents for tests and
// reads their text back.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// Line is one line of text drawn in Helvetica at Size points.
type Line struct {
	Text string
	Size float64
}

// Page lists the lines drawn top to bottom on an A4 page.
type Page struct {
	Lines []Line
}

// Text is a page holding a single 12pt line.
func Text(s string) Page {
	return Page{Lines: []Line{{Text: s, Size: 12}}}
}

// Numbered builds an n-page document whose page i reads "Page i".
func Numbered(n int) []byte {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Text(fmt.Sprintf("Page %d", i+1))
	}
	return Build(pages...)
}

// Build writes a PDF 1.4 file containing pages, with a classic xref table.
func Build(pages ...Page) []byte {
	const (
		catalogID = 1
		pagesID   = 2
		fontID    = 3
		firstPage = 4
	)

	var objs []string
	objs = append(objs, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesID))

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", firstPage+2*i)
	}
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, p := range pages {
		contentID := firstPage + 2*i + 1
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			pagesID, fontID, contentID))
		stream := contentStream(p)
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, catalogID, xref)
	return buf.Bytes()
}

func contentStream(p Page) string {
	var b strings.Builder
	y := 770.0
	for _, l := range p.Lines {
		size := l.Size
		if size <= 0 {
			size = 12
		}
		fmt.Fprintf(&b, "BT /F1 %g Tf 72 %g Td (%s) Tj ET\n", size, y, escape(l.Text))
		y -= size * 1.6
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// PageTexts returns the trimmed plain text of every page in data.
func PageTexts(data []byte) ([]string, error) {
	r, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		texts = append(texts, strings.TrimSpace(s))
	}
	return texts, nil
}
