// Package render writes a structured document as an OOXML word-processing
// document (.docx).
package render

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/fumiama/go-docx"

	"github.com/Lllllllleong/docxflow/internal/structure"
)

// ContentType is the media type of the rendered output.
const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const (
	a4Width      = 11906
	a4Height     = 16838
	inch         = 1440 // twips
	halfInch     = 720
	maxHalfPoint = 3276
)

// SectionError reports a section that could not be rendered and was dropped.
type SectionError struct {
	Index int
	Kind  structure.Kind
	Err   error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section %d (%s) skipped: %v", e.Index, e.Kind, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }

// PackageError reports a failure to serialise the final container.
type PackageError struct {
	Err error
}

func (e *PackageError) Error() string { return fmt.Sprintf("packaging document failed: %v", e.Err) }

func (e *PackageError) Unwrap() error { return e.Err }

// Report describes what happened to each section during a render.
type Report struct {
	Rendered int
	Skipped  []*SectionError
	Notes    []string
}

// Renderer turns a structure.Document into .docx bytes. It holds no per-call
// state and may be shared.
type Renderer struct {
	log *slog.Logger
}

// New returns a Renderer that logs through l, or slog.Default when l is nil.
func New(l *slog.Logger) *Renderer {
	if l == nil {
		l = slog.Default()
	}
	return &Renderer{log: l}
}

// Render lays out every section on A4 pages with one inch margins. A section
// that fails is removed from the output and reported; only a packaging
// failure returns an error.
func (r *Renderer) Render(doc structure.Document) ([]byte, Report, error) {
	f := newDocument()

	var rep Report
	for i, s := range doc.Sections {
		note, err := r.renderSection(f, s)
		if err != nil {
			se := &SectionError{Index: i, Kind: s.Kind, Err: err}
			r.log.Warn("Section skipped.", "section", i, "type", s.Kind, "error", err)
			rep.Skipped = append(rep.Skipped, se)
			continue
		}
		if note != "" {
			n := fmt.Sprintf("section %d: %s", i, note)
			r.log.Warn("Section adjusted.", "detail", n)
			rep.Notes = append(rep.Notes, n)
		}
		rep.Rendered++
	}

	f.Document.Body.Items = append(f.Document.Body.Items, &docx.SectPr{
		PgSz: &docx.PgSz{W: a4Width, H: a4Height},
		PgMar: &docx.PgMar{
			Top: inch, Right: inch, Bottom: inch, Left: inch,
			Header: halfInch, Footer: halfInch,
		},
	})

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		r.log.Error("Failed to package document.", "error", err)
		return nil, rep, &PackageError{Err: err}
	}
	out, err := linkNumbering(buf.Bytes())
	if err != nil {
		r.log.Error("Failed to link list numbering.", "error", err)
		return nil, rep, &PackageError{Err: err}
	}
	return out, rep, nil
}

func newDocument() *docx.Docx {
	return docx.New().UseTemplate(templateName, templateParts, templateFS{})
}

// renderSection appends the blocks for s. Anything it appended is rolled back
// when it fails, including by panic.
func (r *Renderer) renderSection(f *docx.Docx, s structure.Section) (note string, err error) {
	mark := len(f.Document.Body.Items)
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		if err != nil {
			f.Document.Body.Items = f.Document.Body.Items[:mark]
		}
	}()

	st := structure.Resolve(s)
	if st.SizePt*2 > maxHalfPoint {
		return "", fmt.Errorf("font size %gpt is larger than %dpt", st.SizePt, maxHalfPoint/2)
	}

	switch s.Kind {
	case structure.KindHeading:
		level := s.Level
		if level < 1 || level > 3 {
			note = fmt.Sprintf("heading level %d rendered as level 1", s.Level)
			level = 1
		}
		styledRun(f.AddParagraph().Style("Heading"+strconv.Itoa(level)), s.Text, st).Bold()
	case structure.KindList:
		for _, item := range s.Items {
			p := f.AddParagraph().Style("ListBullet").NumPr(bulletNumID, "0")
			styledRun(p, item, st)
		}
	default:
		styledRun(f.AddParagraph().Style("BodyText"), s.Text, st)
	}
	return note, nil
}

func styledRun(p *docx.Paragraph, text string, st structure.Style) *docx.Run {
	size := strconv.Itoa(st.HalfPoints())
	return p.AddText(text).
		Font(st.FontFamily, st.FontFamily, st.FontFamily, "").
		Size(size).
		SizeCs(size)
}
