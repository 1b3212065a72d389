package render

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/docxflow/internal/structure"
)

type renderedDoc struct {
	paragraphs []*docx.Paragraph
	sect       *docx.SectPr
	lastItem   interface{}
}

func parse(t *testing.T, data []byte) renderedDoc {
	t.Helper()
	d, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var out renderedDoc
	for _, item := range d.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			out.paragraphs = append(out.paragraphs, v)
		case *docx.SectPr:
			out.sect = v
		}
		out.lastItem = item
	}
	return out
}

func firstRun(t *testing.T, p *docx.Paragraph) *docx.Run {
	t.Helper()
	for _, c := range p.Children {
		if r, ok := c.(*docx.Run); ok {
			return r
		}
	}
	t.Fatalf("paragraph has no run")
	return nil
}

func styleOf(p *docx.Paragraph) string {
	if p.Properties == nil || p.Properties.Style == nil {
		return ""
	}
	return p.Properties.Style.Val
}

func readPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(b)
	}
	t.Fatalf("part %s not found", name)
	return ""
}

func TestRenderMapsSections(t *testing.T) {
	doc := structure.Document{Sections: []structure.Section{
		structure.Heading(2, "Overview").WithFont("Georgia", 18),
		structure.Paragraph("Body text."),
		structure.List("first", "second"),
	}}

	data, rep, err := New(nil).Render(doc)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Rendered)
	assert.Empty(t, rep.Skipped)
	assert.Empty(t, rep.Notes)

	got := parse(t, data)
	require.Len(t, got.paragraphs, 4)

	heading := got.paragraphs[0]
	assert.Equal(t, "Heading2", styleOf(heading))
	hr := firstRun(t, heading)
	require.NotNil(t, hr.RunProperties)
	assert.NotNil(t, hr.RunProperties.Bold)
	assert.Equal(t, "36", hr.RunProperties.Size.Val)
	assert.Equal(t, "Georgia", hr.RunProperties.Fonts.ASCII)
	assert.Equal(t, "Overview", heading.String())

	body := got.paragraphs[1]
	assert.Equal(t, "BodyText", styleOf(body))
	br := firstRun(t, body)
	assert.Nil(t, br.RunProperties.Bold)
	assert.Equal(t, "24", br.RunProperties.Size.Val)
	assert.Equal(t, "Calibri", br.RunProperties.Fonts.ASCII)

	for i, want := range []string{"first", "second"} {
		item := got.paragraphs[2+i]
		assert.Equal(t, "ListBullet", styleOf(item))
		assert.Equal(t, want, item.String())
		require.NotNil(t, item.Properties.NumProperties)
		assert.Equal(t, bulletNumID, item.Properties.NumProperties.NumID.Val)
		assert.Equal(t, "0", item.Properties.NumProperties.Ilvl.Val)
	}
}

func TestRenderLinksBulletNumbering(t *testing.T) {
	data, _, err := New(nil).Render(structure.Document{Sections: []structure.Section{structure.List("only")}})
	require.NoError(t, err)

	numbering := readPart(t, data, numberingPart)
	assert.Contains(t, numbering, `<w:num w:numId="`+bulletNumID+`">`)
	assert.Contains(t, numbering, `<w:numFmt w:val="bullet"/>`)

	assert.Contains(t, readPart(t, data, "[Content_Types].xml"), `PartName="/word/numbering.xml"`)

	d, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var targets []string
	require.NoError(t, d.RangeRelationships(func(r *docx.Relationship) error {
		if r.Type == relNumbering {
			targets = append(targets, r.Target)
		}
		return nil
	}))
	assert.Equal(t, []string{"numbering.xml"}, targets)
}

func TestAddNumberingRelationNextID(t *testing.T) {
	in := `<Relationships xmlns="` + docx.XMLNS_REL + `">` +
		`<Relationship Id="rId1" Type="t1" Target="styles.xml"></Relationship>` +
		`<Relationship Id="rId7" Type="t2" Target="media/image1.png"></Relationship>` +
		`</Relationships>`
	out, err := addNumberingRelation([]byte(in))
	require.NoError(t, err)
	assert.Contains(t, string(out), `Id="rId8" Type="`+relNumbering+`" Target="numbering.xml"`)

	again, err := addNumberingRelation(out)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestRenderPageGeometry(t *testing.T) {
	data, _, err := New(nil).Render(structure.Assemble(nil))
	require.NoError(t, err)

	got := parse(t, data)
	require.NotNil(t, got.sect)
	assert.Same(t, got.sect, got.lastItem)
	require.NotNil(t, got.sect.PgMar)
	assert.Equal(t, 1440, got.sect.PgMar.Top)
	assert.Equal(t, 1440, got.sect.PgMar.Bottom)
	assert.Equal(t, 1440, got.sect.PgMar.Left)
	assert.Equal(t, 1440, got.sect.PgMar.Right)

	require.Len(t, got.paragraphs, 1)
	assert.Equal(t, structure.FallbackText, got.paragraphs[0].String())
}

func TestRenderNormalisesHeadingLevel(t *testing.T) {
	doc := structure.Document{Sections: []structure.Section{structure.Heading(5, "Deep")}}

	data, rep, err := New(nil).Render(doc)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Rendered)
	require.Len(t, rep.Notes, 1)
	assert.Contains(t, rep.Notes[0], "heading level 5 rendered as level 1")

	got := parse(t, data)
	require.Len(t, got.paragraphs, 1)
	assert.Equal(t, "Heading1", styleOf(got.paragraphs[0]))
}

func TestRenderSkipsFailingSectionOnly(t *testing.T) {
	doc := structure.Document{Sections: []structure.Section{
		structure.Paragraph("before"),
		structure.List("a", "b").WithFont("Arial", 5000),
		structure.Paragraph("after"),
	}}

	data, rep, err := New(nil).Render(doc)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Rendered)
	require.Len(t, rep.Skipped, 1)
	assert.Equal(t, 1, rep.Skipped[0].Index)
	assert.Equal(t, structure.KindList, rep.Skipped[0].Kind)

	got := parse(t, data)
	require.Len(t, got.paragraphs, 2)
	assert.Equal(t, "before", got.paragraphs[0].String())
	assert.Equal(t, "after", got.paragraphs[1].String())
}

func TestRenderEmptyListProducesNoBlocks(t *testing.T) {
	doc := structure.Document{Sections: []structure.Section{
		structure.List(),
		structure.Paragraph("only"),
	}}
	data, rep, err := New(nil).Render(doc)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Rendered)
	assert.Len(t, parse(t, data).paragraphs, 1)
}

func TestRenderPackageParts(t *testing.T) {
	data, _, err := New(nil).Render(structure.Assemble(nil))
	require.NoError(t, err)

	styles := readPart(t, data, "word/styles.xml")
	assert.Contains(t, styles, `w:styleId="Heading1"`)
	assert.Contains(t, styles, `w:styleId="ListBullet"`)
	assert.Contains(t, styles, `<w:jc w:val="both"/>`)

	core := readPart(t, data, "docProps/core.xml")
	assert.Contains(t, core, "<dc:title>Converted Document</dc:title>")

	assert.Contains(t, readPart(t, data, "[Content_Types].xml"), "wordprocessingml.document.main+xml")
	assert.NotEmpty(t, readPart(t, data, "word/theme/theme1.xml"))
}
