package render

import (
	"archive/zip"
	"bytes"
	"embed"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"
)

const templateName = "docxflow"

const (
	numberingPart = "word/numbering.xml"
	documentRels  = "word/_rels/document.xml.rels"
	relNumbering  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"

	// bulletNumID is the w:num in numbering.xml that draws list bullets.
	bulletNumID = "1"
)

//go:embed template
var templateFiles embed.FS

// templateParts is the stock part list plus the bullet numbering definitions.
var templateParts = append(append([]string(nil), docx.DefaultTemplateFilesList...), numberingPart)

// templateFS serves our styles, numbering, content types and document
// properties and falls back to the stock go-docx template for every other
// package part.
type templateFS struct{}

func (templateFS) Open(name string) (fs.File, error) {
	rel := strings.TrimPrefix(name, "xml/"+templateName+"/")
	f, err := templateFiles.Open("template/" + rel)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return docx.TemplateXMLFS.Open("xml/default/" + rel)
}

// linkNumbering rewrites the packaged document so its relationships point at
// the numbering part. go-docx generates document.xml.rels itself and only
// knows about styles, theme and fonts.
func linkNumbering(pkg []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(pkg), int64(len(pkg)))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, zf := range zr.File {
		data, err := readZipFile(zf)
		if err != nil {
			return nil, err
		}
		if zf.Name == documentRels {
			if data, err = addNumberingRelation(data); err != nil {
				return nil, fmt.Errorf("%s: %w", documentRels, err)
			}
		}
		w, err := zw.Create(zf.Name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readZipFile(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func addNumberingRelation(data []byte) ([]byte, error) {
	var rels docx.Relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, err
	}
	next := uint64(0)
	for _, r := range rels.Relationship {
		if r.Type == relNumbering {
			return data, nil
		}
		if n, err := strconv.ParseUint(strings.TrimPrefix(r.ID, "rId"), 10, 64); err == nil && n > next {
			next = n
		}
	}
	rels.Xmlns = docx.XMLNS_REL
	rels.Relationship = append(rels.Relationship, docx.Relationship{
		ID:     "rId" + strconv.FormatUint(next+1, 10),
		Type:   relNumbering,
		Target: "numbering.xml",
	})

	var out bytes.Buffer
	out.WriteString(xml.Header)
	if err := xml.NewEncoder(&out).Encode(&rels); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
