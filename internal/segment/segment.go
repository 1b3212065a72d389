// Package segment splits a source PDF into bounded, standalone chunk documents
// that each carry a run of the selected pages in selection order.
package segment

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultChunkSize is the maximum number of pages sent per structuring call.
const DefaultChunkSize = 5

// SegmentationError reports a source document that could not be loaded or
// split. It is always fatal for the job.
type SegmentationError struct {
	Op  string
	Err error
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("segmentation failed: %s: %v", e.Op, e.Err)
}

func (e *SegmentationError) Unwrap() error { return e.Err }

// Chunk is one standalone document holding Pages (zero-based indices into the
// source) in order.
type Chunk struct {
	Index   int
	Pages   []int
	Payload []byte
}

// FirstPage and LastPage are 1-based.
func (c Chunk) FirstPage() int { return c.Pages[0] + 1 }
func (c Chunk) LastPage() int  { return c.Pages[len(c.Pages)-1] + 1 }

// PageLabel is the 1-based page range covered by the chunk, e.g. "6-10" or "3".
func (c Chunk) PageLabel() string {
	if len(c.Pages) == 0 {
		return ""
	}
	if len(c.Pages) == 1 {
		return strconv.Itoa(c.FirstPage())
	}
	return fmt.Sprintf("%d-%d", c.FirstPage(), c.LastPage())
}

// Source is a validated source PDF held in memory.
type Source struct {
	data      []byte
	pageCount int
	conf      *model.Configuration
}

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// Load validates data as a PDF and reads its page count.
func Load(data []byte) (*Source, error) {
	if len(data) == 0 {
		return nil, &SegmentationError{Op: "load", Err: fmt.Errorf("source document is empty")}
	}
	conf := newConfiguration()
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return nil, &SegmentationError{Op: "validate", Err: err}
	}
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, &SegmentationError{Op: "page count", Err: err}
	}
	if n <= 0 {
		return nil, &SegmentationError{Op: "page count", Err: fmt.Errorf("document has no pages")}
	}
	return &Source{data: data, pageCount: n, conf: conf}, nil
}

// PageCount is the number of pages in the source document.
func (s *Source) PageCount() int { return s.pageCount }

// Partition groups sel into consecutive runs of at most size indices,
// preserving order. A non-positive size uses DefaultChunkSize.
func Partition(sel []int, size int) [][]int {
	if size <= 0 {
		size = DefaultChunkSize
	}
	groups := make([][]int, 0, (len(sel)+size-1)/size)
	for start := 0; start < len(sel); start += size {
		end := min(start+size, len(sel))
		group := make([]int, end-start)
		copy(group, sel[start:end])
		groups = append(groups, group)
	}
	return groups
}

// Segment builds one standalone PDF per group of at most chunkSize pages from
// sel. Any failure aborts the whole segmentation.
func Segment(src *Source, sel []int, chunkSize int) ([]Chunk, error) {
	for _, idx := range sel {
		if idx < 0 || idx >= src.pageCount {
			return nil, &SegmentationError{
				Op:  "select",
				Err: fmt.Errorf("page index %d outside document of %d pages", idx, src.pageCount),
			}
		}
	}

	groups := Partition(sel, chunkSize)
	chunks := make([]Chunk, 0, len(groups))
	for i, pages := range groups {
		payload, err := src.collect(pages)
		if err != nil {
			return nil, &SegmentationError{Op: fmt.Sprintf("build chunk %d", i+1), Err: err}
		}
		chunks = append(chunks, Chunk{Index: i, Pages: pages, Payload: payload})
	}
	return chunks, nil
}

// collect copies the given zero-based pages, in order, into a new document.
func (s *Source) collect(pages []int) ([]byte, error) {
	selected := make([]string, len(pages))
	for i, idx := range pages {
		selected[i] = strconv.Itoa(idx + 1)
	}
	var out bytes.Buffer
	if err := api.Collect(bytes.NewReader(s.data), &out, selected, s.conf); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
