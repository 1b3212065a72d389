// Package conversion runs one PDF to DOCX job through segmentation,
// extraction, assembly and rendering, reporting every state transition.
package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/docxflow/internal/extraction"
	"github.com/Lllllllleong/docxflow/internal/pagerange"
	"github.com/Lllllllleong/docxflow/internal/render"
	"github.com/Lllllllleong/docxflow/internal/segment"
	"github.com/Lllllllleong/docxflow/internal/structure"
)

// ErrSelectionEmpty is returned when the page specification selects no pages.
var ErrSelectionEmpty = errors.New("no valid pages selected for conversion")

// State is a step of a conversion job.
type State int

const (
	StateIdle State = iota
	StateSegmenting
	StateExtractingChunk
	StateAssembling
	StateRendering
	StateDone
	StateFailed
)

var stateNames = [...]string{"IDLE", "SEGMENTING", "EXTRACTING", "ASSEMBLING", "RENDERING", "DONE", "FAILED"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// Event is emitted on every transition and on every progress report while
// extracting. Chunk is 1-based and only set in StateExtractingChunk.
type Event struct {
	State       State
	Chunk       int
	TotalChunks int
	Percent     int
	Message     string
	Err         error
}

// Observer receives events synchronously, in order.
type Observer func(Event)

// Request is one conversion job.
type Request struct {
	Source     []byte
	SourceName string
	PageSpec   string
}

// Result is a finished job. Skipped chunks and sections are reported, not
// hidden: ChunkOutcomes holds every chunk and Report every dropped section.
type Result struct {
	Document      []byte
	Filename      string
	ContentType   string
	PageCount     int
	Selection     pagerange.Selection
	Chunks        int
	Sections      int
	ChunkOutcomes []extraction.ChunkOutcome
	Report        render.Report
}

// SkippedChunks returns the outcomes of chunks that contributed nothing.
func (r *Result) SkippedChunks() []extraction.ChunkOutcome {
	return extraction.Result{Outcomes: r.ChunkOutcomes}.Failed()
}

// Converter wires the pipeline stages. It is safe for concurrent use as long
// as its Structurer is.
type Converter struct {
	orchestrator *extraction.Orchestrator
	renderer     *render.Renderer
	chunkSize    int
	log          *slog.Logger
}

// Option configures a Converter.
type Option func(*converterOptions)

type converterOptions struct {
	chunkSize int
	retry     extraction.RetryPolicy
	log       *slog.Logger
}

// WithChunkSize bounds the pages per structuring call.
func WithChunkSize(n int) Option {
	return func(o *converterOptions) { o.chunkSize = n }
}

// WithRetry sets the per-chunk retry policy.
func WithRetry(p extraction.RetryPolicy) Option {
	return func(o *converterOptions) { o.retry = p }
}

// WithLogger sets the logger shared by all stages.
func WithLogger(l *slog.Logger) Option {
	return func(o *converterOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// New returns a Converter that structures chunks with s.
func New(s extraction.Structurer, opts ...Option) *Converter {
	o := converterOptions{
		chunkSize: segment.DefaultChunkSize,
		retry:     extraction.NoRetry,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.chunkSize <= 0 {
		o.chunkSize = segment.DefaultChunkSize
	}
	return &Converter{
		orchestrator: extraction.NewOrchestrator(s, extraction.WithRetry(o.retry), extraction.WithLogger(o.log)),
		renderer:     render.New(o.log),
		chunkSize:    o.chunkSize,
		log:          o.log,
	}
}

// job tracks the state of one Convert call.
type job struct {
	state   State
	percent int
	observe Observer
}

func newJob(observe Observer) *job {
	if observe == nil {
		observe = func(Event) {}
	}
	return &job{state: StateIdle, observe: observe}
}

func (j *job) emit(ev Event) {
	if ev.Percent < j.percent {
		ev.Percent = j.percent
	}
	j.state, j.percent = ev.State, ev.Percent
	j.observe(ev)
}

func (j *job) fail(err error) error {
	j.emit(Event{State: StateFailed, Message: err.Error(), Err: err})
	return err
}

// Convert runs req to completion. It fails with ErrSelectionEmpty, a
// *segment.SegmentationError, a *render.PackageError or the context's error;
// chunk and section failures are reported in the Result instead.
func (c *Converter) Convert(ctx context.Context, req Request, observe Observer) (*Result, error) {
	j := newJob(observe)
	logCtx := c.log.With("source", req.SourceName, "pageSpec", req.PageSpec)

	res, doc, err := c.structure(ctx, j, logCtx, req)
	if err != nil {
		return nil, j.fail(err)
	}

	j.emit(Event{State: StateRendering, Percent: 100, Message: "Generating Word document..."})
	data, report, err := c.renderer.Render(doc)
	if err != nil {
		logCtx.Error("Failed to render document.", "error", err)
		return nil, j.fail(err)
	}
	res.Document = data
	res.ContentType = render.ContentType
	res.Report = report

	j.emit(Event{State: StateDone, Percent: 100, Message: "Conversion complete."})
	logCtx.Info("Conversion complete.",
		"sections", res.Sections,
		"skippedChunks", len(res.SkippedChunks()),
		"skippedSections", len(report.Skipped),
		"bytes", len(data),
	)
	return res, nil
}

// Structure runs req up to assembly and returns the structured document
// without rendering it. The Result carries everything except the rendered
// package and its Report.
func (c *Converter) Structure(ctx context.Context, req Request, observe Observer) (structure.Document, *Result, error) {
	j := newJob(observe)
	logCtx := c.log.With("source", req.SourceName, "pageSpec", req.PageSpec)

	res, doc, err := c.structure(ctx, j, logCtx, req)
	if err != nil {
		return structure.Document{}, nil, j.fail(err)
	}
	j.emit(Event{State: StateDone, Percent: 100, Message: "Structure extracted."})
	return doc, res, nil
}

func (c *Converter) structure(ctx context.Context, j *job, logCtx *slog.Logger, req Request) (*Result, structure.Document, error) {
	j.emit(Event{State: StateSegmenting, Message: "Reading source document..."})
	src, err := segment.Load(req.Source)
	if err != nil {
		logCtx.Error("Failed to load source document.", "error", err)
		return nil, structure.Document{}, err
	}

	sel := pagerange.Parse(req.PageSpec, src.PageCount())
	if len(sel) == 0 {
		logCtx.Warn("Page selection is empty.", "pageCount", src.PageCount())
		return nil, structure.Document{}, fmt.Errorf("%w: %q against %d pages", ErrSelectionEmpty, req.PageSpec, src.PageCount())
	}

	chunks, err := segment.Segment(src, sel, c.chunkSize)
	if err != nil {
		logCtx.Error("Failed to segment source document.", "error", err)
		return nil, structure.Document{}, err
	}
	logCtx.Info("Source segmented.", "pageCount", src.PageCount(), "selected", sel.String(), "chunks", len(chunks))

	batch := 0
	extracted, err := c.orchestrator.Extract(ctx, chunks, func(percent int, message string) {
		if percent >= 100 {
			j.emit(Event{State: StateAssembling, Percent: percent, Message: message})
			return
		}
		batch++
		j.emit(Event{State: StateExtractingChunk, Chunk: batch, TotalChunks: len(chunks), Percent: percent, Message: message})
	})
	if err != nil {
		logCtx.Warn("Conversion abandoned.", "error", err)
		return nil, structure.Document{}, err
	}

	doc := structure.Assemble(extracted.Sections)
	return &Result{
		Filename:      pagerange.OutputFilename(req.SourceName, req.PageSpec),
		PageCount:     src.PageCount(),
		Selection:     sel,
		Chunks:        len(chunks),
		Sections:      len(doc.Sections),
		ChunkOutcomes: extracted.Outcomes,
	}, doc, nil
}
