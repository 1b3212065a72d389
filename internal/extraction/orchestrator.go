// Package extraction drives the chunk-by-chunk calls to a structuring
// capability and gathers their sections in page order.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Lllllllleong/docxflow/internal/segment"
	"github.com/Lllllllleong/docxflow/internal/structure"
)

// FinalizingMessage is reported with 100% once every chunk has been handled.
const FinalizingMessage = "Finalizing document structure..."

// Structurer turns one chunk document into a raw JSON response of the form
// {"sections": [...]}. Implementations own their transport and timeouts.
type Structurer interface {
	Structure(ctx context.Context, chunk segment.Chunk) ([]byte, error)
}

// StructurerFunc adapts a function to the Structurer interface.
type StructurerFunc func(ctx context.Context, chunk segment.Chunk) ([]byte, error)

func (f StructurerFunc) Structure(ctx context.Context, chunk segment.Chunk) ([]byte, error) {
	return f(ctx, chunk)
}

// ProgressFunc receives a percentage in [0, 100] and a human readable message.
// It is called synchronously between chunks.
type ProgressFunc func(percent int, message string)

// ChunkError records why a chunk contributed no sections.
type ChunkError struct {
	Index int
	Pages []int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d (pages %s): %v", e.Index+1, segment.Chunk{Pages: e.Pages}.PageLabel(), e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// ChunkOutcome is the per-chunk result of an extraction run.
type ChunkOutcome struct {
	Index     int
	Pages     []int
	Sections  int
	Attempts  int
	Coercions []structure.Coercion
	Err       error
}

// OK reports whether the chunk was structured successfully.
func (o ChunkOutcome) OK() bool { return o.Err == nil }

// Result is the concatenated sections of every successful chunk, in chunk
// order, plus one outcome per chunk.
type Result struct {
	Sections []structure.Section
	Outcomes []ChunkOutcome
}

// Failed returns the outcomes of chunks that contributed nothing.
func (r Result) Failed() []ChunkOutcome {
	var failed []ChunkOutcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Orchestrator runs a Structurer over chunks one at a time.
type Orchestrator struct {
	structurer Structurer
	retry      RetryPolicy
	log        *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRetry sets the per-chunk retry policy.
func WithRetry(p RetryPolicy) Option {
	return func(o *Orchestrator) { o.retry = p }
}

// WithLogger sets the logger used for chunk diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// NewOrchestrator returns an Orchestrator that does not retry failed chunks
// unless WithRetry says otherwise.
func NewOrchestrator(s Structurer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		structurer: s,
		retry:      NoRetry,
		log:        slog.Default(),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Extract structures chunks strictly in order. A chunk that fails is logged,
// recorded in its outcome and skipped; the remaining chunks still run. The
// only error returned is the context's, when it is cancelled between chunks.
func (o *Orchestrator) Extract(ctx context.Context, chunks []segment.Chunk, onProgress ProgressFunc) (Result, error) {
	if onProgress == nil {
		onProgress = func(int, string) {}
	}

	res := Result{Outcomes: make([]ChunkOutcome, 0, len(chunks))}
	total := len(chunks)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		onProgress(percentBefore(i, total), progressMessage(chunk, i, total))

		sections, outcome := o.extractChunk(ctx, chunk)
		res.Outcomes = append(res.Outcomes, outcome)
		if outcome.Err != nil {
			o.log.Warn("Chunk skipped.",
				"chunk", i+1,
				"pages", chunk.PageLabel(),
				"attempts", outcome.Attempts,
				"error", outcome.Err,
			)
			continue
		}
		for _, c := range outcome.Coercions {
			o.log.Warn("Section type coerced.", "chunk", i+1, "detail", c.String())
		}
		res.Sections = append(res.Sections, sections...)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	onProgress(100, FinalizingMessage)
	return res, nil
}

func (o *Orchestrator) extractChunk(ctx context.Context, chunk segment.Chunk) ([]structure.Section, ChunkOutcome) {
	outcome := ChunkOutcome{Index: chunk.Index, Pages: chunk.Pages}
	attempts := max(o.retry.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		outcome.Attempts = attempt

		sections, coerced, err := o.structureOnce(ctx, chunk)
		if err == nil {
			outcome.Sections = len(sections)
			outcome.Coercions = coerced
			return sections, outcome
		}
		lastErr = err

		if attempt == attempts || ctx.Err() != nil {
			break
		}
		delay := o.retry.Delay(attempt)
		o.log.Debug("Chunk failed, will retry.",
			"pages", chunk.PageLabel(),
			"attempt", attempt,
			"maxAttempts", attempts,
			"backoff", delay.String(),
			"error", err,
		)
		if err := o.sleep(ctx, delay); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
	}

	outcome.Err = &ChunkError{Index: chunk.Index, Pages: chunk.Pages, Err: lastErr}
	return nil, outcome
}

func (o *Orchestrator) structureOnce(ctx context.Context, chunk segment.Chunk) ([]structure.Section, []structure.Coercion, error) {
	raw, err := o.structurer.Structure(ctx, chunk)
	if err != nil {
		return nil, nil, fmt.Errorf("structuring call failed: %w", err)
	}
	return structure.Decode(raw)
}

func percentBefore(i, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(i) / float64(total) * 100))
}

func progressMessage(chunk segment.Chunk, i, total int) string {
	return fmt.Sprintf("Processing pages %s (Batch %d/%d)...", chunk.PageLabel(), i+1, total)
}
