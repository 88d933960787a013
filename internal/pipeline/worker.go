package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/specgest/internal/chunker"
	"github.com/dgallion1/specgest/internal/compare"
	"github.com/dgallion1/specgest/internal/config"
	"github.com/dgallion1/specgest/internal/extract"
	"github.com/dgallion1/specgest/internal/imdoc"
	"github.com/dgallion1/specgest/internal/infer"
	"github.com/dgallion1/specgest/internal/layout"
	"github.com/dgallion1/specgest/internal/merge"
	"github.com/dgallion1/specgest/internal/schema"
	"github.com/dgallion1/specgest/internal/units"
)

// Worker processes a single extraction run.
type Worker struct {
	engine infer.Engine
	stats  *infer.Stats
	layout *layout.Client
	specDB map[string]compare.SpecEntry
	log    *slog.Logger
	cfg    config.Config
}

func NewWorker(engine infer.Engine, stats *infer.Stats, lc *layout.Client, specDB map[string]compare.SpecEntry, log *slog.Logger, cfg config.Config) *Worker {
	return &Worker{
		engine: engine,
		stats:  stats,
		layout: lc,
		specDB: specDB,
		log:    log,
		cfg:    cfg,
	}
}

// Process runs the full extraction pipeline for a run.
func (w *Worker) Process(ctx context.Context, run *Run) {
	log := w.log.With("run_id", run.ID)
	in := run.Input()

	// Phase 1: Convert to the intermediate document.
	html := in.HTML
	if html == "" {
		run.SetStatus(StatusConverting, "converting")
		var err error
		html, err = w.layout.Convert(ctx, layout.ConvertRequest{
			Content:       in.SourceData,
			Filename:      in.Filename,
			OCR:           in.OCR,
			OCRLanguages:  w.cfg.OCRLanguages,
			EnhanceLayout: w.cfg.EnhanceLayout,
		})
		if err != nil {
			log.Error("layout conversion failed", "error", err)
			run.AddError(fmt.Sprintf("convert: %s", err))
			run.SetStatus(StatusFailed, "converting")
			return
		}
	}

	doc, err := imdoc.ParseHTML(html)
	if err != nil {
		log.Error("intermediate document parse failed", "error", err)
		run.AddError(fmt.Sprintf("parse: %s", err))
		run.SetStatus(StatusFailed, "converting")
		return
	}
	run.SetTitle(doc.Title)

	// Phase 2: Walk the schema into parameter descriptors.
	run.SetStatus(StatusWalking, "walking")
	walked, err := schema.Walk(in.Schema)
	if err != nil {
		log.Error("schema walk failed", "error", err)
		run.AddError(fmt.Sprintf("schema: %s", err))
		run.SetStatus(StatusFailed, "walking")
		return
	}
	log.Info("schema walked", "params", len(walked.Descriptors))

	// Phase 3: Chunk the document.
	run.SetStatus(StatusChunking, "chunking")
	chunks := chunker.SplitAll(doc, chunker.Config{MaxChars: w.cfg.ChunkMaxChars})
	run.SetTotalChunks(len(chunks))
	log.Info("chunked document", "chunks", len(chunks), "total_size", doc.TotalSize())

	if len(chunks) == 0 {
		log.Warn("no chunks produced")
		run.AddError("no extractable content")
		run.SetStatus(StatusFailed, "chunking")
		return
	}

	// Phase 4: Extract from chunks with bounded concurrency. Results are
	// collected into a slice indexed by chunk position so merge order is
	// document order, not completion order.
	run.SetStatus(StatusExtracting, "extracting")
	orch := extract.NewOrchestrator(w.engine, w.stats, log, doc.Title)

	type chunkResult struct {
		res extract.ChunkResults
		err error
		idx int
	}
	results := make(chan chunkResult, len(chunks))
	sem := make(chan struct{}, w.cfg.MaxConcurrentInfer)

	for _, chunk := range chunks {
		sem <- struct{}{}
		go func(chunk chunker.Chunk) {
			defer func() { <-sem }()
			var res extract.ChunkResults
			var lastErr error
			for attempt := range MaxRetries {
				callCtx, cancel := context.WithTimeout(ctx, w.cfg.InferTimeout)
				res, lastErr = orch.ExtractChunk(callCtx, chunk, walked.Descriptors)
				cancel()
				if lastErr == nil || !IsRetryable(lastErr) {
					break
				}
				log.Warn("retryable extraction error", "chunk", chunk.Index, "attempt", attempt, "error", lastErr)
				select {
				case <-time.After(Backoff(attempt)):
				case <-ctx.Done():
					results <- chunkResult{err: ctx.Err(), idx: chunk.Index}
					return
				}
			}
			results <- chunkResult{res: res, err: lastErr, idx: chunk.Index}
		}(chunk)
	}

	byChunk := make([]extract.ChunkResults, len(chunks))
	hadErrors := false
	succeeded := 0
	for range chunks {
		r := <-results
		run.IncrChunksProcessed()
		if r.err != nil {
			log.Error("extraction failed", "chunk", r.idx, "error", r.err)
			run.AddError(fmt.Sprintf("chunk %d: %s", r.idx, r.err))
			hadErrors = true
			continue
		}
		byChunk[r.idx] = r.res
		succeeded++
	}

	// A cancelled run publishes no result at all.
	if ctx.Err() != nil {
		run.AddError(ctx.Err().Error())
		run.SetStatus(StatusFailed, "extracting")
		return
	}
	if succeeded == 0 {
		run.SetStatus(StatusFailed, "extracting")
		return
	}
	log.Info("extraction complete", "chunks_ok", succeeded, "errors", hadErrors)

	// Phase 5: Merge chunk results into one document-level result.
	run.SetStatus(StatusMerging, "merging")
	strat := in.Strategy
	if strat == "" {
		strat = merge.ParseStrategy(w.cfg.MergeStrategy)
	}
	merged, err := merge.Consolidate(byChunk, walked, strat)
	if err != nil {
		var invErr *merge.InvariantError
		if errors.As(err, &invErr) {
			log.Error("merge invariant violated", "param", invErr.Param, "error", err)
		} else {
			log.Error("merge failed", "error", err)
		}
		run.AddError(fmt.Sprintf("merge: %s", err))
		run.SetStatus(StatusFailed, "merging")
		return
	}
	run.SetParamCounts(len(merged.Resolved), len(merged.NotFound))

	// Phase 6: Normalize units toward each parameter's desired unit.
	// Conversion failures are recorded; the value keeps its source unit.
	run.SetStatus(StatusNormalizing, "normalizing")
	var unitErrors []string
	for _, ce := range units.NormalizeMerged(merged, walked.Descriptors) {
		log.Warn("unit conversion failed", "param", ce.Param, "from", ce.From, "to", ce.To)
		unitErrors = append(unitErrors, ce.Error())
		run.AddError(fmt.Sprintf("units: %s", ce))
	}

	// Phase 7: Compare against the specification database when requested.
	var verdicts []compare.Verdict
	var summary *compare.Summary
	if in.Compare && len(w.specDB) > 0 {
		run.SetStatus(StatusComparing, "comparing")
		eng := compare.NewEngine(w.cfg.CompareTolerance)
		verdicts = eng.Compare(merged, w.specDB)
		s := compare.Summarize(verdicts)
		summary = &s
		log.Info("comparison complete", "conforming", s.Conforming, "non_conforming", s.NonConforming, "unmatched", s.Unmatched)
	}

	run.SetResult(&RunResult{
		Output:     merge.Assemble(walked, merged),
		NotFound:   merged.NotFound,
		Verdicts:   verdicts,
		Summary:    summary,
		UnitErrors: unitErrors,
	})

	if hadErrors {
		run.SetStatus(StatusPartial, "done")
	} else {
		run.SetStatus(StatusCompleted, "done")
	}
}
