package extract

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgallion1/specgest/internal/chunker"
	"github.com/dgallion1/specgest/internal/infer"
	"github.com/dgallion1/specgest/internal/schema"
)

// Orchestrator runs extraction for individual chunks. It holds no state
// shared between chunk invocations, so chunks may be processed in any order
// or concurrently. It never retries: a failed external call surfaces as
// *infer.InferenceError for the caller's retry policy.
type Orchestrator struct {
	engine   infer.Engine
	stats    *infer.Stats
	log      *slog.Logger
	docTitle string
}

func NewOrchestrator(engine infer.Engine, stats *infer.Stats, log *slog.Logger, docTitle string) *Orchestrator {
	return &Orchestrator{
		engine:   engine,
		stats:    stats,
		log:      log,
		docTitle: docTitle,
	}
}

// ExtractChunk prompts the engine with one chunk and the full descriptor set
// and parses the response. Malformed or partially-missing leaves degrade to
// "absent for this chunk"; only a failed external call returns an error.
func (o *Orchestrator) ExtractChunk(ctx context.Context, chunk chunker.Chunk, descs []schema.Descriptor) (ChunkResults, error) {
	prompt := BuildChunkPrompt(o.docTitle, descs, chunk)

	start := time.Now()
	raw, err := o.engine.Infer(ctx, infer.Request{System: SystemPrompt, Prompt: prompt})
	if o.stats != nil {
		o.stats.Record(time.Since(start))
	}
	if err != nil {
		return nil, &infer.InferenceError{
			ChunkIndex: chunk.Index,
			Timeout:    errors.Is(err, context.DeadlineExceeded),
			Err:        err,
		}
	}

	known := make(map[string]bool, len(descs))
	for _, d := range descs {
		known[d.Name] = true
	}
	results, dropped := parseResponse(raw, known)
	if dropped > 0 {
		o.log.Warn("dropped malformed leaves", "chunk", chunk.Index, "dropped", dropped)
	}
	return results, nil
}
