package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/specgest/internal/compare"
	"github.com/dgallion1/specgest/internal/config"
	"github.com/dgallion1/specgest/internal/infer"
	"github.com/dgallion1/specgest/internal/layout"
)

// Orchestrator manages the extraction run pipeline.
type Orchestrator struct {
	runs   *RunStore
	queue  chan *Run
	engine infer.Engine
	stats  *infer.Stats
	layout *layout.Client
	specDB map[string]compare.SpecEntry
	log    *slog.Logger
	cfg    config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex // guards queue close against concurrent Submit
	stopped bool
}

// NewOrchestrator creates the pipeline. Start must be called before Submit.
func NewOrchestrator(cfg config.Config, engine infer.Engine, lc *layout.Client, specDB map[string]compare.SpecEntry, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		runs:   NewRunStore(cfg.RunTTL),
		queue:  make(chan *Run, cfg.MaxQueueSize),
		engine: engine,
		stats:  infer.NewStats(time.Hour),
		layout: lc,
		specDB: specDB,
		log:    log,
		cfg:    cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.engine, o.stats, o.layout, o.specDB, o.log, o.cfg)
			for {
				select {
				case <-workerCtx.Done():
					return
				case run, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, run)
				}
			}
		}()
	}

	// Start run store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.runs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline. Submits arriving after Stop are
// rejected rather than racing the queue close.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Lock()
	if !o.stopped {
		o.stopped = true
		close(o.queue)
	}
	o.mu.Unlock()
	o.wg.Wait()
}

// Submit queues a new run for processing.
func (o *Orchestrator) Submit(run *Run) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		run.SetStatus(StatusFailed, "shutting_down")
		return fmt.Errorf("pipeline is shutting down")
	}
	o.runs.Put(run)
	select {
	case o.queue <- run:
		return nil
	default:
		run.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("run queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetRun returns a run by ID.
func (o *Orchestrator) GetRun(id string) *Run {
	return o.runs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// InferStats returns the inference latency snapshot for the stats endpoint.
func (o *Orchestrator) InferStats() infer.StatsSnapshot {
	return o.stats.Snapshot()
}

// SpecDB exposes the loaded specification database for direct comparison
// requests that bypass the run pipeline.
func (o *Orchestrator) SpecDB() map[string]compare.SpecEntry {
	return o.specDB
}
