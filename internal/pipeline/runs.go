package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/specgest/internal/compare"
	"github.com/dgallion1/specgest/internal/merge"
	"github.com/dgallion1/specgest/internal/schema"
)

// RunStatus represents the state of an extraction run.
type RunStatus string

const (
	StatusQueued      RunStatus = "queued"
	StatusConverting  RunStatus = "converting"
	StatusWalking     RunStatus = "walking"
	StatusChunking    RunStatus = "chunking"
	StatusExtracting  RunStatus = "extracting"
	StatusMerging     RunStatus = "merging"
	StatusNormalizing RunStatus = "normalizing"
	StatusComparing   RunStatus = "comparing"
	StatusCompleted   RunStatus = "completed"
	StatusFailed      RunStatus = "failed"
	StatusPartial     RunStatus = "partial"
)

// RunInput is everything a run needs before processing starts. It is set
// once at submission and read-only afterwards.
type RunInput struct {
	SourceData []byte // raw document bytes, sent to the layout service
	Filename   string
	HTML       string // pre-converted intermediate document, skips conversion
	Schema     *schema.Document
	OCR        bool
	Strategy   merge.Strategy // empty means the configured default
	Compare    bool
}

// RunResult is the final output of a completed or partial run.
type RunResult struct {
	Output     map[string]any    `json:"output"`
	NotFound   []string          `json:"not_found_list"`
	Verdicts   []compare.Verdict `json:"verdicts,omitempty"`
	Summary    *compare.Summary  `json:"summary,omitempty"`
	UnitErrors []string          `json:"unit_errors,omitempty"`
}

// Run tracks the state of a single extraction run.
type Run struct {
	mu sync.Mutex

	ID string `json:"run_id"`

	Status   RunStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename,omitempty"`
	Title    string    `json:"title,omitempty"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	input  RunInput
	result *RunResult
	errors []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalChunks     int      `json:"total_chunks"`
	ChunksProcessed int      `json:"chunks_processed"`
	ParamsResolved  int      `json:"params_resolved"`
	ParamsNotFound  int      `json:"params_not_found"`
	Errors          []string `json:"errors"`
}

// NewRun creates a queued run with a fresh ID.
func NewRun(in RunInput) *Run {
	now := time.Now()
	return &Run{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  in.Filename,
		input:     in,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Input returns the immutable run input.
func (r *Run) Input() RunInput {
	return r.input
}

// SetStatus updates run status atomically.
func (r *Run) SetStatus(status RunStatus, phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	r.Phase = phase
	r.UpdatedAt = time.Now()
}

// SetTitle records the document title once known.
func (r *Run) SetTitle(title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Title = title
	r.UpdatedAt = time.Now()
}

// AddError records an error.
func (r *Run) AddError(err string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
	r.Progress.Errors = r.errors
	r.UpdatedAt = time.Now()
}

// IncrChunksProcessed atomically increments chunks processed.
func (r *Run) IncrChunksProcessed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.ChunksProcessed++
	r.UpdatedAt = time.Now()
}

// SetTotalChunks records total chunk count.
func (r *Run) SetTotalChunks(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.TotalChunks = n
	r.UpdatedAt = time.Now()
}

// SetParamCounts records resolved and not-found parameter counts.
func (r *Run) SetParamCounts(resolved, notFound int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.ParamsResolved = resolved
	r.Progress.ParamsNotFound = notFound
	r.UpdatedAt = time.Now()
}

// SetResult publishes the run output. Only set on completed or partial runs.
func (r *Run) SetResult(res *RunResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = res
	r.UpdatedAt = time.Now()
}

// Result returns the run output, or nil if the run has not produced one.
func (r *Run) Result() *RunResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID        string    `json:"run_id"`
	Status    RunStatus `json:"status"`
	Phase     string    `json:"phase"`
	Filename  string    `json:"filename,omitempty"`
	Title     string    `json:"title,omitempty"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	errs := r.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return RunSnapshot{
		ID:        r.ID,
		Status:    r.Status,
		Phase:     r.Phase,
		Filename:  r.Filename,
		Title:     r.Title,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Progress: Progress{
			TotalChunks:     r.Progress.TotalChunks,
			ChunksProcessed: r.Progress.ChunksProcessed,
			ParamsResolved:  r.Progress.ParamsResolved,
			ParamsNotFound:  r.Progress.ParamsNotFound,
			Errors:          errs,
		},
	}
}

// RunStore is a thread-safe in-memory run registry with TTL eviction.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	return &RunStore{
		runs: make(map[string]*Run),
		ttl:  ttl,
	}
}

func (s *RunStore) Put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// Cleanup removes expired runs.
func (s *RunStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, run := range s.runs {
		run.mu.Lock()
		updated := run.UpdatedAt
		run.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.runs, id)
		}
	}
}
