package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/specgest/internal/chunker"
	"github.com/dgallion1/specgest/internal/imdoc"
	"github.com/dgallion1/specgest/internal/infer"
	"github.com/dgallion1/specgest/internal/schema"
)

// fakeEngine returns a canned response or error.
type fakeEngine struct {
	response   string
	err        error
	lastPrompt string
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Infer(ctx context.Context, req infer.Request) (string, error) {
	f.lastPrompt = req.Prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testDescs() []schema.Descriptor {
	return []schema.Descriptor{
		{Name: "RATED_POWER", Section: "electrical", Label: "Rated power", DesiredUnit: "kW"},
		{Name: "MAX_PRESSURE", Section: "hydraulic", DesiredUnit: "bar"},
	}
}

func testChunk() chunker.Chunk {
	return chunker.Chunk{
		Index: 3,
		Elements: []imdoc.Element{
			{Kind: imdoc.KindParagraph, Content: "Rated power 75 kW", Page: 2, BBox: imdoc.BBox{1, 2, 3, 4}},
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestExtractChunk_Success(t *testing.T) {
	eng := &fakeEngine{
		response: `{"parameters": {"RATED_POWER": {"value": 75, "text": "75 kW", "unit": "kW", "page_index": 2, "bbox": [1,2,3,4]}}, "not_found": ["MAX_PRESSURE"]}`,
	}
	stats := infer.NewStats(time.Minute)
	o := NewOrchestrator(eng, stats, discardLogger(), "Pump Datasheet")

	results, err := o.ExtractChunk(context.Background(), testChunk(), testDescs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results["RATED_POWER"].Value != 75 {
		t.Errorf("expected value 75, got %v", results["RATED_POWER"].Value)
	}
	if stats.Snapshot().Count != 1 {
		t.Errorf("expected one latency sample recorded")
	}
}

func TestExtractChunk_PromptCarriesDescriptorsAndProvenance(t *testing.T) {
	eng := &fakeEngine{response: `{"parameters": {}, "not_found": []}`}
	o := NewOrchestrator(eng, nil, discardLogger(), "Pump Datasheet")

	_, err := o.ExtractChunk(context.Background(), testChunk(), testDescs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"RATED_POWER (Rated power) [desired unit: kW]",
		"MAX_PRESSURE",
		`"Pump Datasheet"`,
		"page=2",
		"Rated power 75 kW",
	} {
		if !strings.Contains(eng.lastPrompt, want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}
}

func TestExtractChunk_EngineErrorWrapped(t *testing.T) {
	cause := errors.New("connection refused")
	eng := &fakeEngine{err: cause}
	o := NewOrchestrator(eng, nil, discardLogger(), "")

	_, err := o.ExtractChunk(context.Background(), testChunk(), testDescs())
	var ierr *infer.InferenceError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected *infer.InferenceError, got %T", err)
	}
	if ierr.ChunkIndex != 3 {
		t.Errorf("expected chunk index 3, got %d", ierr.ChunkIndex)
	}
	if ierr.Timeout {
		t.Error("expected no timeout flag")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be wrapped")
	}
}

func TestExtractChunk_TimeoutFlagged(t *testing.T) {
	eng := &fakeEngine{err: context.DeadlineExceeded}
	o := NewOrchestrator(eng, nil, discardLogger(), "")

	_, err := o.ExtractChunk(context.Background(), testChunk(), testDescs())
	var ierr *infer.InferenceError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected *infer.InferenceError, got %T", err)
	}
	if !ierr.Timeout {
		t.Error("expected timeout flag set")
	}
}

func TestExtractChunk_RetryableErrorSurfaces(t *testing.T) {
	// Rate-limit errors keep their type through the wrapping so the
	// caller's retry policy can detect them.
	eng := &fakeEngine{err: &infer.RetryableError{StatusCode: 429, Message: "rate limited"}}
	o := NewOrchestrator(eng, nil, discardLogger(), "")

	_, err := o.ExtractChunk(context.Background(), testChunk(), testDescs())
	var rerr *infer.RetryableError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected retryable error preserved, got %v", err)
	}
}
