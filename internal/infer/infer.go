// Package infer defines the injected inference capability and its
// production engines. The engine is the sole source of InferenceError; it
// performs no retries itself; retry policy belongs to the caller.
package infer

import (
	"context"
	"fmt"
)

// Request is one inference call: a system instruction and the prompt built
// from a chunk's content and its parameter subset.
type Request struct {
	System string
	Prompt string
}

// Engine is the external inference capability. Implementations must be safe
// for concurrent use; calls carry no shared state between chunks.
type Engine interface {
	Name() string
	Infer(ctx context.Context, req Request) (string, error)
}

// InferenceError reports that an external inference call could not be
// completed for a chunk.
type InferenceError struct {
	ChunkIndex int
	Timeout    bool
	Err        error
}

func (e *InferenceError) Error() string {
	kind := "inference error"
	if e.Timeout {
		kind = "inference timeout"
	}
	return fmt.Sprintf("%s (chunk %d): %v", kind, e.ChunkIndex, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// RetryableError indicates a transient upstream failure worth retrying.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
