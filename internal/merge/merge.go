// Package merge consolidates per-chunk extraction results into one
// schema-conformant result with provenance and a not-found list.
package merge

import (
	"fmt"

	"github.com/dgallion1/specgest/internal/extract"
	"github.com/dgallion1/specgest/internal/schema"
)

// Strategy selects how conflicting chunk findings for the same parameter are
// resolved. Documents are assumed to state each parameter meaningfully once
// near its first occurrence, so first-wins is the default.
type Strategy string

const (
	FirstWins Strategy = "first_wins"
	LastWins  Strategy = "last_wins"
)

// ParseStrategy maps a config string to a Strategy, defaulting to FirstWins.
func ParseStrategy(s string) Strategy {
	if Strategy(s) == LastWins {
		return LastWins
	}
	return FirstWins
}

// Resolved is a parameter's winning extraction plus the chunk it came from.
type Resolved struct {
	extract.Result
	ChunkIndex int `json:"chunk_index"`
}

// MergedResult maps every requested parameter to either a resolved value or
// membership in the not-found list. The two are disjoint and together cover
// the full descriptor set.
type MergedResult struct {
	Resolved map[string]Resolved `json:"resolved"`
	NotFound []string            `json:"not_found"` // descriptor walk order
}

// InvariantError signals a broken merge invariant. It is a programming
// error, not a recoverable user-facing condition.
type InvariantError struct {
	Param string
	Msg   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("merge invariant violated for %s: %s", e.Param, e.Msg)
}

// Consolidate merges the ordered per-chunk extraction maps. The slice index
// is the chunk's document-order index; completion order must not leak in
// here; the pipeline collects results into position before calling.
func Consolidate(chunks []extract.ChunkResults, walked *schema.Walked, strat Strategy) (*MergedResult, error) {
	merged := &MergedResult{
		Resolved: make(map[string]Resolved, len(walked.Descriptors)),
	}

	for _, d := range walked.Descriptors {
		found := false
		for i, chunk := range chunks {
			res, ok := chunk[d.Name]
			if !ok {
				continue
			}
			merged.Resolved[d.Name] = Resolved{Result: res, ChunkIndex: i}
			found = true
			if strat == FirstWins {
				break
			}
		}
		if !found {
			merged.NotFound = append(merged.NotFound, d.Name)
		}
	}

	if err := checkInvariant(merged, walked); err != nil {
		return nil, err
	}
	return merged, nil
}

// checkInvariant verifies that every descriptor name appears in exactly one
// of {resolved, not-found} and nothing else appears at all.
func checkInvariant(m *MergedResult, walked *schema.Walked) error {
	names := make(map[string]bool, len(walked.Descriptors))
	for _, d := range walked.Descriptors {
		names[d.Name] = true
	}

	notFound := make(map[string]bool, len(m.NotFound))
	for _, name := range m.NotFound {
		if notFound[name] {
			return &InvariantError{Param: name, Msg: "listed as not found twice"}
		}
		notFound[name] = true
	}

	for name := range m.Resolved {
		if !names[name] {
			return &InvariantError{Param: name, Msg: "resolved but never requested"}
		}
		if notFound[name] {
			return &InvariantError{Param: name, Msg: "both resolved and not found"}
		}
	}
	for name := range notFound {
		if !names[name] {
			return &InvariantError{Param: name, Msg: "not found but never requested"}
		}
	}
	for name := range names {
		if _, ok := m.Resolved[name]; !ok && !notFound[name] {
			return &InvariantError{Param: name, Msg: "neither resolved nor not found"}
		}
	}
	return nil
}
