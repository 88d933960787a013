// Package extract turns one chunk of the intermediate document into partial
// extraction results by prompting the injected inference engine and
// validating its response.
package extract

import (
	"github.com/dgallion1/specgest/internal/imdoc"
)

// Result is one parameter's extraction from one chunk, with provenance.
type Result struct {
	Value   float64    `json:"value"`
	Numeric bool       `json:"numeric"` // false when the matched value is plain text
	Text    string     `json:"text"`    // raw matched string from the document
	Unit    string     `json:"unit,omitempty"`
	Page    int        `json:"page_index"`
	BBox    imdoc.BBox `json:"bbox"`
}

// ChunkResults maps parameter name to its result for a single chunk.
// A missing key means the parameter was not found in that chunk.
type ChunkResults map[string]Result
