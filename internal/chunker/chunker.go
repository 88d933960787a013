// Package chunker partitions an intermediate document into bounded-size
// chunks for model consumption. Boundaries fall only between structural
// elements; concatenating all chunks reproduces the input exactly.
package chunker

import (
	"iter"

	"github.com/dgallion1/specgest/internal/imdoc"
)

// DefaultMaxChars bounds a chunk's serialized size. Sized for large-context
// models; figure elements count a fixed cost, see imdoc.Element.Size.
const DefaultMaxChars = 450000

// Config controls chunking behavior.
type Config struct {
	MaxChars int // serialized character threshold per chunk
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxChars: DefaultMaxChars}
}

// Chunk is a contiguous sub-sequence of document elements.
type Chunk struct {
	Index    int
	Elements []imdoc.Element
}

// Size is the summed serialized cost of the chunk's elements.
func (c Chunk) Size() int {
	total := 0
	for _, e := range c.Elements {
		total += e.Size()
	}
	return total
}

// Split partitions the document greedily: elements are appended to the
// current chunk until the next element would exceed the threshold, then a
// new chunk starts. A single element that alone exceeds the threshold is
// emitted as its own chunk rather than dropped or truncated.
//
// The returned sequence is lazy and restartable; ranging over it twice
// yields identical chunks.
func Split(doc *imdoc.Document, cfg Config) iter.Seq2[int, Chunk] {
	max := cfg.MaxChars
	if max <= 0 {
		max = DefaultMaxChars
	}
	return func(yield func(int, Chunk) bool) {
		var cur []imdoc.Element
		size := 0
		index := 0

		flush := func() bool {
			if len(cur) == 0 {
				return true
			}
			ok := yield(index, Chunk{Index: index, Elements: cur})
			index++
			cur = nil
			size = 0
			return ok
		}

		for _, el := range doc.Elements {
			cost := el.Size()
			if size > 0 && size+cost > max {
				if !flush() {
					return
				}
			}
			cur = append(cur, el)
			size += cost
		}
		flush()
	}
}

// SplitAll collects the chunk sequence into a slice.
func SplitAll(doc *imdoc.Document, cfg Config) []Chunk {
	var chunks []Chunk
	for _, c := range Split(doc, cfg) {
		chunks = append(chunks, c)
	}
	return chunks
}
