// Package imdoc models the machine-readable intermediate representation of a
// source document, as produced by the external layout/OCR service. The engine
// treats it as read-only, already-validated input and never re-derives layout.
package imdoc

// Kind classifies a structural element.
type Kind string

const (
	KindParagraph Kind = "paragraph"
	KindHeading   Kind = "heading"
	KindTable     Kind = "table"
	KindFigure    Kind = "figure"
	KindCaption   Kind = "caption"
)

// BBox is a rectangle in document coordinate space: x0, y0, x1, y1.
type BBox [4]float64

// Element is one structural unit of the intermediate representation with its
// provenance in the source document.
type Element struct {
	Kind    Kind    `json:"kind"`
	Content string  `json:"content"` // serialized form, as shown to the model
	Page    int     `json:"page_index"`
	BBox    BBox    `json:"bbox"`
}

// figureCost approximates the model-side cost of an embedded image:
// ~500 tokens at ~4 characters per token.
const figureCost = 4000

// Size returns the element's serialized character cost for chunking.
func (e Element) Size() int {
	if e.Kind == KindFigure {
		return figureCost
	}
	return len(e.Content)
}

// Document is an ordered sequence of elements. Order is significant: it is
// the reading order assigned by the layout service.
type Document struct {
	Title    string    `json:"title,omitempty"`
	Elements []Element `json:"elements"`
}

// TotalSize is the summed element cost, used for chunk-count estimates.
func (d *Document) TotalSize() int {
	total := 0
	for _, e := range d.Elements {
		total += e.Size()
	}
	return total
}
