// Package compare matches normalized extraction results against a
// specification database and classifies each parameter's conformance.
// Matching is by exact parameter name; alias resolution is an external
// pre-processing concern.
package compare

import (
	"math"
	"sort"
	"strings"

	"github.com/dgallion1/specgest/internal/merge"
	"github.com/dgallion1/specgest/internal/units"
)

// EntryType selects the conformance rule of a specification entry.
type EntryType string

const (
	TypeExact EntryType = "A" // equal within tolerance
	TypeMin   EntryType = "B" // extracted >= required
	TypeMax   EntryType = "C" // extracted <= required
	TypeRange EntryType = "D" // low <= extracted <= high
)

// Range is an inclusive numeric requirement interval.
type Range struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// SpecEntry is one reference requirement from the specification database.
type SpecEntry struct {
	Name  string    `json:"name" yaml:"name"`
	Type  EntryType `json:"type" yaml:"type"`
	Value float64   `json:"value,omitempty" yaml:"value,omitempty"`
	Text  string    `json:"text,omitempty" yaml:"text,omitempty"` // non-numeric exact requirement
	Range *Range    `json:"range,omitempty" yaml:"range,omitempty"`
	Unit  string    `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Class is a parameter's conformance classification.
type Class string

const (
	Conforming    Class = "conforming"
	NonConforming Class = "non_conforming"
	Unmatched     Class = "unmatched"
)

// Verdict is the classification of one parameter name.
type Verdict struct {
	Param     string          `json:"param"`
	Class     Class           `json:"class"`
	Reason    string          `json:"reason,omitempty"`
	Entry     *SpecEntry      `json:"entry,omitempty"`
	Extracted *merge.Resolved `json:"extracted,omitempty"`
}

// DefaultTolerance is the epsilon for type-A floating comparison.
const DefaultTolerance = 1e-9

// Engine classifies parameters. Pure: it reads both inputs and owns neither.
type Engine struct {
	tolerance float64
}

func NewEngine(tolerance float64) *Engine {
	if tolerance < 0 {
		tolerance = DefaultTolerance
	}
	return &Engine{tolerance: tolerance}
}

// Compare produces one verdict per parameter name drawn from the union of
// the extraction universe and the specification database.
//
//   - requested, in database, found: the entry's rule decides
//   - requested, in database, not found: non_conforming (cannot verify)
//   - in extraction universe, no database entry: unmatched
//   - database entry never requested: unmatched
func (e *Engine) Compare(merged *merge.MergedResult, db map[string]SpecEntry) []Verdict {
	seen := map[string]bool{}
	var verdicts []Verdict

	for name, res := range merged.Resolved {
		seen[name] = true
		entry, ok := db[name]
		if !ok {
			verdicts = append(verdicts, Verdict{Param: name, Class: Unmatched, Reason: "no specification entry", Extracted: ref(res)})
			continue
		}
		verdicts = append(verdicts, e.classify(name, res, entry))
	}

	for _, name := range merged.NotFound {
		seen[name] = true
		entry, ok := db[name]
		if !ok {
			verdicts = append(verdicts, Verdict{Param: name, Class: Unmatched, Reason: "not extracted, no specification entry"})
			continue
		}
		// Requirement exists but the value could not be extracted: treated
		// as failing, never silently skipped.
		verdicts = append(verdicts, Verdict{Param: name, Class: NonConforming, Reason: "parameter not found in document", Entry: ref(entry)})
	}

	for name, entry := range db {
		if seen[name] {
			continue
		}
		verdicts = append(verdicts, Verdict{Param: name, Class: Unmatched, Reason: "not requested by schema", Entry: ref(entry)})
	}

	sort.Slice(verdicts, func(i, j int) bool { return verdicts[i].Param < verdicts[j].Param })
	return verdicts
}

func (e *Engine) classify(name string, res merge.Resolved, entry SpecEntry) Verdict {
	v := Verdict{Param: name, Entry: ref(entry), Extracted: ref(res)}

	// Non-numeric exact requirements compare raw text.
	if entry.Type == TypeExact && entry.Text != "" {
		if textEqual(res.Text, entry.Text) {
			v.Class = Conforming
		} else {
			v.Class = NonConforming
			v.Reason = "text mismatch"
		}
		return v
	}

	if !res.Numeric {
		v.Class = NonConforming
		v.Reason = "extracted value is not numeric"
		return v
	}

	value := res.Value
	if entry.Unit != "" && !units.Same(res.Unit, entry.Unit) {
		// A unitless extraction cannot be verified against a unit-bearing
		// requirement; assuming the units agree would hide real mismatches.
		if res.Unit == "" {
			v.Class = NonConforming
			v.Reason = "extracted value carries no unit, requirement is in " + entry.Unit
			return v
		}
		converted, err := units.Convert(value, res.Unit, entry.Unit)
		if err != nil {
			v.Class = NonConforming
			v.Reason = "unit mismatch with specification"
			return v
		}
		value = converted
	}

	ok := false
	switch entry.Type {
	case TypeExact:
		ok = math.Abs(value-entry.Value) <= e.tolerance
	case TypeMin:
		ok = value >= entry.Value
	case TypeMax:
		ok = value <= entry.Value
	case TypeRange:
		ok = entry.Range != nil && entry.Range.Low <= value && value <= entry.Range.High
	}
	if ok {
		v.Class = Conforming
	} else {
		v.Class = NonConforming
		v.Reason = "value fails specification rule"
	}
	return v
}

func textEqual(a, b string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a), " "), strings.Join(strings.Fields(b), " "))
}

func ref[T any](v T) *T { return &v }
