package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/specgest/internal/extract"
	"github.com/dgallion1/specgest/internal/merge"
)

func resolvedNum(v float64, unit string) merge.Resolved {
	return merge.Resolved{Result: extract.Result{Value: v, Numeric: true, Unit: unit, Text: "x"}}
}

func verdictFor(t *testing.T, verdicts []Verdict, param string) Verdict {
	t.Helper()
	for _, v := range verdicts {
		if v.Param == param {
			return v
		}
	}
	t.Fatalf("no verdict for %s", param)
	return Verdict{}
}

func TestCompare_MinType(t *testing.T) {
	db := map[string]SpecEntry{
		"MAX_PRESSURE": {Name: "MAX_PRESSURE", Type: TypeMin, Value: 5, Unit: "bar"},
	}
	eng := NewEngine(DefaultTolerance)

	merged := &merge.MergedResult{
		Resolved: map[string]merge.Resolved{"MAX_PRESSURE": resolvedNum(6, "bar")},
	}
	v := verdictFor(t, eng.Compare(merged, db), "MAX_PRESSURE")
	assert.Equal(t, Conforming, v.Class, "6 bar meets a minimum of 5 bar")

	merged = &merge.MergedResult{
		Resolved: map[string]merge.Resolved{"MAX_PRESSURE": resolvedNum(4, "bar")},
	}
	v = verdictFor(t, eng.Compare(merged, db), "MAX_PRESSURE")
	assert.Equal(t, NonConforming, v.Class)
}

func TestCompare_NotFoundWithEntryIsNonConforming(t *testing.T) {
	db := map[string]SpecEntry{
		"MAX_PRESSURE": {Name: "MAX_PRESSURE", Type: TypeMin, Value: 5},
	}
	merged := &merge.MergedResult{NotFound: []string{"MAX_PRESSURE"}}

	v := verdictFor(t, NewEngine(DefaultTolerance).Compare(merged, db), "MAX_PRESSURE")
	assert.Equal(t, NonConforming, v.Class)
	assert.Contains(t, v.Reason, "not found")
}

func TestCompare_UnmatchedCases(t *testing.T) {
	db := map[string]SpecEntry{
		"FLOW_RATE": {Name: "FLOW_RATE", Type: TypeMin, Value: 10},
	}
	merged := &merge.MergedResult{
		Resolved: map[string]merge.Resolved{"RATED_POWER": resolvedNum(75, "kW")},
		NotFound: []string{"PUMP_TYPE"},
	}

	verdicts := NewEngine(DefaultTolerance).Compare(merged, db)
	require.Len(t, verdicts, 3)

	// Extracted but no database entry.
	assert.Equal(t, Unmatched, verdictFor(t, verdicts, "RATED_POWER").Class)
	// Not found and no database entry either.
	assert.Equal(t, Unmatched, verdictFor(t, verdicts, "PUMP_TYPE").Class)
	// Database entry never requested by the schema.
	assert.Equal(t, Unmatched, verdictFor(t, verdicts, "FLOW_RATE").Class)
}

func TestCompare_ExactTypeTolerance(t *testing.T) {
	db := map[string]SpecEntry{
		"FREQ": {Name: "FREQ", Type: TypeExact, Value: 50},
	}
	eng := NewEngine(1e-9)

	merged := &merge.MergedResult{
		Resolved: map[string]merge.Resolved{"FREQ": resolvedNum(50.0000000001, "")},
	}
	assert.Equal(t, Conforming, verdictFor(t, eng.Compare(merged, db), "FREQ").Class)

	merged = &merge.MergedResult{
		Resolved: map[string]merge.Resolved{"FREQ": resolvedNum(50.1, "")},
	}
	assert.Equal(t, NonConforming, verdictFor(t, eng.Compare(merged, db), "FREQ").Class)
}

func TestCompare_ExactTextCaseInsensitive(t *testing.T) {
	db := map[string]SpecEntry{
		"PUMP_TYPE": {Name: "PUMP_TYPE", Type: TypeExact, Text: "Centrifugal  Pump"},
	}
	merged := &merge.MergedResult{
		Resolved: map[string]merge.Resolved{
			"PUMP_TYPE": {Result: extract.Result{Text: "centrifugal pump"}},
		},
	}

	v := verdictFor(t, NewEngine(DefaultTolerance).Compare(merged, db), "PUMP_TYPE")
	assert.Equal(t, Conforming, v.Class, "text matching collapses whitespace and case")
}

func TestCompare_RangeType(t *testing.T) {
	db := map[string]SpecEntry{
		"TEMP": {Name: "TEMP", Type: TypeRange, Range: &Range{Low: -10, High: 40}},
	}
	eng := NewEngine(DefaultTolerance)

	for _, tt := range []struct {
		value float64
		want  Class
	}{
		{-10, Conforming}, // bounds are inclusive
		{40, Conforming},
		{0, Conforming},
		{-10.5, NonConforming},
		{41, NonConforming},
	} {
		merged := &merge.MergedResult{
			Resolved: map[string]merge.Resolved{"TEMP": resolvedNum(tt.value, "")},
		}
		v := verdictFor(t, eng.Compare(merged, db), "TEMP")
		assert.Equal(t, tt.want, v.Class, "value %v", tt.value)
	}
}

func TestCompare_UnitReconciliation(t *testing.T) {
	db := map[string]SpecEntry{
		"RATED_POWER": {Name: "RATED_POWER", Type: TypeMin, Value: 5, Unit: "kW"},
	}
	eng := NewEngine(DefaultTolerance)

	// 6000 W converts to 6 kW, meeting the 5 kW minimum.
	merged := &merge.MergedResult{
		Resolved: map[string]merge.Resolved{"RATED_POWER": resolvedNum(6000, "W")},
	}
	assert.Equal(t, Conforming, verdictFor(t, eng.Compare(merged, db), "RATED_POWER").Class)

	// Incompatible unit cannot be reconciled.
	merged = &merge.MergedResult{
		Resolved: map[string]merge.Resolved{"RATED_POWER": resolvedNum(6, "bar")},
	}
	v := verdictFor(t, eng.Compare(merged, db), "RATED_POWER")
	assert.Equal(t, NonConforming, v.Class)
	assert.Contains(t, v.Reason, "unit")
}

func TestCompare_UnitlessAgainstUnitBearingEntry(t *testing.T) {
	db := map[string]SpecEntry{
		"MAX_PRESSURE": {Name: "MAX_PRESSURE", Type: TypeMin, Value: 5, Unit: "bar"},
	}
	// A bare 6 would pass the rule numerically, but without a unit there is
	// no way to know it means 6 bar.
	merged := &merge.MergedResult{
		Resolved: map[string]merge.Resolved{"MAX_PRESSURE": resolvedNum(6, "")},
	}

	v := verdictFor(t, NewEngine(DefaultTolerance).Compare(merged, db), "MAX_PRESSURE")
	assert.Equal(t, NonConforming, v.Class)
	assert.Contains(t, v.Reason, "no unit")
}

func TestCompare_NonNumericAgainstNumericEntry(t *testing.T) {
	db := map[string]SpecEntry{
		"MAX_PRESSURE": {Name: "MAX_PRESSURE", Type: TypeMin, Value: 5},
	}
	merged := &merge.MergedResult{
		Resolved: map[string]merge.Resolved{
			"MAX_PRESSURE": {Result: extract.Result{Text: "see datasheet"}},
		},
	}

	v := verdictFor(t, NewEngine(DefaultTolerance).Compare(merged, db), "MAX_PRESSURE")
	assert.Equal(t, NonConforming, v.Class)
}

func TestCompare_SortedByParam(t *testing.T) {
	db := map[string]SpecEntry{
		"B": {Name: "B", Type: TypeMin, Value: 1},
		"A": {Name: "A", Type: TypeMin, Value: 1},
	}
	merged := &merge.MergedResult{
		Resolved: map[string]merge.Resolved{"C": resolvedNum(1, "")},
	}

	verdicts := NewEngine(DefaultTolerance).Compare(merged, db)
	require.Len(t, verdicts, 3)
	assert.Equal(t, "A", verdicts[0].Param)
	assert.Equal(t, "B", verdicts[1].Param)
	assert.Equal(t, "C", verdicts[2].Param)
}

func TestSummarize(t *testing.T) {
	verdicts := []Verdict{
		{Param: "A", Class: Conforming, Entry: &SpecEntry{Type: TypeMin}},
		{Param: "B", Class: NonConforming, Entry: &SpecEntry{Type: TypeMin}},
		{Param: "C", Class: NonConforming, Entry: &SpecEntry{Type: TypeExact}},
		{Param: "D", Class: Unmatched},
	}

	s := Summarize(verdicts)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Conforming)
	assert.Equal(t, 2, s.NonConforming)
	assert.Equal(t, 1, s.Unmatched)
	assert.Equal(t, TypeCounts{Conforming: 1, NonConforming: 1}, s.ByType[TypeMin])
	assert.Equal(t, TypeCounts{NonConforming: 1}, s.ByType[TypeExact])
	assert.Equal(t, TypeCounts{}, s.ByType[TypeRange])
}
