package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/specgest/internal/extract"
	"github.com/dgallion1/specgest/internal/schema"
)

func walkedWith(names ...string) *schema.Walked {
	w := &schema.Walked{
		Skeleton: schema.Skeleton{Title: "Test"},
	}
	sec := schema.Section{Name: "general"}
	for _, n := range names {
		w.Descriptors = append(w.Descriptors, schema.Descriptor{Name: n, Section: "general"})
		sec.Params = append(sec.Params, n)
	}
	w.Skeleton.Sections = []schema.Section{sec}
	return w
}

func numRes(v float64, text string) extract.Result {
	return extract.Result{Value: v, Numeric: true, Text: text}
}

func TestConsolidate_FirstWins(t *testing.T) {
	walked := walkedWith("PARAM_X")
	chunks := []extract.ChunkResults{
		0: {},
		1: {},
		2: {"PARAM_X": numRes(10, "10")},
		3: {"PARAM_X": numRes(20, "20")},
	}

	merged, err := Consolidate(chunks, walked, FirstWins)
	require.NoError(t, err)

	res := merged.Resolved["PARAM_X"]
	assert.Equal(t, 10.0, res.Value)
	assert.Equal(t, 2, res.ChunkIndex)
	assert.Empty(t, merged.NotFound)
}

func TestConsolidate_LastWins(t *testing.T) {
	walked := walkedWith("PARAM_X")
	chunks := []extract.ChunkResults{
		0: {"PARAM_X": numRes(10, "10")},
		1: {},
		2: {"PARAM_X": numRes(20, "20")},
	}

	merged, err := Consolidate(chunks, walked, LastWins)
	require.NoError(t, err)

	res := merged.Resolved["PARAM_X"]
	assert.Equal(t, 20.0, res.Value)
	assert.Equal(t, 2, res.ChunkIndex)
}

func TestConsolidate_CoversEveryDescriptor(t *testing.T) {
	// Every requested parameter lands in exactly one of resolved or
	// not-found, and not-found keeps walk order.
	walked := walkedWith("A", "B", "C", "D")
	chunks := []extract.ChunkResults{
		0: {"B": numRes(1, "1")},
		1: {"D": numRes(2, "2")},
	}

	merged, err := Consolidate(chunks, walked, FirstWins)
	require.NoError(t, err)

	assert.Len(t, merged.Resolved, 2)
	assert.Equal(t, []string{"A", "C"}, merged.NotFound)
	for name := range merged.Resolved {
		assert.NotContains(t, merged.NotFound, name)
	}
}

func TestConsolidate_NilChunkTolerated(t *testing.T) {
	// A failed chunk contributes a nil map; its parameters simply count
	// as absent there.
	walked := walkedWith("A")
	chunks := []extract.ChunkResults{
		0: nil,
		1: {"A": numRes(5, "5")},
	}

	merged, err := Consolidate(chunks, walked, FirstWins)
	require.NoError(t, err)
	assert.Equal(t, 1, merged.Resolved["A"].ChunkIndex)
}

func TestConsolidate_Deterministic(t *testing.T) {
	walked := walkedWith("A", "B")
	chunks := []extract.ChunkResults{
		0: {"A": numRes(1, "1"), "B": numRes(2, "2")},
		1: {"A": numRes(3, "3")},
	}

	first, err := Consolidate(chunks, walked, FirstWins)
	require.NoError(t, err)
	for range 10 {
		again, err := Consolidate(chunks, walked, FirstWins)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestParseStrategy(t *testing.T) {
	assert.Equal(t, FirstWins, ParseStrategy(""))
	assert.Equal(t, FirstWins, ParseStrategy("nonsense"))
	assert.Equal(t, LastWins, ParseStrategy("last_wins"))
}

func TestAssemble_ShapesOutput(t *testing.T) {
	walked := &schema.Walked{
		Descriptors: []schema.Descriptor{
			{Name: "RATED_POWER", Section: "electrical"},
			{Name: "BEARING_TYPE", Section: "motor/bearings"},
			{Name: "MISSING", Section: "electrical"},
		},
		Skeleton: schema.Skeleton{
			Title: "Pump Datasheet",
			Sections: []schema.Section{
				{Name: "electrical", Params: []string{"RATED_POWER", "MISSING"}},
				{Name: "motor/bearings", Params: []string{"BEARING_TYPE"}},
			},
		},
	}
	merged := &MergedResult{
		Resolved: map[string]Resolved{
			"RATED_POWER":  {Result: extract.Result{Value: 75, Numeric: true, Text: "75 kW", Unit: "kW", Page: 2}, ChunkIndex: 1},
			"BEARING_TYPE": {Result: extract.Result{Text: "ball bearing"}},
		},
		NotFound: []string{"MISSING"},
	}

	out := Assemble(walked, merged)
	assert.Equal(t, "Pump Datasheet", out["title"])
	assert.Equal(t, []string{"MISSING"}, out["not_found_list"])

	params := out["parameters"].(map[string]any)
	elec := params["electrical"].(map[string]any)
	leaf := elec["RATED_POWER"].(map[string]any)
	assert.Equal(t, 75.0, leaf["value"])
	assert.Equal(t, "kW", leaf["unit"])
	assert.Equal(t, 1, leaf["chunk_index"])
	_, hasMissing := elec["MISSING"]
	assert.False(t, hasMissing, "not-found parameters stay out of the tree")

	bearings := params["motor"].(map[string]any)["bearings"].(map[string]any)
	textLeaf := bearings["BEARING_TYPE"].(map[string]any)
	assert.Equal(t, "ball bearing", textLeaf["value"], "non-numeric value falls back to text")
}

func TestAssemble_EmptyNotFoundIsSlice(t *testing.T) {
	walked := walkedWith("A")
	merged := &MergedResult{
		Resolved: map[string]Resolved{"A": {Result: numRes(1, "1")}},
	}
	out := Assemble(walked, merged)
	assert.Equal(t, []string{}, out["not_found_list"])
}
