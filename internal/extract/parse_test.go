package extract

import (
	"testing"
)

var knownParams = map[string]bool{
	"RATED_POWER":  true,
	"MAX_PRESSURE": true,
	"PUMP_TYPE":    true,
}

func TestParseResponse_WellFormed(t *testing.T) {
	raw := `{
		"parameters": {
			"RATED_POWER": {"value": 75, "text": "75 kW", "unit": "kW", "page_index": 2, "bbox": [10, 20, 100, 40]}
		},
		"not_found": ["MAX_PRESSURE"]
	}`

	results, dropped := parseResponse(raw, knownParams)
	if dropped != 0 {
		t.Errorf("expected no dropped leaves, got %d", dropped)
	}
	res, ok := results["RATED_POWER"]
	if !ok {
		t.Fatal("expected RATED_POWER in results")
	}
	if !res.Numeric || res.Value != 75 {
		t.Errorf("expected numeric 75, got %+v", res)
	}
	if res.Unit != "kW" || res.Text != "75 kW" {
		t.Errorf("expected unit and text preserved, got %+v", res)
	}
	if res.Page != 2 || res.BBox[2] != 100 {
		t.Errorf("expected provenance preserved, got page=%d bbox=%v", res.Page, res.BBox)
	}
}

func TestParseResponse_StripsCodeFence(t *testing.T) {
	raw := "```json\n{\"parameters\": {\"PUMP_TYPE\": {\"value\": \"centrifugal\", \"text\": \"centrifugal\", \"page_index\": 0, \"bbox\": [0,0,1,1]}}, \"not_found\": []}\n```"

	results, _ := parseResponse(raw, knownParams)
	res, ok := results["PUMP_TYPE"]
	if !ok {
		t.Fatal("expected PUMP_TYPE in results")
	}
	if res.Numeric {
		t.Error("expected non-numeric result for text value")
	}
	if res.Text != "centrifugal" {
		t.Errorf("expected text preserved, got %q", res.Text)
	}
}

func TestParseResponse_NumericString(t *testing.T) {
	raw := `{"parameters": {"MAX_PRESSURE": {"value": "13.5", "text": "13.5 bar", "unit": "bar", "page_index": 0, "bbox": [0,0,1,1]}}}`

	results, _ := parseResponse(raw, knownParams)
	res := results["MAX_PRESSURE"]
	if !res.Numeric || res.Value != 13.5 {
		t.Errorf("expected numeric string coerced to 13.5, got %+v", res)
	}
}

func TestParseResponse_RepairsTruncation(t *testing.T) {
	// Response cut off mid-object: the bracket closer recovers the
	// already-complete leaves.
	raw := `{"parameters": {"RATED_POWER": {"value": 75, "text": "75 kW", "unit": "kW", "page_index": 0, "bbox": [0,0,1,1]}`

	results, _ := parseResponse(raw, knownParams)
	if _, ok := results["RATED_POWER"]; !ok {
		t.Error("expected truncated response repaired and RATED_POWER kept")
	}
}

func TestParseResponse_DropsMalformedLeaf(t *testing.T) {
	raw := `{"parameters": {
		"RATED_POWER": {"value": 75, "text": "75 kW", "page_index": 0, "bbox": [0,0,1,1]},
		"MAX_PRESSURE": {"value": 13, "text": "13 bar", "page_index": -1, "bbox": [0,0,1,1]},
		"PUMP_TYPE": {"value": 1, "text": "x", "page_index": 0, "bbox": [0,0,1]}
	}}`

	results, dropped := parseResponse(raw, knownParams)
	if len(results) != 1 {
		t.Errorf("expected only the valid leaf kept, got %d", len(results))
	}
	if dropped != 2 {
		t.Errorf("expected 2 dropped leaves, got %d", dropped)
	}
}

func TestParseResponse_DropsUnknownParameter(t *testing.T) {
	raw := `{"parameters": {"HALLUCINATED": {"value": 1, "text": "1", "page_index": 0, "bbox": [0,0,1,1]}}}`

	results, dropped := parseResponse(raw, knownParams)
	if len(results) != 0 || dropped != 1 {
		t.Errorf("expected unknown parameter dropped, got %d results %d dropped", len(results), dropped)
	}
}

func TestParseResponse_NullStringValueDropped(t *testing.T) {
	raw := `{"parameters": {"PUMP_TYPE": {"value": "null", "text": "null", "page_index": 0, "bbox": [0,0,1,1]}}}`

	results, dropped := parseResponse(raw, knownParams)
	if len(results) != 0 || dropped != 1 {
		t.Errorf("expected null-valued leaf dropped, got %d results", len(results))
	}
}

func TestParseResponse_Garbage(t *testing.T) {
	results, dropped := parseResponse("the model refuses to answer", knownParams)
	if len(results) != 0 || dropped != 0 {
		t.Errorf("expected empty results for non-JSON response")
	}
}

func TestCloseBrackets_IgnoresBracesInStrings(t *testing.T) {
	got := closeBrackets(`{"text": "value with } and ] inside", "arr": [1, 2`)
	want := `{"text": "value with } and ] inside", "arr": [1, 2]}`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCloseBrackets_ClosesOpenString(t *testing.T) {
	got := closeBrackets(`{"text": "cut off`)
	want := `{"text": "cut off"}`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
