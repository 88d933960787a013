package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/specgest/internal/compare"
	"github.com/dgallion1/specgest/internal/extract"
	"github.com/dgallion1/specgest/internal/merge"
	"github.com/dgallion1/specgest/internal/specdb"
)

// compareParam is one already-extracted parameter in a direct comparison
// request. A nil value marks a non-numeric (text) finding.
type compareParam struct {
	Value *float64 `json:"value"`
	Text  string   `json:"text"`
	Unit  string   `json:"unit,omitempty"`
}

// compareRequest compares caller-supplied parameters without running the
// extraction pipeline. Entries override the server-side database when given.
type compareRequest struct {
	Parameters map[string]compareParam `json:"parameters"`
	NotFound   []string                `json:"not_found"`
	Entries    []compare.SpecEntry     `json:"entries,omitempty"`
	Tolerance  *float64                `json:"tolerance,omitempty"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Parameters) == 0 && len(req.NotFound) == 0 {
		jsonError(w, "parameters or not_found is required", http.StatusBadRequest)
		return
	}

	db := s.orchestrator.SpecDB()
	if len(req.Entries) > 0 {
		var err error
		db, err = specdb.FromEntries(req.Entries)
		if err != nil {
			jsonError(w, "invalid entries: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if len(db) == 0 {
		jsonError(w, "no specification database configured; supply entries", http.StatusBadRequest)
		return
	}

	merged := &merge.MergedResult{
		Resolved: make(map[string]merge.Resolved, len(req.Parameters)),
		NotFound: req.NotFound,
	}
	for name, p := range req.Parameters {
		res := extract.Result{Text: p.Text, Unit: p.Unit}
		if p.Value != nil {
			res.Value = *p.Value
			res.Numeric = true
		}
		merged.Resolved[name] = merge.Resolved{Result: res}
	}

	tolerance := s.cfg.CompareTolerance
	if req.Tolerance != nil {
		tolerance = *req.Tolerance
	}
	eng := compare.NewEngine(tolerance)
	verdicts := eng.Compare(merged, db)
	summary := compare.Summarize(verdicts)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"verdicts": verdicts,
		"summary":  summary,
	})
}
