package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/specgest/internal/merge"
	"github.com/dgallion1/specgest/internal/pipeline"
	"github.com/dgallion1/specgest/internal/schema"
)

// createRunJSON is the application/json body for POST /api/runs. The
// document arrives either as pre-converted intermediate HTML or not at
// all, in which case a multipart upload is expected instead.
type createRunJSON struct {
	Schema        json.RawMessage `json:"schema"`
	HTML          string          `json:"html"`
	OCR           bool            `json:"ocr"`
	Compare       bool            `json:"compare"`
	MergeStrategy string          `json:"merge_strategy"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		s.createRunFromJSON(w, r)
		return
	}
	s.createRunFromMultipart(w, r)
}

func (s *Server) createRunFromJSON(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var body createRunJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(body.Schema) == 0 {
		jsonError(w, "schema is required", http.StatusBadRequest)
		return
	}
	if body.HTML == "" {
		jsonError(w, "html is required; upload source files as multipart", http.StatusBadRequest)
		return
	}

	doc, err := schema.Parse(body.Schema)
	if err != nil {
		jsonError(w, "invalid schema: "+err.Error(), http.StatusBadRequest)
		return
	}
	strat, err := parseStrategy(body.MergeStrategy)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.submitRun(w, pipeline.RunInput{
		HTML:     body.HTML,
		Schema:   doc,
		OCR:      body.OCR,
		Strategy: strat,
		Compare:  body.Compare,
	})
}

func (s *Server) createRunFromMultipart(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	schemaRaw := r.FormValue("schema")
	if schemaRaw == "" {
		jsonError(w, "schema is required", http.StatusBadRequest)
		return
	}
	doc, err := schema.Parse([]byte(schemaRaw))
	if err != nil {
		jsonError(w, "invalid schema: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	strat, err := parseStrategy(r.FormValue("merge_strategy"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ocr := s.cfg.OCRDefault
	if v := r.FormValue("ocr"); v != "" {
		ocr = v == "true"
	}

	s.submitRun(w, pipeline.RunInput{
		SourceData: data,
		Filename:   sanitizeFilename(header.Filename),
		Schema:     doc,
		OCR:        ocr,
		Strategy:   strat,
		Compare:    r.FormValue("compare") == "true",
	})
}

func (s *Server) submitRun(w http.ResponseWriter, in pipeline.RunInput) {
	run := pipeline.NewRun(in)
	if err := s.orchestrator.Submit(run); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"run_id":   run.ID,
		"status":   run.Status,
		"poll_url": fmt.Sprintf("/api/runs/%s", run.ID),
	})
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run := s.orchestrator.GetRun(runID)
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	snap := run.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleRunResult(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run := s.orchestrator.GetRun(runID)
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	res := run.Result()
	if res == nil {
		snap := run.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"error":  "run has no result",
			"status": snap.Status,
			"phase":  snap.Phase,
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// parseStrategy validates an explicit strategy override. Empty means the
// configured default.
func parseStrategy(s string) (merge.Strategy, error) {
	switch merge.Strategy(s) {
	case "", merge.FirstWins, merge.LastWins:
		return merge.Strategy(s), nil
	}
	return "", fmt.Errorf("unknown merge_strategy %q", s)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
