package handlers

import (
	"bytes"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/jalad-shrimali/cdr-rollup/pipeline"
	"github.com/jalad-shrimali/cdr-rollup/workbook"
)

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	RunID     string  `json:"run_id"`
	File      string  `json:"file"`
	Download  string  `json:"download"`
	Published string  `json:"published,omitempty"`
	Summary   Summary `json:"summary"`
}

// Summary is the run accounting shown to the uploader.
type Summary struct {
	TotalRows      int    `json:"total_rows"`
	InvalidRows    int    `json:"invalid_rows"`
	ExcludedCalls  int    `json:"excluded_calls"`
	CleanCalls     int    `json:"clean_calls"`
	NullStartTime  int    `json:"null_start_time"`
	MasterContacts int    `json:"master_contacts"`
	TruncatedCells int    `json:"truncated_cells"`
	FirstMonth     string `json:"first_month,omitempty"`
	LastMonth      string `json:"last_month,omitempty"`
}

func summaryOf(run *pipeline.Run) Summary {
	s := run.Summary
	return Summary{
		TotalRows:      s.TotalRows,
		InvalidRows:    s.InvalidRows,
		ExcludedCalls:  s.ExcludedCalls,
		CleanCalls:     s.CleanCalls,
		NullStartTime:  s.NullStartTime,
		MasterContacts: len(run.MasterContacts),
		TruncatedCells: s.TruncatedCells,
		FirstMonth:     s.FirstMonth.String(),
		LastMonth:      s.LastMonth.String(),
	}
}

// Upload takes a CSV or XLSX export in the multipart field "file", runs the pipeline
// and writes the workbook under the output directory.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	file, name, err := h.formFile(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer file.Close()

	for _, d := range []string{h.uploadDir, h.outputDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			h.fail(w, err)
			return
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	src := filepath.Join(h.uploadDir, name)
	if err := saveUploaded(file, src); err != nil {
		h.fail(w, err)
		return
	}
	in, err := os.Open(src)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer in.Close()

	run, err := h.pipeline.Process(name, in)
	if err != nil {
		h.fail(w, err)
		return
	}

	var buf bytes.Buffer
	if err := workbook.Write(&buf, run); err != nil {
		h.fail(w, err)
		return
	}
	if n := run.Summary.TruncatedCells; n > 0 {
		h.logger.Warn().Str("run_id", run.ID).Int("truncated_cells", n).Msg("oversized cells replaced in workbook")
	}
	out := workbook.FileName(run)
	dir := filepath.Join(h.outputDir, run.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		h.fail(w, err)
		return
	}
	if err := os.WriteFile(filepath.Join(dir, out), buf.Bytes(), 0644); err != nil {
		h.fail(w, err)
		return
	}

	resp := UploadResponse{
		RunID:    run.ID,
		File:     out,
		Download: path.Join("/download", run.ID, out),
		Summary:  summaryOf(run),
	}
	loc, err := h.publisher.Publish(r.Context(), run.ID, out, buf.Bytes())
	if err != nil {
		// a failed publish does not fail the upload
		h.logger.Warn().Err(err).Str("run_id", run.ID).Msg("publish failed")
	}
	resp.Published = loc

	w.Header().Set("X-Run-Id", run.ID)
	writeJSON(w, http.StatusCreated, resp)
}
