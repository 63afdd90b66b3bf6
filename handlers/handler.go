// Package handlers exposes the pipeline over HTTP: upload a CDR export, download the
// resulting workbook, and filter a previously processed workbook.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jalad-shrimali/cdr-rollup/cdr"
	"github.com/jalad-shrimali/cdr-rollup/pipeline"
	"github.com/jalad-shrimali/cdr-rollup/publish"
	"github.com/jalad-shrimali/cdr-rollup/workbook"
)

// Options configures a Handler. Zero values get the service defaults.
type Options struct {
	UploadDir      string
	OutputDir      string
	MaxUploadBytes int64
	Publisher      publish.Publisher
	Logger         zerolog.Logger
}

// Handler serves the upload, download and re-ingest endpoints. Only one batch is
// processed at a time.
type Handler struct {
	pipeline  *pipeline.Pipeline
	publisher publish.Publisher
	uploadDir string
	outputDir string
	maxUpload int64
	logger    zerolog.Logger

	mu sync.Mutex
}

func New(p *pipeline.Pipeline, opts Options) *Handler {
	h := &Handler{
		pipeline:  p,
		publisher: opts.Publisher,
		uploadDir: opts.UploadDir,
		outputDir: opts.OutputDir,
		maxUpload: opts.MaxUploadBytes,
		logger:    opts.Logger,
	}
	if h.publisher == nil {
		h.publisher = publish.Noop{}
	}
	if h.uploadDir == "" {
		h.uploadDir = "uploads"
	}
	if h.outputDir == "" {
		h.outputDir = "filtered"
	}
	if h.maxUpload <= 0 {
		h.maxUpload = 32 << 20
	}
	return h
}

// Routes mounts every endpoint on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", Health)
	r.Post("/upload", h.Upload)
	r.Post("/processed", h.Processed)
	r.Post("/processed/departments", h.Departments)
	r.Handle("/download/*", http.StripPrefix("/download/", http.FileServer(http.Dir(h.outputDir))))
	return r
}

// Health handles health check requests
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "cdr-rollup"})
}

/* ──────────── helpers ──────────── */

var errTooLarge = errors.New("upload too large")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail maps input-shape errors to 400 and everything else to 500.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, cdr.ErrMissingColumn),
		errors.Is(err, cdr.ErrEmptyInput),
		errors.Is(err, cdr.ErrUnsupportedFormat),
		errors.Is(err, workbook.ErrNotProcessed),
		errors.Is(err, http.ErrMissingFile):
		status = http.StatusBadRequest
	case errors.Is(err, errTooLarge):
		status = http.StatusRequestEntityTooLarge
	}
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// formFile limits the body and returns the multipart "file" field.
func (h *Handler) formFile(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, error) {
	if r.ContentLength > h.maxUpload {
		return nil, "", fmt.Errorf("%w: %d bytes", errTooLarge, r.ContentLength)
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, "", fmt.Errorf("%w: %v", errTooLarge, err)
		}
		return nil, "", fmt.Errorf("%w: %v", http.ErrMissingFile, err)
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	name := filepath.Base(strings.ReplaceAll(hdr.Filename, `\`, "/"))
	if name == "." || name == "/" {
		name = "upload"
	}
	return file, name, nil
}

func saveUploaded(src io.Reader, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, src)
	return err
}
