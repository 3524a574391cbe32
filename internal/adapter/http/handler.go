package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bnema/clipforge/internal/adapter/http/validation"
	"github.com/bnema/clipforge/internal/domain"
	"github.com/bnema/clipforge/internal/infrastructure/logger"
	"github.com/bnema/clipforge/internal/port"
	"github.com/bnema/clipforge/internal/service"
)

// maxStartBodyBytes bounds the JSON body of a start request.
const maxStartBodyBytes = 64 << 10

// containerTypes covers the output containers; the platform mime table does
// not always know them.
var containerTypes = map[string]string{
	".mp4": "video/mp4",
	".mkv": "video/x-matroska",
}

type JobService interface {
	Start(ctx context.Context, req service.StartRequest) (*domain.Job, error)
	Get(id string) (*domain.Job, error)
	List() []*domain.Job
	Artifact(id string) (path, filename string, err error)
}

type Handlers struct {
	jobs    JobService
	checker port.ToolChecker
}

func NewHandlers(jobs JobService, checker port.ToolChecker) *Handlers {
	return &Handlers{
		jobs:    jobs,
		checker: checker,
	}
}

// startRequest accepts quality as a JSON number or a numeric string, as
// browser forms tend to send it.
type startRequest struct {
	URL     string          `json:"url"`
	Codec   string          `json:"codec"`
	Quality json.RawMessage `json:"quality"`
	Preset  string          `json:"preset"`
}

type startResponse struct {
	TaskID string `json:"taskId"`
}

func (h *Handlers) Check() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, h.checker.Check(r.Context()))
	}
}

func (h *Handlers) Start() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxStartBodyBytes)

		var body startRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		quality, err := parseQuality(body.Quality)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		job, err := h.jobs.Start(r.Context(), service.StartRequest{
			URL:     body.URL,
			Codec:   body.Codec,
			Quality: quality,
			Preset:  body.Preset,
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrMissingURL), errors.Is(err, domain.ErrInvalidURL):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				logger.Error.Printf("start job error: %v", err)
				writeError(w, http.StatusInternalServerError, "Failed to start task")
			}
			return
		}

		logger.Info.Printf("job %s accepted for %s", job.ID, logger.SanitizeForLog(job.SourceURL))
		writeJSON(w, http.StatusAccepted, startResponse{TaskID: job.ID})
	}
}

// parseQuality returns nil when the field is absent or null so the service
// applies its default. Numbers outside the quality range, including ones too
// large to represent, are clamped.
func parseQuality(raw json.RawMessage) (*int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		text = string(raw)
	}

	if v, err := strconv.Atoi(text); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if (err != nil && !errors.Is(err, strconv.ErrRange)) || math.IsNaN(f) {
		return nil, errors.New("quality must be a number")
	}
	v := int(max(domain.MinQuality, min(domain.MaxQuality, f)))
	return &v, nil
}

func (h *Handlers) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := h.jobs.Get(chi.URLParam(r, "taskId"))
		if err != nil {
			writeNotFoundOr500(w, err, "Task not found")
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func (h *Handlers) Jobs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs := h.jobs.List()
		if jobs == nil {
			jobs = []*domain.Job{}
		}
		writeJSON(w, http.StatusOK, jobs)
	}
}

func (h *Handlers) Download() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "taskId")

		path, filename, err := h.jobs.Artifact(id)
		if err != nil {
			writeNotFoundOr500(w, err, "File not ready")
			return
		}

		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				writeError(w, http.StatusNotFound, "File not ready")
				return
			}
			logger.Error.Printf("open artifact %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "Failed to open file")
			return
		}
		defer f.Close() //nolint:errcheck

		info, err := f.Stat()
		if err != nil {
			logger.Error.Printf("stat artifact %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "Failed to open file")
			return
		}

		contentType, ok := containerTypes[strings.ToLower(filepath.Ext(filename))]
		if !ok {
			contentType = mime.TypeByExtension(filepath.Ext(filename))
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", validation.AttachmentDisposition(filename))

		http.ServeContent(w, r, filename, info.ModTime(), f)
	}
}

func writeNotFoundOr500(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNotReady) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	logger.Error.Printf("request error: %v", err)
	writeError(w, http.StatusInternalServerError, "Internal error")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

