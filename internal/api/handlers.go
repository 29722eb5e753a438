package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/avvo-profile-scraper/internal/database"
	"github.com/maltedev/avvo-profile-scraper/internal/jobs"
	"github.com/maltedev/avvo-profile-scraper/internal/models"
	"github.com/maltedev/avvo-profile-scraper/internal/queue"
	"github.com/maltedev/avvo-profile-scraper/internal/scraper"
)

const (
	pendingWarnThreshold     = 1000
	deadLetterErrorThreshold = 100
)

type ProfileScraper interface {
	ScrapeProfile(ctx context.Context, url string, filter scraper.RecencyFilter) (*scraper.Result, error)
}

// OutboxStats reports outbox event counts per status.
type OutboxStats interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type Handlers struct {
	scraper ProfileScraper
	jobs    *jobs.Manager
	saver   jobs.ResultSaver
	outbox  OutboxStats
	filter  scraper.RecencyFilter
	logger  *slog.Logger
}

// NewHandlers wires the API. saver and outbox may be nil when the service
// runs without a database.
func NewHandlers(s ProfileScraper, jobManager *jobs.Manager, saver jobs.ResultSaver, outbox OutboxStats, defaultFilter scraper.RecencyFilter, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		scraper: s,
		jobs:    jobManager,
		saver:   saver,
		outbox:  outbox,
		filter:  defaultFilter,
		logger:  logger.With("component", "api"),
	}
}

// DaysBack accepts a JSON number, a numeric string or "none".
type DaysBack struct {
	Filter *scraper.RecencyFilter
}

func (d *DaysBack) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		d.Filter = nil
		return nil
	}

	value := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
	}

	filter, err := scraper.ParseRecencyFilter(value)
	if err != nil {
		return err
	}
	d.Filter = &filter
	return nil
}

func (h *Handlers) resolve(d DaysBack) scraper.RecencyFilter {
	if d.Filter != nil {
		return *d.Filter
	}
	return h.filter
}

// ScrapeRequest represents a synchronous single profile scrape
type ScrapeRequest struct {
	URL      string   `json:"url"`
	DaysBack DaysBack `json:"days_back"`
}

type ScrapeResponse struct {
	RunID       string                 `json:"run_id"`
	ProfileID   int64                  `json:"profile_id,omitempty"`
	Profile     *models.ProfileRecord  `json:"profile"`
	Reviews     []*models.ReviewRecord `json:"reviews"`
	Rows        []map[string]string    `json:"rows"`
	StopReason  string                 `json:"stop_reason,omitempty"`
	PagesLoaded int                    `json:"pages_loaded"`
	DurationMS  int64                  `json:"duration_ms"`
}

// ScrapeProfile handles a synchronous scrape of one attorney profile
func (h *Handlers) ScrapeProfile(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	res, err := h.scraper.ScrapeProfile(r.Context(), req.URL, h.resolve(req.DaysBack))
	if err != nil {
		h.logger.Error("failed to scrape profile", "url", req.URL, "error", err)
		switch {
		case errors.Is(err, scraper.ErrInvalidURL):
			h.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, scraper.ErrProfileNotFound):
			h.respondError(w, http.StatusNotFound, err.Error())
		default:
			h.respondError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	resp := ScrapeResponse{
		RunID:      res.RunID,
		Profile:    res.Profile,
		Reviews:    res.Reviews,
		Rows:       make([]map[string]string, len(res.Rows)),
		DurationMS: res.Duration.Milliseconds(),
	}
	for i, row := range res.Rows {
		resp.Rows[i] = row.Map()
	}
	if res.Walk != nil {
		resp.StopReason = string(res.Walk.StopReason)
		resp.PagesLoaded = res.Walk.PagesLoaded
	}

	if h.saver != nil {
		id, err := h.saver.SaveAndPublish(r.Context(), res, "")
		if err != nil {
			h.logger.Error("failed to save profile", "url", req.URL, "error", err)
			h.respondError(w, http.StatusInternalServerError, "failed to save profile")
			return
		}
		resp.ProfileID = id
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// CreateJobRequest represents a new scraping job request
type CreateJobRequest struct {
	URLs     []string `json:"urls"`
	DaysBack DaysBack `json:"days_back"`
}

// CreateJobResponse represents the job creation response
type CreateJobResponse struct {
	JobID   string      `json:"job_id"`
	Status  jobs.Status `json:"status"`
	Total   int         `json:"total"`
	Message string      `json:"message"`
}

// CreateJob queues a batch of profiles for the background worker
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	job, err := h.jobs.CreateJob(r.Context(), req.URLs, h.resolve(req.DaysBack))
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrNoURLs), errors.Is(err, scraper.ErrInvalidURL):
			h.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrQueueClosed):
			h.respondError(w, http.StatusServiceUnavailable, err.Error())
		default:
			h.logger.Error("failed to create job", "error", err)
			h.respondError(w, http.StatusInternalServerError, "failed to create job")
		}
		return
	}

	h.respondJSON(w, http.StatusAccepted, CreateJobResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Total:   job.Total,
		Message: "Job created successfully",
	})
}

// GetJob handles job status retrieval
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		h.respondError(w, http.StatusBadRequest, "job ID is required")
		return
	}

	job, err := h.jobs.GetJob(jobID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

// ListJobs handles listing all jobs
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.ListJobs())
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.GetStats())
}

// Health reports outbox backlog. Too many dead letters make the service
// unhealthy.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{"status": "ok"}
	status := http.StatusOK

	if h.outbox != nil {
		counts, err := h.outbox.CountByStatus(r.Context())
		if err != nil {
			h.logger.Error("failed to read outbox counts", "error", err)
			health["status"] = "error"
			health["message"] = "outbox unavailable"
			h.respondJSON(w, http.StatusServiceUnavailable, health)
			return
		}

		pending := counts[database.OutboxStatusPending] + counts[database.OutboxStatusFailed]
		deadLetter := counts[database.OutboxStatusDeadLetter]
		health["outbox"] = map[string]any{
			"pending":     pending,
			"dead_letter": deadLetter,
		}

		if pending > pendingWarnThreshold {
			health["status"] = "warning"
			health["message"] = "High number of pending outbox events"
		}
		if deadLetter > deadLetterErrorThreshold {
			health["status"] = "error"
			health["message"] = "High number of dead letter events"
			status = http.StatusServiceUnavailable
		}
	}

	h.respondJSON(w, status, health)
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
