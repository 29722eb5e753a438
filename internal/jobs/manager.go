package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/avvo-profile-scraper/internal/queue"
	"github.com/maltedev/avvo-profile-scraper/internal/scraper"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrNoURLs      = errors.New("at least one profile URL is required")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ProfileScraper runs the profile pipeline for one URL.
type ProfileScraper interface {
	ScrapeProfile(ctx context.Context, url string, filter scraper.RecencyFilter) (*scraper.Result, error)
}

// ResultSaver persists a successful scrape. It is optional.
type ResultSaver interface {
	SaveAndPublish(ctx context.Context, res *scraper.Result, jobID string) (int64, error)
}

// Job represents a batch of profile URLs scraped with one recency filter
type Job struct {
	ID           string           `json:"id"`
	Status       Status           `json:"status"`
	ReviewFilter string           `json:"review_filter"`
	Total        int              `json:"total"`
	Completed    int              `json:"completed"`
	Failed       int              `json:"failed"`
	Reviews      int              `json:"reviews"`
	Profiles     []*ProfileResult `json:"profiles"`
	CreatedAt    time.Time        `json:"created_at"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// ProfileResult is the outcome for one URL of a job.
type ProfileResult struct {
	URL            string `json:"url"`
	Status         Status `json:"status"`
	Attorney       string `json:"attorney,omitempty"`
	NomenclatureID string `json:"nomenclature_id,omitempty"`
	Reviews        int    `json:"reviews"`
	StopReason     string `json:"stop_reason,omitempty"`
	ProfileID      int64  `json:"profile_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Stats represents scraper statistics
type Stats struct {
	TotalJobs       int     `json:"total_jobs"`
	PendingJobs     int     `json:"pending_jobs"`
	RunningJobs     int     `json:"running_jobs"`
	CompletedJobs   int     `json:"completed_jobs"`
	FailedJobs      int     `json:"failed_jobs"`
	ProfilesScraped int     `json:"profiles_scraped"`
	ProfilesFailed  int     `json:"profiles_failed"`
	QueuedTasks     int     `json:"queued_tasks"`
	SuccessRate     float64 `json:"success_rate"`
}

// Manager keeps the job registry in memory. Tasks flow through the queue to
// a single worker so profiles are scraped one at a time.
type Manager struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	index map[string]map[string]int

	tasks   queue.Queue
	batch   *queue.BatchQueue
	scraper ProfileScraper
	saver   ResultSaver
	logger  *slog.Logger
	now     func() time.Time
}

func NewManager(tasks queue.Queue, scraper ProfileScraper, saver ResultSaver, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		jobs:    make(map[string]*Job),
		index:   make(map[string]map[string]int),
		tasks:   tasks,
		batch:   queue.NewBatchQueue(tasks, 1),
		scraper: scraper,
		saver:   saver,
		logger:  logger.With("component", "job_manager"),
		now:     time.Now,
	}
}

// CreateJob registers a job and queues one task per URL. Duplicate URLs are
// scraped once. If the queue rejects part of the job, the job is failed and
// tasks already queued for it are skipped by the worker.
func (m *Manager) CreateJob(ctx context.Context, urls []string, filter scraper.RecencyFilter) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var unique []string
	seen := make(map[string]bool)
	for _, u := range urls {
		if err := scraper.ValidateProfileURL(u); err != nil {
			return nil, err
		}
		if !seen[u] {
			seen[u] = true
			unique = append(unique, u)
		}
	}
	if len(unique) == 0 {
		return nil, ErrNoURLs
	}

	now := m.now()
	job := &Job{
		ID:           uuid.New().String(),
		Status:       StatusPending,
		ReviewFilter: filter.Description(now),
		Total:        len(unique),
		CreatedAt:    now,
	}
	positions := make(map[string]int, len(unique))
	tasks := make([]*queue.Task, len(unique))
	for i, u := range unique {
		job.Profiles = append(job.Profiles, &ProfileResult{URL: u, Status: StatusPending})
		positions[u] = i
		tasks[i] = &queue.Task{
			ID:        uuid.New().String(),
			JobID:     job.ID,
			URL:       u,
			Filter:    filter,
			CreatedAt: now,
		}
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.index[job.ID] = positions
	m.mu.Unlock()

	queued, err := m.batch.PushBatch(tasks)
	if err != nil {
		m.mu.Lock()
		job.Status = StatusFailed
		job.Error = fmt.Sprintf("queued %d of %d profiles: %v", queued, len(tasks), err)
		job.CompletedAt = &now
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to queue job: %w", err)
	}

	m.logger.Info("job created", "id", job.ID, "profiles", job.Total, "filter", job.ReviewFilter)
	return m.snapshot(job), nil
}

// GetJob retrieves a job by ID
func (m *Manager) GetJob(jobID string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return m.snapshotLocked(job), nil
}

// ListJobs returns all jobs, newest first.
func (m *Manager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, m.snapshotLocked(job))
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs
}

func (m *Manager) GetStats() *Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{TotalJobs: len(m.jobs), QueuedTasks: m.tasks.Size()}
	for _, job := range m.jobs {
		switch job.Status {
		case StatusPending:
			stats.PendingJobs++
		case StatusRunning:
			stats.RunningJobs++
		case StatusCompleted:
			stats.CompletedJobs++
		case StatusFailed:
			stats.FailedJobs++
		}
		stats.ProfilesScraped += job.Completed
		stats.ProfilesFailed += job.Failed
	}

	if done := stats.ProfilesScraped + stats.ProfilesFailed; done > 0 {
		stats.SuccessRate = float64(stats.ProfilesScraped) / float64(done) * 100
	}
	return stats
}

func (m *Manager) snapshot(job *Job) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(job)
}

func (m *Manager) snapshotLocked(job *Job) *Job {
	cp := *job
	cp.Profiles = make([]*ProfileResult, len(job.Profiles))
	for i, p := range job.Profiles {
		pr := *p
		cp.Profiles[i] = &pr
	}
	return &cp
}
