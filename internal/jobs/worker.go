package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/maltedev/avvo-profile-scraper/internal/queue"
	"github.com/maltedev/avvo-profile-scraper/internal/scraper"
)

// StartWorker processes queued tasks until ctx is done or the queue is closed.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("job worker started")

	for {
		task, err := m.tasks.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrQueueClosed) || ctx.Err() != nil {
				m.logger.Info("job worker stopping")
				return
			}
			m.logger.Error("failed to pop task", "error", err)
			continue
		}

		m.processTask(ctx, task)
	}
}

// processTask scrapes one profile. Failures are recorded on the job and never
// stop the worker.
func (m *Manager) processTask(ctx context.Context, task *queue.Task) {
	if !m.start(task) {
		m.logger.Warn("skipping task of inactive job", "job", task.JobID, "url", task.URL)
		return
	}

	logger := m.logger.With("job", task.JobID, "url", task.URL)
	logger.Info("processing profile")

	res, err := m.scraper.ScrapeProfile(ctx, task.URL, task.Filter)
	var profileID int64
	if err == nil && m.saver != nil {
		profileID, err = m.saver.SaveAndPublish(ctx, res, task.JobID)
		if err != nil {
			err = fmt.Errorf("failed to save profile: %w", err)
		}
	}

	if err != nil {
		logger.Error("profile failed", "error", err)
	}
	m.finish(task, res, profileID, err)
}

// start marks the job and its profile as running. It reports false when the
// job is unknown or already failed.
func (m *Manager) start(task *queue.Task) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[task.JobID]
	if !ok || job.Status == StatusFailed {
		return false
	}
	if job.Status == StatusPending {
		now := m.now()
		job.Status = StatusRunning
		job.StartedAt = &now
	}
	if pr := m.profileLocked(task); pr != nil {
		pr.Status = StatusRunning
	}
	return true
}

func (m *Manager) finish(task *queue.Task, res *scraper.Result, profileID int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[task.JobID]
	if !ok {
		return
	}

	pr := m.profileLocked(task)
	if pr == nil {
		pr = &ProfileResult{URL: task.URL}
	}

	if err != nil {
		job.Failed++
		pr.Status = StatusFailed
		pr.Error = err.Error()
	} else {
		job.Completed++
		job.Reviews += len(res.Reviews)
		pr.Status = StatusCompleted
		pr.Attorney = res.Profile.FullName
		pr.NomenclatureID = res.Profile.NomenclatureID
		pr.Reviews = len(res.Reviews)
		pr.ProfileID = profileID
		if res.Walk != nil {
			pr.StopReason = string(res.Walk.StopReason)
		}
	}

	if job.Completed+job.Failed < job.Total {
		return
	}

	now := m.now()
	job.CompletedAt = &now
	if job.Completed == 0 {
		job.Status = StatusFailed
		job.Error = fmt.Sprintf("all %d profiles failed", job.Total)
	} else {
		job.Status = StatusCompleted
	}
	m.logger.Info("job finished",
		"id", job.ID,
		"status", job.Status,
		"completed", job.Completed,
		"failed", job.Failed,
		"reviews", job.Reviews)
}

func (m *Manager) profileLocked(task *queue.Task) *ProfileResult {
	job := m.jobs[task.JobID]
	i, ok := m.index[task.JobID][task.URL]
	if !ok || job == nil || i >= len(job.Profiles) {
		return nil
	}
	return job.Profiles[i]
}
