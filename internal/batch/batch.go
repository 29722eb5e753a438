package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/maltedev/avvo-profile-scraper/internal/export"
	"github.com/maltedev/avvo-profile-scraper/internal/scraper"
	"github.com/maltedev/avvo-profile-scraper/internal/storage"
)

type ProfileScraper interface {
	ScrapeProfile(ctx context.Context, url string, filter scraper.RecencyFilter) (*scraper.Result, error)
}

type ResultSaver interface {
	SaveAndPublish(ctx context.Context, res *scraper.Result, jobID string) (int64, error)
}

// Runner scrapes a list of profile URLs one after another and appends each
// profile's rows to a single CSV file. A failing URL is recorded and the run
// moves on.
type Runner struct {
	Scraper ProfileScraper
	Writer  *export.CSVWriter

	// Optional collaborators.
	Progress *storage.LinkStorage
	Saver    ResultSaver
	HTMLDir  string
	OnDone   func(url string, err error)

	Logger *slog.Logger
}

type Failure struct {
	URL string
	Err error
}

type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Reviews   int
	Rows      int
	Failures  []Failure
	// Warnings are HTML dump or database errors for profiles whose rows were
	// written.
	Warnings []Failure
	Duration time.Duration
	// Interrupted is set when ctx ended the run before every URL was tried.
	Interrupted bool
}

func (r *Runner) Run(ctx context.Context, urls []string, filter scraper.RecencyFilter) *Summary {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "batch")

	start := time.Now()
	sum := &Summary{Total: len(urls)}

	for i, url := range urls {
		if ctx.Err() != nil {
			sum.Interrupted = true
			logger.Warn("batch interrupted", "remaining", len(urls)-i)
			break
		}

		logger.Info("processing profile", "index", i+1, "total", len(urls), "url", url)
		res, warnings, err := r.one(ctx, url, filter, logger)
		if err != nil {
			sum.Failed++
			sum.Failures = append(sum.Failures, Failure{URL: url, Err: err})
			logger.Error("profile failed", "url", url, "error", err)
		} else {
			sum.Succeeded++
			sum.Reviews += len(res.Reviews)
			sum.Rows += len(res.Rows)
		}
		for _, w := range warnings {
			sum.Warnings = append(sum.Warnings, Failure{URL: url, Err: w})
			logger.Warn("profile written with errors", "url", url, "error", w)
		}

		if r.OnDone != nil {
			r.OnDone(url, err)
		}
	}

	sum.Duration = time.Since(start)
	return sum
}

// one scrapes url and appends its rows. The CSV write decides success: once
// the rows are in the file the profile counts as done, so a failing HTML dump
// or database save comes back as a warning and resume does not repeat rows.
func (r *Runner) one(ctx context.Context, url string, filter scraper.RecencyFilter, logger *slog.Logger) (*scraper.Result, []error, error) {
	res, err := r.Scraper.ScrapeProfile(ctx, url, filter)
	if err == nil {
		err = r.Writer.Write(res.Rows)
	}

	var warnings []error
	if err == nil {
		warnings = r.extras(ctx, res)
	}

	if r.Progress != nil {
		var perr error
		if err != nil {
			perr = r.Progress.MarkFailed(url, err)
		} else {
			perr = r.Progress.MarkCompleted(url, res.Profile.FullName, len(res.Reviews))
		}
		if perr != nil {
			logger.Warn("failed to record progress", "url", url, "error", perr)
		}
	}

	if err != nil {
		return nil, nil, err
	}
	return res, warnings, nil
}

func (r *Runner) extras(ctx context.Context, res *scraper.Result) []error {
	var warnings []error
	if r.HTMLDir != "" && res.Document != nil {
		if err := saveHTML(r.HTMLDir, res); err != nil {
			warnings = append(warnings, err)
		}
	}
	if r.Saver != nil {
		if _, err := r.Saver.SaveAndPublish(ctx, res, ""); err != nil {
			warnings = append(warnings, fmt.Errorf("failed to save profile: %w", err))
		}
	}
	return warnings
}

// HTMLName is the file a profile page is dumped to: its nomenclature id, or
// the run id when the URL did not yield one.
func HTMLName(res *scraper.Result) string {
	name := res.Profile.NomenclatureID
	if name == "" {
		name = res.RunID
	}
	return name + ".html"
}

func saveHTML(dir string, res *scraper.Result) error {
	html, err := res.Document.Html()
	if err != nil {
		return fmt.Errorf("failed to render HTML: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create HTML directory: %w", err)
	}
	path := filepath.Join(dir, HTMLName(res))
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to save HTML: %w", err)
	}
	return nil
}
