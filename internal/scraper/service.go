package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/maltedev/avvo-profile-scraper/internal/models"
	"github.com/maltedev/avvo-profile-scraper/internal/parser"
	"github.com/maltedev/avvo-profile-scraper/internal/ratelimit"
)

const DefaultDaysBack = 365

const reviewSectionSelector = "div.reviews, #reviews, section.review-section"

// RecencyFilter limits reviews to the last Days days. The zero value
// disables filtering.
type RecencyFilter struct {
	Days    int
	Enabled bool
}

// DaysBack filters to the last days days. Zero means no filter, the same as
// "none".
func DaysBack(days int) RecencyFilter {
	if days <= 0 {
		return NoFilter()
	}
	return RecencyFilter{Days: days, Enabled: true}
}

func NoFilter() RecencyFilter {
	return RecencyFilter{}
}

// ParseRecencyFilter accepts a day count or "none" to disable filtering.
func ParseRecencyFilter(value string) (RecencyFilter, error) {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "none") {
		return NoFilter(), nil
	}
	days, err := strconv.Atoi(value)
	if err != nil || days < 0 {
		return RecencyFilter{}, fmt.Errorf("%w: %q", ErrInvalidDaysBack, value)
	}
	return DaysBack(days), nil
}

// Cutoff is the calendar date reviews must not be older than.
func (f RecencyFilter) Cutoff(now time.Time) *time.Time {
	if !f.Enabled {
		return nil
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := day.AddDate(0, 0, -f.Days)
	return &cutoff
}

func (f RecencyFilter) Description(now time.Time) string {
	if !f.Enabled {
		return "All reviews (no date filter)"
	}
	return fmt.Sprintf("Last %d days (from %s)", f.Days, f.Cutoff(now).Format(models.DateLayout))
}

type Result struct {
	RunID   string
	Profile *models.ProfileRecord
	Reviews []*models.ReviewRecord
	Rows    []models.FlatRow
	Walk    *WalkResult
	// Document is the main page with its review containers replaced by every
	// review the walk kept, across all pages.
	Document *goquery.Document
	Duration time.Duration
}

// Service runs the full pipeline for one profile: fetch, extract, walk
// reviews, materialize rows.
type Service struct {
	fetcher  Fetcher
	profiles parser.ProfileExtractor
	reviews  parser.ReviewExtractor
	walker   *Walker
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(fetcher Fetcher, limiter ratelimit.RateLimiter, opts *Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	reviews := parser.NewReviewParser()
	return &Service{
		fetcher:  fetcher,
		profiles: parser.NewProfileParser(),
		reviews:  reviews,
		walker:   NewWalker(fetcher, reviews, limiter, opts, logger),
		now:      time.Now,
		logger:   logger.With("component", "profile_service"),
	}
}

// WithClock sets the time source for cutoffs and timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.profiles = parser.NewProfileParser().WithClock(now)
	return s
}

// ScrapeProfile never panics: a panic inside extraction is returned as an
// error so a batch can continue with the next URL.
func (s *Service) ScrapeProfile(ctx context.Context, url string, filter RecencyFilter) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while scraping profile", "url", url, "panic", r, "stack", string(debug.Stack()))
			res, err = nil, fmt.Errorf("failed to scrape %s: panic: %v", url, r)
		}
	}()

	if err := ValidateProfileURL(url); err != nil {
		return nil, err
	}

	start := s.now()
	runID := uuid.New().String()
	logger := s.logger.With("run_id", runID, "url", url)
	logger.Info("scraping profile", "filter", filter.Description(start))

	doc, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	profile := s.profiles.ExtractProfile(doc)
	if !profile.Found() {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, url)
	}

	walk := s.walker.CollectReviews(ctx, doc, url, filter.Cutoff(start))
	s.finish(profile, walk.Reviews, filter, start)

	combined, err := CombinedDocument(doc, walk.Kept)
	if err != nil {
		logger.Warn("failed to combine review pages, keeping main page", "error", err)
		combined = doc
	}

	res = &Result{
		RunID:    runID,
		Profile:  profile,
		Reviews:  walk.Reviews,
		Rows:     models.Materialize(profile, walk.Reviews),
		Walk:     walk,
		Document: combined,
		Duration: s.now().Sub(start),
	}
	logger.Info("profile scraped",
		"attorney", profile.FullName,
		"reviews", len(walk.Reviews),
		"rows", len(res.Rows),
		"stop_reason", walk.StopReason,
	)
	return res, nil
}

// ConvertDocument extracts a saved profile page without fetching further
// review pages. Every review on the page is kept.
func (s *Service) ConvertDocument(doc *goquery.Document, filter RecencyFilter) (*Result, error) {
	profile := s.profiles.ExtractProfile(doc)
	if !profile.Found() {
		return nil, ErrProfileNotFound
	}

	now := s.now()
	reviews := s.reviews.ExtractReviews(doc.Selection)
	s.finish(profile, reviews, filter, now)

	return &Result{
		RunID:    uuid.New().String(),
		Profile:  profile,
		Reviews:  reviews,
		Rows:     models.Materialize(profile, reviews),
		Document: doc,
	}, nil
}

// CombinedDocument copies doc and replaces its review containers with kept,
// the outer HTML of each review to keep, in order. doc itself is not changed.
func CombinedDocument(doc *goquery.Document, kept []string) (*goquery.Document, error) {
	src, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render main page: %w", err)
	}
	out, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse main page: %w", err)
	}

	block := strings.Join(kept, "\n")
	existing := out.Find(parser.ReviewSelector)
	switch {
	case existing.Length() > 0:
		existing.First().BeforeHtml(block)
		existing.Remove()
	case out.Find(reviewSectionSelector).Length() > 0:
		out.Find(reviewSectionSelector).First().AppendHtml(block)
	default:
		out.Find("body").AppendHtml(block)
	}
	return out, nil
}

func (s *Service) finish(profile *models.ProfileRecord, reviews []*models.ReviewRecord, filter RecencyFilter, now time.Time) {
	profile.TotalReviewsExtracted = len(reviews)
	profile.ReviewDateFilter = filter.Description(now)
}
