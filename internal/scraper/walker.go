package scraper

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/avvo-profile-scraper/internal/models"
	"github.com/maltedev/avvo-profile-scraper/internal/parser"
	"github.com/maltedev/avvo-profile-scraper/internal/ratelimit"
	"golang.org/x/net/html"
)

type StopReason string

const (
	StopMainPageCutoff   StopReason = "main_page_cutoff"
	StopCutoff           StopReason = "cutoff"
	StopEmptyPage        StopReason = "empty_page"
	StopEndOfReviews     StopReason = "end_of_reviews"
	StopConsecutiveEmpty StopReason = "consecutive_empty_pages"
	StopFetchError       StopReason = "fetch_error"
	StopExhausted        StopReason = "exhausted"
	StopCancelled        StopReason = "cancelled"
	StopPageLimit        StopReason = "page_limit"
)

type WalkMode string

const (
	ModeMainOnly  WalkMode = "main_only"
	ModeDiscovery WalkMode = "discovery"
	ModeFallback  WalkMode = "fallback"
)

type walkState int

const (
	stateMainPage walkState = iota
	stateDiscovering
	stateWalking
	stateStopped
)

// PageVisit records one listing page fetched during a walk.
type PageVisit struct {
	Page    int
	URL     string
	Reviews int
	Err     string
}

type WalkResult struct {
	Reviews     []*models.ReviewRecord
	StopReason  StopReason
	Mode        WalkMode
	PagesLoaded int
	Discovered  []int
	Trace       []PageVisit
	// Kept holds the outer HTML of each container behind Reviews.
	Kept []string
	// Err is the fetch or context error that ended the walk, if any.
	Err error
}

var (
	pageParamPattern = regexp.MustCompile(`page=(\d+)`)
	pageOfPattern    = regexp.MustCompile(`(?i)(?:Page\s+)?\d+\s+of\s+(\d+)`)
	endOfReviews     = []string{"no reviews", "no more reviews"}
)

// Walker collects reviews across the paginated review listing of a profile,
// stopping at the first review older than the cutoff.
type Walker struct {
	fetcher Fetcher
	reviews parser.ReviewExtractor
	limiter ratelimit.RateLimiter
	opts    *Options
	logger  *slog.Logger
}

func NewWalker(fetcher Fetcher, reviews parser.ReviewExtractor, limiter ratelimit.RateLimiter, opts *Options, logger *slog.Logger) *Walker {
	if opts == nil {
		opts = DefaultOptions()
	}
	if limiter == nil {
		limiter = ratelimit.NewSimpleRateLimiter(0, 0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{
		fetcher: fetcher,
		reviews: reviews,
		limiter: limiter,
		opts:    opts,
		logger:  logger.With("component", "walker"),
	}
}

// CollectReviews starts from the already loaded profile document and walks
// the review pages. A nil cutoff collects everything. Fetch failures end the
// walk and are reported through the result, never returned.
func (w *Walker) CollectReviews(ctx context.Context, doc *goquery.Document, profileURL string, cutoff *time.Time) *WalkResult {
	res := &WalkResult{PagesLoaded: 1, Mode: ModeMainOnly}
	base := BaseURL(profileURL)

	state := stateMainPage
	for state != stateStopped {
		switch state {
		case stateMainPage:
			if w.collect(doc.Find(parser.ReviewSelector), cutoff, res) {
				res.StopReason = StopMainPageCutoff
				state = stateStopped
				continue
			}
			state = stateDiscovering

		case stateDiscovering:
			res.Discovered = DiscoverPages(doc, base, w.opts.MaxPages)
			if len(res.Discovered) > 0 {
				res.Mode = ModeDiscovery
			} else {
				res.Mode = ModeFallback
			}
			w.logger.Info("review pages discovered", "url", base, "pages", res.Discovered, "mode", res.Mode)
			state = stateWalking

		case stateWalking:
			res.StopReason = w.walk(ctx, base, cutoff, res)
			state = stateStopped
		}
	}

	w.logger.Info("review walk finished",
		"url", base,
		"reviews", len(res.Reviews),
		"pages_loaded", res.PagesLoaded,
		"stop_reason", res.StopReason,
	)
	return res
}

func (w *Walker) walk(ctx context.Context, base string, cutoff *time.Time, res *WalkResult) StopReason {
	next := w.pagePlan(res)
	empty := 0

	for {
		page, ok := next()
		if !ok {
			return StopExhausted
		}
		if w.opts.MaxPages > 0 && page > w.opts.MaxPages {
			return StopPageLimit
		}
		if err := ctx.Err(); err != nil {
			res.Err = err
			return StopCancelled
		}
		if err := w.limiter.Wait(ctx); err != nil {
			res.Err = err
			return StopCancelled
		}

		url := PageURL(base, page)
		visit := PageVisit{Page: page, URL: url}
		pageDoc, err := w.fetcher.Fetch(ctx, url)
		if err != nil {
			visit.Err = err.Error()
			res.Trace = append(res.Trace, visit)
			res.Err = err
			w.recordError()
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return StopCancelled
			}
			w.logger.Warn("failed to fetch review page", "url", url, "error", err)
			return StopFetchError
		}
		w.recordSuccess()

		containers := pageDoc.Find(parser.ReviewSelector)
		visit.Reviews = containers.Length()
		res.Trace = append(res.Trace, visit)

		if containers.Length() == 0 {
			if res.Mode == ModeDiscovery {
				return StopEmptyPage
			}
			if signalsEndOfReviews(pageDoc) {
				return StopEndOfReviews
			}
			empty++
			w.logger.Debug("empty review page", "url", url, "consecutive", empty)
			if empty >= w.opts.MaxEmptyPages {
				return StopConsecutiveEmpty
			}
			continue
		}

		empty = 0
		res.PagesLoaded++
		before := len(res.Reviews)
		stopped := w.collect(containers, cutoff, res)
		w.logger.Info("review page loaded", "page", page, "reviews", len(res.Reviews)-before)
		if stopped {
			return StopCutoff
		}
	}
}

// pagePlan yields the discovered pages in order, or consecutive pages from 2
// when nothing was discovered.
func (w *Walker) pagePlan(res *WalkResult) func() (int, bool) {
	if res.Mode == ModeDiscovery {
		i := 0
		return func() (int, bool) {
			if i >= len(res.Discovered) {
				return 0, false
			}
			i++
			return res.Discovered[i-1], true
		}
	}

	page := 1
	return func() (int, bool) {
		page++
		return page, true
	}
}

// collect appends reviews from containers in order and reports whether the
// cutoff fired. Reviews with unparseable dates are kept.
func (w *Walker) collect(containers *goquery.Selection, cutoff *time.Time, res *WalkResult) bool {
	stopped := false
	containers.EachWithBreak(func(_ int, container *goquery.Selection) bool {
		if cutoff != nil {
			if d, ok := w.reviews.ReviewDate(container); ok && d.Before(*cutoff) {
				stopped = true
				return false
			}
		}
		if r, ok := w.reviews.ExtractReview(container); ok {
			res.Reviews = append(res.Reviews, r)
			if h, err := goquery.OuterHtml(container); err == nil {
				res.Kept = append(res.Kept, h)
			}
		}
		return true
	})
	return stopped
}

func (w *Walker) recordSuccess() {
	if f, ok := w.limiter.(ratelimit.Feedback); ok {
		f.RecordSuccess()
	}
}

func (w *Walker) recordError() {
	if f, ok := w.limiter.(ratelimit.Feedback); ok {
		f.RecordError()
	}
}

func signalsEndOfReviews(doc *goquery.Document) bool {
	text := strings.ToLower(doc.Text())
	for _, marker := range endOfReviews {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// DiscoverPages finds review page numbers greater than 1 linked from the
// document, in ascending order. Pages above limit are dropped; a limit of zero
// falls back to the default page limit.
func DiscoverPages(doc *goquery.Document, base string, limit int) []int {
	if limit <= 0 {
		limit = DefaultOptions().MaxPages
	}
	pages := make(map[int]bool)
	add := func(n int) {
		if n > 1 && n <= limit {
			pages[n] = true
		}
	}

	doc.Find(`a[href*="page="]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !samePage(href, base) {
			return
		}
		if m := pageParamPattern.FindStringSubmatch(href); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				add(n)
			}
		}
	})

	doc.Find(`.pagination a, .page-numbers a, [class*="pagination"] a`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if m := pageParamPattern.FindStringSubmatch(href); m != nil && samePage(href, base) {
			if n, err := strconv.Atoi(m[1]); err == nil {
				add(n)
			}
			return
		}
		if n, err := strconv.Atoi(strings.TrimSpace(a.Text())); err == nil {
			add(n)
		}
	})

	if last, ok := pageCount(doc); ok {
		for n := 2; n <= min(last, limit); n++ {
			add(n)
		}
	}

	out := make([]int, 0, len(pages))
	for n := range pages {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// pageCount reads "Page 1 of 5" style text. Only elements whose own text
// carries the phrase are considered, and review bodies are skipped.
func pageCount(doc *goquery.Document) (int, bool) {
	last, found := 0, false
	doc.Find("body *").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.Closest(parser.ReviewSelector).Length() > 0 {
			return true
		}
		own := directText(sel)
		if !strings.Contains(own, "Page") && !strings.Contains(own, "of") {
			return true
		}
		m := pageOfPattern.FindStringSubmatch(sel.Text())
		if m == nil {
			return true
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return true
		}
		last, found = n, true
		return false
	})
	return last, found
}

func directText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
	}
	return b.String()
}

// samePage reports whether a pagination href points at the profile being
// walked rather than at another listing.
func samePage(href, base string) bool {
	switch {
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return BaseURL(href) == base
	case strings.HasPrefix(href, "/"):
		return strings.HasSuffix(base, BaseURL(href))
	default:
		return true
	}
}
