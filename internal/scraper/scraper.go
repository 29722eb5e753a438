package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrInvalidURL      = errors.New("invalid Avvo profile URL")
	ErrProfileNotFound = errors.New("attorney profile not found")
	ErrPageNotFound    = errors.New("page not found")
	ErrInvalidDaysBack = errors.New("days back must be a non-negative number or \"none\"")
)

// Fetcher loads a URL and returns the rendered document tree.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

type Options struct {
	MaxEmptyPages int
	// MaxPages bounds the fallback walk when a site keeps serving pages.
	MaxPages int
}

func DefaultOptions() *Options {
	return &Options{
		MaxEmptyPages: 2,
		MaxPages:      500,
	}
}

// BaseURL strips the query string and fragment from a profile URL.
func BaseURL(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return url
}

func PageURL(base string, page int) string {
	return fmt.Sprintf("%s?page=%d", base, page)
}

func ValidateProfileURL(url string) error {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}
	if !strings.Contains(url, "avvo.com/") {
		return fmt.Errorf("%w: %q is not an avvo.com URL", ErrInvalidURL, url)
	}
	return nil
}

// StaticFetcher serves documents from memory. It records every requested URL.
type StaticFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	errs     map[string]error
	requests []string
}

func NewStaticFetcher() *StaticFetcher {
	return &StaticFetcher{
		pages: make(map[string]string),
		errs:  make(map[string]error),
	}
}

func (f *StaticFetcher) Add(url, html string) *StaticFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = html
	return f
}

func (f *StaticFetcher) Fail(url string, err error) *StaticFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
	return f
}

func (f *StaticFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	f.mu.Lock()
	f.requests = append(f.requests, url)
	html, ok := f.pages[url]
	err := f.errs[url]
	f.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, url)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

func (f *StaticFetcher) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}
