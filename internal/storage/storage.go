package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ProfileLink tracks the batch state of one profile URL.
type ProfileLink struct {
	URL       string    `json:"url"`
	Attorney  string    `json:"attorney,omitempty"`
	Reviews   int       `json:"reviews"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Error     string    `json:"error,omitempty"`
}

// LinkStorage persists URL progress as JSON so an interrupted batch can
// resume where it stopped. Every mutation is flushed to disk.
type LinkStorage struct {
	mu       sync.RWMutex
	links    map[string]*ProfileLink
	order    []string
	filename string
}

func NewLinkStorage(filename string) (*LinkStorage, error) {
	ls := &LinkStorage{
		links:    make(map[string]*ProfileLink),
		filename: filename,
	}

	if err := ls.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return ls, nil
}

// AddBatch registers urls as pending. Known URLs keep their state.
func (ls *LinkStorage) AddBatch(urls []string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	now := time.Now()
	for _, url := range urls {
		if url == "" {
			continue
		}
		if _, ok := ls.links[url]; ok {
			continue
		}
		ls.links[url] = &ProfileLink{URL: url, Status: StatusPending, AddedAt: now, UpdatedAt: now}
		ls.order = append(ls.order, url)
	}

	return ls.save()
}

func (ls *LinkStorage) Get(url string) (*ProfileLink, bool) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	link, exists := ls.links[url]
	if !exists {
		return nil, false
	}
	cp := *link
	return &cp, true
}

// Remaining returns the URLs of urls that are not completed yet, in input order.
func (ls *LinkStorage) Remaining(urls []string) []string {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	var out []string
	for _, url := range urls {
		if link, ok := ls.links[url]; ok && link.Status == StatusCompleted {
			continue
		}
		out = append(out, url)
	}
	return out
}

func (ls *LinkStorage) MarkCompleted(url, attorney string, reviews int) error {
	return ls.update(url, func(link *ProfileLink) {
		link.Status = StatusCompleted
		link.Attorney = attorney
		link.Reviews = reviews
		link.Error = ""
	})
}

func (ls *LinkStorage) MarkFailed(url string, cause error) error {
	return ls.update(url, func(link *ProfileLink) {
		link.Status = StatusFailed
		link.Error = cause.Error()
	})
}

func (ls *LinkStorage) update(url string, fn func(*ProfileLink)) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	link, exists := ls.links[url]
	if !exists {
		return fmt.Errorf("link not found: %s", url)
	}

	fn(link)
	link.Attempts++
	link.UpdatedAt = time.Now()

	return ls.save()
}

func (ls *LinkStorage) GetStats() map[string]int {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	stats := make(map[string]int)
	for _, link := range ls.links {
		stats[link.Status]++
	}
	stats["total"] = len(ls.links)
	return stats
}

// Failed lists failed links in insertion order.
func (ls *LinkStorage) Failed() []*ProfileLink {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	var out []*ProfileLink
	for _, url := range ls.order {
		if link := ls.links[url]; link.Status == StatusFailed {
			cp := *link
			out = append(out, &cp)
		}
	}
	return out
}

func (ls *LinkStorage) save() error {
	list := make([]*ProfileLink, 0, len(ls.order))
	for _, url := range ls.order {
		list = append(list, ls.links[url])
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}

	// Write to temp file first for atomicity
	tmpFile := ls.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write progress: %w", err)
	}

	return os.Rename(tmpFile, ls.filename)
}

func (ls *LinkStorage) Load() error {
	data, err := os.ReadFile(ls.filename)
	if err != nil {
		return err
	}

	var list []*ProfileLink
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("failed to decode progress file %s: %w", ls.filename, err)
	}

	sort.SliceStable(list, func(i, j int) bool { return list[i].AddedAt.Before(list[j].AddedAt) })
	ls.links = make(map[string]*ProfileLink, len(list))
	ls.order = ls.order[:0]
	for _, link := range list {
		if _, dup := ls.links[link.URL]; dup {
			continue
		}
		ls.links[link.URL] = link
		ls.order = append(ls.order, link.URL)
	}
	return nil
}
