package urlsource

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/maltedev/avvo-profile-scraper/internal/scraper"
)

const daysBackKey = "DAYS_BACK="

const sample = `# Add one URL per line
# Lines starting with # are ignored
# Optional: Add DAYS_BACK=365 to set review date filter (default: 365 days), or DAYS_BACK=none for all reviews
# DAYS_BACK=365
https://www.avvo.com/attorneys/28204-nc-michael-demayo-1742166.html
`

// Skipped is an input line that was neither a URL nor a setting.
type Skipped struct {
	Line   int
	Text   string
	Reason string
}

type Source struct {
	URLs []string
	// Filter is set when the file carries a valid DAYS_BACK line.
	Filter  *scraper.RecencyFilter
	Skipped []Skipped
}

// Read parses the URL list at path. A missing file is reported with an error
// wrapping os.ErrNotExist.
func Read(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URLs file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads one URL per line. Blank lines and # comments are ignored except
// for a DAYS_BACK=N or DAYS_BACK=none setting, which may itself be commented
// out. The last valid setting wins.
func Parse(r io.Reader) (*Source, error) {
	src := &Source{}
	scanner := bufio.NewScanner(r)

	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		setting := strings.TrimSpace(strings.TrimPrefix(line, "#"))

		if strings.HasPrefix(strings.ToUpper(setting), daysBackKey) {
			filter, err := scraper.ParseRecencyFilter(setting[len(daysBackKey):])
			if err != nil {
				src.Skipped = append(src.Skipped, Skipped{Line: n, Text: line, Reason: err.Error()})
				continue
			}
			src.Filter = &filter
			continue
		}

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !strings.HasPrefix(line, "http://") && !strings.HasPrefix(line, "https://") {
			src.Skipped = append(src.Skipped, Skipped{Line: n, Text: line, Reason: "not an http(s) URL"})
			continue
		}
		src.URLs = append(src.URLs, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URLs: %w", err)
	}
	return src, nil
}

// ResolveFilter picks the recency filter by priority: override, then the file
// setting, then def.
func (s *Source) ResolveFilter(override *scraper.RecencyFilter, def scraper.RecencyFilter) scraper.RecencyFilter {
	switch {
	case override != nil:
		return *override
	case s != nil && s.Filter != nil:
		return *s.Filter
	default:
		return def
	}
}

// CreateSample writes a commented example list to path unless a file is
// already there.
func CreateSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		return fmt.Errorf("failed to create sample URLs file: %w", err)
	}
	return nil
}
