package batch

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/avvo-profile-scraper/internal/export"
	"github.com/maltedev/avvo-profile-scraper/internal/models"
	"github.com/maltedev/avvo-profile-scraper/internal/scraper"
	"github.com/maltedev/avvo-profile-scraper/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	urlA = "https://www.avvo.com/attorneys/94401-ca-haitham-ballout-336338.html"
	urlB = "https://www.avvo.com/attorneys/28204-nc-michael-demayo-1742166.html"
	urlC = "https://www.avvo.com/attorneys/10001-ny-jane-doe-1.html"
)

type MockScraper struct {
	mock.Mock
}

func (m *MockScraper) ScrapeProfile(ctx context.Context, url string, filter scraper.RecencyFilter) (*scraper.Result, error) {
	args := m.Called(url, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scraper.Result), args.Error(1)
}

type MockSaver struct {
	mock.Mock
}

func (m *MockSaver) SaveAndPublish(ctx context.Context, res *scraper.Result, jobID string) (int64, error) {
	args := m.Called(res)
	return args.Get(0).(int64), args.Error(1)
}

func result(t *testing.T, url, id string, reviews int) *scraper.Result {
	t.Helper()
	p := models.NewProfile()
	p.ProfileURL = url
	p.FullName = "Attorney " + id
	p.NomenclatureID = id

	rs := make([]*models.ReviewRecord, reviews)
	for i := range rs {
		rs[i] = &models.ReviewRecord{Title: "review", Text: "text"}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><h1 class="profile-name">` + p.FullName + `</h1></body></html>`))
	require.NoError(t, err)

	return &scraper.Result{
		RunID:    "run-" + id,
		Profile:  p,
		Reviews:  rs,
		Rows:     models.Materialize(p, rs),
		Document: doc,
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRunContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	filter := scraper.DaysBack(30)

	s := new(MockScraper)
	s.On("ScrapeProfile", urlA, filter).Return(result(t, urlA, "a", 2), nil)
	s.On("ScrapeProfile", urlB, filter).Return(nil, errors.New("browser crashed"))
	s.On("ScrapeProfile", urlC, filter).Return(result(t, urlC, "c", 0), nil)

	progress, err := storage.NewLinkStorage(filepath.Join(dir, "progress.json"))
	require.NoError(t, err)
	require.NoError(t, progress.AddBatch([]string{urlA, urlB, urlC}))

	var done []string
	r := &Runner{
		Scraper:  s,
		Writer:   export.NewCSVWriter(out),
		Progress: progress,
		OnDone:   func(url string, err error) { done = append(done, url) },
	}

	sum := r.Run(context.Background(), []string{urlA, urlB, urlC}, filter)

	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 2, sum.Reviews)
	assert.Equal(t, 3, sum.Rows)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, urlB, sum.Failures[0].URL)
	assert.False(t, sum.Interrupted)
	assert.Equal(t, []string{urlA, urlB, urlC}, done)

	// header, two review rows, separator, one profile-only row
	records := readCSV(t, out)
	require.Len(t, records, 5)
	assert.Equal(t, models.Columns(), records[0])
	assert.Equal(t, "Attorney a", records[1][0])
	assert.Equal(t, strings.Repeat(",", len(models.Columns())-1), strings.Join(records[3], ","))
	assert.Equal(t, "Attorney c", records[4][0])

	link, ok := progress.Get(urlB)
	require.True(t, ok)
	assert.Equal(t, storage.StatusFailed, link.Status)
	link, ok = progress.Get(urlA)
	require.True(t, ok)
	assert.Equal(t, storage.StatusCompleted, link.Status)
	assert.Equal(t, 2, link.Reviews)
}

func TestRunSavesHTMLAndPersists(t *testing.T) {
	dir := t.TempDir()
	res := result(t, urlA, "94401-ca-haitham-ballout-336338", 1)

	s := new(MockScraper)
	s.On("ScrapeProfile", urlA, scraper.NoFilter()).Return(res, nil)
	saver := new(MockSaver)
	saver.On("SaveAndPublish", res).Return(int64(1), nil)

	r := &Runner{
		Scraper: s,
		Writer:  export.NewCSVWriter(filepath.Join(dir, "out.csv")),
		Saver:   saver,
		HTMLDir: filepath.Join(dir, "html"),
	}

	sum := r.Run(context.Background(), []string{urlA}, scraper.NoFilter())
	assert.Equal(t, 1, sum.Succeeded)

	data, err := os.ReadFile(filepath.Join(dir, "html", "94401-ca-haitham-ballout-336338.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "profile-name")
	saver.AssertExpectations(t)
}

func TestRunSaveFailureKeepsWrittenRows(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	res := result(t, urlA, "a", 2)

	s := new(MockScraper)
	s.On("ScrapeProfile", urlA, scraper.NoFilter()).Return(res, nil).Once()
	saver := new(MockSaver)
	saver.On("SaveAndPublish", res).Return(int64(0), errors.New("db down"))

	progress, err := storage.NewLinkStorage(filepath.Join(dir, "progress.json"))
	require.NoError(t, err)
	require.NoError(t, progress.AddBatch([]string{urlA}))

	r := &Runner{Scraper: s, Writer: export.NewCSVWriter(out), Progress: progress, Saver: saver}

	sum := r.Run(context.Background(), []string{urlA}, scraper.NoFilter())
	assert.Equal(t, 1, sum.Succeeded)
	assert.Zero(t, sum.Failed)
	require.Len(t, sum.Warnings, 1)
	assert.ErrorContains(t, sum.Warnings[0].Err, "failed to save profile")

	link, ok := progress.Get(urlA)
	require.True(t, ok)
	assert.Equal(t, storage.StatusCompleted, link.Status)

	// a resumed run has nothing left to scrape, so the rows are not repeated
	assert.Empty(t, progress.Remaining([]string{urlA}))
	resumed := &Runner{Scraper: s, Writer: export.NewCSVWriter(out).Resume(), Progress: progress}
	resumed.Run(context.Background(), progress.Remaining([]string{urlA}), scraper.NoFilter())

	assert.Len(t, readCSV(t, out), 3)
	s.AssertNumberOfCalls(t, "ScrapeProfile", 1)
}

func TestRunHTMLDumpFailureIsAWarning(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	res := result(t, urlA, "a", 1)
	s := new(MockScraper)
	s.On("ScrapeProfile", urlA, scraper.NoFilter()).Return(res, nil)

	r := &Runner{Scraper: s, Writer: export.NewCSVWriter(filepath.Join(dir, "out.csv")), HTMLDir: blocker}

	sum := r.Run(context.Background(), []string{urlA}, scraper.NoFilter())
	assert.Equal(t, 1, sum.Succeeded)
	require.Len(t, sum.Warnings, 1)
	assert.ErrorContains(t, sum.Warnings[0].Err, "failed to create HTML directory")
}

func TestRunCSVFailureMarksProfileFailed(t *testing.T) {
	dir := t.TempDir()
	res := result(t, urlA, "a", 1)
	s := new(MockScraper)
	s.On("ScrapeProfile", urlA, scraper.NoFilter()).Return(res, nil)
	saver := new(MockSaver)

	r := &Runner{
		Scraper: s,
		Writer:  export.NewCSVWriter(filepath.Join(dir, "missing", "out.csv")),
		Saver:   saver,
	}

	sum := r.Run(context.Background(), []string{urlA}, scraper.NoFilter())
	assert.Equal(t, 1, sum.Failed)
	saver.AssertNotCalled(t, "SaveAndPublish", mock.Anything)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := new(MockScraper)
	r := &Runner{Scraper: s, Writer: export.NewCSVWriter(filepath.Join(t.TempDir(), "out.csv"))}

	sum := r.Run(ctx, []string{urlA, urlB}, scraper.NoFilter())
	assert.True(t, sum.Interrupted)
	assert.Zero(t, sum.Succeeded+sum.Failed)
	s.AssertNotCalled(t, "ScrapeProfile", mock.Anything, mock.Anything)
}

func TestHTMLName(t *testing.T) {
	res := result(t, urlA, "", 0)
	assert.Equal(t, "run-.html", HTMLName(res))

	res.Profile.NomenclatureID = "94401-ca-haitham-ballout-336338"
	assert.Equal(t, "94401-ca-haitham-ballout-336338.html", HTMLName(res))
}
