package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/maltedev/avvo-profile-scraper/internal/batch"
	"github.com/maltedev/avvo-profile-scraper/internal/browser"
	"github.com/maltedev/avvo-profile-scraper/internal/database"
	"github.com/maltedev/avvo-profile-scraper/internal/events"
	"github.com/maltedev/avvo-profile-scraper/internal/export"
	"github.com/maltedev/avvo-profile-scraper/internal/scraper"
	"github.com/maltedev/avvo-profile-scraper/internal/storage"
	"github.com/maltedev/avvo-profile-scraper/internal/urlsource"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var scrapeFlags struct {
	urlsFile     string
	output       string
	daysBack     string
	saveHTML     string
	resume       bool
	createSample bool
	noProgress   bool
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [url...]",
	Short: "Scrape profiles from the URLs file (or the given URLs) into one CSV.",
	RunE:  runScrape,
}

func init() {
	f := scrapeCmd.Flags()
	f.StringVarP(&scrapeFlags.urlsFile, "file", "f", "", "URLs file, one profile URL per line (default SCRAPER_URLS_FILE)")
	f.StringVarP(&scrapeFlags.output, "output", "o", "", "CSV output path (default SCRAPER_OUTPUT_CSV)")
	f.StringVar(&scrapeFlags.daysBack, "days-back", "", `keep reviews from the last N days, or "none" for all`)
	f.StringVar(&scrapeFlags.saveHTML, "save-html", "", "directory to dump each profile page to")
	f.BoolVar(&scrapeFlags.resume, "resume", false, "skip URLs already completed and append to the CSV")
	f.BoolVar(&scrapeFlags.createSample, "create-sample", false, "write a sample URLs file and exit")
	f.BoolVar(&scrapeFlags.noProgress, "no-progress", false, "disable the progress bar")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	urlsFile := firstNonEmpty(scrapeFlags.urlsFile, cfg.Scraper.URLsFile)
	output := firstNonEmpty(scrapeFlags.output, cfg.Scraper.OutputCSV)

	if scrapeFlags.createSample {
		if err := urlsource.CreateSample(urlsFile); err != nil {
			return err
		}
		fmt.Fprintf(out, "Sample URLs file written to %s\n", urlsFile)
		return nil
	}

	var override *scraper.RecencyFilter
	if cmd.Flags().Changed("days-back") {
		f, err := scraper.ParseRecencyFilter(scrapeFlags.daysBack)
		if err != nil {
			return err
		}
		override = &f
	}

	src, err := loadSource(urlsFile, args)
	if errors.Is(err, os.ErrNotExist) {
		if err := urlsource.CreateSample(urlsFile); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s not found. A sample was created, add profile URLs and run again.\n", urlsFile)
		return nil
	}
	if err != nil {
		return err
	}
	for _, s := range src.Skipped {
		log.Warn("skipping line", "file", urlsFile, "line", s.Line, "text", s.Text, "reason", s.Reason)
	}
	if len(src.URLs) == 0 {
		return fmt.Errorf("no profile URLs found in %s", urlsFile)
	}

	def, err := cfg.Scraper.Filter()
	if err != nil {
		return err
	}
	filter := src.ResolveFilter(override, def)

	progress, err := storage.NewLinkStorage(cfg.Scraper.ProgressFile)
	if err != nil {
		return err
	}
	if err := progress.AddBatch(src.URLs); err != nil {
		return err
	}

	urls := src.URLs
	writer := export.NewCSVWriter(output)
	if scrapeFlags.resume {
		urls = progress.Remaining(urls)
		writer.Resume()
		if len(urls) < len(src.URLs) {
			fmt.Fprintf(out, "Resuming: %d of %d profiles already done\n", len(src.URLs)-len(urls), len(src.URLs))
		}
		if len(urls) == 0 {
			return nil
		}
	}

	service, closeFn, err := newService()
	if err != nil {
		return err
	}
	defer closeFn()

	saver, closeDB, err := openSaver(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	now := time.Now()
	fmt.Fprintf(out, "Scraping %d profiles, reviews: %s\n", len(urls), filter.Description(now))

	runner := &batch.Runner{
		Scraper:  service,
		Writer:   writer,
		Progress: progress,
		HTMLDir:  scrapeFlags.saveHTML,
		Logger:   log,
	}
	if saver != nil {
		runner.Saver = saver
	}
	if !scrapeFlags.noProgress {
		bar := newProgressBar(len(urls))
		runner.OnDone = func(string, error) { _ = bar.Add(1) }
		defer bar.Finish()
	}

	sum := runner.Run(ctx, urls, filter)
	printSummary(cmd, sum, output)

	if sum.Succeeded == 0 && sum.Failed > 0 {
		return fmt.Errorf("all %d profiles failed", sum.Failed)
	}
	return nil
}

func loadSource(path string, args []string) (*urlsource.Source, error) {
	if len(args) > 0 {
		return &urlsource.Source{URLs: args}, nil
	}
	return urlsource.Read(path)
}

func newService() (*scraper.Service, func(), error) {
	limiter, err := cfg.Scraper.RateLimiter()
	if err != nil {
		return nil, nil, err
	}

	b, err := browser.New(cfg.BrowserOptions(), log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize browser: %w", err)
	}
	closeFn := func() {
		if err := b.Close(); err != nil {
			log.Warn("failed to close browser", "error", err)
		}
	}

	return scraper.NewService(b, limiter, cfg.Scraper.Options(), log), closeFn, nil
}

// openSaver connects to the database when it is enabled. Without one, results
// only go to the CSV.
func openSaver(ctx context.Context) (*events.Publisher, func(), error) {
	if !cfg.Database.Enabled {
		return nil, func() {}, nil
	}

	db, err := database.New(ctx, cfg.Database.Options())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return events.NewPublisher(db, log), db.Close, nil
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]Scraping profiles[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func printSummary(cmd *cobra.Command, sum *batch.Summary, output string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Done in %s\n", sum.Duration.Round(time.Second))
	fmt.Fprintf(out, "  Succeeded: %d/%d\n", sum.Succeeded, sum.Total)
	fmt.Fprintf(out, "  Failed:    %d\n", sum.Failed)
	fmt.Fprintf(out, "  Reviews:   %d\n", sum.Reviews)
	fmt.Fprintf(out, "  Rows:      %d -> %s\n", sum.Rows, output)
	if sum.Interrupted {
		fmt.Fprintln(out, "  Interrupted, run with --resume to continue")
	}
	for _, f := range sum.Failures {
		fmt.Fprintf(out, "  FAILED %s: %v\n", f.URL, f.Err)
	}
	for _, w := range sum.Warnings {
		fmt.Fprintf(out, "  WARNING %s: %v\n", w.URL, w.Err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
