package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/avvo-profile-scraper/internal/export"
	"github.com/maltedev/avvo-profile-scraper/internal/scraper"
	"github.com/spf13/cobra"
)

var convertFlags struct {
	outputDir string
	daysBack  string
}

var convertCmd = &cobra.Command{
	Use:   "convert <file.html|dir>",
	Short: "Extract saved profile pages to CSV without fetching review pages.",
	Long: `Extract saved profile pages to CSV without fetching review pages.
Each page is written to <nomenclature id>.csv. Every review on the page is kept;
--days-back only sets the review_date_filter column.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertFlags.outputDir, "output-dir", "o", "", "directory for CSV files (default next to each HTML file)")
	convertCmd.Flags().StringVar(&convertFlags.daysBack, "days-back", "none", `recency label, N days or "none"`)
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	filter, err := scraper.ParseRecencyFilter(convertFlags.daysBack)
	if err != nil {
		return err
	}

	files, err := htmlFiles(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .html files in %s", args[0])
	}

	service := scraper.NewService(nil, nil, cfg.Scraper.Options(), log)
	out := cmd.OutOrStdout()

	failed := 0
	for _, path := range files {
		csvPath, rows, err := convertFile(service, path, filter)
		if err != nil {
			failed++
			log.Error("conversion failed", "file", path, "error", err)
			fmt.Fprintf(out, "FAILED %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "%s -> %s (%d rows)\n", path, csvPath, rows)
	}

	if failed == len(files) {
		return fmt.Errorf("all %d files failed", failed)
	}
	return nil
}

func convertFile(service *scraper.Service, path string, filter scraper.RecencyFilter) (string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", 0, fmt.Errorf("failed to parse HTML: %w", err)
	}

	res, err := service.ConvertDocument(doc, filter)
	if err != nil {
		return "", 0, err
	}

	csvPath := csvPathFor(path, res.Profile.NomenclatureID, convertFlags.outputDir)
	if err := export.WriteFile(csvPath, res.Rows); err != nil {
		return "", 0, err
	}
	return csvPath, len(res.Rows), nil
}

// csvPathFor names the output after the nomenclature id, falling back to the
// HTML file name.
func csvPathFor(htmlPath, nomenclatureID, outputDir string) string {
	name := nomenclatureID
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(htmlPath), filepath.Ext(htmlPath))
	}
	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(htmlPath)
	}
	return filepath.Join(dir, name+".csv")
}

func htmlFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	files, err := filepath.Glob(filepath.Join(path, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}
	return files, nil
}
