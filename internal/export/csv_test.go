package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maltedev/avvo-profile-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profileRows(name string, reviews ...string) []models.FlatRow {
	p := models.NewProfile()
	p.FullName = name
	var rs []*models.ReviewRecord
	for _, title := range reviews {
		rs = append(rs, &models.ReviewRecord{Rating: 5, Title: title})
	}
	return models.Materialize(p, rs)
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

func column(name string) int {
	for i, c := range models.Columns() {
		if c == name {
			return i
		}
	}
	return -1
}

func TestCSVWriterAppendsWithSeparator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := NewCSVWriter(path)

	require.NoError(t, w.Write(profileRows("Jane Doe", "Great", "Helpful")))
	require.NoError(t, w.Write(profileRows("John Roe")))

	records := readCSV(t, path)
	require.Len(t, records, 5)

	assert.Equal(t, models.Columns(), records[0])
	assert.Equal(t, "Jane Doe", records[1][column("attorney_full_name")])
	assert.Equal(t, "Helpful", records[2][column("review_title")])
	for _, cell := range records[3] {
		assert.Empty(t, cell)
	}
	assert.Equal(t, "John Roe", records[4][column("attorney_full_name")])
	assert.Empty(t, records[4][column("review_title")])
}

func TestCSVWriterFirstWriteReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale,data\n"), 0644))

	require.NoError(t, NewCSVWriter(path).Write(profileRows("Jane Doe")))

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, models.Columns(), records[0])
}

func TestCSVWriterResume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, NewCSVWriter(path).Write(profileRows("Jane Doe")))

	require.NoError(t, NewCSVWriter(path).Resume().Write(profileRows("John Roe")))

	records := readCSV(t, path)
	require.Len(t, records, 4)
	assert.Equal(t, "John Roe", records[3][column("attorney_full_name")])
}

func TestWriteRowsCleansCells(t *testing.T) {
	rows := profileRows("Jane\n  Doe", "Line one\n\tline two")

	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, rows, false, false))

	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "Jane Doe")
	assert.Contains(t, buf.String(), "Line one line two")
}
