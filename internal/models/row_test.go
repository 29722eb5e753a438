package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewProfileDefaults(t *testing.T) {
	p := NewProfile()

	assert.Equal(t, "United States", p.Country)
	assert.Equal(t, "avvo", p.NomenclatureSource)
	assert.Nil(t, p.OverallRating)
	assert.Nil(t, p.YearsLicensed)
	assert.Zero(t, p.TotalReviewCount)
	assert.Zero(t, p.EndorsementsReceived)
	assert.False(t, p.IsPro)
	assert.Empty(t, p.PracticeAreas)
	assert.False(t, p.Found())
}

func TestMaterialize(t *testing.T) {
	p := NewProfile()
	p.FullName = "Jane Doe"
	p.PracticeAreas = []string{"Immigration", "Family"}

	t.Run("no reviews yields one row with empty review cells", func(t *testing.T) {
		rows := Materialize(p, nil)
		require.Len(t, rows, 1)

		values := rows[0].Values()
		require.Len(t, values, len(Columns()))
		for _, v := range values[ProfileColumnCount():] {
			assert.Empty(t, v)
		}
		assert.Equal(t, "Jane Doe", rows[0].Map()["attorney_full_name"])
		assert.Equal(t, "Immigration, Family", rows[0].Map()["practice_areas"])
	})

	t.Run("one row per review with identical profile cells", func(t *testing.T) {
		d := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
		reviews := []*ReviewRecord{
			{ReviewerName: strPtr("Alice"), Date: &d, Rating: 5, Title: "Great"},
			{Rating: 4, Text: "Helpful"},
			{Rating: 3, Text: "Fine", Response: &AttorneyResponse{Name: "Jane", Text: "Thanks"}},
		}

		rows := Materialize(p, reviews)
		require.Len(t, rows, 3)

		first := rows[0].Values()[:ProfileColumnCount()]
		for i, row := range rows {
			assert.Equal(t, first, row.Values()[:ProfileColumnCount()])
			assert.Same(t, reviews[i], row.Review)
		}

		m := rows[0].Map()
		assert.Equal(t, "Alice", m["reviewer_name"])
		assert.Equal(t, "2024-01-05", m["review_date"])
		assert.Equal(t, "5", m["review_rating"])
		assert.Empty(t, rows[1].Map()["reviewer_name"])
		assert.Equal(t, "Thanks", rows[2].Map()["attorney_response_text"])
	})
}

func TestColumnsOrder(t *testing.T) {
	cols := Columns()

	assert.Equal(t, "attorney_full_name", cols[0])
	assert.Equal(t, "nomenclature_profile_id", cols[ProfileColumnCount()-1])
	assert.Equal(t, "reviewer_name", cols[ProfileColumnCount()])
	assert.Equal(t, "attorney_response_text", cols[len(cols)-1])

	seen := make(map[string]bool)
	for _, c := range cols {
		assert.False(t, seen[c], "duplicate column %s", c)
		seen[c] = true
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "newlines and tabs", input: "line one\nline two\r\n\tthree", expected: "line one line two three"},
		{name: "squeeze spaces", input: "  a    b  ", expected: "a b"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanText(tt.input))
		})
	}
}

func TestFormattedProfileCells(t *testing.T) {
	p := NewProfile()
	rating := 4.5
	years := 12
	p.OverallRating = &rating
	p.YearsLicensed = &years
	p.IsPro = true
	p.Biography = "First line.\n\nSecond   line."
	p.Licenses = []License{
		{State: "California", Acquired: "2010", Status: "Active"},
		{State: "Nevada"},
	}
	p.PracticeAreaPercentages = []PracticeAreaShare{{Name: "Immigration", Percent: "80%"}}
	p.ScrapedAt = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	m := Materialize(p, nil)[0].Map()

	assert.Equal(t, "4.5", m["overall_average_rating"])
	assert.Equal(t, "12", m["years_licensed"])
	assert.Empty(t, m["avvo_rating"])
	assert.Equal(t, "True", m["is_pro"])
	assert.Equal(t, "False", m["is_claimed"])
	assert.Equal(t, "First line. Second line.", m["biography"])
	assert.Equal(t, "California (Acquired: 2010, Status: Active) | Nevada", m["license_details"])
	assert.Equal(t, "Immigration: 80%", m["practice_area_percentages"])
	assert.Equal(t, "2025-03-01 09:30:00", m["scraped_at"])
}
