package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{name: "long month", input: "March 7, 2024", ok: true},
		{name: "long month zero padded", input: "March 07, 2024", ok: true},
		{name: "short month", input: "Mar 7, 2024", ok: true},
		{name: "numeric", input: "03/07/2024", ok: true},
		{name: "numeric without padding", input: "3/7/2024", ok: true},
		{name: "missing space after comma", input: "March 7,2024", ok: true},
		{name: "iso", input: "2024-03-07", ok: true},
		{name: "surrounding whitespace", input: "  March 7, 2024\n", ok: true},
		{name: "relative text", input: "2 weeks ago", ok: false},
		{name: "empty", input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestParseDateIsIdempotent(t *testing.T) {
	for _, input := range []string{"January 31, 2020", "Feb 29, 2024", "12/25/2019", "2001-09-11"} {
		d, ok := ParseDate(input)
		require.True(t, ok, input)

		again, ok := ParseDate(d.Format("2006-01-02"))
		require.True(t, ok)
		assert.Equal(t, d, again)
	}
}
