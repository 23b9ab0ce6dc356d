package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want int
	}{
		{"same day", "2025-06-10", "2025-06-10", 0},
		{"one day short of a month", "2025-06-10", "2025-07-09", 0},
		{"exactly one month", "2025-06-10", "2025-07-10", 1},
		{"one day past a month", "2025-06-10", "2025-07-11", 1},
		{"eleven months and change", "2024-08-20", "2025-08-19", 11},
		{"exactly twelve months", "2024-08-20", "2025-08-20", 12},
		{"across year end", "2024-11-15", "2025-02-15", 3},
		{"multi year holding", "2023-05-15", "2025-08-20", 27},
		{"reversed dates clamp to zero", "2025-08-20", "2025-06-10", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from := ParseDate(tt.from)
			to := ParseDate(tt.to)
			assert.Equal(t, tt.want, MonthsBetween(from, to))
		})
	}
}

func TestParseDate(t *testing.T) {
	parsed := ParseDate("2025-08-20")
	assert.Equal(t, time.Date(2025, time.August, 20, 0, 0, 0, 0, time.UTC), parsed)
	assert.True(t, ParseDate("20/08/2025").IsZero())
}

func TestValidDate(t *testing.T) {
	assert.True(t, ValidDate("2025-08-20"))
	assert.False(t, ValidDate(""))
	assert.False(t, ValidDate("2025-13-01"))
	assert.False(t, ValidDate("20-08-2025"))
}

func TestNextFinancialYearStart(t *testing.T) {
	got, err := NextFinancialYearStart("2025-2026")
	require.NoError(t, err)
	assert.Equal(t, "2026-04-01", got)

	for _, bad := range []string{"2025", "2025-2027", "2025-abcd", "2026-2025"} {
		_, err := NextFinancialYearStart(bad)
		assert.Error(t, err, bad)
	}
}
