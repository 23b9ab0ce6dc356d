package utils

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
)

const DefaultDateFormat = "2006-01-02"

// ParseDate parses an ISO-8601 date string using the default format.
// Logs an error and returns zero time if parsing fails.
func ParseDate(dateStr string) time.Time {
	t, err := time.Parse(DefaultDateFormat, dateStr)
	if err != nil {
		log.Printf("Error parsing date '%s' with format '%s': %v. Returning zero time.", dateStr, DefaultDateFormat, err)
		return time.Time{}
	}
	return t
}

// ValidDate reports whether dateStr parses with the default format.
func ValidDate(dateStr string) bool {
	_, err := time.Parse(DefaultDateFormat, dateStr)
	return err == nil
}

// MonthsBetween returns the number of whole months from 'from' to 'to',
// floored. Never negative.
func MonthsBetween(from, to time.Time) int {
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// NextFinancialYearStart derives the opening date for carry-forward rows
// from a "YYYY-YYYY" financial year string. Financial years start April 1,
// so "2025-2026" yields "2026-04-01".
func NextFinancialYearStart(financialYear string) (string, error) {
	parts := strings.Split(financialYear, "-")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid financial year %q: want YYYY-YYYY", financialYear)
	}
	endYear, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", fmt.Errorf("invalid financial year %q: %w", financialYear, err)
	}
	startYear, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", fmt.Errorf("invalid financial year %q: %w", financialYear, err)
	}
	if endYear != startYear+1 {
		return "", fmt.Errorf("invalid financial year %q: years must be consecutive", financialYear)
	}
	return fmt.Sprintf("%04d-04-01", endYear), nil
}
