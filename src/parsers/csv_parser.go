package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/allthingssecurity/shares/src/models"
	"github.com/allthingssecurity/shares/src/security/validation"
	"github.com/allthingssecurity/shares/src/utils"
)

// ErrMalformedRow rejects an upload carrying a row with a missing share
// identifier, a negative quantity or amount, or an unparsable date. The
// wrapped message names the offending row.
var ErrMalformedRow = errors.New("malformed row")

// Expected header columns, matched case-insensitively and order-insensitively.
var expectedColumns = []string{
	"share",
	"openingDate", "openingQty", "openingAmt",
	"purchaseDate", "purchaseQty", "purchaseAmt",
	"saleDate", "saleQty", "saleAmt",
}

type csvRowParser struct{}

func NewCSVParser() RowParser {
	return &csvRowParser{}
}

func (p *csvRowParser) Parse(file io.Reader) ([]models.TransactionRow, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	colIndex, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []models.TransactionRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		line++
		if isBlank(record) {
			continue
		}

		row, err := parseRecord(record, colIndex, line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file contains no data rows", ErrMalformedRow)
	}
	return rows, nil
}

func mapHeader(header []string) (map[string]int, error) {
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, want := range []string{"share"} {
		if _, ok := colIndex[strings.ToLower(want)]; !ok {
			return nil, fmt.Errorf("%w: header is missing required column %q", ErrMalformedRow, want)
		}
	}
	return colIndex, nil
}

func parseRecord(record []string, colIndex map[string]int, line int) (models.TransactionRow, error) {
	field := func(name string) string {
		idx, ok := colIndex[strings.ToLower(name)]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	row := models.TransactionRow{Share: validation.StripUnprintable(field("share"))}
	if row.Share == "" {
		return models.TransactionRow{}, fmt.Errorf("%w: row %d has no share identifier", ErrMalformedRow, line)
	}

	var err error
	if row.OpeningDate, row.OpeningQty, row.OpeningAmt, err = parseTriple(
		field("openingDate"), field("openingQty"), field("openingAmt"), "opening", line); err != nil {
		return models.TransactionRow{}, err
	}
	if row.PurchaseDate, row.PurchaseQty, row.PurchaseAmt, err = parseTriple(
		field("purchaseDate"), field("purchaseQty"), field("purchaseAmt"), "purchase", line); err != nil {
		return models.TransactionRow{}, err
	}
	if row.SaleDate, row.SaleQty, row.SaleAmt, err = parseTriple(
		field("saleDate"), field("saleQty"), field("saleAmt"), "sale", line); err != nil {
		return models.TransactionRow{}, err
	}

	return row, nil
}

// parseTriple validates one (date, quantity, amount) triple. A triple with a
// positive quantity must carry a parsable date; empty fields are zero.
func parseTriple(dateStr, qtyStr, amtStr, kind string, line int) (string, float64, float64, error) {
	qty, err := parseNonNegative(qtyStr)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: row %d %s quantity %q: %v", ErrMalformedRow, line, kind, qtyStr, err)
	}
	amt, err := parseNonNegative(amtStr)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: row %d %s amount %q: %v", ErrMalformedRow, line, kind, amtStr, err)
	}
	if qty > 0 {
		if !utils.ValidDate(dateStr) {
			return "", 0, 0, fmt.Errorf("%w: row %d %s date %q is not a valid YYYY-MM-DD date", ErrMalformedRow, line, kind, dateStr)
		}
		return dateStr, qty, amt, nil
	}
	// No event; drop a stray date so downstream sees an empty triple.
	return "", 0, amt, nil
}

func parseNonNegative(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if v < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return v, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
