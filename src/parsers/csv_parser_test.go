package parsers

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "share,openingDate,openingQty,openingAmt,purchaseDate,purchaseQty,purchaseAmt,saleDate,saleQty,saleAmt\n"

func TestParseValidFile(t *testing.T) {
	csvData := header +
		"TCS,2023-05-15,50,165000,2025-06-10,30,102000,2025-08-20,20,84000\n" +
		"INFY,,,,2025-05-01,100,150000,,,\n"

	rows, err := NewCSVParser().Parse(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	tcs := rows[0]
	assert.Equal(t, "TCS", tcs.Share)
	assert.Equal(t, "2023-05-15", tcs.OpeningDate)
	assert.Equal(t, 50.0, tcs.OpeningQty)
	assert.Equal(t, 165000.0, tcs.OpeningAmt)
	assert.Equal(t, 30.0, tcs.PurchaseQty)
	assert.Equal(t, 20.0, tcs.SaleQty)
	assert.Equal(t, 84000.0, tcs.SaleAmt)

	infy := rows[1]
	assert.Equal(t, "INFY", infy.Share)
	assert.Empty(t, infy.OpeningDate)
	assert.Zero(t, infy.OpeningQty)
	assert.Equal(t, 100.0, infy.PurchaseQty)
}

func TestParseHeaderOrderInsensitive(t *testing.T) {
	csvData := "saleQty,saleAmt,saleDate,share,openingQty,openingAmt,openingDate\n" +
		"5,9000,2025-07-01,INFY,10,12000,2024-04-01\n"

	rows, err := NewCSVParser().Parse(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "INFY", rows[0].Share)
	assert.Equal(t, 10.0, rows[0].OpeningQty)
	assert.Equal(t, 5.0, rows[0].SaleQty)
}

func TestParseMalformedRows(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"missing share", ",2023-05-15,50,165000,,,,,,"},
		{"negative quantity", "TCS,2023-05-15,-50,165000,,,,,,"},
		{"negative amount", "TCS,2023-05-15,50,-165000,,,,,,"},
		{"unparsable quantity", "TCS,2023-05-15,fifty,165000,,,,,,"},
		{"unparsable date", "TCS,15-05-2023,50,165000,,,,,,"},
		{"missing date with quantity", "TCS,,50,165000,,,,,,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSVParser().Parse(strings.NewReader(header + tt.row + "\n"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRow))
		})
	}
}

func TestParseRejectsWholeUploadOnOneBadRow(t *testing.T) {
	csvData := header +
		"TCS,2023-05-15,50,165000,,,,,,\n" +
		"BAD,2023-05-15,-1,100,,,,,,\n"

	rows, err := NewCSVParser().Parse(strings.NewReader(csvData))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedRow))
	assert.Nil(t, rows)
	assert.Contains(t, err.Error(), "row 3", "error names the offending row")
}

func TestParseEmptyFile(t *testing.T) {
	_, err := NewCSVParser().Parse(strings.NewReader(header))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedRow))
}

func TestParseSkipsBlankLines(t *testing.T) {
	csvData := header +
		"TCS,2023-05-15,50,165000,,,,,,\n" +
		",,,,,,,,,\n"

	rows, err := NewCSVParser().Parse(strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
