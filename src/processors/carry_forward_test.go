package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allthingssecurity/shares/src/models"
)

func TestExportCarriesClosingBalancesForward(t *testing.T) {
	balances := []models.ClosingBalance{
		{Share: "TCS", ClosingQty: 60, ClosingAmt: 183000},
		{Share: "SOLD", ClosingQty: 0, ClosingAmt: 0},
		{Share: "INFY", ClosingQty: 100, ClosingAmt: 150000},
	}

	rows := NewCarryForwardExporter().Export(balances, "2026-04-01")
	require.Len(t, rows, 2, "zero-closing shares are omitted")

	assert.Equal(t, "TCS", rows[0].Share)
	assert.Equal(t, "2026-04-01", rows[0].OpeningDate)
	assert.Equal(t, 60.0, rows[0].OpeningQty)
	assert.Equal(t, 183000.0, rows[0].OpeningAmt)
	assert.Zero(t, rows[0].PurchaseQty)
	assert.Zero(t, rows[0].SaleQty)

	assert.Equal(t, "INFY", rows[1].Share)
}

func TestExportEmptyPortfolio(t *testing.T) {
	rows := NewCarryForwardExporter().Export(nil, "2026-04-01")
	assert.Empty(t, rows)
}
