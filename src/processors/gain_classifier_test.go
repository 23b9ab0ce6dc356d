package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allthingssecurity/shares/src/models"
	"github.com/allthingssecurity/shares/src/taxconfig"
)

func configWithHoldingPeriod(months int) models.TaxConfig {
	cfg := taxconfig.DefaultConfig("2025-2026")
	cfg.LTCG.HoldingPeriod = months
	return cfg
}

func TestClassifyHoldingPeriodBoundary(t *testing.T) {
	tests := []struct {
		name          string
		acquired      string
		sold          string
		holdingPeriod int
		wantType      models.GainType
		wantMonths    int
	}{
		{"exactly at threshold is LTCG", "2024-08-20", "2025-08-20", 12, models.GainLTCG, 12},
		{"one month under threshold is STCG", "2024-09-20", "2025-08-20", 12, models.GainSTCG, 11},
		{"one day under a full month floors down", "2024-08-21", "2025-08-20", 12, models.GainSTCG, 11},
		{"well past threshold", "2023-05-15", "2025-08-20", 12, models.GainLTCG, 27},
		{"custom threshold 24 months", "2024-01-10", "2025-08-10", 24, models.GainSTCG, 19},
		{"custom threshold met", "2023-08-01", "2025-08-10", 24, models.GainLTCG, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs := []models.MatchedTransaction{{
				Share:       "TCS",
				OpeningDate: tt.acquired,
				OpeningQty:  10,
				OpeningAmt:  10000,
				SaleDate:    tt.sold,
				SaleQty:     10,
				SaleAmt:     15000,
			}}

			out := NewGainClassifier().Classify(txs, configWithHoldingPeriod(tt.holdingPeriod))
			require.Len(t, out, 1)
			assert.Equal(t, tt.wantType, out[0].GainType)
			assert.Equal(t, tt.wantMonths, out[0].HoldingMonths)
			assert.InDelta(t, 5000.0, out[0].Gain, 1e-9)
		})
	}
}

func TestClassifyLossStaysNegative(t *testing.T) {
	txs := []models.MatchedTransaction{{
		Share:        "YESBANK",
		PurchaseDate: "2025-01-10",
		PurchaseQty:  100,
		PurchaseAmt:  20000,
		SaleDate:     "2025-06-10",
		SaleQty:      100,
		SaleAmt:      12000,
	}}

	out := NewGainClassifier().Classify(txs, configWithHoldingPeriod(12))
	require.Len(t, out, 1)
	assert.Equal(t, models.GainSTCG, out[0].GainType)
	assert.InDelta(t, -8000.0, out[0].Gain, 1e-9)
}

func TestClassifyLeavesUnmatchedLotsUntouched(t *testing.T) {
	txs := []models.MatchedTransaction{{
		Share:        "HDFC",
		PurchaseDate: "2025-01-10",
		PurchaseQty:  10,
		PurchaseAmt:  15000,
	}}

	out := NewGainClassifier().Classify(txs, configWithHoldingPeriod(12))
	require.Len(t, out, 1)
	assert.Empty(t, out[0].GainType)
	assert.Zero(t, out[0].Gain)
	assert.Zero(t, out[0].HoldingMonths)
}

func TestClassifyDoesNotMutateInput(t *testing.T) {
	txs := []models.MatchedTransaction{{
		Share:       "TCS",
		OpeningDate: "2023-05-15",
		OpeningQty:  20,
		OpeningAmt:  66000,
		SaleDate:    "2025-08-20",
		SaleQty:     20,
		SaleAmt:     84000,
	}}

	_ = NewGainClassifier().Classify(txs, configWithHoldingPeriod(12))
	assert.Empty(t, txs[0].GainType, "input slice must not be mutated")
}
