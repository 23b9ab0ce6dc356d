package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allthingssecurity/shares/src/models"
	"github.com/allthingssecurity/shares/src/taxconfig"
)

func gainTx(gainType models.GainType, gain float64) models.MatchedTransaction {
	return models.MatchedTransaction{
		Share:        "X",
		PurchaseDate: "2024-01-01",
		PurchaseQty:  1,
		PurchaseAmt:  100,
		SaleDate:     "2025-01-01",
		SaleQty:      1,
		SaleAmt:      100 + gain,
		GainType:     gainType,
		Gain:         gain,
	}
}

func TestCalculateSTCGWithCess(t *testing.T) {
	// STCG 20% + 4% cess on 50000: base 10000, cess 400, effective 20.80%.
	cfg := taxconfig.DefaultConfig("2025-2026")
	cfg.STCG.Rate = 20
	cfg.STCG.Cess = 4

	cg := NewTaxCalculator().Calculate([]models.MatchedTransaction{
		gainTx(models.GainSTCG, 50000),
	}, cfg)

	assert.Equal(t, 50000.0, cg.TotalSTCG)
	assert.Equal(t, 0.0, cg.TotalLTCG)
	assert.Equal(t, 10000.0, cg.STCGTax.BaseTax)
	assert.Equal(t, 400.0, cg.STCGTax.Cess)
	assert.Equal(t, 10400.0, cg.STCGTax.TotalTax)
	assert.Equal(t, "20.80%", cg.STCGTax.EffectiveRate.String())
	assert.Equal(t, 10400.0, cg.TotalTax)
	assert.Equal(t, 39600.0, cg.NetGain)
}

func TestCalculateLTCGWithinExemption(t *testing.T) {
	// LTCG below the exemption limit yields no tax at all.
	cfg := taxconfig.DefaultConfig("2025-2026")
	cfg.LTCG.ExemptionLimit = 125000

	cg := NewTaxCalculator().Calculate([]models.MatchedTransaction{
		gainTx(models.GainLTCG, 100000),
	}, cfg)

	assert.Equal(t, 100000.0, cg.TotalLTCG)
	assert.Equal(t, 0.0, cg.LTCGAfterExemption)
	assert.Equal(t, 0.0, cg.LTCGTax.TotalTax)
	assert.Equal(t, "0.00%", cg.LTCGTax.EffectiveRate.String())
	assert.Equal(t, 100000.0, cg.NetGain)
}

func TestCalculateExemptionAppliesOnlyAboveLimit(t *testing.T) {
	cfg := taxconfig.DefaultConfig("2025-2026")
	cfg.LTCG.Rate = 12.5
	cfg.LTCG.Cess = 4
	cfg.LTCG.ExemptionLimit = 125000

	cg := NewTaxCalculator().Calculate([]models.MatchedTransaction{
		gainTx(models.GainLTCG, 200000),
	}, cfg)

	require.Equal(t, 75000.0, cg.LTCGAfterExemption)
	assert.Equal(t, 9375.0, cg.LTCGTax.BaseTax)
	assert.Equal(t, 375.0, cg.LTCGTax.Cess)
	assert.Equal(t, 9750.0, cg.LTCGTax.TotalTax)
}

func TestCalculateLossesProduceNoNegativeTax(t *testing.T) {
	cfg := taxconfig.DefaultConfig("2025-2026")

	cg := NewTaxCalculator().Calculate([]models.MatchedTransaction{
		gainTx(models.GainSTCG, -30000),
		gainTx(models.GainLTCG, -10000),
	}, cfg)

	assert.Equal(t, -30000.0, cg.TotalSTCG)
	assert.Equal(t, -10000.0, cg.TotalLTCG)
	assert.Equal(t, 0.0, cg.STCGTax.TaxableAmount)
	assert.Equal(t, 0.0, cg.STCGTax.TotalTax)
	assert.Equal(t, 0.0, cg.LTCGTax.TotalTax)
	assert.Equal(t, "0.00%", cg.STCGTax.EffectiveRate.String())
	assert.Equal(t, -40000.0, cg.NetGain)
}

func TestCalculateLossesOffsetGainsWithinBucket(t *testing.T) {
	cfg := taxconfig.DefaultConfig("2025-2026")
	cfg.STCG.Rate = 20
	cfg.STCG.Cess = 4

	cg := NewTaxCalculator().Calculate([]models.MatchedTransaction{
		gainTx(models.GainSTCG, 80000),
		gainTx(models.GainSTCG, -30000),
	}, cfg)

	assert.Equal(t, 50000.0, cg.TotalSTCG)
	assert.Equal(t, 10400.0, cg.STCGTax.TotalTax)
}

func TestCalculateRateMonotonicity(t *testing.T) {
	// Raising the LTCG rate never decreases the LTCG tax for fixed gains.
	txs := []models.MatchedTransaction{gainTx(models.GainLTCG, 500000)}

	prev := -1.0
	for _, rate := range []float64{5, 10, 12.5, 15, 20, 30} {
		cfg := taxconfig.DefaultConfig("2025-2026")
		cfg.LTCG.Rate = rate
		cg := NewTaxCalculator().Calculate(txs, cfg)
		assert.GreaterOrEqual(t, cg.LTCGTax.TotalTax, prev, "rate %.1f", rate)
		prev = cg.LTCGTax.TotalTax
	}
}

func TestCalculateIgnoresUnmatchedLots(t *testing.T) {
	cfg := taxconfig.DefaultConfig("2025-2026")

	cg := NewTaxCalculator().Calculate([]models.MatchedTransaction{
		{Share: "HDFC", PurchaseDate: "2025-01-10", PurchaseQty: 10, PurchaseAmt: 15000},
	}, cfg)

	assert.Equal(t, 0.0, cg.TotalLTCG)
	assert.Equal(t, 0.0, cg.TotalSTCG)
	assert.Equal(t, 0.0, cg.TotalTax)
}
