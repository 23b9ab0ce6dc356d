package processors

import (
	"github.com/allthingssecurity/shares/src/models"
	"github.com/allthingssecurity/shares/src/utils"
)

type taxCalculatorImpl struct{}

func NewTaxCalculator() TaxCalculator {
	return &taxCalculatorImpl{}
}

// Calculate aggregates per-lot gains across the whole portfolio and applies
// the configured regime. Losses reduce the bucket totals (which may go
// negative) but a bucket's taxable amount never drops below zero, and the
// LTCG exemption applies only to a net-positive LTCG pool.
func (t *taxCalculatorImpl) Calculate(txs []models.MatchedTransaction, cfg models.TaxConfig) models.CapitalGains {
	var totalLTCG, totalSTCG float64
	for _, tx := range txs {
		switch tx.GainType {
		case models.GainLTCG:
			totalLTCG += tx.Gain
		case models.GainSTCG:
			totalSTCG += tx.Gain
		}
	}

	ltcgAfterExemption := totalLTCG - cfg.LTCG.ExemptionLimit
	if ltcgAfterExemption < 0 {
		ltcgAfterExemption = 0
	}
	stcgTaxable := totalSTCG
	if stcgTaxable < 0 {
		stcgTaxable = 0
	}

	ltcgTax := bucketTax(ltcgAfterExemption, totalLTCG, cfg.LTCG.Rate, cfg.LTCG.Cess)
	stcgTax := bucketTax(stcgTaxable, totalSTCG, cfg.STCG.Rate, cfg.STCG.Cess)

	totalTax := ltcgTax.TotalTax + stcgTax.TotalTax
	return models.CapitalGains{
		TotalLTCG:          utils.RoundFloat(totalLTCG, 2),
		TotalSTCG:          utils.RoundFloat(totalSTCG, 2),
		LTCGExemption:      cfg.LTCG.ExemptionLimit,
		LTCGAfterExemption: utils.RoundFloat(ltcgAfterExemption, 2),
		LTCGTax:            ltcgTax,
		STCGTax:            stcgTax,
		TotalTax:           utils.RoundFloat(totalTax, 2),
		NetGain:            utils.RoundFloat(totalLTCG+totalSTCG-totalTax, 2),
	}
}

// bucketTax computes base tax, cess surcharge, and the effective rate of one
// bucket. grossGain is the bucket total before exemption; a non-positive
// gross yields the undefined "0.00%" effective rate.
func bucketTax(taxable, grossGain, rate, cessRate float64) models.TaxBreakdown {
	baseTax := taxable * rate / 100
	cess := baseTax * cessRate / 100
	totalTax := baseTax + cess
	return models.TaxBreakdown{
		TaxableAmount: utils.RoundFloat(taxable, 2),
		Rate:          rate,
		BaseTax:       utils.RoundFloat(baseTax, 2),
		Cess:          utils.RoundFloat(cess, 2),
		TotalTax:      utils.RoundFloat(totalTax, 2),
		EffectiveRate: models.NewPercent(totalTax, grossGain),
	}
}
