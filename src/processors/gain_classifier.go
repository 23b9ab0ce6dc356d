package processors

import (
	"github.com/allthingssecurity/shares/src/models"
	"github.com/allthingssecurity/shares/src/utils"
)

type gainClassifierImpl struct{}

func NewGainClassifier() GainClassifier {
	return &gainClassifierImpl{}
}

// Classify labels each matched lot by holding period and computes its gain.
// The whole pass uses the single TaxConfig snapshot it is handed, so one
// ledger's classifications stay internally consistent even if the store is
// updated mid-computation. Unmatched lots pass through untouched.
func (c *gainClassifierImpl) Classify(txs []models.MatchedTransaction, cfg models.TaxConfig) []models.MatchedTransaction {
	out := make([]models.MatchedTransaction, len(txs))
	for i, tx := range txs {
		if !tx.Matched() {
			out[i] = tx
			continue
		}

		acquired := utils.ParseDate(tx.AcquisitionDate())
		sold := utils.ParseDate(tx.SaleDate)
		months := utils.MonthsBetween(acquired, sold)

		tx.HoldingMonths = months
		if months >= cfg.LTCG.HoldingPeriod {
			tx.GainType = models.GainLTCG
		} else {
			tx.GainType = models.GainSTCG
		}
		// Signed: losses stay negative.
		tx.Gain = tx.SaleAmt - tx.Cost()
		out[i] = tx
	}
	return out
}
