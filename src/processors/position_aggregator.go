package processors

import (
	"fmt"

	"github.com/allthingssecurity/shares/src/models"
	"github.com/allthingssecurity/shares/src/utils"
)

type positionAggregatorImpl struct{}

func NewPositionAggregator() PositionAggregator {
	return &positionAggregatorImpl{}
}

// Aggregate rolls one share into its closing balance. Opening, purchase and
// sale totals come straight from the input rows so the original magnitudes
// survive even when matching fails; the closing figures derive from the
// conservation invariant. A negative closing quantity is an oversold data
// error, never clamped.
func (a *positionAggregatorImpl) Aggregate(share string, rows []models.TransactionRow, txs []models.MatchedTransaction, openLots []models.Lot) (models.ClosingBalance, error) {
	cb := models.ClosingBalance{Share: share, Transactions: txs}

	for _, row := range rows {
		cb.OpeningQty += row.OpeningQty
		cb.OpeningAmt += row.OpeningAmt
		cb.PurchaseQty += row.PurchaseQty
		cb.PurchaseAmt += row.PurchaseAmt
		cb.SaleQty += row.SaleQty
		cb.SaleAmt += row.SaleAmt
	}

	cb.ClosingQty = cb.OpeningQty + cb.PurchaseQty - cb.SaleQty
	if cb.ClosingQty < 0 {
		return models.ClosingBalance{}, fmt.Errorf("%w: share %s closing quantity %.4f",
			ErrOversold, share, cb.ClosingQty)
	}
	cb.ClosingAmt = utils.RoundFloat(cb.OpeningAmt+cb.PurchaseAmt-cb.SaleAmt, 2)
	if cb.ClosingQty > 0 {
		cb.AvgCostPrice = utils.RoundFloat(cb.ClosingAmt/cb.ClosingQty, 2)
	}

	for _, tx := range txs {
		if tx.GainType == "" {
			continue
		}
		cb.RealizedGain += tx.Gain
		switch tx.GainType {
		case models.GainLTCG:
			cb.LTCG += tx.Gain
		case models.GainSTCG:
			cb.STCG += tx.Gain
		}
	}
	cb.RealizedGain = utils.RoundFloat(cb.RealizedGain, 2)
	cb.LTCG = utils.RoundFloat(cb.LTCG, 2)
	cb.STCG = utils.RoundFloat(cb.STCG, 2)

	// Earliest acquisition date still contributing to an open lot.
	for _, lot := range openLots {
		if cb.FirstPurchaseDate == "" || lot.AcquisitionDate < cb.FirstPurchaseDate {
			cb.FirstPurchaseDate = lot.AcquisitionDate
		}
	}

	return cb, nil
}

// Summarize reduces every closing balance into the portfolio summary. The
// sums are order-independent, so per-share results may be produced in any
// order (or in parallel) without changing the outcome.
func (a *positionAggregatorImpl) Summarize(balances []models.ClosingBalance, openLots []models.Lot) models.Summary {
	var s models.Summary
	for _, cb := range balances {
		s.TotalOpeningQty += cb.OpeningQty
		s.TotalOpeningValue += cb.OpeningAmt
		s.TotalPurchaseQty += cb.PurchaseQty
		s.TotalPurchaseValue += cb.PurchaseAmt
		s.TotalSaleQty += cb.SaleQty
		s.TotalSaleValue += cb.SaleAmt
		s.TotalClosingQty += cb.ClosingQty
		s.TotalClosingValue += cb.ClosingAmt
		s.TotalRealizedGain += cb.RealizedGain
	}

	var remainingCost float64
	for _, lot := range openLots {
		remainingCost += lot.UnitCost * lot.Quantity
	}
	s.TotalUnrealizedGain = utils.RoundFloat(s.TotalClosingValue-remainingCost, 2)
	s.TotalRealizedGain = utils.RoundFloat(s.TotalRealizedGain, 2)
	s.TotalClosingValue = utils.RoundFloat(s.TotalClosingValue, 2)

	s.PortfolioReturn = models.NewRatio(
		s.TotalRealizedGain+s.TotalUnrealizedGain,
		s.TotalOpeningValue+s.TotalPurchaseValue,
	)
	return s
}
