package processors

import (
	"github.com/allthingssecurity/shares/src/models"
)

// MatchResult is one share's matcher output: the matched and carried
// transactions plus the lots still open at year end.
type MatchResult struct {
	Transactions []models.MatchedTransaction
	OpenLots     []models.Lot
}

// LotMatcher consumes a share's sale rows against its acquisition lots in
// FIFO order.
type LotMatcher interface {
	Match(share string, rows []models.TransactionRow) (*MatchResult, error)
}

// GainClassifier labels matched lots LTCG or STCG and computes per-lot gains.
type GainClassifier interface {
	Classify(txs []models.MatchedTransaction, cfg models.TaxConfig) []models.MatchedTransaction
}

// TaxCalculator aggregates classified gains into the portfolio tax figures.
type TaxCalculator interface {
	Calculate(txs []models.MatchedTransaction, cfg models.TaxConfig) models.CapitalGains
}

// PositionAggregator rolls per-share rows and matches into closing balances
// and the portfolio summary.
type PositionAggregator interface {
	Aggregate(share string, rows []models.TransactionRow, txs []models.MatchedTransaction, openLots []models.Lot) (models.ClosingBalance, error)
	Summarize(balances []models.ClosingBalance, openLots []models.Lot) models.Summary
}

// CarryForwardExporter projects closing balances into next-year opening rows.
type CarryForwardExporter interface {
	Export(balances []models.ClosingBalance, openingDate string) []models.TransactionRow
}
