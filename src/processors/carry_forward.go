package processors

import (
	"github.com/allthingssecurity/shares/src/models"
)

type carryForwardExporterImpl struct{}

func NewCarryForwardExporter() CarryForwardExporter {
	return &carryForwardExporterImpl{}
}

// Export projects this year's closing balances into next year's opening
// rows. Shares with nothing left at year end are omitted. The opening date
// is supplied by the caller, not derived here.
func (e *carryForwardExporterImpl) Export(balances []models.ClosingBalance, openingDate string) []models.TransactionRow {
	var rows []models.TransactionRow
	for _, cb := range balances {
		if cb.ClosingQty <= 0 {
			continue
		}
		rows = append(rows, models.TransactionRow{
			Share:       cb.Share,
			OpeningDate: openingDate,
			OpeningQty:  cb.ClosingQty,
			OpeningAmt:  cb.ClosingAmt,
		})
	}
	return rows
}
