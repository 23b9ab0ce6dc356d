package processors

import (
	"errors"
	"fmt"

	"github.com/allthingssecurity/shares/src/models"
	"github.com/allthingssecurity/shares/src/utils"
)

// ErrOversold is returned when a share's sales consume more quantity than
// its opening and purchase lots provide. The excess is never clamped; the
// share's computation is rejected and surfaced to the caller.
var ErrOversold = errors.New("oversold position")

type lotMatcherImpl struct{}

func NewLotMatcher() LotMatcher {
	return &lotMatcherImpl{}
}

// Match builds the acquisition queue for one share and consumes its sales
// against it in strict FIFO order: all opening lots ahead of all purchase
// lots, each class in row order. Partial consumption splits a lot in place,
// leaving the remainder at the head of the queue.
func (m *lotMatcherImpl) Match(share string, rows []models.TransactionRow) (*MatchResult, error) {
	openings, purchases, sales := explodeRows(share, rows)

	// Lot arena; the active queue is lots[head:].
	lots := make([]models.Lot, 0, len(openings)+len(purchases))
	for _, ev := range append(openings, purchases...) {
		lots = append(lots, models.Lot{
			Share:           share,
			Source:          ev.Type,
			AcquisitionDate: ev.Date,
			Quantity:        ev.Quantity,
			UnitCost:        ev.Amount / ev.Quantity,
		})
	}
	head := 0

	var matched []models.MatchedTransaction
	for _, sale := range sales {
		remaining := sale.Quantity
		for remaining > 0 {
			if head >= len(lots) {
				return nil, fmt.Errorf("%w: share %s sale on %s exceeds available lots by %.4f",
					ErrOversold, share, sale.Date, remaining)
			}
			lot := &lots[head]
			consumed := utils.MinFloat(remaining, lot.Quantity)
			cost := lot.UnitCost * consumed
			proceeds := sale.Amount * consumed / sale.Quantity

			tx := models.MatchedTransaction{
				Share:    share,
				SaleDate: sale.Date,
				SaleQty:  consumed,
				SaleAmt:  proceeds,
			}
			switch lot.Source {
			case models.EventOpening:
				tx.OpeningDate = lot.AcquisitionDate
				tx.OpeningQty = consumed
				tx.OpeningAmt = cost
			case models.EventPurchase:
				tx.PurchaseDate = lot.AcquisitionDate
				tx.PurchaseQty = consumed
				tx.PurchaseAmt = cost
			}
			matched = append(matched, tx)

			remaining -= consumed
			lot.Quantity -= consumed
			if lot.Quantity == 0 {
				head++
			}
		}
	}

	// Lots never touched by a sale, plus split remainders, carry through to
	// the closing balance as unmatched transactions.
	var openLots []models.Lot
	for i := head; i < len(lots); i++ {
		lot := lots[i]
		if lot.Quantity <= 0 {
			continue
		}
		openLots = append(openLots, lot)

		tx := models.MatchedTransaction{Share: share}
		switch lot.Source {
		case models.EventOpening:
			tx.OpeningDate = lot.AcquisitionDate
			tx.OpeningQty = lot.Quantity
			tx.OpeningAmt = lot.UnitCost * lot.Quantity
		case models.EventPurchase:
			tx.PurchaseDate = lot.AcquisitionDate
			tx.PurchaseQty = lot.Quantity
			tx.PurchaseAmt = lot.UnitCost * lot.Quantity
		}
		matched = append(matched, tx)
	}

	return &MatchResult{Transactions: matched, OpenLots: openLots}, nil
}

// explodeRows splits rows into tagged lot events. Opening events sort ahead
// of purchase events regardless of where their rows appear; within each
// class, file order is preserved. Zero-quantity triples are dropped.
func explodeRows(share string, rows []models.TransactionRow) (openings, purchases, sales []models.LotEvent) {
	for i, row := range rows {
		if row.OpeningQty > 0 {
			openings = append(openings, models.LotEvent{
				Share: share, Type: models.EventOpening,
				Date: row.OpeningDate, Quantity: row.OpeningQty, Amount: row.OpeningAmt,
				RowIndex: i,
			})
		}
		if row.PurchaseQty > 0 {
			purchases = append(purchases, models.LotEvent{
				Share: share, Type: models.EventPurchase,
				Date: row.PurchaseDate, Quantity: row.PurchaseQty, Amount: row.PurchaseAmt,
				RowIndex: i,
			})
		}
		if row.SaleQty > 0 {
			sales = append(sales, models.LotEvent{
				Share: share, Type: models.EventSale,
				Date: row.SaleDate, Quantity: row.SaleQty, Amount: row.SaleAmt,
				RowIndex: i,
			})
		}
	}
	return openings, purchases, sales
}
