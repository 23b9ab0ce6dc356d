package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/allthingssecurity/shares/src/logger"
	"github.com/allthingssecurity/shares/src/models"
	"github.com/allthingssecurity/shares/src/security/validation"
	"github.com/allthingssecurity/shares/src/services"
	"github.com/allthingssecurity/shares/src/utils"
)

type ExportHandler struct {
	ledgerService services.LedgerService
}

func NewExportHandler(service services.LedgerService) *ExportHandler {
	return &ExportHandler{ledgerService: service}
}

// HandleExportNextYear writes the carry-forward opening rows as a CSV in
// the same column layout the upload endpoint accepts.
func (h *ExportHandler) HandleExportNextYear(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := GetSessionIDFromContext(r.Context())
	rows, err := h.ledgerService.ExportNextYear(sessionID)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSession) {
			utils.SendJSONError(w, "No active session; upload a ledger first", http.StatusNotFound)
			return
		}
		logger.L.Error("Error exporting carry-forward rows", "sessionID", sessionID, "error", err)
		utils.SendJSONError(w, "Error exporting carry-forward rows", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="opening-balances-next-year.csv"`)

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"share", "openingDate", "openingQty", "openingAmt", "purchaseDate", "purchaseQty", "purchaseAmt", "saleDate", "saleQty", "saleAmt"})
	for _, row := range rows {
		cw.Write([]string{
			validation.SanitizeForFormulaInjection(row.Share),
			row.OpeningDate,
			formatFloat(row.OpeningQty),
			formatFloat(row.OpeningAmt),
			"", "", "", "", "", "",
		})
	}
}

// HandleExportCurrent writes the current ledger's closing balances and the
// tax summary as a CSV report.
func (h *ExportHandler) HandleExportCurrent(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := GetSessionIDFromContext(r.Context())
	ledger, err := h.ledgerService.GetLedger(sessionID)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSession) {
			utils.SendJSONError(w, "No active session; upload a ledger first", http.StatusNotFound)
			return
		}
		logger.L.Error("Error exporting current ledger", "sessionID", sessionID, "error", err)
		utils.SendJSONError(w, "Error exporting current ledger", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger-report.csv"`)

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"share", "openingQty", "openingAmt", "purchaseQty", "purchaseAmt", "saleQty", "saleAmt", "closingQty", "closingAmt", "avgCostPrice", "realizedGain", "ltcg", "stcg", "firstPurchaseDate"})
	for _, cb := range ledger.ClosingBalances {
		cw.Write([]string{
			validation.SanitizeForFormulaInjection(cb.Share),
			formatFloat(cb.OpeningQty), formatFloat(cb.OpeningAmt),
			formatFloat(cb.PurchaseQty), formatFloat(cb.PurchaseAmt),
			formatFloat(cb.SaleQty), formatFloat(cb.SaleAmt),
			formatFloat(cb.ClosingQty), formatFloat(cb.ClosingAmt),
			formatFloat(cb.AvgCostPrice), formatFloat(cb.RealizedGain),
			formatFloat(cb.LTCG), formatFloat(cb.STCG),
			cb.FirstPurchaseDate,
		})
	}

	cw.Write([]string{})
	writeTaxSection(cw, ledger.CapitalGains)
}

func writeTaxSection(cw *csv.Writer, cg models.CapitalGains) {
	cw.Write([]string{"totalLTCG", formatFloat(cg.TotalLTCG)})
	cw.Write([]string{"totalSTCG", formatFloat(cg.TotalSTCG)})
	cw.Write([]string{"ltcgExemption", formatFloat(cg.LTCGExemption)})
	cw.Write([]string{"ltcgAfterExemption", formatFloat(cg.LTCGAfterExemption)})
	cw.Write([]string{"ltcgTax", formatFloat(cg.LTCGTax.TotalTax), fmt.Sprintf("effectiveRate=%s", cg.LTCGTax.EffectiveRate)})
	cw.Write([]string{"stcgTax", formatFloat(cg.STCGTax.TotalTax), fmt.Sprintf("effectiveRate=%s", cg.STCGTax.EffectiveRate)})
	cw.Write([]string{"totalTax", formatFloat(cg.TotalTax)})
	cw.Write([]string{"netGain", formatFloat(cg.NetGain)})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
