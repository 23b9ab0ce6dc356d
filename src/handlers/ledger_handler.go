package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/allthingssecurity/shares/src/logger"
	"github.com/allthingssecurity/shares/src/models"
	"github.com/allthingssecurity/shares/src/services"
	"github.com/allthingssecurity/shares/src/taxconfig"
	"github.com/allthingssecurity/shares/src/utils"
)

type LedgerHandler struct {
	ledgerService services.LedgerService
	configStore   *taxconfig.Store
	financialYear string
}

func NewLedgerHandler(service services.LedgerService, configStore *taxconfig.Store, financialYear string) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: service,
		configStore:   configStore,
		financialYear: financialYear,
	}
}

// emptyLedger is the no-holdings response for reads before any upload.
// "No ledger yet" is a normal state, not an error.
func (h *LedgerHandler) emptyLedger() *models.LedgerData {
	return &models.LedgerData{
		FinancialYear:   h.financialYear,
		Transactions:    []models.MatchedTransaction{},
		ClosingBalances: []models.ClosingBalance{},
		TaxConfig:       h.configStore.Snapshot(h.financialYear),
	}
}

func (h *LedgerHandler) currentLedger(r *http.Request) (*models.LedgerData, error) {
	sessionID, _ := GetSessionIDFromContext(r.Context())
	return h.ledgerService.GetLedger(sessionID)
}

func (h *LedgerHandler) HandleGetLedger(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.currentLedger(r)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSession) {
			writeJSON(w, h.emptyLedger())
			return
		}
		logger.L.Error("Error retrieving ledger", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving ledger: %v", err), http.StatusInternalServerError)
		return
	}

	currentETag, etagErr := utils.GenerateETag(ledger)
	w.Header().Set("Cache-Control", "no-cache, private")

	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, cETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	} else if etagErr != nil {
		logger.L.Warn("Proceeding without ETag check due to ETag generation error", "error", etagErr)
	}

	writeJSON(w, ledger)
}

func (h *LedgerHandler) HandleGetClosingBalances(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.currentLedger(r)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSession) {
			writeJSON(w, map[string]interface{}{"closingBalances": []models.ClosingBalance{}})
			return
		}
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving closing balances: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"closingBalances": ledger.ClosingBalances})
}

func (h *LedgerHandler) HandleGetCapitalGains(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.currentLedger(r)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSession) {
			writeJSON(w, map[string]interface{}{"capitalGains": models.CapitalGains{}})
			return
		}
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving capital gains: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"capitalGains": ledger.CapitalGains})
}

func (h *LedgerHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.currentLedger(r)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSession) {
			writeJSON(w, map[string]interface{}{"summary": models.Summary{}})
			return
		}
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving summary: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"summary": ledger.Summary})
}

func (h *LedgerHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := GetSessionIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "No active session to delete", http.StatusUnauthorized)
		return
	}
	if err := h.ledgerService.ClearSession(sessionID); err != nil {
		logger.L.Error("Error clearing session", "sessionID", sessionID, "error", err)
		utils.SendJSONError(w, "Error clearing session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"message": "session cleared"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Error("Error encoding JSON response", "error", err)
	}
}
