package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/allthingssecurity/shares/src/logger"
	"github.com/allthingssecurity/shares/src/models"
	"github.com/allthingssecurity/shares/src/services"
	"github.com/allthingssecurity/shares/src/taxconfig"
	"github.com/allthingssecurity/shares/src/utils"
)

type ConfigHandler struct {
	configStore   *taxconfig.Store
	ledgerService services.LedgerService
	financialYear string
}

func NewConfigHandler(configStore *taxconfig.Store, service services.LedgerService, financialYear string) *ConfigHandler {
	return &ConfigHandler{
		configStore:   configStore,
		ledgerService: service,
		financialYear: financialYear,
	}
}

func (h *ConfigHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.configStore.Snapshot(h.financialYear))
}

func (h *ConfigHandler) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var upd models.TaxConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Invalid config body: %v", err), http.StatusBadRequest)
		return
	}

	// Top-level cess is a caller convenience: apply the same cess to both
	// buckets before the store merge.
	if upd.Cess != nil {
		if upd.STCG == nil {
			upd.STCG = &models.TaxBucketUpdate{}
		}
		if upd.STCG.Cess == nil {
			upd.STCG.Cess = upd.Cess
		}
		if upd.LTCG == nil {
			upd.LTCG = &models.LTCGUpdate{}
		}
		if upd.LTCG.Cess == nil {
			upd.LTCG.Cess = upd.Cess
		}
	}

	cfg, err := h.configStore.Apply(h.financialYear, upd)
	if err != nil {
		if errors.Is(err, taxconfig.ErrInvalidConfig) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Error applying config update", "error", err)
		utils.SendJSONError(w, "Error updating config", http.StatusInternalServerError)
		return
	}

	// An update invalidates any ledger computed under the prior config.
	// When the caller has a session, rebuild eagerly so the response that
	// follows this PUT already reflects the new regime.
	if sessionID, ok := GetSessionIDFromContext(r.Context()); ok {
		if _, err := h.ledgerService.Recompute(sessionID); err != nil && !errors.Is(err, services.ErrNoActiveSession) {
			logger.L.Error("Error recomputing ledger after config update", "sessionID", sessionID, "error", err)
			utils.SendJSONError(w, "Config updated but ledger recomputation failed", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, cfg)
}
