package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/allthingssecurity/shares/src/config"
	"github.com/allthingssecurity/shares/src/logger"
	"github.com/allthingssecurity/shares/src/models"
	"github.com/allthingssecurity/shares/src/parsers"
	"github.com/allthingssecurity/shares/src/processors"
	"github.com/allthingssecurity/shares/src/security"
	"github.com/allthingssecurity/shares/src/security/validation"
	"github.com/allthingssecurity/shares/src/services"
	"github.com/allthingssecurity/shares/src/utils"
)

type UploadHandler struct {
	ledgerService services.LedgerService
	sessions      *security.SessionService
}

func NewUploadHandler(service services.LedgerService, sessions *security.SessionService) *UploadHandler {
	return &UploadHandler{
		ledgerService: service,
		sessions:      sessions,
	}
}

// uploadResponse returns the computed ledger together with the opaque
// session token subsequent reads must present.
type uploadResponse struct {
	SessionToken string             `json:"sessionToken"`
	Ledger       *models.LedgerData `json:"ledger"`
}

func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	// Reuse the caller's session when a valid token came along; otherwise
	// this upload starts a new one.
	sessionID, ok := GetSessionIDFromContext(r.Context())
	if !ok {
		sessionID = h.sessions.NewSessionID()
	}

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "sessionID", sessionID, "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "sessionID", sessionID, "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		logger.L.Warn("Uploaded file header reports size too large", "sessionID", sessionID, "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB (header check)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		logger.L.Warn("Invalid client-declared file type", "sessionID", sessionID, "contentType", clientContentType, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	detectedContentType, err := validation.ValidateFileContentByMagicBytes(file)
	if err != nil {
		logger.L.Warn("Server-side file content validation failed", "sessionID", sessionID, "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	logger.L.Info("File content validated", "sessionID", sessionID, "filename", fileHeader.Filename, "clientType", clientContentType, "detectedType", detectedContentType)

	result, err := h.ledgerService.ProcessUpload(file, sessionID)
	if err != nil {
		if errors.Is(err, parsers.ErrMalformedRow) {
			logger.L.Warn("Upload rejected: malformed row", "sessionID", sessionID, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, fmt.Sprintf("File content validation failed: %v", err), http.StatusBadRequest)
		} else if errors.Is(err, services.ErrParsingFailed) {
			logger.L.Warn("Upload rejected: CSV parsing failed", "sessionID", sessionID, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Error parsing CSV file: %v", err), http.StatusBadRequest)
		} else if errors.Is(err, processors.ErrOversold) {
			logger.L.Warn("Upload rejected: oversold position", "sessionID", sessionID, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Oversold position in file: %v", err), http.StatusBadRequest)
		} else {
			logger.L.Error("Internal error processing upload", "sessionID", sessionID, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, "An internal error occurred while processing the file. Please try again later.", http.StatusInternalServerError)
		}
		return
	}

	token, err := h.sessions.IssueToken(sessionID)
	if err != nil {
		logger.L.Error("Failed to issue session token", "sessionID", sessionID, "error", err)
		utils.SendJSONError(w, "An internal error occurred while creating the session.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(uploadResponse{SessionToken: token, Ledger: result}); err != nil {
		logger.L.Error("Error encoding JSON response for upload result", "sessionID", sessionID, "error", err)
	}
}
