package services

import (
	"errors"
	"io"

	"github.com/allthingssecurity/shares/src/models"
)

var (
	// ErrParsingFailed wraps upload parse errors for handler-level mapping.
	ErrParsingFailed = errors.New("file parsing failed")

	// ErrNoActiveSession marks reads before any upload. Not a failure:
	// handlers translate it into an explicit no-holdings response.
	ErrNoActiveSession = errors.New("no active session")
)

// LedgerService owns session-scoped ledger computation: parsing uploads,
// persisting rows, building LedgerData from the stored rows under the
// current TaxConfig snapshot, and projecting carry-forward rows.
type LedgerService interface {
	ProcessUpload(fileReader io.Reader, sessionID string) (*models.LedgerData, error)
	GetLedger(sessionID string) (*models.LedgerData, error)
	Recompute(sessionID string) (*models.LedgerData, error)
	ExportNextYear(sessionID string) ([]models.TransactionRow, error)
	ClearSession(sessionID string) error
}
