package parsers

import (
	"io"

	"github.com/allthingssecurity/shares/src/models"
)

// RowParser reads an uploaded spreadsheet into transaction rows. A single
// malformed row rejects the whole upload.
type RowParser interface {
	Parse(file io.Reader) ([]models.TransactionRow, error)
}
