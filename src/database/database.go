package database

import (
	"database/sql"
	stdlog "log"

	"github.com/allthingssecurity/shares/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateTaxConfigTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS ledger_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		row_index INTEGER NOT NULL,
		share TEXT NOT NULL,
		opening_date TEXT,
		opening_qty REAL NOT NULL DEFAULT 0,
		opening_amt REAL NOT NULL DEFAULT 0,
		purchase_date TEXT,
		purchase_qty REAL NOT NULL DEFAULT 0,
		purchase_amt REAL NOT NULL DEFAULT 0,
		sale_date TEXT,
		sale_qty REAL NOT NULL DEFAULT 0,
		sale_amt REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_ledger_rows_session ON ledger_rows(session_id, row_index);

	CREATE TABLE IF NOT EXISTS tax_configs (
		financial_year TEXT PRIMARY KEY,
		config TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateTaxConfigTable adds the version column to tax_configs tables created
// before config versioning existed.
func migrateTaxConfigTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='tax_configs'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Info("tax_configs table does not exist, no migration needed as table will be created.")
			} else {
				stdlog.Println("tax_configs table does not exist, no migration needed as table will be created.")
			}
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for tax_configs table", "error", err)
		} else {
			stdlog.Printf("Error checking for tax_configs table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(tax_configs)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for tax_configs", "error", err)
		} else {
			stdlog.Printf("Error querying table schema: %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info", "error", err)
			} else {
				stdlog.Printf("Error scanning column info: %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info: %v", err)
		}
		return
	}

	if _, ok := columnExists["version"]; !ok {
		_, err := DB.Exec("ALTER TABLE tax_configs ADD COLUMN version INTEGER NOT NULL DEFAULT 1")
		if err != nil {
			if logger.L != nil {
				logger.L.Error("Error adding version column to tax_configs", "error", err)
			} else {
				stdlog.Printf("Error adding version column to tax_configs: %v", err)
			}
		} else {
			if logger.L != nil {
				logger.L.Info("Added version column to tax_configs table")
			} else {
				stdlog.Println("Added version column to tax_configs table")
			}
		}
	}
}
