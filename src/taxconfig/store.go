package taxconfig

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/allthingssecurity/shares/src/logger"
	"github.com/allthingssecurity/shares/src/models"
)

// ErrInvalidConfig is returned when an update carries a non-positive rate,
// cess, or holding period, or a negative exemption. The prior config is
// retained untouched.
var ErrInvalidConfig = errors.New("invalid tax config")

// DefaultConfig is the regime a financial year starts with before any
// explicit update: LTCG 12.5% over a 1.25L exemption past 12 months, STCG
// 20% under it, 4% cess on both.
func DefaultConfig(financialYear string) models.TaxConfig {
	return models.TaxConfig{
		FinancialYear: financialYear,
		STCG: models.TaxBucketConfig{
			Rate:          20,
			Cess:          4,
			HoldingPeriod: 12,
		},
		LTCG: models.LTCGConfig{
			TaxBucketConfig: models.TaxBucketConfig{
				Rate:          12.5,
				Cess:          4,
				HoldingPeriod: 12,
			},
			ExemptionLimit:    125000,
			IndexationBenefit: false,
		},
	}
}

// Store holds one TaxConfig per financial year, persisted to sqlite.
// Reads return value copies, never live references; updates are
// single-writer and bump a version used to invalidate computed ledgers.
type Store struct {
	mu       sync.RWMutex
	db       *sql.DB
	configs  map[string]models.TaxConfig
	versions map[string]int64
}

func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{
		db:       db,
		configs:  make(map[string]models.TaxConfig),
		versions: make(map[string]int64),
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("loading tax configs: %w", err)
	}
	return s, nil
}

func (s *Store) load() error {
	if s.db == nil {
		return nil
	}
	rows, err := s.db.Query(`SELECT financial_year, config, version FROM tax_configs`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var fy, raw string
		var version int64
		if err := rows.Scan(&fy, &raw, &version); err != nil {
			return err
		}
		var cfg models.TaxConfig
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			logger.L.Error("Skipping unreadable persisted tax config", "financialYear", fy, "error", err)
			continue
		}
		s.configs[fy] = cfg
		s.versions[fy] = version
	}
	return rows.Err()
}

// Snapshot returns a value copy of the financial year's config, seeding the
// default regime on first access.
func (s *Store) Snapshot(financialYear string) models.TaxConfig {
	s.mu.RLock()
	cfg, ok := s.configs[financialYear]
	s.mu.RUnlock()
	if ok {
		return cfg
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg, ok := s.configs[financialYear]; ok {
		return cfg
	}
	cfg = DefaultConfig(financialYear)
	s.configs[financialYear] = cfg
	s.versions[financialYear] = 1
	return cfg
}

// Version returns the config version for a financial year. Ledgers record
// the version they were built against; a mismatch on read forces a rebuild.
func (s *Store) Version(financialYear string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.versions[financialYear]; ok {
		return v
	}
	return 1
}

// Apply merges a partial update into the financial year's config. Supplied
// fields are validated first; on any violation the update is rejected whole
// and the prior config survives.
func (s *Store) Apply(financialYear string, upd models.TaxConfigUpdate) (models.TaxConfig, error) {
	if err := validateUpdate(upd); err != nil {
		return models.TaxConfig{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[financialYear]
	if !ok {
		cfg = DefaultConfig(financialYear)
		s.versions[financialYear] = 1
	}
	mergeBucket(&cfg.STCG, upd.STCG)
	if upd.LTCG != nil {
		mergeBucket(&cfg.LTCG.TaxBucketConfig, &upd.LTCG.TaxBucketUpdate)
		if upd.LTCG.ExemptionLimit != nil {
			cfg.LTCG.ExemptionLimit = *upd.LTCG.ExemptionLimit
		}
		if upd.LTCG.IndexationBenefit != nil {
			cfg.LTCG.IndexationBenefit = *upd.LTCG.IndexationBenefit
		}
	}

	version := s.versions[financialYear] + 1
	if err := s.persist(financialYear, cfg, version); err != nil {
		return models.TaxConfig{}, fmt.Errorf("persisting tax config for %s: %w", financialYear, err)
	}

	s.configs[financialYear] = cfg
	s.versions[financialYear] = version
	logger.L.Info("Tax config updated", "financialYear", financialYear, "version", version)
	return cfg, nil
}

func (s *Store) persist(financialYear string, cfg models.TaxConfig, version int64) error {
	if s.db == nil {
		return nil
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO tax_configs (financial_year, config, version, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(financial_year) DO UPDATE SET config = excluded.config, version = excluded.version, updated_at = CURRENT_TIMESTAMP`,
		financialYear, string(raw), version)
	return err
}

func mergeBucket(dst *models.TaxBucketConfig, upd *models.TaxBucketUpdate) {
	if upd == nil {
		return
	}
	if upd.Rate != nil {
		dst.Rate = *upd.Rate
	}
	if upd.Cess != nil {
		dst.Cess = *upd.Cess
	}
	if upd.HoldingPeriod != nil {
		dst.HoldingPeriod = *upd.HoldingPeriod
	}
}

func validateUpdate(upd models.TaxConfigUpdate) error {
	if upd.Cess != nil && *upd.Cess <= 0 {
		return fmt.Errorf("%w: cess must be positive, got %.2f", ErrInvalidConfig, *upd.Cess)
	}
	if err := validateBucket("stcg", upd.STCG); err != nil {
		return err
	}
	if upd.LTCG != nil {
		if err := validateBucket("ltcg", &upd.LTCG.TaxBucketUpdate); err != nil {
			return err
		}
		if upd.LTCG.ExemptionLimit != nil && *upd.LTCG.ExemptionLimit < 0 {
			return fmt.Errorf("%w: ltcg exemption limit must not be negative, got %.2f",
				ErrInvalidConfig, *upd.LTCG.ExemptionLimit)
		}
	}
	return nil
}

func validateBucket(name string, upd *models.TaxBucketUpdate) error {
	if upd == nil {
		return nil
	}
	if upd.Rate != nil && *upd.Rate <= 0 {
		return fmt.Errorf("%w: %s rate must be positive, got %.2f", ErrInvalidConfig, name, *upd.Rate)
	}
	if upd.Cess != nil && *upd.Cess <= 0 {
		return fmt.Errorf("%w: %s cess must be positive, got %.2f", ErrInvalidConfig, name, *upd.Cess)
	}
	if upd.HoldingPeriod != nil && *upd.HoldingPeriod <= 0 {
		return fmt.Errorf("%w: %s holding period must be positive, got %d", ErrInvalidConfig, name, *upd.HoldingPeriod)
	}
	return nil
}
