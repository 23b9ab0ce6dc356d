package services

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/allthingssecurity/shares/src/database"
	"github.com/allthingssecurity/shares/src/logger"
	"github.com/allthingssecurity/shares/src/models"
	"github.com/allthingssecurity/shares/src/parsers"
	"github.com/allthingssecurity/shares/src/processors"
	"github.com/allthingssecurity/shares/src/taxconfig"
	"github.com/allthingssecurity/shares/src/utils"
)

const (
	ckLedger = "ledger_session_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

// cachedLedger pairs a computed ledger with the config version it was built
// against. A version mismatch on read forces a rebuild.
type cachedLedger struct {
	data          *models.LedgerData
	configVersion int64
}

type ledgerServiceImpl struct {
	rowParser     parsers.RowParser
	matcher       processors.LotMatcher
	classifier    processors.GainClassifier
	calculator    processors.TaxCalculator
	aggregator    processors.PositionAggregator
	exporter      processors.CarryForwardExporter
	configStore   *taxconfig.Store
	ledgerCache   *cache.Cache
	financialYear string
	// carryForwardDate overrides the derived next-FY opening date when set.
	carryForwardDate string
}

func NewLedgerService(
	rowParser parsers.RowParser,
	matcher processors.LotMatcher,
	classifier processors.GainClassifier,
	calculator processors.TaxCalculator,
	aggregator processors.PositionAggregator,
	exporter processors.CarryForwardExporter,
	configStore *taxconfig.Store,
	ledgerCache *cache.Cache,
	financialYear string,
	carryForwardDate string,
) LedgerService {
	return &ledgerServiceImpl{
		rowParser:        rowParser,
		matcher:          matcher,
		classifier:       classifier,
		calculator:       calculator,
		aggregator:       aggregator,
		exporter:         exporter,
		configStore:      configStore,
		ledgerCache:      ledgerCache,
		financialYear:    financialYear,
		carryForwardDate: carryForwardDate,
	}
}

func (s *ledgerServiceImpl) ProcessUpload(fileReader io.Reader, sessionID string) (*models.LedgerData, error) {
	overallStartTime := time.Now()
	logger.L.Info("ProcessUpload START", "sessionID", sessionID)

	rows, err := s.rowParser.Parse(fileReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	// An upload replaces the session's ledger wholesale; rows from an
	// earlier upload would double-count opening balances.
	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.Exec(`DELETE FROM ledger_rows WHERE session_id = ?`, sessionID); err != nil {
		return nil, fmt.Errorf("error clearing previous rows for session: %w", err)
	}

	stmt, err := dbTx.Prepare(`INSERT INTO ledger_rows (session_id, row_index, share, opening_date, opening_qty, opening_amt, purchase_date, purchase_qty, purchase_amt, sale_date, sale_qty, sale_amt) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		_, err := stmt.Exec(sessionID, i, row.Share,
			row.OpeningDate, row.OpeningQty, row.OpeningAmt,
			row.PurchaseDate, row.PurchaseQty, row.PurchaseAmt,
			row.SaleDate, row.SaleQty, row.SaleAmt)
		if err != nil {
			return nil, fmt.Errorf("error inserting row %d (share %s): %w", i, row.Share, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing rows: %w", err)
	}

	s.ledgerCache.Delete(fmt.Sprintf(ckLedger, sessionID))

	ledger, err := s.GetLedger(sessionID)
	if err != nil {
		return nil, err
	}
	logger.L.Info("ProcessUpload END", "sessionID", sessionID, "rows", len(rows), "duration", time.Since(overallStartTime))
	return ledger, nil
}

func (s *ledgerServiceImpl) GetLedger(sessionID string) (*models.LedgerData, error) {
	if sessionID == "" {
		return nil, ErrNoActiveSession
	}

	currentVersion := s.configStore.Version(s.financialYear)
	cacheKey := fmt.Sprintf(ckLedger, sessionID)
	if cached, found := s.ledgerCache.Get(cacheKey); found {
		entry := cached.(cachedLedger)
		if entry.configVersion == currentVersion {
			logger.L.Debug("Cache hit for ledger", "sessionID", sessionID)
			return entry.data, nil
		}
		logger.L.Info("Cached ledger stale after config update, recomputing", "sessionID", sessionID,
			"cachedVersion", entry.configVersion, "currentVersion", currentVersion)
	}

	rows, err := fetchSessionRows(sessionID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoActiveSession
	}

	// Copy-on-write: build the new ledger completely, then swap the cache
	// entry. Concurrent readers see either the old ledger or this one.
	ledger := s.compute(rows)
	s.ledgerCache.Set(cacheKey, cachedLedger{data: ledger, configVersion: currentVersion}, cache.DefaultExpiration)
	return ledger, nil
}

func (s *ledgerServiceImpl) Recompute(sessionID string) (*models.LedgerData, error) {
	if sessionID == "" {
		return nil, ErrNoActiveSession
	}
	s.ledgerCache.Delete(fmt.Sprintf(ckLedger, sessionID))
	return s.GetLedger(sessionID)
}

// compute runs the full pipeline over one session's rows: per-share FIFO
// matching (fanned out across goroutines; the reduction is order-independent
// sums plus a final sort by share), classification and aggregation under one
// TaxConfig snapshot, then portfolio tax.
func (s *ledgerServiceImpl) compute(rows []models.TransactionRow) *models.LedgerData {
	cfg := s.configStore.Snapshot(s.financialYear)

	shares, rowsByShare := groupRowsByShare(rows)

	type shareResult struct {
		share    string
		balance  models.ClosingBalance
		openLots []models.Lot
		err      error
	}

	results := make([]shareResult, len(shares))
	var wg sync.WaitGroup
	for i, share := range shares {
		wg.Add(1)
		go func(i int, share string) {
			defer wg.Done()
			res := shareResult{share: share}

			matchRes, err := s.matcher.Match(share, rowsByShare[share])
			if err != nil {
				res.err = err
				results[i] = res
				return
			}
			classified := s.classifier.Classify(matchRes.Transactions, cfg)
			balance, err := s.aggregator.Aggregate(share, rowsByShare[share], classified, matchRes.OpenLots)
			if err != nil {
				res.err = err
				results[i] = res
				return
			}
			res.balance = balance
			res.openLots = matchRes.OpenLots
			results[i] = res
		}(i, share)
	}
	wg.Wait()

	var (
		balances  []models.ClosingBalance
		openLots  []models.Lot
		allTxs    []models.MatchedTransaction
		shareErrs []models.ShareError
	)
	for _, res := range results {
		if res.err != nil {
			logger.L.Warn("Share computation rejected", "share", res.share, "error", res.err)
			shareErrs = append(shareErrs, models.ShareError{
				Share:   res.share,
				Kind:    "Oversold",
				Message: res.err.Error(),
			})
			continue
		}
		balances = append(balances, res.balance)
		openLots = append(openLots, res.openLots...)
		allTxs = append(allTxs, res.balance.Transactions...)
	}

	sort.Slice(balances, func(i, j int) bool { return balances[i].Share < balances[j].Share })
	sort.SliceStable(allTxs, func(i, j int) bool { return allTxs[i].Share < allTxs[j].Share })

	summary := s.aggregator.Summarize(balances, openLots)
	capitalGains := s.calculator.Calculate(allTxs, cfg)

	return &models.LedgerData{
		FinancialYear:   s.financialYear,
		Transactions:    allTxs,
		ClosingBalances: balances,
		Summary:         summary,
		CapitalGains:    capitalGains,
		TaxConfig:       cfg,
		Errors:          shareErrs,
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
	}
}

func (s *ledgerServiceImpl) ExportNextYear(sessionID string) ([]models.TransactionRow, error) {
	ledger, err := s.GetLedger(sessionID)
	if err != nil {
		return nil, err
	}

	openingDate := s.carryForwardDate
	if openingDate == "" {
		openingDate, err = utils.NextFinancialYearStart(ledger.FinancialYear)
		if err != nil {
			return nil, fmt.Errorf("deriving carry-forward opening date: %w", err)
		}
	}
	return s.exporter.Export(ledger.ClosingBalances, openingDate), nil
}

func (s *ledgerServiceImpl) ClearSession(sessionID string) error {
	if sessionID == "" {
		return ErrNoActiveSession
	}
	if _, err := database.DB.Exec(`DELETE FROM ledger_rows WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("error deleting rows for session: %w", err)
	}
	s.ledgerCache.Delete(fmt.Sprintf(ckLedger, sessionID))
	logger.L.Info("Session cleared", "sessionID", sessionID)
	return nil
}

// groupRowsByShare preserves file order within each share and returns the
// shares in first-appearance order.
func groupRowsByShare(rows []models.TransactionRow) ([]string, map[string][]models.TransactionRow) {
	var shares []string
	grouped := make(map[string][]models.TransactionRow)
	for _, row := range rows {
		if _, seen := grouped[row.Share]; !seen {
			shares = append(shares, row.Share)
		}
		grouped[row.Share] = append(grouped[row.Share], row)
	}
	return shares, grouped
}

func fetchSessionRows(sessionID string) ([]models.TransactionRow, error) {
	logger.L.Debug("Fetching ledger rows from DB", "sessionID", sessionID)
	dbRows, err := database.DB.Query(`SELECT share, opening_date, opening_qty, opening_amt, purchase_date, purchase_qty, purchase_amt, sale_date, sale_qty, sale_amt FROM ledger_rows WHERE session_id = ? ORDER BY row_index ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error querying rows for session %s: %w", sessionID, err)
	}
	defer dbRows.Close()

	var rows []models.TransactionRow
	for dbRows.Next() {
		var row models.TransactionRow
		scanErr := dbRows.Scan(&row.Share,
			&row.OpeningDate, &row.OpeningQty, &row.OpeningAmt,
			&row.PurchaseDate, &row.PurchaseQty, &row.PurchaseAmt,
			&row.SaleDate, &row.SaleQty, &row.SaleAmt)
		if scanErr != nil {
			return nil, fmt.Errorf("error scanning ledger row for session %s: %w", sessionID, scanErr)
		}
		rows = append(rows, row)
	}
	if err = dbRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ledger rows for session %s: %w", sessionID, err)
	}
	return rows, nil
}
