package services

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allthingssecurity/shares/src/database"
	"github.com/allthingssecurity/shares/src/logger"
	"github.com/allthingssecurity/shares/src/models"
	"github.com/allthingssecurity/shares/src/parsers"
	"github.com/allthingssecurity/shares/src/processors"
	"github.com/allthingssecurity/shares/src/taxconfig"
)

func init() {
	logger.InitLogger("error")
}

const testFinancialYear = "2025-2026"

func newTestService(t *testing.T) (LedgerService, *taxconfig.Store) {
	t.Helper()
	database.InitDB(filepath.Join(t.TempDir(), "ledger_test.db"))

	store, err := taxconfig.NewStore(database.DB)
	require.NoError(t, err)

	svc := NewLedgerService(
		parsers.NewCSVParser(),
		processors.NewLotMatcher(),
		processors.NewGainClassifier(),
		processors.NewTaxCalculator(),
		processors.NewPositionAggregator(),
		processors.NewCarryForwardExporter(),
		store,
		cache.New(DefaultCacheExpiration, CacheCleanupInterval),
		testFinancialYear,
		"",
	)
	return svc, store
}

const csvHeader = "share,openingDate,openingQty,openingAmt,purchaseDate,purchaseQty,purchaseAmt,saleDate,saleQty,saleAmt\n"

func TestProcessUploadComputesLedger(t *testing.T) {
	svc, _ := newTestService(t)

	csvData := csvHeader +
		"TCS,2023-05-15,50,165000,2025-06-10,30,102000,2025-08-20,20,84000\n"

	ledger, err := svc.ProcessUpload(strings.NewReader(csvData), "session-1")
	require.NoError(t, err)
	require.Len(t, ledger.ClosingBalances, 1)

	bal := ledger.ClosingBalances[0]
	assert.Equal(t, "TCS", bal.Share)
	assert.Equal(t, 60.0, bal.ClosingQty)
	assert.Equal(t, 183000.0, bal.ClosingAmt)
	assert.Equal(t, 18000.0, bal.LTCG)
	assert.Equal(t, 18000.0, bal.RealizedGain)

	// 18000 of LTCG sits under the default 125000 exemption.
	assert.Equal(t, 18000.0, ledger.CapitalGains.TotalLTCG)
	assert.Equal(t, 0.0, ledger.CapitalGains.LTCGAfterExemption)
	assert.Equal(t, 0.0, ledger.CapitalGains.TotalTax)
	assert.Equal(t, testFinancialYear, ledger.FinancialYear)
	assert.Empty(t, ledger.Errors)
}

func TestGetLedgerNoActiveSession(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetLedger("")
	assert.True(t, errors.Is(err, ErrNoActiveSession))

	_, err = svc.GetLedger("never-uploaded")
	assert.True(t, errors.Is(err, ErrNoActiveSession))
}

func TestProcessUploadMalformedFile(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ProcessUpload(strings.NewReader(csvHeader+"TCS,2023-05-15,-50,165000,,,,,,\n"), "session-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParsingFailed))
}

func TestProcessUploadReplacesPreviousRows(t *testing.T) {
	svc, _ := newTestService(t)

	first := csvHeader + "TCS,2023-05-15,50,165000,,,,,,\n"
	_, err := svc.ProcessUpload(strings.NewReader(first), "session-1")
	require.NoError(t, err)

	second := csvHeader + "INFY,2024-04-01,10,12000,,,,,,\n"
	ledger, err := svc.ProcessUpload(strings.NewReader(second), "session-1")
	require.NoError(t, err)

	require.Len(t, ledger.ClosingBalances, 1)
	assert.Equal(t, "INFY", ledger.ClosingBalances[0].Share)
	assert.Equal(t, 10.0, ledger.Summary.TotalClosingQty)
}

func TestConfigUpdateRecomputesWithoutMutatingOldLedger(t *testing.T) {
	svc, store := newTestService(t)

	// 50000 short-term gain: purchased and sold within two months.
	csvData := csvHeader +
		"WIPRO,,,,2025-06-10,20,50000,2025-08-20,20,100000\n"

	before, err := svc.ProcessUpload(strings.NewReader(csvData), "session-1")
	require.NoError(t, err)
	assert.Equal(t, 50000.0, before.CapitalGains.TotalSTCG)
	assert.Equal(t, 10400.0, before.CapitalGains.TotalTax)
	assert.Equal(t, "20.80%", before.CapitalGains.STCGTax.EffectiveRate.String())

	rate := 30.0
	_, err = store.Apply(testFinancialYear, models.TaxConfigUpdate{
		STCG: &models.TaxBucketUpdate{Rate: &rate},
	})
	require.NoError(t, err)

	after, err := svc.GetLedger("session-1")
	require.NoError(t, err)
	assert.Equal(t, 15600.0, after.CapitalGains.TotalTax)
	assert.Equal(t, rate, after.TaxConfig.STCG.Rate)

	// The earlier result was built against a config snapshot and stays put.
	assert.Equal(t, 10400.0, before.CapitalGains.TotalTax)
	assert.Equal(t, 20.0, before.TaxConfig.STCG.Rate)
}

func TestOversoldShareIsolated(t *testing.T) {
	svc, _ := newTestService(t)

	csvData := csvHeader +
		"TCS,2023-05-15,50,165000,,,,,,\n" +
		"HDFC,2023-05-15,10,15000,,,,2025-08-20,25,40000\n"

	ledger, err := svc.ProcessUpload(strings.NewReader(csvData), "session-1")
	require.NoError(t, err)

	require.Len(t, ledger.Errors, 1)
	assert.Equal(t, "HDFC", ledger.Errors[0].Share)
	assert.Equal(t, "Oversold", ledger.Errors[0].Kind)

	require.Len(t, ledger.ClosingBalances, 1)
	assert.Equal(t, "TCS", ledger.ClosingBalances[0].Share)
	assert.Equal(t, 50.0, ledger.Summary.TotalClosingQty, "oversold share excluded from aggregates")
}

func TestGetLedgerServesCachedResult(t *testing.T) {
	svc, _ := newTestService(t)

	csvData := csvHeader + "TCS,2023-05-15,50,165000,,,,,,\n"
	first, err := svc.ProcessUpload(strings.NewReader(csvData), "session-1")
	require.NoError(t, err)

	second, err := svc.GetLedger("session-1")
	require.NoError(t, err)
	assert.Same(t, first, second, "unchanged config serves the cached ledger")

	recomputed, err := svc.Recompute("session-1")
	require.NoError(t, err)
	assert.NotSame(t, first, recomputed)
	assert.Equal(t, first.ClosingBalances, recomputed.ClosingBalances)
}

func TestExportNextYearDerivesOpeningDate(t *testing.T) {
	svc, _ := newTestService(t)

	csvData := csvHeader +
		"TCS,2023-05-15,50,165000,2025-06-10,30,102000,2025-08-20,20,84000\n" +
		"SOLD,,,,2025-06-10,10,10000,2025-08-20,10,12000\n"

	_, err := svc.ProcessUpload(strings.NewReader(csvData), "session-1")
	require.NoError(t, err)

	rows, err := svc.ExportNextYear("session-1")
	require.NoError(t, err)

	require.Len(t, rows, 1, "fully sold share is omitted")
	assert.Equal(t, "TCS", rows[0].Share)
	assert.Equal(t, "2026-04-01", rows[0].OpeningDate)
	assert.Equal(t, 60.0, rows[0].OpeningQty)
	assert.Equal(t, 183000.0, rows[0].OpeningAmt)
	assert.Zero(t, rows[0].PurchaseQty)
	assert.Zero(t, rows[0].SaleQty)
}

func TestClearSession(t *testing.T) {
	svc, _ := newTestService(t)

	csvData := csvHeader + "TCS,2023-05-15,50,165000,,,,,,\n"
	_, err := svc.ProcessUpload(strings.NewReader(csvData), "session-1")
	require.NoError(t, err)

	require.NoError(t, svc.ClearSession("session-1"))

	_, err = svc.GetLedger("session-1")
	assert.True(t, errors.Is(err, ErrNoActiveSession))

	assert.True(t, errors.Is(svc.ClearSession(""), ErrNoActiveSession))
}

func TestGeneratedAtIsRFC3339(t *testing.T) {
	svc, _ := newTestService(t)

	csvData := csvHeader + "TCS,2023-05-15,50,165000,,,,,,\n"
	ledger, err := svc.ProcessUpload(strings.NewReader(csvData), "session-1")
	require.NoError(t, err)

	_, err = time.Parse(time.RFC3339, ledger.GeneratedAt)
	assert.NoError(t, err)
}
