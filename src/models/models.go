package models

// TransactionRow is a single uploaded ledger row for one share. A row may
// carry any subset of the three (date, quantity, amount) triples; quantities
// and amounts are non-negative, dates are ISO-8601 (YYYY-MM-DD) or empty.
type TransactionRow struct {
	Share        string  `json:"share"`
	OpeningDate  string  `json:"openingDate,omitempty"`
	OpeningQty   float64 `json:"openingQty"`
	OpeningAmt   float64 `json:"openingAmt"`
	PurchaseDate string  `json:"purchaseDate,omitempty"`
	PurchaseQty  float64 `json:"purchaseQty"`
	PurchaseAmt  float64 `json:"purchaseAmt"`
	SaleDate     string  `json:"saleDate,omitempty"`
	SaleQty      float64 `json:"saleQty"`
	SaleAmt      float64 `json:"saleAmt"`
}

// EventType tags the lot events a TransactionRow explodes into. Opening
// events are logically earlier than purchase events regardless of row order.
type EventType string

const (
	EventOpening  EventType = "OPENING"
	EventPurchase EventType = "PURCHASE"
	EventSale     EventType = "SALE"
)

// LotEvent is one (date, quantity, amount) triple of a TransactionRow,
// tagged with its kind so the matcher's ordering logic is exhaustive.
type LotEvent struct {
	Share    string
	Type     EventType
	Date     string
	Quantity float64
	Amount   float64
	RowIndex int
}

// Lot is a quantity of a share acquired at a specific date and unit cost,
// consumed in place by the matcher until its quantity reaches zero.
type Lot struct {
	Share           string    `json:"share"`
	Source          EventType `json:"source"`
	AcquisitionDate string    `json:"acquisitionDate"`
	Quantity        float64   `json:"quantity"`
	UnitCost        float64   `json:"unitCost"`
}

// GainType classifies a realized gain by holding period.
type GainType string

const (
	GainLTCG GainType = "LTCG"
	GainSTCG GainType = "STCG"
)

// MatchedTransaction is one sale-lot pairing, or an unconsumed opening or
// purchase lot carried through to the closing balance. The gain fields are
// set only when a sale consumed the lot.
type MatchedTransaction struct {
	Share        string  `json:"share"`
	OpeningDate  string  `json:"openingDate,omitempty"`
	OpeningQty   float64 `json:"openingQty,omitempty"`
	OpeningAmt   float64 `json:"openingAmt,omitempty"`
	PurchaseDate string  `json:"purchaseDate,omitempty"`
	PurchaseQty  float64 `json:"purchaseQty,omitempty"`
	PurchaseAmt  float64 `json:"purchaseAmt,omitempty"`
	SaleDate     string  `json:"saleDate,omitempty"`
	SaleQty      float64 `json:"saleQty,omitempty"`
	SaleAmt      float64 `json:"saleAmt,omitempty"`

	GainType      GainType `json:"gainType,omitempty"`
	Gain          float64  `json:"gain"`
	HoldingMonths int      `json:"holdingMonths,omitempty"`
}

// Matched reports whether a sale consumed this lot.
func (m MatchedTransaction) Matched() bool {
	return m.SaleQty > 0 && (m.OpeningQty > 0 || m.PurchaseQty > 0)
}

// AcquisitionDate returns the holding-period basis date of the lot side.
func (m MatchedTransaction) AcquisitionDate() string {
	if m.OpeningDate != "" {
		return m.OpeningDate
	}
	return m.PurchaseDate
}

// Cost returns the acquisition cost carried by the lot side.
func (m MatchedTransaction) Cost() float64 {
	return m.OpeningAmt + m.PurchaseAmt
}

// ClosingBalance aggregates one share's position at financial-year end.
// Invariant: ClosingQty = OpeningQty + PurchaseQty - SaleQty >= 0.
type ClosingBalance struct {
	Share             string               `json:"share"`
	OpeningQty        float64              `json:"openingQty"`
	OpeningAmt        float64              `json:"openingAmt"`
	PurchaseQty       float64              `json:"purchaseQty"`
	PurchaseAmt       float64              `json:"purchaseAmt"`
	SaleQty           float64              `json:"saleQty"`
	SaleAmt           float64              `json:"saleAmt"`
	ClosingQty        float64              `json:"closingQty"`
	ClosingAmt        float64              `json:"closingAmt"`
	AvgCostPrice      float64              `json:"avgCostPrice"`
	RealizedGain      float64              `json:"realizedGain"`
	LTCG              float64              `json:"ltcg"`
	STCG              float64              `json:"stcg"`
	FirstPurchaseDate string               `json:"firstPurchaseDate,omitempty"`
	Transactions      []MatchedTransaction `json:"transactions"`
}

// Summary is the portfolio-wide rollup of every ClosingBalance.
type Summary struct {
	TotalOpeningQty     float64 `json:"totalOpeningQty"`
	TotalOpeningValue   float64 `json:"totalOpeningValue"`
	TotalPurchaseQty    float64 `json:"totalPurchaseQty"`
	TotalPurchaseValue  float64 `json:"totalPurchaseValue"`
	TotalSaleQty        float64 `json:"totalSaleQty"`
	TotalSaleValue      float64 `json:"totalSaleValue"`
	TotalClosingQty     float64 `json:"totalClosingQty"`
	TotalClosingValue   float64 `json:"totalClosingValue"`
	TotalRealizedGain   float64 `json:"totalRealizedGain"`
	TotalUnrealizedGain float64 `json:"totalUnrealizedGain"`
	PortfolioReturn     Ratio   `json:"portfolioReturn"`
}

// TaxBreakdown is the tax computed for one gain bucket.
type TaxBreakdown struct {
	TaxableAmount float64 `json:"taxableAmount"`
	Rate          float64 `json:"rate"`
	BaseTax       float64 `json:"baseTax"`
	Cess          float64 `json:"cess"`
	TotalTax      float64 `json:"totalTax"`
	EffectiveRate Percent `json:"effectiveRate"`
}

// CapitalGains is the portfolio-wide tax result under one TaxConfig snapshot.
type CapitalGains struct {
	TotalLTCG          float64      `json:"totalLTCG"`
	TotalSTCG          float64      `json:"totalSTCG"`
	LTCGExemption      float64      `json:"ltcgExemption"`
	LTCGAfterExemption float64      `json:"ltcgAfterExemption"`
	LTCGTax            TaxBreakdown `json:"ltcgTax"`
	STCGTax            TaxBreakdown `json:"stcgTax"`
	TotalTax           float64      `json:"totalTax"`
	NetGain            float64      `json:"netGain"`
}

// ShareError reports a share whose computation was rejected. The share is
// excluded from all aggregate figures.
type ShareError struct {
	Share   string `json:"share"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// LedgerData is the full computation result for one session and one
// financial year. It is rebuilt, never mutated, when inputs or config change.
type LedgerData struct {
	FinancialYear   string               `json:"financialYear"`
	Transactions    []MatchedTransaction `json:"transactions"`
	ClosingBalances []ClosingBalance     `json:"closingBalances"`
	Summary         Summary              `json:"summary"`
	CapitalGains    CapitalGains         `json:"capitalGains"`
	TaxConfig       TaxConfig            `json:"taxConfig"`
	Errors          []ShareError         `json:"errors,omitempty"`
	GeneratedAt     string               `json:"generatedAt"`
}
