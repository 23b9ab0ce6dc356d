package models

// TaxBucketConfig is the regime for one gain bucket. Rate and Cess are
// percentages, HoldingPeriod is in whole months.
type TaxBucketConfig struct {
	Rate          float64 `json:"rate"`
	Cess          float64 `json:"cess"`
	HoldingPeriod int     `json:"holdingPeriod"`
}

// LTCGConfig extends the bucket regime with the LTCG-only fields. The
// indexation flag is carried for the contract but gains are never indexed.
type LTCGConfig struct {
	TaxBucketConfig
	ExemptionLimit    float64 `json:"exemptionLimit"`
	IndexationBenefit bool    `json:"indexationBenefit"`
}

// TaxConfig is one financial year's tax regime. Reads always take a value
// copy, so an in-flight computation never observes a concurrent update.
type TaxConfig struct {
	FinancialYear string          `json:"financialYear"`
	STCG          TaxBucketConfig `json:"stcg"`
	LTCG          LTCGConfig      `json:"ltcg"`
}

// TaxBucketUpdate carries the fields of a partial bucket update. Nil fields
// keep their prior values.
type TaxBucketUpdate struct {
	Rate          *float64 `json:"rate,omitempty"`
	Cess          *float64 `json:"cess,omitempty"`
	HoldingPeriod *int     `json:"holdingPeriod,omitempty"`
}

type LTCGUpdate struct {
	TaxBucketUpdate
	ExemptionLimit    *float64 `json:"exemptionLimit,omitempty"`
	IndexationBenefit *bool    `json:"indexationBenefit,omitempty"`
}

// TaxConfigUpdate is the body of a PUT /config request. The top-level Cess
// shorthand applies the same cess to both buckets.
type TaxConfigUpdate struct {
	STCG *TaxBucketUpdate `json:"stcg,omitempty"`
	LTCG *LTCGUpdate      `json:"ltcg,omitempty"`
	Cess *float64         `json:"cess,omitempty"`
}
