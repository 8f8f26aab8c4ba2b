// Package hedge holds the hedge relationship record and its value types.
package hedge

import (
	"slices"
	"time"
)

// Item is a trade linked to the relationship on the hedged or hedging side.
type Item struct {
	ItemID       string  `json:"itemId" yaml:"item_id"`
	SecurityType string  `json:"securityType" yaml:"security_type"`
	Notional     float64 `json:"notional" yaml:"notional"`
	Rate         float64 `json:"rate" yaml:"rate"`
	ItemStatus   string  `json:"itemStatus" yaml:"item_status"`
}

// Amortization is a schedule row attached to the relationship.
type Amortization struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	OptionTimeValue bool   `json:"optionTimeValue"`
	Selected        bool   `json:"selected"`
}

// RegressionBatch is one effectiveness-test run.
type RegressionBatch struct {
	ID              string     `json:"id"`
	HedgeResultType ResultType `json:"hedgeResultType"`
	RunDate         time.Time  `json:"runDate"`
	Slope           float64    `json:"slope"`
	RSquared        float64    `json:"rSquared"`
	OffsetRatio     float64    `json:"offsetRatio"`
	Effective       bool       `json:"effective"`
}

// Relationship is the hedge relationship aggregate.
type Relationship struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	BankEntity  string `json:"bankEntity,omitempty"`
	ClientID    string `json:"clientId,omitempty"`

	HedgeType                  HedgeType           `json:"hedgeType"`
	HedgeRiskType              RiskType            `json:"hedgeRiskType"`
	HedgeExposure              Exposure            `json:"hedgeExposure"`
	HedgedItemType             HedgedItemType      `json:"hedgedItemType"`
	AssetLiability             AssetLiability      `json:"assetLiability"`
	Benchmark                  Benchmark           `json:"benchmark"`
	AccountingTreatment        AccountingTreatment `json:"hedgeAccountingTreatment"`
	AmortizationMethod         AmortizationMethod  `json:"amortizationMethod"`
	IntrinsicMethod            IntrinsicMethod     `json:"intrinsicMethod"`
	FairValueMethod            FairValueMethod     `json:"fairValueMethod"`
	HedgingInstrumentStructure InstrumentStructure `json:"hedgingInstrumentStructure"`
	PeriodSize                 PeriodSize          `json:"periodSize"`
	ExposureCurrency           string              `json:"exposureCurrency,omitempty"`
	ReportCurrency             string              `json:"reportCurrency,omitempty"`

	IsAnOptionHedge        bool `json:"isAnOptionHedge"`
	ExcludeIntrinsicValue  bool `json:"excludeIntrinsicValue"`
	AmortizeOptionPremimum bool `json:"amortizeOptionPremimum"`
	IsDeltaMatchOption     bool `json:"isDeltaMatchOption"`
	OffMarket              bool `json:"offMarket"`
	Shortcut               bool `json:"shortcut"`
	PortfolioLayerMethod   bool `json:"portfolioLayerMethod"`
	PreIssuanceHedge       bool `json:"preIssuanceHedge"`
	QualitativeAssessment  bool `json:"qualitativeAssessment"`
	EOM                    bool `json:"eom"`

	OptionPremium *float64 `json:"optionPremium,omitempty"`

	ProspectiveMethodID   int `json:"prospectiveEffectivenessMethodId"`
	RetrospectiveMethodID int `json:"retrospectiveEffectivenessMethodId"`

	HedgeState        State      `json:"hedgeState"`
	DesignationDate   *time.Time `json:"designationDate,omitempty"`
	DedesignationDate *time.Time `json:"dedesignationDate,omitempty"`

	HedgedItems                []Item            `json:"hedgedItems"`
	HedgingItems               []Item            `json:"hedgingItems"`
	Amortizations              []Amortization    `json:"amortizations,omitempty"`
	HedgeRegressionBatches     []RegressionBatch `json:"hedgeRegressionBatches,omitempty"`
	LatestHedgeRegressionBatch *RegressionBatch  `json:"latestHedgeRegressionBatch,omitempty"`
}

// New returns a draft relationship with every classification at its
// sentinel value.
func New(id string) Relationship {
	return Relationship{
		ID:                         id,
		HedgeType:                  HedgeTypeNone,
		HedgeRiskType:              RiskTypeNone,
		HedgeExposure:              ExposureNone,
		HedgedItemType:             HedgedItemNone,
		AssetLiability:             AssetLiabilityNone,
		Benchmark:                  BenchmarkNone,
		AccountingTreatment:        TreatmentNone,
		AmortizationMethod:         AmortizationNone,
		IntrinsicMethod:            IntrinsicNone,
		FairValueMethod:            FairValueMethodNone,
		HedgingInstrumentStructure: SingleInstrument,
		PeriodSize:                 PeriodNone,
		HedgeState:                 Draft,
		HedgedItems:                []Item{},
		HedgingItems:               []Item{},
	}
}

// Clone returns a deep copy so callers can derive a new record without
// aliasing the slices or pointers of the old one.
func (r Relationship) Clone() Relationship {
	c := r
	c.HedgedItems = slices.Clone(r.HedgedItems)
	c.HedgingItems = slices.Clone(r.HedgingItems)
	c.Amortizations = slices.Clone(r.Amortizations)
	c.HedgeRegressionBatches = slices.Clone(r.HedgeRegressionBatches)
	if r.OptionPremium != nil {
		v := *r.OptionPremium
		c.OptionPremium = &v
	}
	if r.DesignationDate != nil {
		v := *r.DesignationDate
		c.DesignationDate = &v
	}
	if r.DedesignationDate != nil {
		v := *r.DedesignationDate
		c.DedesignationDate = &v
	}
	if r.LatestHedgeRegressionBatch != nil {
		v := *r.LatestHedgeRegressionBatch
		c.LatestHedgeRegressionBatch = &v
	}
	return c
}

// HasBatch reports whether a regression batch of type rt was already run.
func (r Relationship) HasBatch(rt ResultType) bool {
	for _, b := range r.HedgeRegressionBatches {
		if b.HedgeResultType == rt {
			return true
		}
	}
	return false
}

// HasAmortization reports whether a schedule row of the given type exists.
func (r Relationship) HasAmortization(typ string) bool {
	for _, a := range r.Amortizations {
		if a.Type == typ {
			return true
		}
	}
	return false
}

// SelectedOptionAmortization returns the selected option time value
// amortization row, if any.
func (r Relationship) SelectedOptionAmortization() (Amortization, bool) {
	for _, a := range r.Amortizations {
		if a.OptionTimeValue && a.Selected {
			return a, true
		}
	}
	return Amortization{}, false
}

// DeDesignation is the payload of a de-designation. It exists only while the
// transition is in progress.
type DeDesignation struct {
	HedgeID                string              `json:"hedgeId"`
	Reason                 DedesignationReason `json:"reason"`
	DedesignationDate      time.Time           `json:"dedesignationDate"`
	Payment                float64             `json:"payment"`
	Accrual                float64             `json:"accrual"`
	BasisAdjustment        float64             `json:"basisAdjustment"`
	BasisAdjustmentBalance float64             `json:"basisAdjustmentBalance"`
	CashPaymentType        string              `json:"cashPaymentType,omitempty"`
}

// ReDesignation is the payload of a cash flow re-designation.
type ReDesignation struct {
	HedgeID                string    `json:"hedgeId"`
	RedesignationDate      time.Time `json:"redesignationDate"`
	Payment                float64   `json:"payment"`
	Accrual                float64   `json:"accrual"`
	TimeValuesStartDate    time.Time `json:"timeValuesStartDate"`
	TimeValuesEndDate      time.Time `json:"timeValuesEndDate"`
	AmortizeOptionPremimum bool      `json:"amortizeOptionPremimum"`
}
