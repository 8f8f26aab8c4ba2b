// Package rules derives the dependent fields and picker option sets of a
// hedge relationship from its driver fields.
package rules

import "github.com/rustyeddy/hedger/hedge"

// The sets below are shared with package guard.

// ExcludedBenchmarks is applied for every hedge type.
var ExcludedBenchmarks = []hedge.Benchmark{hedge.FFUTFDTR, hedge.FHLBTopeka, hedge.USDTBILL4WH15}

// NonCashFlowExcludedBenchmarks is added for every hedge type except CashFlow.
var NonCashFlowExcludedBenchmarks = []hedge.Benchmark{hedge.BenchmarkOther, hedge.Prime}

var ExcludedRiskTypes = []hedge.RiskType{hedge.MarketPrice, hedge.Credit}

// SupportedRiskTypes are the risk types a record may carry.
var SupportedRiskTypes = without(hedge.RiskTypes, ExcludedRiskTypes)

// ExcludedExposures maps the hedge type to the exposures hidden for foreign
// exchange hedges. Types not listed show every exposure.
var ExcludedExposures = map[hedge.HedgeType][]hedge.Exposure{
	hedge.FairValue: {hedge.ForecastedExposure, hedge.IntraEntity},
	hedge.CashFlow:  {hedge.UnrecognizedFirmCommitment},
}

var RecognizedExcludedItemTypes = []hedge.HedgedItemType{hedge.HedgedItemNone, hedge.Forecasted}

var ExcludedAmortizationMethods = []hedge.AmortizationMethod{hedge.IntrinsicValueMethod}

// OptionHedgedSecurityTypes are the security types allowed on the hedged
// side of an option hedge.
var OptionHedgedSecurityTypes = []string{"CapFloor", "Collar", "Corridor", "Swaption", "SwapWithOption", "Debt"}

// OptionHedgingSecurityTypes are the security types allowed on the hedging
// side of an option hedge.
var OptionHedgingSecurityTypes = []string{"CapFloor", "Collar", "Corridor", "Swaption", "SwapWithOption"}

// OptionMethodMarker selects the effectiveness methods offered to option
// hedges.
const OptionMethodMarker = "Regression - Change in"

const (
	BenchmarkLabel       = "Benchmark"
	ContractualRateLabel = "Contractual Rate"
)

// reset lists the fields forced for a (risk type, hedge type) pair.
type reset struct {
	benchmark        bool
	exposure         bool
	exposureCurrency bool
	treatment        bool
}

type riskHedge struct {
	risk  hedge.RiskType
	hedge hedge.HedgeType
}

var resets = map[riskHedge]reset{
	{hedge.ForeignExchange, hedge.CashFlow}:      {benchmark: true, exposureCurrency: true, treatment: true},
	{hedge.ForeignExchange, hedge.FairValue}:     {benchmark: true, exposureCurrency: true, treatment: true},
	{hedge.ForeignExchange, hedge.NetInvestment}: {benchmark: true, exposure: true},
}

// interest rate risk resets regardless of hedge type
var interestRateReset = reset{exposure: true, exposureCurrency: true, treatment: true}

func resetFor(risk hedge.RiskType, ht hedge.HedgeType) (reset, bool) {
	if risk == hedge.InterestRate {
		return interestRateReset, true
	}
	r, ok := resets[riskHedge{risk, ht}]
	return r, ok
}
