package hedge

// HedgeType classifies the accounting model of the relationship.
type HedgeType string

const (
	HedgeTypeNone HedgeType = "None"
	CashFlow      HedgeType = "CashFlow"
	FairValue     HedgeType = "FairValue"
	NetInvestment HedgeType = "NetInvestment"
)

var HedgeTypes = []HedgeType{HedgeTypeNone, CashFlow, FairValue, NetInvestment}

// RiskType is the hedged risk.
type RiskType string

const (
	RiskTypeNone    RiskType = "None"
	InterestRate    RiskType = "InterestRate"
	ForeignExchange RiskType = "ForeignExchange"
	MarketPrice     RiskType = "MarketPrice"
	Credit          RiskType = "Credit"
)

var RiskTypes = []RiskType{RiskTypeNone, InterestRate, ForeignExchange, MarketPrice, Credit}

type Exposure string

const (
	ExposureNone               Exposure = "None"
	RecognizedAssetLiability   Exposure = "RecognizedAssetLiability"
	UnrecognizedFirmCommitment Exposure = "UnrecognizedFirmCommitment"
	ForecastedExposure         Exposure = "ForecastedExposure"
	IntraEntity                Exposure = "IntraEntity"
	NetInvestmentInForeignOp   Exposure = "NetInvestmentInForeignOperation"
)

var Exposures = []Exposure{
	ExposureNone,
	RecognizedAssetLiability,
	UnrecognizedFirmCommitment,
	ForecastedExposure,
	IntraEntity,
	NetInvestmentInForeignOp,
}

type HedgedItemType string

const (
	HedgedItemNone         HedgedItemType = "None"
	Forecasted             HedgedItemType = "Forecasted"
	ExistingAssetLiability HedgedItemType = "ExistingAssetLiability"
	FirmCommitment         HedgedItemType = "FirmCommitment"
)

var HedgedItemTypes = []HedgedItemType{HedgedItemNone, Forecasted, ExistingAssetLiability, FirmCommitment}

type AssetLiability string

const (
	AssetLiabilityNone AssetLiability = "None"
	Asset              AssetLiability = "Asset"
	Liability          AssetLiability = "Liability"
)

var AssetLiabilities = []AssetLiability{AssetLiabilityNone, Asset, Liability}

// Benchmark is the hedged benchmark rate, or the contractual rate for
// interest-rate cash flow hedges.
type Benchmark string

const (
	BenchmarkNone  Benchmark = "None"
	SOFR           Benchmark = "SOFR"
	FedFunds       Benchmark = "FedFunds"
	FFUTFDTR       Benchmark = "FFUTFDTR"
	FHLBTopeka     Benchmark = "FHLBTopeka"
	USDTBILL4WH15  Benchmark = "USDTBILL4WH15"
	SIFMA          Benchmark = "SIFMA"
	Treasury       Benchmark = "Treasury"
	Prime          Benchmark = "Prime"
	BenchmarkOther Benchmark = "Other"
)

var Benchmarks = []Benchmark{
	BenchmarkNone,
	SOFR,
	FedFunds,
	FFUTFDTR,
	FHLBTopeka,
	USDTBILL4WH15,
	SIFMA,
	Treasury,
	Prime,
	BenchmarkOther,
}

type AccountingTreatment string

const (
	TreatmentNone AccountingTreatment = "None"
	SpotMethod    AccountingTreatment = "SpotMethod"
	ForwardMethod AccountingTreatment = "ForwardMethod"
)

var AccountingTreatments = []AccountingTreatment{TreatmentNone, SpotMethod, ForwardMethod}

type AmortizationMethod string

const (
	AmortizationNone     AmortizationMethod = "None"
	StraightLine         AmortizationMethod = "StraightLine"
	LevelYield           AmortizationMethod = "LevelYield"
	IntrinsicValueMethod AmortizationMethod = "IntrinsicValueMethod"
)

var AmortizationMethods = []AmortizationMethod{AmortizationNone, StraightLine, LevelYield, IntrinsicValueMethod}

type IntrinsicMethod string

const (
	IntrinsicNone    IntrinsicMethod = "None"
	SpotToSpot       IntrinsicMethod = "SpotToSpot"
	ForwardToForward IntrinsicMethod = "ForwardToForward"
)

var IntrinsicMethods = []IntrinsicMethod{IntrinsicNone, SpotToSpot, ForwardToForward}

type FairValueMethod string

const (
	FairValueMethodNone FairValueMethod = "None"
	FullFairValue       FairValueMethod = "FullFairValue"
	BenchmarkComponent  FairValueMethod = "BenchmarkComponent"
)

var FairValueMethods = []FairValueMethod{FairValueMethodNone, FullFairValue, BenchmarkComponent}

type InstrumentStructure string

const (
	StructureNone       InstrumentStructure = "None"
	SingleInstrument    InstrumentStructure = "SingleInstrument"
	MultipleInstruments InstrumentStructure = "MultipleInstruments"
)

var InstrumentStructures = []InstrumentStructure{SingleInstrument, MultipleInstruments}

// Label is the display name used by pickers.
func (s InstrumentStructure) Label() string {
	switch s {
	case SingleInstrument:
		return "Single Instrument"
	case MultipleInstruments:
		return "Multiple Instruments"
	}
	return string(s)
}

type PeriodSize string

const (
	PeriodNone    PeriodSize = "None"
	PeriodDay     PeriodSize = "Day"
	PeriodWeek    PeriodSize = "Week"
	PeriodMonth   PeriodSize = "Month"
	PeriodQuarter PeriodSize = "Quarter"
	PeriodYear    PeriodSize = "Year"
)

var PeriodSizes = []PeriodSize{PeriodNone, PeriodDay, PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear}

// State is the lifecycle state of a relationship.
type State string

const (
	Draft        State = "Draft"
	Designated   State = "Designated"
	Dedesignated State = "Dedesignated"
)

var States = []State{Draft, Designated, Dedesignated}

// ResultType tags a regression batch with what triggered it.
type ResultType string

const (
	ResultUser      ResultType = "User"
	ResultInception ResultType = "Inception"
	ResultBackload  ResultType = "Backload"
)

var ResultTypes = []ResultType{ResultUser, ResultInception, ResultBackload}

// DedesignationReason is the reason code picked when de-designating.
type DedesignationReason string

const (
	ReasonNone            DedesignationReason = "None"
	ReasonTermination     DedesignationReason = "Termination"
	ReasonSale            DedesignationReason = "Sale"
	ReasonIneffectiveness DedesignationReason = "Ineffectiveness"
	ReasonVoluntary       DedesignationReason = "Voluntary"
)

var DedesignationReasons = []DedesignationReason{ReasonTermination, ReasonSale, ReasonIneffectiveness, ReasonVoluntary}

// Item statuses reported by the trade system.
const (
	StatusDraft     = "Draft"
	StatusHA        = "HA"
	StatusValidated = "Validated"
	StatusCancelled = "Cancelled"
)

// AmortizationSchedule is the type name of a regular amortization row.
const AmortizationSchedule = "Amortization"

// Valid reports whether v is one of the values in set.
func Valid[T ~string](v T, set []T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
