package rules

import (
	"slices"
	"strings"

	"github.com/rustyeddy/hedger/hedge"
)

// Env is the context a resolve pass needs beyond the record itself.
type Env struct {
	Methods []hedge.EffectivenessMethod
	DPI     bool
}

// View is the derived, render-ready state of a relationship.
type View struct {
	Benchmarks           []hedge.Benchmark           `json:"benchmarks"`
	BenchmarkLabel       string                      `json:"benchmarkLabel"`
	HedgeRiskTypes       []hedge.RiskType            `json:"hedgeRiskTypes"`
	HedgeTypes           []hedge.HedgeType           `json:"hedgeTypes"`
	HedgeExposures       []hedge.Exposure            `json:"hedgeExposures"`
	HedgedItemTypes      []hedge.HedgedItemType      `json:"hedgedItemTypes"`
	AmortizationMethods  []hedge.AmortizationMethod  `json:"amortizationMethods"`
	InstrumentStructures []hedge.InstrumentStructure `json:"instrumentStructures"`
	EffectivenessMethods []hedge.EffectivenessMethod `json:"effectivenessMethods"`
}

// rule normalizes one group of dependent fields in place.
type rule struct {
	name  string
	apply func(r *hedge.Relationship)
}

// normalizers run in this order; a later rule may override an earlier one.
var normalizers = []rule{
	{"state", dedesignatedClearsOption},
	{"option-off", optionOffResets},
	{"exclude-intrinsic-off", excludeIntrinsicOffResets},
	{"option-off-market", optionExcludesOffMarket},
	{"hedge-type-flags", hedgeTypeFlags},
	{"risk-reset", riskReset},
	{"period-size", periodSizeEOM},
	{"instrument-structure", defaultStructure},
}

// Resolve returns the normalized record and its derived view. It never
// mutates rel and Resolve(Resolve(r)) equals Resolve(r).
func Resolve(rel hedge.Relationship, env Env) (hedge.Relationship, View) {
	r := rel.Clone()
	for _, n := range normalizers {
		n.apply(&r)
	}
	return r, options(r, env)
}

// RuleNames lists the normalizing rules in the order Resolve applies them.
func RuleNames() []string {
	out := make([]string, len(normalizers))
	for i, n := range normalizers {
		out[i] = n.name
	}
	return out
}

// Normalize is Resolve without the view.
func Normalize(rel hedge.Relationship) hedge.Relationship {
	r, _ := Resolve(rel, Env{})
	return r
}

func dedesignatedClearsOption(r *hedge.Relationship) {
	if r.HedgeState == hedge.Dedesignated {
		r.IsAnOptionHedge = false
	}
}

func optionOffResets(r *hedge.Relationship) {
	if r.IsAnOptionHedge {
		return
	}
	r.AmortizeOptionPremimum = false
	r.IsDeltaMatchOption = false
	r.ExcludeIntrinsicValue = false
}

func excludeIntrinsicOffResets(r *hedge.Relationship) {
	if r.ExcludeIntrinsicValue {
		return
	}
	r.IntrinsicMethod = hedge.IntrinsicNone
	r.AmortizeOptionPremimum = false
	r.IsDeltaMatchOption = false
}

func optionExcludesOffMarket(r *hedge.Relationship) {
	if r.IsAnOptionHedge {
		r.OffMarket = false
	}
}

func hedgeTypeFlags(r *hedge.Relationship) {
	switch r.HedgeType {
	case hedge.FairValue:
		r.PreIssuanceHedge = false
	case hedge.NetInvestment:
		r.PreIssuanceHedge = false
		r.PortfolioLayerMethod = false
	case hedge.CashFlow:
		r.PortfolioLayerMethod = false
	}
	if r.HedgeType != hedge.FairValue {
		r.FairValueMethod = hedge.FairValueMethodNone
	}
}

func riskReset(r *hedge.Relationship) {
	rs, ok := resetFor(r.HedgeRiskType, r.HedgeType)
	if !ok {
		return
	}
	if rs.benchmark {
		r.Benchmark = hedge.BenchmarkNone
	}
	if rs.exposure {
		r.HedgeExposure = hedge.ExposureNone
	}
	if rs.exposureCurrency {
		r.ExposureCurrency = ""
	}
	if rs.treatment {
		r.AccountingTreatment = hedge.TreatmentNone
	}
}

func periodSizeEOM(r *hedge.Relationship) {
	if r.PeriodSize != hedge.PeriodMonth {
		r.EOM = false
	}
}

func defaultStructure(r *hedge.Relationship) {
	if r.HedgingInstrumentStructure == "" || r.HedgingInstrumentStructure == hedge.StructureNone {
		r.HedgingInstrumentStructure = hedge.SingleInstrument
	}
}

func options(r hedge.Relationship, env Env) View {
	return View{
		Benchmarks:           BenchmarkOptions(r.HedgeType),
		BenchmarkLabel:       Label(r.HedgeRiskType, r.HedgeType),
		HedgeRiskTypes:       slices.Clone(SupportedRiskTypes),
		HedgeTypes:           HedgeTypeOptions(r.HedgeRiskType),
		HedgeExposures:       ExposureOptions(r.HedgeRiskType, r.HedgeType),
		HedgedItemTypes:      HedgedItemTypeOptions(r.HedgeExposure),
		AmortizationMethods:  without(hedge.AmortizationMethods, ExcludedAmortizationMethods),
		InstrumentStructures: StructureOptions(env.DPI),
		EffectivenessMethods: EligibleMethods(r, env.Methods),
	}
}

// BenchmarkOptions lists the benchmarks offered for a hedge type.
func BenchmarkOptions(ht hedge.HedgeType) []hedge.Benchmark {
	out := without(hedge.Benchmarks, ExcludedBenchmarks)
	if ht != hedge.CashFlow {
		out = without(out, NonCashFlowExcludedBenchmarks)
	}
	return out
}

// HedgeTypeOptions drops NetInvestment for interest rate risk.
func HedgeTypeOptions(risk hedge.RiskType) []hedge.HedgeType {
	if risk == hedge.InterestRate {
		return without(hedge.HedgeTypes, []hedge.HedgeType{hedge.NetInvestment})
	}
	return slices.Clone(hedge.HedgeTypes)
}

// ExposureOptions is empty unless the risk is foreign exchange.
func ExposureOptions(risk hedge.RiskType, ht hedge.HedgeType) []hedge.Exposure {
	if risk != hedge.ForeignExchange {
		return []hedge.Exposure{}
	}
	return without(hedge.Exposures, ExcludedExposures[ht])
}

// HedgedItemTypeOptions lists the hedged item types offered for an exposure.
func HedgedItemTypeOptions(exp hedge.Exposure) []hedge.HedgedItemType {
	if exp == hedge.RecognizedAssetLiability {
		return without(hedge.HedgedItemTypes, RecognizedExcludedItemTypes)
	}
	return slices.Clone(hedge.HedgedItemTypes)
}

// StructureOptions limits DPI users to a single instrument.
func StructureOptions(dpi bool) []hedge.InstrumentStructure {
	if dpi {
		return []hedge.InstrumentStructure{hedge.SingleInstrument}
	}
	return slices.Clone(hedge.InstrumentStructures)
}

// Label names the benchmark field for a risk and hedge type.
func Label(risk hedge.RiskType, ht hedge.HedgeType) string {
	if risk == hedge.InterestRate && ht == hedge.CashFlow {
		return ContractualRateLabel
	}
	return BenchmarkLabel
}

// EligibleMethods filters the catalog for the record. Option hedges see only
// the "Regression - Change in" family, intrinsic value included; every other
// hedge sees the catalog minus the intrinsic value regression, restricted to
// fair value methods for fair value hedges.
func EligibleMethods(r hedge.Relationship, methods []hedge.EffectivenessMethod) []hedge.EffectivenessMethod {
	out := []hedge.EffectivenessMethod{}
	for _, m := range methods {
		if r.IsAnOptionHedge {
			if strings.Contains(m.Name, OptionMethodMarker) {
				out = append(out, m)
			}
			continue
		}
		if m.Name == hedge.IntrinsicRegressionName {
			continue
		}
		if r.HedgeType != hedge.FairValue || m.IsForFairValue {
			out = append(out, m)
		}
	}
	return out
}

func without[T comparable](all, excl []T) []T {
	out := make([]T, 0, len(all))
	for _, v := range all {
		if !slices.Contains(excl, v) {
			out = append(out, v)
		}
	}
	return out
}
