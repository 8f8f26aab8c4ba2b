package guard

import (
	"fmt"
	"slices"

	"github.com/rustyeddy/hedger/hedge"
	"github.com/rustyeddy/hedger/rules"
)

const (
	MsgDedesignationOrder = "Dedesignation Date must be later than Designation Date"
	MsgOptionHedged       = "Hedged Items of an option hedge must be CapFloor, Collar, Corridor, Swaption, SwapWithOption or Debt"
	MsgOptionHedging      = "Hedging Items of an option hedge must be CapFloor, Collar, Corridor, Swaption or SwapWithOption"
	MsgOptionBoth         = "Hedged and Hedging Items of an option hedge must be option instruments"
	MsgHedgedStatus       = "All Hedged Items must be in HA status"
	MsgHedgingStatus      = "All Hedging Items must be in Validated status"
	MsgBackloadExists     = "A Backload regression has already been run for this hedge relationship"
)

func checkSave(r *Result, rel hedge.Relationship, in Inputs) {
	if rel.BankEntity == "" {
		r.add("NO_BANK_ENTITY", "Bank Entity is required")
	}

	if rel.DesignationDate == nil {
		r.add("NO_DESIGNATION_DATE", "Designation Date is required")
	} else if rel.DesignationDate.After(in.today()) {
		r.add("FUTURE_DESIGNATION_DATE", "Designation Date cannot be later than today")
	}

	checkDedesignationDate(r, rel, in)
	checkClassification(r, rel)

	if rel.HedgeType == hedge.FairValue && rel.Shortcut {
		if rel.QualitativeAssessment {
			r.add("SHORTCUT_QUALITATIVE", "Fair Value Shortcut hedges cannot use Qualitative Assessment")
		}
		if rel.PortfolioLayerMethod {
			r.add("SHORTCUT_PORTFOLIO", "Fair Value Shortcut hedges cannot use the Portfolio Layer Method")
		}
	}

	if rel.HedgingInstrumentStructure == hedge.SingleInstrument && len(rel.HedgingItems) > 1 {
		r.add("SINGLE_INSTRUMENT", "Single Instrument hedges may have only one Hedging Item")
	}

	checkOption(r, rel)
}

func checkDedesignationDate(r *Result, rel hedge.Relationship, in Inputs) {
	if rel.DedesignationDate == nil || rel.DesignationDate == nil {
		return
	}
	des, ded := *rel.DesignationDate, *rel.DedesignationDate
	if !ded.After(des) {
		r.add("DEDESIGNATION_ORDER", MsgDedesignationOrder)
	} else if !ded.After(des.AddDate(0, in.warnMonths(), 0)) {
		r.confirm("DEDESIGNATION_NEAR", fmt.Sprintf(
			"Dedesignation Date is within %d months of Designation Date. Do you want to continue?", in.warnMonths()))
	}
}

// checkClassification rejects enum values outside their sets. Empty means
// unset and is left to the required-field checks.
func checkClassification(r *Result, rel hedge.Relationship) {
	if rel.HedgeRiskType != "" && !hedge.Valid(rel.HedgeRiskType, rules.SupportedRiskTypes) {
		r.add("UNSUPPORTED_RISK_TYPE", fmt.Sprintf("Hedge Risk Type %s is not supported", rel.HedgeRiskType))
	}
	unknown(r, "Hedge Type", rel.HedgeType, hedge.HedgeTypes)
	unknown(r, "Hedge Exposure", rel.HedgeExposure, hedge.Exposures)
	unknown(r, "Hedged Item Type", rel.HedgedItemType, hedge.HedgedItemTypes)
	unknown(r, "Asset/Liability", rel.AssetLiability, hedge.AssetLiabilities)
	unknown(r, "Benchmark", rel.Benchmark, hedge.Benchmarks)
	unknown(r, "Hedge Accounting Treatment", rel.AccountingTreatment, hedge.AccountingTreatments)
	unknown(r, "Amortization Method", rel.AmortizationMethod, hedge.AmortizationMethods)
	unknown(r, "Intrinsic Method", rel.IntrinsicMethod, hedge.IntrinsicMethods)
	unknown(r, "Fair Value Method", rel.FairValueMethod, hedge.FairValueMethods)
	unknown(r, "Hedging Instrument Structure", rel.HedgingInstrumentStructure, structures)
	unknown(r, "Period Size", rel.PeriodSize, hedge.PeriodSizes)
}

// structures accepts None, which Resolve turns into SingleInstrument.
var structures = append([]hedge.InstrumentStructure{hedge.StructureNone}, hedge.InstrumentStructures...)

func unknown[T ~string](r *Result, field string, v T, set []T) {
	if v != "" && !hedge.Valid(v, set) {
		r.add("UNKNOWN_VALUE", fmt.Sprintf("%s %q is not a known value", field, v))
	}
}

func checkOption(r *Result, rel hedge.Relationship) {
	if !rel.IsAnOptionHedge {
		return
	}

	if rel.OptionPremium == nil {
		r.add("NO_OPTION_PREMIUM", "Option Premium is required for option hedges")
	} else if *rel.OptionPremium < 0 {
		r.add("NEGATIVE_OPTION_PREMIUM", "Option Premium must be zero or greater")
	}

	badHedged := !allOf(rel.HedgedItems, rules.OptionHedgedSecurityTypes)
	badHedging := !allOf(rel.HedgingItems, rules.OptionHedgingSecurityTypes)
	switch {
	case badHedged && badHedging:
		r.add("OPTION_ITEMS", MsgOptionBoth)
	case badHedged:
		r.add("OPTION_HEDGED_ITEMS", MsgOptionHedged)
	case badHedging:
		r.add("OPTION_HEDGING_ITEMS", MsgOptionHedging)
	}
}

func checkRegress(r *Result, rel hedge.Relationship) {
	if rel.ProspectiveMethodID == 0 {
		r.add("NO_PROSPECTIVE_METHOD", "Prospective Effectiveness Method is required")
	}
	if rel.RetrospectiveMethodID == 0 {
		r.add("NO_RETROSPECTIVE_METHOD", "Retrospective Effectiveness Method is required")
	}
	if len(rel.HedgedItems) == 0 {
		r.add("NO_HEDGED_ITEMS", "At least one Hedged Item is required")
	}
	if len(rel.HedgingItems) == 0 {
		r.add("NO_HEDGING_ITEMS", "At least one Hedging Item is required")
	}
	if rel.ReportCurrency == "" {
		r.add("NO_REPORT_CURRENCY", "Report Currency is required")
	}
	checkOption(r, rel)
}

func checkDesignate(r *Result, rel hedge.Relationship) {
	for _, it := range rel.HedgedItems {
		if it.ItemStatus != hedge.StatusHA {
			r.add("HEDGED_STATUS", MsgHedgedStatus)
		}
	}
	for _, it := range rel.HedgingItems {
		if it.ItemStatus != hedge.StatusValidated {
			r.add("HEDGING_STATUS", MsgHedgingStatus)
		}
	}

	label := rules.Label(rel.HedgeRiskType, rel.HedgeType)
	switch rel.HedgeType {
	case "", hedge.HedgeTypeNone:
		r.add("NO_HEDGE_TYPE", "Hedge Type is required")
	case hedge.FairValue:
		if rel.FairValueMethod == "" || rel.FairValueMethod == hedge.FairValueMethodNone {
			r.add("NO_FAIR_VALUE_METHOD", "Fair Value Method is required")
		}
		if noBenchmark(rel) {
			r.add("NO_BENCHMARK", label+" is required")
		}
	case hedge.CashFlow:
		if rel.HedgeRiskType != hedge.ForeignExchange && noBenchmark(rel) {
			r.add("NO_BENCHMARK", label+" is required")
		}
	}

	if rel.HedgedItemType == "" || rel.HedgedItemType == hedge.HedgedItemNone {
		r.add("NO_HEDGED_ITEM_TYPE", "Hedged Item Type is required")
	}
	if rel.AssetLiability == "" || rel.AssetLiability == hedge.AssetLiabilityNone {
		r.add("NO_ASSET_LIABILITY", "Asset/Liability is required")
	}

	if rel.HedgeType == hedge.CashFlow && rel.OffMarket && !rel.HasAmortization(hedge.AmortizationSchedule) {
		r.add("NO_AMORTIZATION", "An Amortization schedule is required for off-market Cash Flow hedges")
	}
}

func checkBackload(r *Result, rel hedge.Relationship) {
	if rel.HasBatch(hedge.ResultBackload) {
		r.add("BACKLOAD_EXISTS", MsgBackloadExists)
	}
}

func noBenchmark(rel hedge.Relationship) bool {
	return rel.Benchmark == "" || rel.Benchmark == hedge.BenchmarkNone
}

func allOf(items []hedge.Item, types []string) bool {
	for _, it := range items {
		if !slices.Contains(types, it.SecurityType) {
			return false
		}
	}
	return true
}
