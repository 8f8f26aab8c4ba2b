package guard

import (
	"testing"
	"time"

	"github.com/rustyeddy/hedger/hedge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func ptr(f float64) *float64 { return &f }

// validDraft passes every Designate rule.
func validDraft() hedge.Relationship {
	r := hedge.New("H1")
	r.BankEntity = "First National"
	r.DesignationDate = date(2024, 1, 15)
	r.HedgeType = hedge.CashFlow
	r.HedgeRiskType = hedge.InterestRate
	r.Benchmark = hedge.SOFR
	r.HedgedItemType = hedge.Forecasted
	r.AssetLiability = hedge.Liability
	r.ReportCurrency = "USD"
	r.ProspectiveMethodID = 2
	r.RetrospectiveMethodID = 2
	r.HedgedItems = []hedge.Item{{ItemID: "D1", SecurityType: "Debt", Notional: 1e6, ItemStatus: hedge.StatusHA}}
	r.HedgingItems = []hedge.Item{{ItemID: "S1", SecurityType: "Swap", Notional: 1e6, ItemStatus: hedge.StatusValidated}}
	return r
}

func TestValidDraftPassesEverything(t *testing.T) {
	t.Parallel()

	for _, tr := range []Transition{Save, Regress, Backload, Designate, Redraft} {
		res := Evaluate(tr, validDraft(), Inputs{Now: now})
		assert.True(t, res.OK(), "%s: %v", tr, res.Messages())
		assert.Empty(t, res.Confirmations, tr)
	}
}

func TestDedesignationDateOrder(t *testing.T) {
	t.Parallel()

	mutations := map[string]func(r *hedge.Relationship){
		"valid otherwise": func(r *hedge.Relationship) {},
		"same day": func(r *hedge.Relationship) {
			r.DedesignationDate = r.DesignationDate
		},
		"no bank entity": func(r *hedge.Relationship) { r.BankEntity = "" },
		"option hedge":   func(r *hedge.Relationship) { r.IsAnOptionHedge = true },
		"no items": func(r *hedge.Relationship) {
			r.HedgedItems = nil
			r.HedgingItems = nil
		},
	}

	for name, mutate := range mutations {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			r := validDraft()
			r.DedesignationDate = date(2024, 1, 10)
			mutate(&r)
			res := Evaluate(Designate, r, Inputs{Now: now})
			assert.Contains(t, res.Messages(), MsgDedesignationOrder)
		})
	}
}

func TestDedesignationNearDesignationNeedsConfirmation(t *testing.T) {
	t.Parallel()

	r := validDraft()
	r.DedesignationDate = date(2024, 3, 1)

	res := Evaluate(Save, r, Inputs{Now: now})
	assert.True(t, res.OK())
	require.Len(t, res.Confirmations, 1)
	assert.Equal(t, "DEDESIGNATION_NEAR", res.Confirmations[0].Code)

	r.DedesignationDate = date(2024, 5, 1)
	res = Evaluate(Save, r, Inputs{Now: now})
	assert.True(t, res.OK())
	assert.Empty(t, res.Confirmations)

	res = Evaluate(Save, r, Inputs{Now: now, WarnMonths: 6})
	assert.Len(t, res.Confirmations, 1)
}

func TestSaveRequiredFields(t *testing.T) {
	t.Parallel()

	r := validDraft()
	r.BankEntity = ""
	r.DesignationDate = nil

	res := Evaluate(Save, r, Inputs{Now: now})
	assert.Equal(t, []string{"Bank Entity is required", "Designation Date is required"}, res.Messages())

	r = validDraft()
	r.DesignationDate = date(2024, 6, 2)
	res = Evaluate(Save, r, Inputs{Now: now})
	assert.Equal(t, []string{"Designation Date cannot be later than today"}, res.Messages())

	r.DesignationDate = date(2024, 6, 1)
	assert.True(t, Evaluate(Save, r, Inputs{Now: now}).OK())
}

func TestShortcutAndStructure(t *testing.T) {
	t.Parallel()

	r := validDraft()
	r.HedgeType = hedge.FairValue
	r.Shortcut = true
	r.QualitativeAssessment = true
	r.PortfolioLayerMethod = true
	r.HedgingItems = append(r.HedgingItems, hedge.Item{ItemID: "S2", SecurityType: "Swap", ItemStatus: hedge.StatusValidated})

	res := Evaluate(Save, r, Inputs{Now: now})
	codes := []string{}
	for _, v := range res.Violations {
		codes = append(codes, v.Code)
	}
	assert.Equal(t, []string{"SHORTCUT_QUALITATIVE", "SHORTCUT_PORTFOLIO", "SINGLE_INSTRUMENT"}, codes)

	r.HedgingInstrumentStructure = hedge.MultipleInstruments
	r.Shortcut = false
	assert.True(t, Evaluate(Save, r, Inputs{Now: now}).OK())
}

func TestOptionItemTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		hedged  string
		hedging string
		want    []string
	}{
		{"hedged swap", "Swap", "Swaption", []string{MsgOptionHedged}},
		{"hedging debt", "Debt", "Debt", []string{MsgOptionHedging}},
		{"both wrong", "Swap", "Swap", []string{MsgOptionBoth}},
		{"both fine", "Collar", "CapFloor", nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := validDraft()
			r.IsAnOptionHedge = true
			r.OptionPremium = ptr(2500)
			r.HedgedItems[0].SecurityType = tt.hedged
			r.HedgingItems[0].SecurityType = tt.hedging

			res := Evaluate(Save, r, Inputs{Now: now})
			if tt.want == nil {
				assert.True(t, res.OK(), res.Messages())
				return
			}
			assert.Equal(t, tt.want, res.Messages())
		})
	}
}

func TestOptionPremium(t *testing.T) {
	t.Parallel()

	r := validDraft()
	r.IsAnOptionHedge = true
	r.HedgedItems[0].SecurityType = "Swaption"
	r.HedgingItems[0].SecurityType = "Swaption"

	res := Evaluate(Regress, r, Inputs{Now: now})
	assert.Equal(t, []string{"Option Premium is required for option hedges"}, res.Messages())

	r.OptionPremium = ptr(-1)
	res = Evaluate(Regress, r, Inputs{Now: now})
	assert.Equal(t, []string{"Option Premium must be zero or greater"}, res.Messages())

	r.OptionPremium = ptr(0)
	assert.True(t, Evaluate(Regress, r, Inputs{Now: now}).OK())
}

func TestDesignateDoesNotRepeatSharedOptionMessages(t *testing.T) {
	t.Parallel()

	r := validDraft()
	r.IsAnOptionHedge = true
	r.OptionPremium = ptr(1)

	r.HedgedItems = append(r.HedgedItems, hedge.Item{ItemID: "D2", SecurityType: "Swap", ItemStatus: hedge.StatusHA})

	res := Evaluate(Designate, r, Inputs{Now: now})
	assert.Equal(t, []string{MsgOptionBoth}, res.Messages())
}

func TestRegressAccumulates(t *testing.T) {
	t.Parallel()

	res := Evaluate(Regress, hedge.New("H"), Inputs{Now: now})
	assert.Equal(t, []string{
		"Prospective Effectiveness Method is required",
		"Retrospective Effectiveness Method is required",
		"At least one Hedged Item is required",
		"At least one Hedging Item is required",
		"Report Currency is required",
	}, res.Messages())
}

func TestDesignateItemStatusCollapses(t *testing.T) {
	t.Parallel()

	r := validDraft()
	r.HedgedItems = []hedge.Item{
		{ItemID: "D1", SecurityType: "Debt", ItemStatus: hedge.StatusDraft},
		{ItemID: "D2", SecurityType: "Debt", ItemStatus: hedge.StatusDraft},
	}
	r.HedgingItems[0].ItemStatus = hedge.StatusDraft

	res := Evaluate(Designate, r, Inputs{Now: now})
	assert.Equal(t, []string{MsgHedgedStatus, MsgHedgingStatus}, res.Messages())
}

func TestDesignateClassification(t *testing.T) {
	t.Parallel()

	t.Run("missing everything", func(t *testing.T) {
		r := validDraft()
		r.HedgeType = hedge.HedgeTypeNone
		r.HedgedItemType = hedge.HedgedItemNone
		r.AssetLiability = hedge.AssetLiabilityNone
		res := Evaluate(Designate, r, Inputs{Now: now})
		assert.Equal(t, []string{"Hedge Type is required", "Hedged Item Type is required", "Asset/Liability is required"}, res.Messages())
	})

	t.Run("fair value", func(t *testing.T) {
		r := validDraft()
		r.HedgeType = hedge.FairValue
		r.Benchmark = hedge.BenchmarkNone
		res := Evaluate(Designate, r, Inputs{Now: now})
		assert.Equal(t, []string{"Fair Value Method is required", "Benchmark is required"}, res.Messages())
	})

	t.Run("interest rate cash flow uses contractual rate label", func(t *testing.T) {
		r := validDraft()
		r.Benchmark = hedge.BenchmarkNone
		res := Evaluate(Designate, r, Inputs{Now: now})
		assert.Equal(t, []string{"Contractual Rate is required"}, res.Messages())
	})

	t.Run("fx cash flow needs no benchmark", func(t *testing.T) {
		r := validDraft()
		r.HedgeRiskType = hedge.ForeignExchange
		r.Benchmark = hedge.BenchmarkNone
		assert.True(t, Evaluate(Designate, r, Inputs{Now: now}).OK())
	})

	t.Run("off market needs amortization", func(t *testing.T) {
		r := validDraft()
		r.OffMarket = true
		res := Evaluate(Designate, r, Inputs{Now: now})
		assert.Equal(t, []string{"An Amortization schedule is required for off-market Cash Flow hedges"}, res.Messages())

		r.Amortizations = []hedge.Amortization{{ID: "A1", Type: hedge.AmortizationSchedule}}
		assert.True(t, Evaluate(Designate, r, Inputs{Now: now}).OK())
	})

	t.Run("already designated", func(t *testing.T) {
		r := validDraft()
		r.HedgeState = hedge.Designated
		res := Evaluate(Designate, r, Inputs{Now: now})
		assert.Equal(t, []string{"Only Draft hedge relationships can be designated"}, res.Messages())
	})
}

func TestBackload(t *testing.T) {
	t.Parallel()

	r := validDraft()
	r.HedgeRegressionBatches = []hedge.RegressionBatch{{ID: "B1", HedgeResultType: hedge.ResultUser}}
	assert.True(t, Evaluate(Backload, r, Inputs{Now: now}).OK())

	r.HedgeRegressionBatches = append(r.HedgeRegressionBatches, hedge.RegressionBatch{ID: "B2", HedgeResultType: hedge.ResultBackload})
	res := Evaluate(Backload, r, Inputs{Now: now})
	assert.Equal(t, []string{MsgBackloadExists}, res.Messages())
}

func TestDeDesignateAndReDesignate(t *testing.T) {
	t.Parallel()

	r := validDraft()
	res := Evaluate(DeDesignate, r, Inputs{Now: now})
	assert.Equal(t, []string{
		"Only Designated hedge relationships can be de-designated",
		"Dedesignation Reason is required",
	}, res.Messages())

	r.HedgeState = hedge.Designated
	assert.True(t, Evaluate(DeDesignate, r, Inputs{Now: now, Reason: hedge.ReasonSale}).OK())
	assert.False(t, Evaluate(DeDesignate, r, Inputs{Now: now, Reason: "Bored"}).OK())

	assert.True(t, Evaluate(ReDesignate, r, Inputs{Now: now}).OK())
	r.HedgeType = hedge.FairValue
	res = Evaluate(ReDesignate, r, Inputs{Now: now})
	assert.Equal(t, []string{"Only Cash Flow hedge relationships can be re-designated"}, res.Messages())
}

func TestUnknownTransition(t *testing.T) {
	t.Parallel()

	res := Evaluate("Explode", validDraft(), Inputs{Now: now})
	assert.False(t, res.OK())
}

func TestUnsupportedRiskTypeBlocksSaveAndDesignate(t *testing.T) {
	t.Parallel()

	for _, rt := range []hedge.RiskType{hedge.Credit, hedge.MarketPrice} {
		r := validDraft()
		r.HedgeRiskType = rt

		res := EvaluateAll(r, Inputs{Now: now}, Save, Designate)
		require.False(t, res.OK(), rt)
		assert.Equal(t, "UNSUPPORTED_RISK_TYPE", res.Violations[0].Code)
		assert.Contains(t, res.Messages(), "Hedge Risk Type "+string(rt)+" is not supported")
	}
}

func TestUnknownClassificationValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*hedge.Relationship)
		msg    string
	}{
		{"hedge type", func(r *hedge.Relationship) { r.HedgeType = "Bogus" }, `Hedge Type "Bogus" is not a known value`},
		{"benchmark", func(r *hedge.Relationship) { r.Benchmark = "LIBOR" }, `Benchmark "LIBOR" is not a known value`},
		{"exposure", func(r *hedge.Relationship) { r.HedgeExposure = "Weather" }, `Hedge Exposure "Weather" is not a known value`},
		{"period size", func(r *hedge.Relationship) { r.PeriodSize = "Decade" }, `Period Size "Decade" is not a known value`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := validDraft()
			tt.mutate(&r)
			for _, tr := range []Transition{Save, Designate} {
				res := Evaluate(tr, r, Inputs{Now: now})
				assert.False(t, res.OK(), tr)
				assert.Contains(t, res.Messages(), tt.msg, tr)
			}
		})
	}

	r := validDraft()
	r.HedgingInstrumentStructure = hedge.StructureNone
	r.HedgeType = ""
	assert.True(t, Evaluate(Save, r, Inputs{Now: now}).OK())
}
