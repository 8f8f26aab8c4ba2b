package rules

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/hedger/hedge"
)

const DateLayout = "2006-01-02"

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrReadOnlyField = errors.New("field changes only through lifecycle transitions")
)

// Change is a single user edit of a named field.
type Change struct {
	Field string
	Value string
}

// ParseChange parses "field=value".
func ParseChange(s string) (Change, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return Change{}, fmt.Errorf("invalid change %q: want field=value", s)
	}
	return Change{Field: strings.TrimSpace(k), Value: strings.TrimSpace(v)}, nil
}

type setter func(r *hedge.Relationship, v string) error

var setters = map[string]setter{
	"description": func(r *hedge.Relationship, v string) error { r.Description = v; return nil },
	"bankentity":  func(r *hedge.Relationship, v string) error { r.BankEntity = v; return nil },
	"clientid":    func(r *hedge.Relationship, v string) error { r.ClientID = v; return nil },
	"exposurecurrency": func(r *hedge.Relationship, v string) error {
		r.ExposureCurrency = strings.ToUpper(v)
		return nil
	},
	"reportcurrency": func(r *hedge.Relationship, v string) error {
		r.ReportCurrency = strings.ToUpper(v)
		return nil
	},

	"hedgetype":                  enumSetter(hedge.HedgeTypes, func(r *hedge.Relationship, v hedge.HedgeType) { r.HedgeType = v }),
	"hedgerisktype":              enumSetter(SupportedRiskTypes, func(r *hedge.Relationship, v hedge.RiskType) { r.HedgeRiskType = v }),
	"hedgeexposure":              enumSetter(hedge.Exposures, func(r *hedge.Relationship, v hedge.Exposure) { r.HedgeExposure = v }),
	"hedgeditemtype":             enumSetter(hedge.HedgedItemTypes, func(r *hedge.Relationship, v hedge.HedgedItemType) { r.HedgedItemType = v }),
	"assetliability":             enumSetter(hedge.AssetLiabilities, func(r *hedge.Relationship, v hedge.AssetLiability) { r.AssetLiability = v }),
	"benchmark":                  enumSetter(hedge.Benchmarks, func(r *hedge.Relationship, v hedge.Benchmark) { r.Benchmark = v }),
	"hedgeaccountingtreatment":   enumSetter(hedge.AccountingTreatments, func(r *hedge.Relationship, v hedge.AccountingTreatment) { r.AccountingTreatment = v }),
	"amortizationmethod":         enumSetter(hedge.AmortizationMethods, func(r *hedge.Relationship, v hedge.AmortizationMethod) { r.AmortizationMethod = v }),
	"intrinsicmethod":            enumSetter(hedge.IntrinsicMethods, func(r *hedge.Relationship, v hedge.IntrinsicMethod) { r.IntrinsicMethod = v }),
	"fairvaluemethod":            enumSetter(hedge.FairValueMethods, func(r *hedge.Relationship, v hedge.FairValueMethod) { r.FairValueMethod = v }),
	"hedginginstrumentstructure": enumSetter(hedge.InstrumentStructures, func(r *hedge.Relationship, v hedge.InstrumentStructure) { r.HedgingInstrumentStructure = v }),
	"periodsize":                 enumSetter(hedge.PeriodSizes, func(r *hedge.Relationship, v hedge.PeriodSize) { r.PeriodSize = v }),

	"isanoptionhedge":        boolSetter(func(r *hedge.Relationship) *bool { return &r.IsAnOptionHedge }),
	"excludeintrinsicvalue":  boolSetter(func(r *hedge.Relationship) *bool { return &r.ExcludeIntrinsicValue }),
	"amortizeoptionpremimum": boolSetter(func(r *hedge.Relationship) *bool { return &r.AmortizeOptionPremimum }),
	"isdeltamatchoption":     boolSetter(func(r *hedge.Relationship) *bool { return &r.IsDeltaMatchOption }),
	"offmarket":              boolSetter(func(r *hedge.Relationship) *bool { return &r.OffMarket }),
	"shortcut":               boolSetter(func(r *hedge.Relationship) *bool { return &r.Shortcut }),
	"portfoliolayermethod":   boolSetter(func(r *hedge.Relationship) *bool { return &r.PortfolioLayerMethod }),
	"preissuancehedge":       boolSetter(func(r *hedge.Relationship) *bool { return &r.PreIssuanceHedge }),
	"qualitativeassessment":  boolSetter(func(r *hedge.Relationship) *bool { return &r.QualitativeAssessment }),
	"eom":                    boolSetter(func(r *hedge.Relationship) *bool { return &r.EOM }),

	"prospectiveeffectivenessmethodid":   intSetter(func(r *hedge.Relationship) *int { return &r.ProspectiveMethodID }),
	"retrospectiveeffectivenessmethodid": intSetter(func(r *hedge.Relationship) *int { return &r.RetrospectiveMethodID }),

	"optionpremium": func(r *hedge.Relationship, v string) error {
		if v == "" {
			r.OptionPremium = nil
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		r.OptionPremium = &f
		return nil
	},
	"designationdate":   dateSetter(func(r *hedge.Relationship) **time.Time { return &r.DesignationDate }),
	"dedesignationdate": dateSetter(func(r *hedge.Relationship) **time.Time { return &r.DedesignationDate }),

	"hedgestate": func(*hedge.Relationship, string) error { return ErrReadOnlyField },
}

// Apply returns a copy of rel with one field changed. Callers run Resolve on
// the result to recompute the dependents.
func Apply(rel hedge.Relationship, c Change) (hedge.Relationship, error) {
	set, ok := setters[strings.ToLower(c.Field)]
	if !ok {
		return rel, fmt.Errorf("%w: %s", ErrUnknownField, c.Field)
	}
	r := rel.Clone()
	if err := set(&r, c.Value); err != nil {
		return rel, fmt.Errorf("set %s: %w", c.Field, err)
	}
	return r, nil
}

// Fields lists the editable field names.
func Fields() []string {
	out := make([]string, 0, len(setters))
	for k := range setters {
		if k == "hedgestate" {
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func enumSetter[T ~string](set []T, assign func(*hedge.Relationship, T)) setter {
	return func(r *hedge.Relationship, v string) error {
		for _, s := range set {
			if strings.EqualFold(string(s), v) {
				assign(r, s)
				return nil
			}
		}
		return fmt.Errorf("invalid value %q", v)
	}
}

func boolSetter(field func(*hedge.Relationship) *bool) setter {
	return func(r *hedge.Relationship, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(r) = b
		return nil
	}
}

func intSetter(field func(*hedge.Relationship) *int) setter {
	return func(r *hedge.Relationship, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(r) = n
		return nil
	}
}

func dateSetter(field func(*hedge.Relationship) **time.Time) setter {
	return func(r *hedge.Relationship, v string) error {
		if v == "" {
			*field(r) = nil
			return nil
		}
		t, err := time.Parse(DateLayout, v)
		if err != nil {
			return err
		}
		*field(r) = &t
		return nil
	}
}
