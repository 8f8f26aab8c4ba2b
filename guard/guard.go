// Package guard validates a hedge relationship before a workflow transition.
//
// Evaluate never stops at the first failure: every violated rule is reported
// so the user can fix them in one pass. Soft checks that only need the user's
// acknowledgement are returned as Confirmations, never as Violations.
package guard

import (
	"fmt"
	"time"

	"github.com/rustyeddy/hedger/hedge"
)

// Transition names a guarded workflow step.
type Transition string

const (
	Save        Transition = "Save"
	Regress     Transition = "Regress"
	Backload    Transition = "Backload"
	Designate   Transition = "Designate"
	DeDesignate Transition = "De-Designate"
	ReDesignate Transition = "Re-Designate"
	Redraft     Transition = "Redraft"
)

// Violation is a rule that blocks the transition.
type Violation struct {
	Code string
	Msg  string
}

// Confirmation is a yes/no gate the caller must resolve before proceeding.
type Confirmation struct {
	Code string
	Msg  string
}

// Result collects the violations and confirmations of one evaluation.
type Result struct {
	Violations    []Violation
	Confirmations []Confirmation
}

func (r *Result) add(code, msg string) {
	for _, v := range r.Violations {
		if v.Msg == msg {
			return
		}
	}
	r.Violations = append(r.Violations, Violation{Code: code, Msg: msg})
}

func (r *Result) confirm(code, msg string) {
	for _, c := range r.Confirmations {
		if c.Code == code {
			return
		}
	}
	r.Confirmations = append(r.Confirmations, Confirmation{Code: code, Msg: msg})
}

// OK reports whether no rule was violated. Pending confirmations do not
// make a result fail.
func (r Result) OK() bool { return len(r.Violations) == 0 }

// Messages returns the violation messages in evaluation order.
func (r Result) Messages() []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.Msg
	}
	return out
}

// Inputs carries what the rules need beyond the record.
type Inputs struct {
	Now time.Time
	// WarnMonths is the window after designation in which a dedesignation
	// date asks for confirmation. Zero means 3.
	WarnMonths int
	Reason     hedge.DedesignationReason
}

func (in Inputs) warnMonths() int {
	if in.WarnMonths <= 0 {
		return 3
	}
	return in.WarnMonths
}

func (in Inputs) today() time.Time {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Evaluate runs the rules for t against rel.
func Evaluate(t Transition, rel hedge.Relationship, in Inputs) Result {
	var r Result

	switch t {
	case Save:
		checkSave(&r, rel, in)
	case Regress:
		checkRegress(&r, rel)
	case Backload:
		checkRegress(&r, rel)
		checkBackload(&r, rel)
	case Designate:
		if rel.HedgeState != hedge.Draft {
			r.add("NOT_DRAFT", "Only Draft hedge relationships can be designated")
		}
		checkSave(&r, rel, in)
		checkRegress(&r, rel)
		checkDesignate(&r, rel)
	case DeDesignate:
		if rel.HedgeState != hedge.Designated {
			r.add("NOT_DESIGNATED", "Only Designated hedge relationships can be de-designated")
		}
		if in.Reason == "" || in.Reason == hedge.ReasonNone {
			r.add("NO_REASON", "Dedesignation Reason is required")
		} else if !hedge.Valid(in.Reason, hedge.DedesignationReasons) {
			r.add("BAD_REASON", fmt.Sprintf("Unknown Dedesignation Reason %q", in.Reason))
		}
		checkDedesignationDate(&r, rel, in)
	case ReDesignate:
		if rel.HedgeState != hedge.Designated {
			r.add("NOT_DESIGNATED", "Only Designated hedge relationships can be re-designated")
		}
		if rel.HedgeType != hedge.CashFlow {
			r.add("NOT_CASH_FLOW", "Only Cash Flow hedge relationships can be re-designated")
		}
	case Redraft:
	default:
		r.add("UNKNOWN_TRANSITION", fmt.Sprintf("Unknown transition %q", t))
	}

	return r
}

// EvaluateAll merges the results of several transitions, suppressing
// messages already reported by an earlier one.
func EvaluateAll(rel hedge.Relationship, in Inputs, ts ...Transition) Result {
	var out Result
	for _, t := range ts {
		res := Evaluate(t, rel, in)
		for _, v := range res.Violations {
			out.add(v.Code, v.Msg)
		}
		for _, c := range res.Confirmations {
			out.confirm(c.Code, c.Msg)
		}
	}
	return out
}
