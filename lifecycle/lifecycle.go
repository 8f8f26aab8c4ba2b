// Package lifecycle is the state machine over a hedge relationship's
// HedgeState. It decides which actions are offered; package guard decides
// whether an offered action may run.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/hedger/hedge"
)

// Action is a lifecycle transition a user can pick.
type Action string

const (
	Designate   Action = "Designate"
	DeDesignate Action = "De-Designate"
	ReDesignate Action = "Re-Designate"
	Redraft     Action = "Redraft"
)

var Actions = []Action{Designate, DeDesignate, ReDesignate, Redraft}

// Roles allowed to run any lifecycle action.
var Roles = []int{hedge.RoleHedgeAdmin, hedge.RoleHedgeAccountant, hedge.RoleAdministrator}

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrIllegal       = errors.New("transition not available")
)

// RoleChecker answers role lookups for the acting user.
type RoleChecker interface {
	HasRole(roleID int) bool
}

// Condition further restricts a transition beyond its source state.
type Condition func(rel hedge.Relationship) bool

// Transition is one edge of the machine.
type Transition struct {
	From hedge.State
	On   Action
	To   hedge.State
	When Condition
}

type Key struct {
	From hedge.State
	On   Action
}

func cashFlowOnly(rel hedge.Relationship) bool { return rel.HedgeType == hedge.CashFlow }

// Table lists the transitions in the order actions are offered.
//
//	Draft        -> Designated   (Designate)
//	Designated   -> Draft        (Redraft)
//	Designated   -> Dedesignated (De-Designate)
//	Designated   -> Designated   (Re-Designate, cash flow only)
//	Dedesignated -> Draft        (Redraft)
var Table = []Transition{
	{From: hedge.Draft, On: Designate, To: hedge.Designated},
	{From: hedge.Designated, On: Redraft, To: hedge.Draft},
	{From: hedge.Designated, On: DeDesignate, To: hedge.Dedesignated},
	{From: hedge.Designated, On: ReDesignate, To: hedge.Designated, When: cashFlowOnly},
	{From: hedge.Dedesignated, On: Redraft, To: hedge.Draft},
}

var index = func() map[Key]Transition {
	m := make(map[Key]Transition, len(Table))
	for _, t := range Table {
		m[Key{t.From, t.On}] = t
	}
	return m
}()

// Option is an action as offered to the user.
type Option struct {
	Action  Action `json:"action"`
	Enabled bool   `json:"enabled"`
}

// Available returns the actions offered for rel. Actions are present for any
// user but enabled only for holders of one of Roles.
func Available(rel hedge.Relationship, rc RoleChecker) []Option {
	enabled := Authorized(rc)
	out := []Option{}
	for _, t := range Table {
		if t.From != rel.HedgeState {
			continue
		}
		if t.When != nil && !t.When(rel) {
			continue
		}
		out = append(out, Option{Action: t.On, Enabled: enabled})
	}
	return out
}

// Legal reports whether a is offered for rel, ignoring roles.
func Legal(rel hedge.Relationship, a Action) bool {
	t, ok := index[Key{rel.HedgeState, a}]
	if !ok {
		return false
	}
	return t.When == nil || t.When(rel)
}

// Authorized reports whether rc holds one of Roles.
func Authorized(rc RoleChecker) bool {
	if rc == nil {
		return false
	}
	for _, id := range Roles {
		if rc.HasRole(id) {
			return true
		}
	}
	return false
}

// Target returns the state rel moves to on a.
func Target(rel hedge.Relationship, a Action) (hedge.State, error) {
	if !Legal(rel, a) {
		return "", fmt.Errorf("%w: %s from %s", ErrIllegal, a, rel.HedgeState)
	}
	return index[Key{rel.HedgeState, a}].To, nil
}

// ParseAction maps a UI action name to an Action. Matching ignores case,
// spaces and hyphens, so "dedesignate" and "De-Designate" are the same.
func ParseAction(name string) (Action, error) {
	n := normalize(name)
	for _, a := range Actions {
		if normalize(string(a)) == n {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}
