// Package workflow runs user actions against a hedge relationship: it picks
// the transition, runs the guards, calls the backend and commits the
// backend's record.
package workflow

import (
	"context"

	"github.com/rustyeddy/hedger/guard"
	"github.com/rustyeddy/hedger/hedge"
)

// API is the hedge accounting backend. Records it returns are authoritative.
type API interface {
	Get(ctx context.Context, id string) (hedge.Relationship, error)
	Save(ctx context.Context, rel hedge.Relationship) (hedge.Relationship, error)
	RunRegression(ctx context.Context, rel hedge.Relationship, rt hedge.ResultType) (hedge.Relationship, error)
	FindDocumentTemplate(ctx context.Context, id string) (bool, error)
	Designate(ctx context.Context, rel hedge.Relationship) error
	RedesignateFetch(ctx context.Context, id string) (hedge.ReDesignation, error)
	RedesignateConfirm(ctx context.Context, id string, p hedge.ReDesignation) (hedge.Relationship, error)
	DedesignateFetch(ctx context.Context, id string, reason hedge.DedesignationReason) (hedge.DeDesignation, error)
	DedesignateConfirm(ctx context.Context, id string, p hedge.DeDesignation) (hedge.Relationship, error)
	Redraft(ctx context.Context, id string) (hedge.Relationship, error)
	DeleteAmortization(ctx context.Context, id, amortizationID string) error
	CheckAnalyticsAvailable(ctx context.Context) (bool, error)
}

// Confirmer resolves yes/no gates such as a dedesignation date close to the
// designation date or analytics being unavailable.
type Confirmer interface {
	Confirm(ctx context.Context, c guard.Confirmation) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, c guard.Confirmation) bool

func (f ConfirmFunc) Confirm(ctx context.Context, c guard.Confirmation) bool { return f(ctx, c) }

// AlwaysConfirm accepts every gate.
var AlwaysConfirm = ConfirmFunc(func(context.Context, guard.Confirmation) bool { return true })

// NeverConfirm declines every gate.
var NeverConfirm = ConfirmFunc(func(context.Context, guard.Confirmation) bool { return false })
