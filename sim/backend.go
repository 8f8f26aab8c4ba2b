// Package sim is an in-process hedge accounting backend. It implements
// workflow.API over a store so the CLI and API server can run without the
// real service.
package sim

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/hedger/hedge"
	"github.com/rustyeddy/hedger/pkg/id"
	"github.com/rustyeddy/hedger/store"
	"github.com/rustyeddy/hedger/workflow"
)

var (
	ErrState       = errors.New("hedge relationship is not in the required state")
	ErrNoTemplate  = errors.New("no documentation template")
	ErrBadReason   = errors.New("unknown dedesignation reason")
	ErrBadDate     = errors.New("dedesignation date must be after designation date")
	ErrBackloadRun = errors.New("backload already run")
)

// Store is what the backend needs from persistence.
type Store interface {
	Get(ctx context.Context, id string) (hedge.Relationship, error)
	Put(ctx context.Context, rel hedge.Relationship) (hedge.Relationship, error)
	HasTemplate(ctx context.Context, id string) (bool, error)
	RecordEvent(ctx context.Context, e store.Event) (store.Event, error)
}

// Options configures a Backend.
type Options struct {
	// Actor is recorded on journal events.
	Actor  string
	Logger *zap.Logger
	Now    func() time.Time
}

// Backend is an in-process workflow.API over a Store.
type Backend struct {
	mu        sync.Mutex
	store     Store
	actor     string
	analytics bool
	log       *zap.Logger
	now       func() time.Time
}

var _ workflow.API = (*Backend)(nil)

// New returns a Backend over st.
func New(st Store, opts Options) *Backend {
	b := &Backend{
		store:     st,
		actor:     opts.Actor,
		analytics: true,
		log:       opts.Logger,
		now:       opts.Now,
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.actor == "" {
		b.actor = "system"
	}
	return b
}

// SetAnalytics toggles what CheckAnalyticsAvailable reports.
func (b *Backend) SetAnalytics(up bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.analytics = up
}

func (b *Backend) today() time.Time {
	n := b.now().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

func (b *Backend) Get(ctx context.Context, hedgeID string) (hedge.Relationship, error) {
	return b.store.Get(ctx, hedgeID)
}

// Save stores the user's edits. State, amortizations and regression batches
// belong to the backend and are kept from the stored copy.
func (b *Backend) Save(ctx context.Context, rel hedge.Relationship) (hedge.Relationship, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.save(ctx, rel)
}

func (b *Backend) save(ctx context.Context, rel hedge.Relationship) (hedge.Relationship, error) {
	rel = rel.Clone()
	if rel.ID == "" {
		rel.HedgeState = hedge.Draft
		rel.Amortizations = nil
		rel.HedgeRegressionBatches = nil
		rel.LatestHedgeRegressionBatch = nil
		return b.store.Put(ctx, rel)
	}

	cur, err := b.store.Get(ctx, rel.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if rel.HedgeState == "" {
			rel.HedgeState = hedge.Draft
		}
	case err != nil:
		return hedge.Relationship{}, err
	default:
		rel.HedgeState = cur.HedgeState
		rel.Amortizations = cur.Amortizations
		rel.HedgeRegressionBatches = cur.HedgeRegressionBatches
		rel.LatestHedgeRegressionBatch = cur.LatestHedgeRegressionBatch
	}
	return b.store.Put(ctx, rel)
}

// RunRegression saves rel and appends a regression batch computed from its
// items.
func (b *Backend) RunRegression(ctx context.Context, rel hedge.Relationship, rt hedge.ResultType) (hedge.Relationship, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	saved, err := b.save(ctx, rel)
	if err != nil {
		return hedge.Relationship{}, err
	}
	if rt == hedge.ResultBackload && saved.HasBatch(hedge.ResultBackload) {
		return hedge.Relationship{}, fmt.Errorf("regression %s: %w", saved.ID, ErrBackloadRun)
	}

	st := Test(saved.HedgedItems, saved.HedgingItems)
	batch := hedge.RegressionBatch{
		ID:              id.Prefixed("RB"),
		HedgeResultType: rt,
		RunDate:         b.now().UTC(),
		Slope:           Round4(st.Slope),
		RSquared:        Round4(st.RSquared),
		OffsetRatio:     Round4(st.OffsetRatio),
		Effective:       st.Effective,
	}
	saved.HedgeRegressionBatches = append(saved.HedgeRegressionBatches, batch)
	saved.LatestHedgeRegressionBatch = &batch

	out, err := b.store.Put(ctx, saved)
	if err != nil {
		return hedge.Relationship{}, err
	}
	b.log.Info("regression run",
		zap.String("hedge_id", out.ID),
		zap.String("result_type", string(rt)),
		zap.Float64("offset_ratio", batch.OffsetRatio),
		zap.Float64("r_squared", batch.RSquared),
		zap.Bool("effective", batch.Effective),
	)
	action := "Regress"
	if rt == hedge.ResultBackload {
		action = "Backload"
	}
	b.event(ctx, out.ID, action, out.HedgeState, out.HedgeState, fmt.Sprintf("offset=%.4f r2=%.4f", batch.OffsetRatio, batch.RSquared))
	return out, nil
}

func (b *Backend) FindDocumentTemplate(ctx context.Context, hedgeID string) (bool, error) {
	return b.store.HasTemplate(ctx, hedgeID)
}

func (b *Backend) Designate(ctx context.Context, rel hedge.Relationship) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, err := b.load(ctx, rel.ID, "designate", hedge.Draft)
	if err != nil {
		return err
	}
	ok, err := b.store.HasTemplate(ctx, cur.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("designate %s: %w", cur.ID, ErrNoTemplate)
	}

	cur.HedgeState = hedge.Designated
	if cur.DesignationDate == nil {
		d := b.today()
		cur.DesignationDate = &d
	}
	if _, err := b.store.Put(ctx, cur); err != nil {
		return err
	}
	b.event(ctx, cur.ID, "Designate", hedge.Draft, hedge.Designated, "")
	return nil
}

func (b *Backend) RedesignateFetch(ctx context.Context, hedgeID string) (hedge.ReDesignation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, err := b.load(ctx, hedgeID, "redesignate", hedge.Designated)
	if err != nil {
		return hedge.ReDesignation{}, err
	}
	if cur.HedgeType != hedge.CashFlow {
		return hedge.ReDesignation{}, fmt.Errorf("redesignate %s: %w: cash flow only", hedgeID, ErrState)
	}
	today := b.today()
	return hedge.ReDesignation{
		HedgeID:                cur.ID,
		RedesignationDate:      today,
		Accrual:                accrual(cur, today),
		TimeValuesStartDate:    today,
		TimeValuesEndDate:      today.AddDate(1, 0, 0),
		AmortizeOptionPremimum: cur.AmortizeOptionPremimum,
	}, nil
}

func (b *Backend) RedesignateConfirm(ctx context.Context, hedgeID string, p hedge.ReDesignation) (hedge.Relationship, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, err := b.load(ctx, hedgeID, "redesignate", hedge.Designated)
	if err != nil {
		return hedge.Relationship{}, err
	}
	if cur.HedgeType != hedge.CashFlow {
		return hedge.Relationship{}, fmt.Errorf("redesignate %s: %w: cash flow only", hedgeID, ErrState)
	}
	if !p.RedesignationDate.IsZero() {
		d := p.RedesignationDate
		cur.DesignationDate = &d
	}
	cur.AmortizeOptionPremimum = p.AmortizeOptionPremimum

	out, err := b.store.Put(ctx, cur)
	if err != nil {
		return hedge.Relationship{}, err
	}
	b.event(ctx, out.ID, "Re-Designate", hedge.Designated, hedge.Designated,
		fmt.Sprintf("redesignated %s", p.RedesignationDate.Format(time.DateOnly)))
	return out, nil
}

func (b *Backend) DedesignateFetch(ctx context.Context, hedgeID string, reason hedge.DedesignationReason) (hedge.DeDesignation, error) {
	if !hedge.Valid(reason, hedge.DedesignationReasons) {
		return hedge.DeDesignation{}, fmt.Errorf("dedesignate %s: %w %q", hedgeID, ErrBadReason, reason)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cur, err := b.load(ctx, hedgeID, "dedesignate", hedge.Designated)
	if err != nil {
		return hedge.DeDesignation{}, err
	}
	today := b.today()
	p := hedge.DeDesignation{
		HedgeID:           cur.ID,
		Reason:            reason,
		DedesignationDate: today,
		Accrual:           accrual(cur, today),
		CashPaymentType:   "None",
	}
	if reason == hedge.ReasonTermination || reason == hedge.ReasonSale {
		p.CashPaymentType = "Settlement"
	}
	return p, nil
}

func (b *Backend) DedesignateConfirm(ctx context.Context, hedgeID string, p hedge.DeDesignation) (hedge.Relationship, error) {
	if !hedge.Valid(p.Reason, hedge.DedesignationReasons) {
		return hedge.Relationship{}, fmt.Errorf("dedesignate %s: %w %q", hedgeID, ErrBadReason, p.Reason)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cur, err := b.load(ctx, hedgeID, "dedesignate", hedge.Designated)
	if err != nil {
		return hedge.Relationship{}, err
	}
	when := p.DedesignationDate
	if when.IsZero() {
		when = b.today()
	}
	if cur.DesignationDate != nil && !when.After(*cur.DesignationDate) {
		return hedge.Relationship{}, fmt.Errorf("dedesignate %s: %w", hedgeID, ErrBadDate)
	}

	cur.HedgeState = hedge.Dedesignated
	cur.DedesignationDate = &when
	cur.IsAnOptionHedge = false

	out, err := b.store.Put(ctx, cur)
	if err != nil {
		return hedge.Relationship{}, err
	}
	b.event(ctx, out.ID, "De-Designate", hedge.Designated, hedge.Dedesignated, string(p.Reason))
	return out, nil
}

func (b *Backend) Redraft(ctx context.Context, hedgeID string) (hedge.Relationship, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, err := b.load(ctx, hedgeID, "redraft", hedge.Designated, hedge.Dedesignated)
	if err != nil {
		return hedge.Relationship{}, err
	}
	from := cur.HedgeState
	cur.HedgeState = hedge.Draft
	cur.DedesignationDate = nil

	out, err := b.store.Put(ctx, cur)
	if err != nil {
		return hedge.Relationship{}, err
	}
	b.event(ctx, out.ID, "Redraft", from, hedge.Draft, "")
	return out, nil
}

func (b *Backend) DeleteAmortization(ctx context.Context, hedgeID, amortizationID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, err := b.store.Get(ctx, hedgeID)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(cur.Amortizations, func(a hedge.Amortization) bool { return a.ID == amortizationID })
	if i < 0 {
		return fmt.Errorf("amortization %q: %w", amortizationID, store.ErrNotFound)
	}
	cur.Amortizations = slices.Delete(cur.Amortizations, i, i+1)
	_, err = b.store.Put(ctx, cur)
	return err
}

func (b *Backend) CheckAnalyticsAvailable(context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.analytics, nil
}

// load fetches a record and checks it is in one of states.
func (b *Backend) load(ctx context.Context, hedgeID, op string, states ...hedge.State) (hedge.Relationship, error) {
	cur, err := b.store.Get(ctx, hedgeID)
	if err != nil {
		return hedge.Relationship{}, fmt.Errorf("%s: %w", op, err)
	}
	if !slices.Contains(states, cur.HedgeState) {
		return hedge.Relationship{}, fmt.Errorf("%s %s: %w: is %s", op, hedgeID, ErrState, cur.HedgeState)
	}
	return cur, nil
}

// event journals a transition. A journal failure is logged, not returned:
// the transition itself already committed.
func (b *Backend) event(ctx context.Context, hedgeID, action string, from, to hedge.State, detail string) {
	_, err := b.store.RecordEvent(ctx, store.Event{
		HedgeID: hedgeID,
		Action:  action,
		From:    from,
		To:      to,
		Actor:   b.actor,
		Detail:  detail,
		At:      b.now().UTC(),
	})
	if err != nil {
		b.log.Warn("journal event failed", zap.String("hedge_id", hedgeID), zap.String("action", action), zap.Error(err))
	}
}

// accrual is simple interest on the hedging notional from designation to
// asOf, actual/360.
func accrual(rel hedge.Relationship, asOf time.Time) float64 {
	if rel.DesignationDate == nil || !asOf.After(*rel.DesignationDate) {
		return 0
	}
	days := asOf.Sub(*rel.DesignationDate).Hours() / 24
	var sum float64
	for _, it := range rel.HedgingItems {
		sum += it.Notional * it.Rate * days / 360
	}
	return Round4(sum)
}
