package workflow

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rustyeddy/hedger/hedge"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

var admin = hedge.User{Name: "alice", Roles: []int{hedge.RoleHedgeAdmin}}

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

func designated() hedge.Relationship {
	r := validDraft()
	r.HedgeState = hedge.Designated
	return r
}

// fakeAPI is an in-memory backend that records the order of calls.
type fakeAPI struct {
	mu        sync.Mutex
	recs      map[string]hedge.Relationship
	calls     []string
	template  bool
	analytics bool
	errs      map[string]error
	dedes     hedge.DeDesignation
	redes     hedge.ReDesignation

	// When set, Save signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func newFake(recs ...hedge.Relationship) *fakeAPI {
	f := &fakeAPI{
		recs:      map[string]hedge.Relationship{},
		template:  true,
		analytics: true,
		errs:      map[string]error{},
		dedes:     hedge.DeDesignation{DedesignationDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Payment: 100},
		redes:     hedge.ReDesignation{RedesignationDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, r := range recs {
		f.recs[r.ID] = r.Clone()
	}
	return f
}

func (f *fakeAPI) call(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.errs[op]
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeAPI) put(r hedge.Relationship) hedge.Relationship {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[r.ID] = r.Clone()
	return r.Clone()
}

func (f *fakeAPI) lookup(id string) (hedge.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recs[id]
	if !ok {
		return hedge.Relationship{}, fmt.Errorf("hedge %s not found", id)
	}
	return r.Clone(), nil
}

func (f *fakeAPI) Get(_ context.Context, id string) (hedge.Relationship, error) {
	if err := f.call("get"); err != nil {
		return hedge.Relationship{}, err
	}
	return f.lookup(id)
}

func (f *fakeAPI) Save(ctx context.Context, rel hedge.Relationship) (hedge.Relationship, error) {
	if err := f.call("save"); err != nil {
		return hedge.Relationship{}, err
	}
	if f.entered != nil {
		f.entered <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return hedge.Relationship{}, ctx.Err()
		}
	}
	if rel.ID == "" {
		rel.ID = "NEW"
	}
	return f.put(rel), nil
}

func (f *fakeAPI) RunRegression(_ context.Context, rel hedge.Relationship, rt hedge.ResultType) (hedge.Relationship, error) {
	if err := f.call("regression"); err != nil {
		return hedge.Relationship{}, err
	}
	b := hedge.RegressionBatch{ID: fmt.Sprintf("B%d", len(rel.HedgeRegressionBatches)+1), HedgeResultType: rt, RunDate: now}
	rel.HedgeRegressionBatches = append(rel.HedgeRegressionBatches, b)
	rel.LatestHedgeRegressionBatch = &b
	return f.put(rel), nil
}

func (f *fakeAPI) FindDocumentTemplate(context.Context, string) (bool, error) {
	if err := f.call("template"); err != nil {
		return false, err
	}
	return f.template, nil
}

func (f *fakeAPI) Designate(_ context.Context, rel hedge.Relationship) error {
	if err := f.call("designate"); err != nil {
		return err
	}
	rel.HedgeState = hedge.Designated
	f.put(rel)
	return nil
}

func (f *fakeAPI) RedesignateFetch(_ context.Context, id string) (hedge.ReDesignation, error) {
	if err := f.call("redesignate_fetch"); err != nil {
		return hedge.ReDesignation{}, err
	}
	p := f.redes
	p.HedgeID = id
	return p, nil
}

func (f *fakeAPI) RedesignateConfirm(_ context.Context, id string, p hedge.ReDesignation) (hedge.Relationship, error) {
	if err := f.call("redesignate_confirm"); err != nil {
		return hedge.Relationship{}, err
	}
	rel, err := f.lookup(id)
	if err != nil {
		return hedge.Relationship{}, err
	}
	rel.AmortizeOptionPremimum = p.AmortizeOptionPremimum
	return f.put(rel), nil
}

func (f *fakeAPI) DedesignateFetch(_ context.Context, id string, reason hedge.DedesignationReason) (hedge.DeDesignation, error) {
	if err := f.call("dedesignate_fetch"); err != nil {
		return hedge.DeDesignation{}, err
	}
	p := f.dedes
	p.HedgeID, p.Reason = id, reason
	return p, nil
}

func (f *fakeAPI) DedesignateConfirm(_ context.Context, id string, p hedge.DeDesignation) (hedge.Relationship, error) {
	if err := f.call("dedesignate_confirm"); err != nil {
		return hedge.Relationship{}, err
	}
	rel, err := f.lookup(id)
	if err != nil {
		return hedge.Relationship{}, err
	}
	rel.HedgeState = hedge.Dedesignated
	dd := p.DedesignationDate
	rel.DedesignationDate = &dd
	return f.put(rel), nil
}

func (f *fakeAPI) Redraft(_ context.Context, id string) (hedge.Relationship, error) {
	if err := f.call("redraft"); err != nil {
		return hedge.Relationship{}, err
	}
	rel, err := f.lookup(id)
	if err != nil {
		return hedge.Relationship{}, err
	}
	rel.HedgeState = hedge.Draft
	rel.DedesignationDate = nil
	return f.put(rel), nil
}

func (f *fakeAPI) DeleteAmortization(_ context.Context, id, amortizationID string) error {
	if err := f.call("delete_amortization"); err != nil {
		return err
	}
	rel, err := f.lookup(id)
	if err != nil {
		return err
	}
	rel.Amortizations = slices.DeleteFunc(rel.Amortizations, func(a hedge.Amortization) bool { return a.ID == amortizationID })
	f.put(rel)
	return nil
}

func (f *fakeAPI) CheckAnalyticsAvailable(context.Context) (bool, error) {
	if err := f.call("analytics"); err != nil {
		return false, err
	}
	return f.analytics, nil
}

func newDispatcher(api API, user hedge.User, c Confirmer) *Dispatcher {
	return New(Config{
		API:       api,
		User:      user,
		Confirmer: c,
		Now:       func() time.Time { return now },
	})
}
