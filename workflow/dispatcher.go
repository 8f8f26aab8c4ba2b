package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/rustyeddy/hedger/guard"
	"github.com/rustyeddy/hedger/hedge"
	"github.com/rustyeddy/hedger/lifecycle"
	"github.com/rustyeddy/hedger/metrics"
	"github.com/rustyeddy/hedger/rules"
)

// Action is anything a user can dispatch against a record: the edit actions
// plus the lifecycle transitions.
type Action string

const (
	Save        Action = "Save"
	Regress     Action = "Regress"
	Backload    Action = "Backload"
	Designate   Action = Action(lifecycle.Designate)
	DeDesignate Action = Action(lifecycle.DeDesignate)
	ReDesignate Action = Action(lifecycle.ReDesignate)
	Redraft     Action = Action(lifecycle.Redraft)
)

var Actions = []Action{Save, Regress, Backload, Designate, DeDesignate, ReDesignate, Redraft}

// ParseAction accepts the same spellings as lifecycle.ParseAction.
func ParseAction(name string) (Action, error) {
	for _, a := range []Action{Save, Regress, Backload} {
		if normalizeName(name) == normalizeName(string(a)) {
			return a, nil
		}
	}
	la, err := lifecycle.ParseAction(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return Action(la), nil
}

var nameReplacer = strings.NewReplacer("-", "", " ", "")

func normalizeName(s string) string {
	return nameReplacer.Replace(strings.ToLower(s))
}

const msgNoTemplate = "A hedge documentation template must exist before this action"

const (
	confirmAnalytics = "ANALYTICS_UNAVAILABLE"
	msgAnalytics     = "The analytics service is unavailable. Do you want to continue?"
)

// Config wires a Dispatcher. Only API is required.
type Config struct {
	API       API
	User      hedge.User
	Confirmer Confirmer
	Methods   []hedge.EffectivenessMethod
	// WarnMonths is passed to the guards; zero means their default.
	WarnMonths int
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// Dispatcher runs actions against the backend. It is safe for concurrent
// use; at most one action per record runs at a time.
type Dispatcher struct {
	api     API
	user    hedge.User
	confirm Confirmer
	methods []hedge.EffectivenessMethod
	warn    int
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]*semaphore.Weighted
}

func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		api:      cfg.API,
		user:     cfg.User,
		confirm:  cfg.Confirmer,
		methods:  cfg.Methods,
		warn:     cfg.WarnMonths,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
		inflight: make(map[string]*semaphore.Weighted),
	}
	if d.confirm == nil {
		d.confirm = NeverConfirm
	}
	if d.methods == nil {
		d.methods = hedge.DefaultMethods
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Request is one dispatch.
type Request struct {
	Action Action
	Record hedge.Relationship
	// Reason is required for De-Designate unless DeDesignation carries one.
	Reason hedge.DedesignationReason
	// DeDesignation and ReDesignation are sub-records the user already
	// reviewed. When nil the dispatcher fetches them from the backend.
	DeDesignation *hedge.DeDesignation
	ReDesignation *hedge.ReDesignation
	// FetchedFor is the reason DeDesignation was looked up with. When the
	// reason being confirmed differs, the lookup runs again for it. Empty
	// means the payload's own reason.
	FetchedFor hedge.DedesignationReason
	// Current reports whether the caller still wants the result. A false
	// answer at commit time discards the backend's response.
	Current func() bool
}

// Outcome is the committed record and its derived view.
type Outcome struct {
	Record hedge.Relationship
	View   rules.View
}

// Env returns the resolve environment for the dispatcher's user.
func (d *Dispatcher) Env() rules.Env {
	return rules.Env{Methods: d.methods, DPI: d.user.DPI}
}

// Resolve normalizes rel for the dispatcher's user.
func (d *Dispatcher) Resolve(rel hedge.Relationship) Outcome {
	rec, view := rules.Resolve(rel, d.Env())
	return Outcome{Record: rec, View: view}
}

// Available lists the lifecycle actions offered for rel.
func (d *Dispatcher) Available(rel hedge.Relationship) []lifecycle.Option {
	return lifecycle.Available(rel, d.user)
}

func (d *Dispatcher) acquire(id string) (func(), bool) {
	d.mu.Lock()
	sem, ok := d.inflight[id]
	if !ok {
		sem = semaphore.NewWeighted(1)
		d.inflight[id] = sem
	}
	d.mu.Unlock()

	if !sem.TryAcquire(1) {
		return nil, false
	}
	return func() { sem.Release(1) }, true
}

// Dispatch runs req.Action. On any error the backend's state may have
// advanced (a pre-save, say) but nothing is returned for the caller to
// commit.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (out *Outcome, err error) {
	start := time.Now()
	log := d.log.With(zap.String("hedge_id", req.Record.ID), zap.String("action", string(req.Action)))

	release, ok := d.acquire(req.Record.ID)
	if !ok {
		d.observe(req.Action, ErrBusy, start)
		return nil, ErrBusy
	}
	defer release()

	d.metrics.Begin()
	defer d.metrics.End()
	defer func() {
		d.observe(req.Action, err, start)
		d.report(log, err, start)
	}()

	rel := rules.Normalize(req.Record)

	var server hedge.Relationship
	switch req.Action {
	case Save:
		server, err = d.save(ctx, rel)
	case Regress:
		server, err = d.regress(ctx, rel, guard.Regress, hedge.ResultUser)
	case Backload:
		server, err = d.regress(ctx, rel, guard.Backload, hedge.ResultBackload)
	case Designate:
		server, err = d.designate(ctx, rel)
	case DeDesignate:
		server, err = d.dedesignate(ctx, rel, req)
	case ReDesignate:
		server, err = d.redesignate(ctx, rel, req.ReDesignation)
	case Redraft:
		server, err = d.redraft(ctx, rel)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	if err != nil {
		return nil, err
	}

	if req.Current != nil && !req.Current() {
		return nil, ErrStale
	}
	o := d.Resolve(server)
	return &o, nil
}

// BeginDeDesignation checks that rel may be de-designated for reason and
// fetches the backend's proposed sub-record for the user to review.
func (d *Dispatcher) BeginDeDesignation(ctx context.Context, rel hedge.Relationship, reason hedge.DedesignationReason) (hedge.DeDesignation, error) {
	release, ok := d.acquire(rel.ID)
	if !ok {
		return hedge.DeDesignation{}, ErrBusy
	}
	defer release()

	if err := d.available(rel, DeDesignate); err != nil {
		return hedge.DeDesignation{}, err
	}
	if res := guard.Evaluate(guard.DeDesignate, rel, d.inputs(reason)); !res.OK() {
		return hedge.DeDesignation{}, &ValidationError{Action: DeDesignate, Messages: res.Messages()}
	}
	p, err := d.api.DedesignateFetch(ctx, rel.ID, reason)
	if err != nil {
		return hedge.DeDesignation{}, remote("dedesignate fetch", err)
	}
	if p.Reason == "" {
		p.Reason = reason
	}
	return p, nil
}

// BeginReDesignation checks the template, saves pending edits and fetches
// the backend's proposed sub-record. The saved record is returned with it.
func (d *Dispatcher) BeginReDesignation(ctx context.Context, rel hedge.Relationship) (hedge.ReDesignation, *Outcome, error) {
	release, ok := d.acquire(rel.ID)
	if !ok {
		return hedge.ReDesignation{}, nil, ErrBusy
	}
	defer release()

	rel = rules.Normalize(rel)
	saved, err := d.prepareRedesignation(ctx, rel)
	if err != nil {
		return hedge.ReDesignation{}, nil, err
	}
	p, err := d.api.RedesignateFetch(ctx, saved.ID)
	if err != nil {
		return hedge.ReDesignation{}, nil, remote("redesignate fetch", err)
	}
	o := d.Resolve(saved)
	return p, &o, nil
}

func (d *Dispatcher) save(ctx context.Context, rel hedge.Relationship) (hedge.Relationship, error) {
	if err := d.check(ctx, Save, rel, "", guard.Save); err != nil {
		return hedge.Relationship{}, err
	}
	saved, err := d.api.Save(ctx, rel)
	return saved, remote("save", err)
}

func (d *Dispatcher) regress(ctx context.Context, rel hedge.Relationship, t guard.Transition, rt hedge.ResultType) (hedge.Relationship, error) {
	a := Action(t)
	if err := d.check(ctx, a, rel, "", t); err != nil {
		return hedge.Relationship{}, err
	}
	if err := d.analytics(ctx); err != nil {
		return hedge.Relationship{}, err
	}
	out, err := d.api.RunRegression(ctx, rel, rt)
	return out, remote("regression", err)
}

func (d *Dispatcher) designate(ctx context.Context, rel hedge.Relationship) (hedge.Relationship, error) {
	if err := d.available(rel, Designate); err != nil {
		return hedge.Relationship{}, err
	}
	if err := d.check(ctx, Designate, rel, "", guard.Designate); err != nil {
		return hedge.Relationship{}, err
	}
	if err := d.analytics(ctx); err != nil {
		return hedge.Relationship{}, err
	}
	if err := d.template(ctx, Designate, rel.ID); err != nil {
		return hedge.Relationship{}, err
	}
	saved, err := d.api.Save(ctx, rel)
	if err != nil {
		return hedge.Relationship{}, remote("save", err)
	}
	if err := d.api.Designate(ctx, saved); err != nil {
		return hedge.Relationship{}, remote("designate", err)
	}
	// Designate answers with nothing; the backend's record is re-read.
	out, err := d.api.Get(ctx, saved.ID)
	return out, remote("get", err)
}

func (d *Dispatcher) dedesignate(ctx context.Context, rel hedge.Relationship, req Request) (hedge.Relationship, error) {
	if err := d.available(rel, DeDesignate); err != nil {
		return hedge.Relationship{}, err
	}

	reason := req.Reason
	if req.DeDesignation != nil && req.DeDesignation.Reason != "" {
		reason = req.DeDesignation.Reason
	}
	if res := guard.Evaluate(guard.DeDesignate, rel, d.inputs(reason)); !res.OK() {
		return hedge.Relationship{}, &ValidationError{Action: DeDesignate, Messages: res.Messages()}
	}

	var p hedge.DeDesignation
	if req.DeDesignation != nil {
		p = *req.DeDesignation
	}
	if req.DeDesignation == nil || lookedUpFor(req) != reason {
		fetched, err := d.api.DedesignateFetch(ctx, rel.ID, reason)
		if err != nil {
			return hedge.Relationship{}, remote("dedesignate fetch", err)
		}
		// A date the user already chose survives the new lookup.
		if req.DeDesignation != nil && !p.DedesignationDate.IsZero() {
			fetched.DedesignationDate = p.DedesignationDate
		}
		p = fetched
	}
	p.HedgeID = rel.ID
	p.Reason = reason

	// The payload's date is checked against the record's designation date.
	candidate := rel.Clone()
	if !p.DedesignationDate.IsZero() {
		dd := p.DedesignationDate
		candidate.DedesignationDate = &dd
	}
	if err := d.check(ctx, DeDesignate, candidate, reason, guard.DeDesignate); err != nil {
		return hedge.Relationship{}, err
	}

	out, err := d.api.DedesignateConfirm(ctx, rel.ID, p)
	return out, remote("dedesignate", err)
}

func lookedUpFor(req Request) hedge.DedesignationReason {
	if req.FetchedFor != "" {
		return req.FetchedFor
	}
	return req.DeDesignation.Reason
}

func (d *Dispatcher) redesignate(ctx context.Context, rel hedge.Relationship, p *hedge.ReDesignation) (hedge.Relationship, error) {
	if p == nil {
		saved, err := d.prepareRedesignation(ctx, rel)
		if err != nil {
			return hedge.Relationship{}, err
		}
		fetched, err := d.api.RedesignateFetch(ctx, saved.ID)
		if err != nil {
			return hedge.Relationship{}, remote("redesignate fetch", err)
		}
		p = &fetched
	} else {
		if err := d.available(rel, ReDesignate); err != nil {
			return hedge.Relationship{}, err
		}
		if err := d.check(ctx, ReDesignate, rel, "", guard.ReDesignate); err != nil {
			return hedge.Relationship{}, err
		}
	}

	payload := *p
	payload.HedgeID = rel.ID
	out, err := d.api.RedesignateConfirm(ctx, rel.ID, payload)
	return out, remote("redesignate", err)
}

// prepareRedesignation runs the steps that must precede the fetch of a
// redesignation payload.
func (d *Dispatcher) prepareRedesignation(ctx context.Context, rel hedge.Relationship) (hedge.Relationship, error) {
	if err := d.available(rel, ReDesignate); err != nil {
		return hedge.Relationship{}, err
	}
	if err := d.check(ctx, ReDesignate, rel, "", guard.ReDesignate, guard.Save); err != nil {
		return hedge.Relationship{}, err
	}
	if err := d.template(ctx, ReDesignate, rel.ID); err != nil {
		return hedge.Relationship{}, err
	}
	saved, err := d.api.Save(ctx, rel)
	return saved, remote("save", err)
}

func (d *Dispatcher) redraft(ctx context.Context, rel hedge.Relationship) (hedge.Relationship, error) {
	if err := d.available(rel, Redraft); err != nil {
		return hedge.Relationship{}, err
	}
	if am, ok := rel.SelectedOptionAmortization(); ok {
		if err := d.api.DeleteAmortization(ctx, rel.ID, am.ID); err != nil {
			return hedge.Relationship{}, remote("delete amortization", err)
		}
	}
	out, err := d.api.Redraft(ctx, rel.ID)
	return out, remote("redraft", err)
}

func (d *Dispatcher) available(rel hedge.Relationship, a Action) error {
	if !lifecycle.Legal(rel, lifecycle.Action(a)) {
		return fmt.Errorf("%w: %s from %s", ErrUnavailable, a, rel.HedgeState)
	}
	if !lifecycle.Authorized(d.user) {
		return fmt.Errorf("%w: %s requires a hedge role", ErrUnavailable, a)
	}
	return nil
}

func (d *Dispatcher) inputs(reason hedge.DedesignationReason) guard.Inputs {
	return guard.Inputs{Now: d.now(), WarnMonths: d.warn, Reason: reason}
}

// check evaluates ts and asks for every pending confirmation.
func (d *Dispatcher) check(ctx context.Context, a Action, rel hedge.Relationship, reason hedge.DedesignationReason, ts ...guard.Transition) error {
	res := guard.EvaluateAll(rel, d.inputs(reason), ts...)
	if !res.OK() {
		return &ValidationError{Action: a, Messages: res.Messages()}
	}
	for _, c := range res.Confirmations {
		if !d.confirm.Confirm(ctx, c) {
			return ErrDeclined
		}
	}
	return nil
}

// analytics is advisory: a failed check counts as unavailable.
func (d *Dispatcher) analytics(ctx context.Context) error {
	ok, err := d.api.CheckAnalyticsAvailable(ctx)
	if err != nil {
		d.log.Warn("analytics check failed", zap.Error(err))
	}
	if ok && err == nil {
		return nil
	}
	if !d.confirm.Confirm(ctx, guard.Confirmation{Code: confirmAnalytics, Msg: msgAnalytics}) {
		return ErrDeclined
	}
	return nil
}

func (d *Dispatcher) template(ctx context.Context, a Action, id string) error {
	ok, err := d.api.FindDocumentTemplate(ctx, id)
	if err != nil {
		return remote("find document template", err)
	}
	if !ok {
		return &ValidationError{Action: a, Messages: []string{msgNoTemplate}}
	}
	return nil
}

func (d *Dispatcher) observe(a Action, err error, start time.Time) {
	var violations int
	var ve *ValidationError
	if errors.As(err, &ve) {
		violations = len(ve.Messages)
	}
	d.metrics.Observe(string(a), outcome(err), violations, time.Since(start))
}

func (d *Dispatcher) report(log *zap.Logger, err error, start time.Time) {
	elapsed := zap.Duration("elapsed", time.Since(start))
	var re *RemoteError
	switch {
	case err == nil:
		log.Info("action committed", elapsed)
	case errors.As(err, &re):
		log.Warn("backend call failed", zap.String("op", re.Op), zap.Error(re.Err), elapsed)
	default:
		log.Debug("action not committed", zap.Error(err), elapsed)
	}
}

func outcome(err error) string {
	var ve *ValidationError
	var re *RemoteError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ve):
		return "invalid"
	case errors.As(err, &re):
		return "remote"
	case errors.Is(err, ErrDeclined):
		return "declined"
	case errors.Is(err, ErrStale):
		return "stale"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
