package workflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rustyeddy/hedger/hedge"
	"github.com/rustyeddy/hedger/lifecycle"
	"github.com/rustyeddy/hedger/rules"
)

// ErrClosed is returned by a Session after Close.
var ErrClosed = errors.New("session closed")

// ErrNoPending means a sub-record edit was attempted with no De-Designate or
// Re-Designate in progress.
var ErrNoPending = errors.New("no pending sub-record")

// Session is one user's editing view of a record. Edits resolve immediately;
// dispatches commit the backend's record only while the session is current.
type Session struct {
	d *Dispatcher

	mu    sync.Mutex
	rec   hedge.Relationship
	view  rules.View
	dedes *hedge.DeDesignation
	redes *hedge.ReDesignation
	// dedesFor is the reason dedes was looked up with.
	dedesFor hedge.DedesignationReason

	// gen changes whenever the view is replaced or closed; a dispatch that
	// started on an older generation is stale.
	gen    atomic.Uint64
	closed atomic.Bool
}

// Open starts a session on rel.
func (d *Dispatcher) Open(rel hedge.Relationship) *Session {
	s := &Session{d: d}
	s.commit(d.Resolve(rel))
	return s
}

func (s *Session) commit(o Outcome) {
	s.rec, s.view = o.Record, o.View
}

func (s *Session) Record() hedge.Relationship {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Clone()
}

func (s *Session) View() rules.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Available lists the lifecycle actions offered for the current record.
func (s *Session) Available() []lifecycle.Option {
	return s.d.Available(s.Record())
}

// Set applies one field edit and re-resolves the record.
func (s *Session) Set(c rules.Change) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rel, err := rules.Apply(s.rec, c)
	if err != nil {
		return err
	}
	s.commit(s.d.Resolve(rel))
	return nil
}

// Replace swaps in a record loaded elsewhere. In-flight dispatches become
// stale and pending sub-records are dropped.
func (s *Session) Replace(rel hedge.Relationship) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen.Add(1)
	s.commit(s.d.Resolve(rel))
	s.dedes, s.redes = nil, nil
}

// BeginDeDesignation fetches the proposed dedesignation for review.
func (s *Session) BeginDeDesignation(ctx context.Context, reason hedge.DedesignationReason) (hedge.DeDesignation, error) {
	if s.closed.Load() {
		return hedge.DeDesignation{}, ErrClosed
	}
	p, err := s.d.BeginDeDesignation(ctx, s.Record(), reason)
	if err != nil {
		return hedge.DeDesignation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dedes, s.redes = &p, nil
	s.dedesFor = reason
	return p, nil
}

// BeginReDesignation saves pending edits and fetches the proposed
// redesignation for review.
func (s *Session) BeginReDesignation(ctx context.Context) (hedge.ReDesignation, error) {
	if s.closed.Load() {
		return hedge.ReDesignation{}, ErrClosed
	}
	s.mu.Lock()
	rec, g := s.rec.Clone(), s.gen.Load()
	s.mu.Unlock()

	p, saved, err := s.d.BeginReDesignation(ctx, rec)
	if err != nil {
		return hedge.ReDesignation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen.Load() != g || s.closed.Load() {
		return hedge.ReDesignation{}, ErrStale
	}
	s.commit(*saved)
	s.redes, s.dedes = &p, nil
	return p, nil
}

// EditDeDesignation changes the pending dedesignation before it is
// dispatched.
func (s *Session) EditDeDesignation(fn func(*hedge.DeDesignation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dedes == nil {
		return ErrNoPending
	}
	fn(s.dedes)
	return nil
}

// EditReDesignation changes the pending redesignation before it is
// dispatched.
func (s *Session) EditReDesignation(fn func(*hedge.ReDesignation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.redes == nil {
		return ErrNoPending
	}
	fn(s.redes)
	return nil
}

// Cancel drops any pending sub-record. The record is untouched.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dedes, s.redes = nil, nil
}

// Dispatch runs a against the current record. The pending sub-record, if
// any, is used for De-Designate and Re-Designate and cleared on success.
func (s *Session) Dispatch(ctx context.Context, a Action) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	req := Request{Action: a, Record: s.rec.Clone()}
	if a == DeDesignate && s.dedes != nil {
		p := *s.dedes
		req.DeDesignation = &p
		req.Reason = p.Reason
		req.FetchedFor = s.dedesFor
	}
	if a == ReDesignate && s.redes != nil {
		p := *s.redes
		req.ReDesignation = &p
	}
	g := s.gen.Load()
	s.mu.Unlock()

	req.Current = func() bool { return !s.closed.Load() && s.gen.Load() == g }

	out, err := s.d.Dispatch(ctx, req)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !req.Current() {
		return ErrStale
	}
	s.commit(*out)
	if a == DeDesignate || a == ReDesignate {
		s.dedes, s.redes = nil, nil
	}
	return nil
}

// Close marks the session gone. Responses still in flight are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed.Store(true)
	s.gen.Add(1)
}
