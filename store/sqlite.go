// Package store persists hedge relationships, documentation templates and
// the transition audit journal in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/hedger/hedge"
	"github.com/rustyeddy/hedger/pkg/id"
)

var ErrNotFound = errors.New("not found")

// Event is one committed transition in the audit journal.
type Event struct {
	ID      string      `json:"id"`
	HedgeID string      `json:"hedgeId"`
	Action  string      `json:"action"`
	From    hedge.State `json:"from"`
	To      hedge.State `json:"to"`
	Actor   string      `json:"actor"`
	Detail  string      `json:"detail,omitempty"`
	At      time.Time   `json:"at"`
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	State     hedge.State
	HedgeType hedge.HedgeType
}

// SQLite stores relationships and their journal in one database.
type SQLite struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. Use ":memory:" for a
// throwaway store.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Put inserts or replaces rel. A record without an ID is given one; the
// stored copy is returned.
func (s *SQLite) Put(ctx context.Context, rel hedge.Relationship) (hedge.Relationship, error) {
	if rel.ID == "" {
		rel.ID = id.Prefixed("HR")
	}
	doc, err := json.Marshal(rel)
	if err != nil {
		return hedge.Relationship{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO hedges (id, state, hedge_type, doc, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			hedge_type = excluded.hedge_type,
			doc = excluded.doc,
			updated_at = excluded.updated_at`,
		rel.ID, string(rel.HedgeState), string(rel.HedgeType), string(doc), time.Now().UTC(),
	)
	if err != nil {
		return hedge.Relationship{}, fmt.Errorf("put hedge %s: %w", rel.ID, err)
	}
	return rel.Clone(), nil
}

// Get returns a single relationship by ID.
func (s *SQLite) Get(ctx context.Context, hedgeID string) (hedge.Relationship, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM hedges WHERE id = ?`, hedgeID).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return hedge.Relationship{}, fmt.Errorf("hedge %q: %w", hedgeID, ErrNotFound)
		}
		return hedge.Relationship{}, err
	}
	return decode(doc)
}

// List returns the relationships matching f ordered by ID.
func (s *SQLite) List(ctx context.Context, f Filter) ([]hedge.Relationship, error) {
	q := `SELECT doc FROM hedges WHERE 1=1`
	var args []any
	if f.State != "" {
		q += ` AND state = ?`
		args = append(args, string(f.State))
	}
	if f.HedgeType != "" {
		q += ` AND hedge_type = ?`
		args = append(args, string(f.HedgeType))
	}
	q += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hedge.Relationship
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		rel, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SetTemplate attaches a documentation template to a relationship.
func (s *SQLite) SetTemplate(ctx context.Context, hedgeID, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO templates (hedge_id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(hedge_id) DO UPDATE SET name = excluded.name`,
		hedgeID, name, time.Now().UTC(),
	)
	return err
}

func (s *SQLite) HasTemplate(ctx context.Context, hedgeID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates WHERE hedge_id = ?`, hedgeID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordEvent appends e to the journal, filling in ID and time if unset.
func (s *SQLite) RecordEvent(ctx context.Context, e Event) (Event, error) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if e.ID == "" {
		e.ID = id.NewAt(e.At)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, hedge_id, action, from_state, to_state, actor, detail, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.HedgeID, e.Action, string(e.From), string(e.To), e.Actor, e.Detail, e.At,
	)
	if err != nil {
		return Event{}, fmt.Errorf("record event: %w", err)
	}
	return e, nil
}

// ListEvents returns the journal for one relationship, oldest first.
func (s *SQLite) ListEvents(ctx context.Context, hedgeID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hedge_id, action, from_state, to_state, actor, detail, at
		FROM events
		WHERE hedge_id = ?
		ORDER BY at ASC, id ASC`, hedgeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e        Event
			from, to string
		)
		if err := rows.Scan(&e.ID, &e.HedgeID, &e.Action, &from, &to, &e.Actor, &e.Detail, &e.At); err != nil {
			return nil, err
		}
		e.From, e.To = hedge.State(from), hedge.State(to)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func decode(doc string) (hedge.Relationship, error) {
	var rel hedge.Relationship
	if err := json.Unmarshal([]byte(doc), &rel); err != nil {
		return hedge.Relationship{}, fmt.Errorf("decode hedge: %w", err)
	}
	return rel, nil
}
