package store

// Schema is applied on every open. Relationships are stored as JSON
// documents; state and hedge_type are copied out for filtering.
const Schema = `
CREATE TABLE IF NOT EXISTS hedges (
	id TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	hedge_type TEXT NOT NULL,
	doc TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_hedges_state ON hedges(state);

CREATE TABLE IF NOT EXISTS templates (
	hedge_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	hedge_id TEXT NOT NULL,
	action TEXT NOT NULL,
	from_state TEXT NOT NULL,
	to_state TEXT NOT NULL,
	actor TEXT NOT NULL,
	detail TEXT NOT NULL,
	at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_hedge ON events(hedge_id, at);
`
