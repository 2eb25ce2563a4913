package repository

// schemaSQL is applied on every open. Timestamps are unix nanoseconds; event
// id 0 means no event and target id 0 means a free-text target.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS participants (
    id INTEGER PRIMARY KEY,
    nickname TEXT NOT NULL UNIQUE,
    full_name TEXT NOT NULL,
    grp TEXT NOT NULL DEFAULT '',
    active INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    active INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS criteria (
    id INTEGER PRIMARY KEY,
    event_id INTEGER NOT NULL DEFAULT 0,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    max_score REAL NOT NULL CHECK (max_score >= 0),
    active INTEGER NOT NULL DEFAULT 1,
    UNIQUE (event_id, name)
);

CREATE TABLE IF NOT EXISTS evaluations (
    id INTEGER PRIMARY KEY,
    rater_id INTEGER NOT NULL,
    target_id INTEGER NOT NULL DEFAULT 0,
    target_name TEXT NOT NULL DEFAULT '',
    target_name_norm TEXT NOT NULL DEFAULT '',
    event_id INTEGER NOT NULL DEFAULT 0,
    comment TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evaluations_slot
    ON evaluations (rater_id, target_id, target_name_norm, event_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_target ON evaluations (target_id);

CREATE TABLE IF NOT EXISTS scores (
    id INTEGER PRIMARY KEY,
    evaluation_id INTEGER NOT NULL REFERENCES evaluations (id) ON DELETE CASCADE,
    criterion_id INTEGER NOT NULL,
    score REAL NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE (evaluation_id, criterion_id)
);
`
