package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS credentials (
    key                  TEXT PRIMARY KEY,
    value                TEXT NOT NULL,
    updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
    user_id              INTEGER NOT NULL,
    view                 TEXT NOT NULL,
    payload              BLOB NOT NULL,
    fetched_at           TEXT NOT NULL,
    stale                INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (user_id, view)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_user ON snapshots(user_id);
`
