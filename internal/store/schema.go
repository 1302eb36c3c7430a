package store

// Schema is the full DDL, safe to apply repeatedly. The partial unique index
// on games(completed) backs the single-open-game invariant at the storage
// level; win_ledger's primary key is the double-credit guard.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    is_admin      INTEGER NOT NULL DEFAULT 0,
    points        INTEGER NOT NULL DEFAULT 0,
    games_won     INTEGER NOT NULL DEFAULT 0,
    created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS games (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    size        INTEGER NOT NULL,
    completed   INTEGER NOT NULL DEFAULT 0,
    victor      INTEGER NULL REFERENCES users(id),
    created_at  TEXT NOT NULL,
    finished_at TEXT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS games_single_open ON games (completed) WHERE completed = 0;

CREATE TABLE IF NOT EXISTS board_cells (
    game_id INTEGER NOT NULL REFERENCES games(id),
    idx     INTEGER NOT NULL,
    prompt  TEXT NOT NULL,
    PRIMARY KEY (game_id, idx)
);

CREATE TABLE IF NOT EXISTS progress (
    game_id         INTEGER NOT NULL REFERENCES games(id),
    user_id         INTEGER NOT NULL REFERENCES users(id),
    completed_index INTEGER NOT NULL,
    PRIMARY KEY (game_id, user_id, completed_index)
);

CREATE TABLE IF NOT EXISTS win_ledger (
    user_id    INTEGER NOT NULL REFERENCES users(id),
    game_id    INTEGER NOT NULL REFERENCES games(id),
    created_at TEXT NOT NULL,
    PRIMARY KEY (user_id, game_id)
);
`
