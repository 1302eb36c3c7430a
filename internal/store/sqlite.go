// internal/store/sqlite.go
//
// SQLite implementation of the bingo.Store interface over database/sql.
// The two multi-statement operations the engine relies on are transactions
// here: AwardWin (ledger insert + victor check-and-set + points) and
// SwapOpenGame (close old game + create new game + insert all cells).
// SQLITE_BUSY/SQLITE_LOCKED surface as bingo.ErrConflict so the engine can
// retry them.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/bitbingo/go-server/internal/bingo"
)

// SQLite persists the engine's records in a SQLite database. The *sql.DB is
// expected to be opened with WAL and a busy timeout (see openDB in main).
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an opened, migrated database handle.
func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db} }

const gameCols = `id, size, completed, victor, created_at, finished_at`

func (s *SQLite) Game(ctx context.Context, id int64) (*bingo.Game, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+gameCols+` FROM games WHERE id=?`, id)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: game %d", bingo.ErrNotFound, id)
	}
	return g, err
}

func (s *SQLite) OpenGame(ctx context.Context) (*bingo.Game, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+gameCols+` FROM games WHERE completed=0`)
	if err != nil {
		return nil, wrapBusy(err)
	}
	defer rows.Close()

	var games []*bingo.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(games) {
	case 0:
		return nil, fmt.Errorf("%w: no open game", bingo.ErrNotFound)
	case 1:
		return games[0], nil
	default:
		return nil, fmt.Errorf("%w: %d open games", bingo.ErrInvariant, len(games))
	}
}

func (s *SQLite) CreateGame(ctx context.Context, size int, cells []bingo.Cell, now time.Time) (*bingo.Game, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapBusy(err)
	}
	defer func() { _ = tx.Rollback() }()

	g, err := insertGame(ctx, tx, size, cells, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, wrapBusy(err)
	}
	return g, nil
}

func (s *SQLite) SwapOpenGame(ctx context.Context, size int, cells []bingo.Cell, now time.Time) (*bingo.Game, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapBusy(err)
	}
	defer func() { _ = tx.Rollback() }()

	// A win may have stamped finished_at already; keep the earlier value.
	if _, err := tx.ExecContext(ctx,
		`UPDATE games SET completed=1, finished_at=COALESCE(finished_at, ?) WHERE completed=0`,
		fmtTime(now),
	); err != nil {
		return nil, wrapBusy(err)
	}

	g, err := insertGame(ctx, tx, size, cells, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, wrapBusy(err)
	}
	return g, nil
}

// insertGame creates the game row plus every board cell within tx.
func insertGame(ctx context.Context, tx *sql.Tx, size int, cells []bingo.Cell, now time.Time) (*bingo.Game, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO games (size, completed, created_at) VALUES (?, 0, ?)`,
		size, fmtTime(now),
	)
	if err != nil {
		return nil, wrapBusy(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	for _, c := range cells {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO board_cells (game_id, idx, prompt) VALUES (?, ?, ?)`,
			id, c.Index, c.Prompt,
		); err != nil {
			return nil, wrapBusy(err)
		}
	}
	return &bingo.Game{ID: id, Size: size, CreatedAt: now}, nil
}

func (s *SQLite) Board(ctx context.Context, gameID int64) ([]bingo.Cell, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, prompt FROM board_cells WHERE game_id=? ORDER BY idx`, gameID)
	if err != nil {
		return nil, wrapBusy(err)
	}
	defer rows.Close()

	out := []bingo.Cell{}
	for rows.Next() {
		var c bingo.Cell
		if err := rows.Scan(&c.Index, &c.Prompt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		// Distinguish "unknown game" from a genuinely empty board.
		if _, err := s.Game(ctx, gameID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLite) FreeIndex(ctx context.Context, gameID int64) (int, error) {
	var idx int
	err := s.db.QueryRowContext(ctx,
		`SELECT idx FROM board_cells WHERE game_id=? AND prompt=?`, gameID, bingo.FreePrompt,
	).Scan(&idx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: game %d has no free cell", bingo.ErrNotFound, gameID)
	}
	return idx, err
}

func (s *SQLite) UserExists(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id=?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLite) Progress(ctx context.Context, gameID, userID int64) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT completed_index FROM progress WHERE game_id=? AND user_id=? ORDER BY completed_index`,
		gameID, userID)
	if err != nil {
		return nil, wrapBusy(err)
	}
	defer rows.Close()

	out := []int{}
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

func (s *SQLite) ReplaceProgress(ctx context.Context, gameID, userID int64, indices []int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapBusy(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM progress WHERE game_id=? AND user_id=?`, gameID, userID); err != nil {
		return wrapBusy(err)
	}
	for _, idx := range indices {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO progress (game_id, user_id, completed_index) VALUES (?, ?, ?)`,
			gameID, userID, idx); err != nil {
			return wrapBusy(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapBusy(err)
	}
	return nil
}

func (s *SQLite) HasWin(ctx context.Context, gameID, userID int64) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM win_ledger WHERE user_id=? AND game_id=?`, userID, gameID,
	).Scan(&cnt)
	return cnt > 0, err
}

func (s *SQLite) AwardWin(ctx context.Context, gameID, userID int64, firstPoints, laterPoints int, now time.Time) (bingo.WinResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return bingo.WinResult{}, wrapBusy(err)
	}
	defer func() { _ = tx.Rollback() }()

	// The ledger primary key is the idempotency guard: a losing racer or a
	// resubmission inserts zero rows and credits nothing.
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO win_ledger (user_id, game_id, created_at) VALUES (?, ?, ?)`,
		userID, gameID, fmtTime(now))
	if err != nil {
		return bingo.WinResult{}, wrapBusy(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return bingo.WinResult{}, err
	} else if n == 0 {
		return bingo.WinResult{}, tx.Commit()
	}

	// First-winner check-and-set: only succeeds while victor is unset.
	res, err = tx.ExecContext(ctx,
		`UPDATE games SET victor=?, finished_at=COALESCE(finished_at, ?) WHERE id=? AND victor IS NULL`,
		userID, fmtTime(now), gameID)
	if err != nil {
		return bingo.WinResult{}, wrapBusy(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return bingo.WinResult{}, err
	}
	first := n == 1

	if first {
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET points=points+?, games_won=games_won+1 WHERE id=?`,
			firstPoints, userID)
	} else {
		// The existing victor must hold a ledger entry; anything else means
		// the bookkeeping is corrupt.
		var ok int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM games g JOIN win_ledger wl ON wl.game_id=g.id AND wl.user_id=g.victor WHERE g.id=?`,
			gameID).Scan(&ok); err != nil {
			return bingo.WinResult{}, err
		}
		if ok == 0 {
			return bingo.WinResult{}, fmt.Errorf("%w: game %d has a victor without a ledger entry", bingo.ErrInvariant, gameID)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET points=points+? WHERE id=?`, laterPoints, userID)
	}
	if err != nil {
		return bingo.WinResult{}, wrapBusy(err)
	}

	if err := tx.Commit(); err != nil {
		return bingo.WinResult{}, wrapBusy(err)
	}
	return bingo.WinResult{Credited: true, First: first}, nil
}

// ---------------------------------- helpers --------------------------------

// scannable covers *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanGame(row scannable) (*bingo.Game, error) {
	var g bingo.Game
	var completed int
	var victor sql.NullInt64
	var created string
	var finished sql.NullString
	if err := row.Scan(&g.ID, &g.Size, &completed, &victor, &created, &finished); err != nil {
		return nil, err
	}
	g.Completed = completed != 0
	if victor.Valid {
		v := victor.Int64
		g.Victor = &v
	}
	g.CreatedAt = parseTime(created)
	if finished.Valid && finished.String != "" {
		t := parseTime(finished.String)
		g.FinishedAt = &t
	}
	return &g, nil
}

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// parseTime reads timestamps this package wrote with fmtTime; anything
// malformed collapses to the zero time rather than failing the scan.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// wrapBusy maps SQLite contention errors onto the engine's retryable kind.
func wrapBusy(err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if errors.As(err, &se) && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %v", bingo.ErrConflict, err)
	}
	return err
}
