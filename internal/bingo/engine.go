// internal/bingo/engine.go
//
// The bingo game engine. Owns the rules around progress updates, win
// resolution, point allocation, and the single-open-game lifecycle; everything
// durable goes through the Store interface so the engine itself stays free of
// SQL. Consumed in-process by the HTTP layer.
//
// Concurrency model:
//   - Updates for the same (game, user) pair are serialized by a striped lock,
//     so "replace progress, detect win, allocate points" is one atomic unit.
//   - Distinct pairs proceed in parallel with no coordination.
//   - Game transitions (StartNewGame) hold the write side of an RWMutex that
//     every progress update holds for read, so a transition never interleaves
//     with updates against the game being closed.
//   - The first-winner decision is a conditional update in the store (victor
//     set only if still unset), so two racing winners cannot both be "first".

package bingo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Points awarded by the victory resolver. The first user to complete a line
// takes the game; later completions of the same game earn the smaller prize.
const (
	FirstWinPoints = 100
	LaterWinPoints = 50
)

// DefaultBoardSize matches the original 3x3 board (8 prompts plus the free cell).
const DefaultBoardSize = 3

// conflictRetries bounds automatic retries of store-level ErrConflict before
// the error is surfaced to the caller.
const conflictRetries = 3

// WinResult is the outcome of a win-award attempt.
type WinResult struct {
	Credited bool // a ledger entry was inserted on this call
	First    bool // this user became the game's victor
}

// Store is the persistence boundary the engine runs against. Implementations
// must make AwardWin and SwapOpenGame single transactions, and the victor
// assignment inside AwardWin a conditional update (write only if still unset).
type Store interface {
	// Game loads any game by id; ErrNotFound if missing.
	Game(ctx context.Context, id int64) (*Game, error)
	// OpenGame loads the single open game. ErrNotFound when none exists,
	// ErrInvariant when more than one open game is detected.
	OpenGame(ctx context.Context) (*Game, error)
	// CreateGame inserts a new open game together with its full board.
	CreateGame(ctx context.Context, size int, cells []Cell, now time.Time) (*Game, error)
	// SwapOpenGame atomically closes the open game (setting its finish
	// timestamp if a win has not already done so) and creates the next open
	// game with its full board.
	SwapOpenGame(ctx context.Context, size int, cells []Cell, now time.Time) (*Game, error)

	// Board returns the ordered cells of a game; ErrNotFound if the game is missing.
	Board(ctx context.Context, gameID int64) ([]Cell, error)
	// FreeIndex returns the position of the game's free cell.
	FreeIndex(ctx context.Context, gameID int64) (int, error)

	// UserExists reports whether a user id is known.
	UserExists(ctx context.Context, userID int64) (bool, error)

	// Progress returns the recorded completed indices for a (game, user) pair.
	Progress(ctx context.Context, gameID, userID int64) ([]int, error)
	// ReplaceProgress atomically replaces the whole completed-index set.
	ReplaceProgress(ctx context.Context, gameID, userID int64, indices []int) error

	// HasWin reports whether a (user, game) ledger entry already exists.
	HasWin(ctx context.Context, gameID, userID int64) (bool, error)
	// AwardWin inserts the ledger entry and applies points/victor bookkeeping
	// in one transaction. A pre-existing ledger entry yields Credited == false
	// with no other effect. The victor check-and-set decides First.
	AwardWin(ctx context.Context, gameID, userID int64, firstPoints, laterPoints int, now time.Time) (WinResult, error)
}

// Engine ties the win detector, board generator, and store together.
type Engine struct {
	store Store
	pool  PromptSource

	transition sync.RWMutex // write-held across game transitions
	pairLocks  [64]sync.Mutex
}

// NewEngine constructs an Engine over a store and a prompt pool.
func NewEngine(st Store, pool PromptSource) *Engine {
	return &Engine{store: st, pool: pool}
}

// pairLock returns the stripe serializing updates for one (game, user) pair.
func (e *Engine) pairLock(gameID, userID int64) *sync.Mutex {
	h := uint64(gameID)*0x9e3779b9 + uint64(userID)
	return &e.pairLocks[h%uint64(len(e.pairLocks))]
}

// Init ensures an open game exists, creating the first one at boot if needed.
func (e *Engine) Init(ctx context.Context, size int) (*Game, error) {
	e.transition.Lock()
	defer e.transition.Unlock()

	g, err := e.store.OpenGame(ctx)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if size <= 0 {
		size = DefaultBoardSize
	}
	cells, err := GenerateBoard(size, e.pool)
	if err != nil {
		return nil, err
	}
	g, err = e.store.CreateGame(ctx, size, cells, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	log.Info().Int64("game", g.ID).Int("size", size).Msg("created initial bingo game")
	return g, nil
}

// OpenGame returns the current open game. Once Init has run, a missing open
// game is an invariant violation, which the store reports.
func (e *Engine) OpenGame(ctx context.Context) (*Game, error) {
	return e.store.OpenGame(ctx)
}

// Game returns any game, open or closed, by id.
func (e *Engine) Game(ctx context.Context, id int64) (*Game, error) {
	return e.store.Game(ctx, id)
}

// Board returns the ordered (index, prompt) cells of a game.
func (e *Engine) Board(ctx context.Context, gameID int64) ([]Cell, error) {
	return e.store.Board(ctx, gameID)
}

// CompletedIndices returns the recorded completed set for a (game, user) pair.
func (e *Engine) CompletedIndices(ctx context.Context, gameID, userID int64) ([]int, error) {
	if err := e.checkPair(ctx, gameID, userID); err != nil {
		return nil, err
	}
	return e.store.Progress(ctx, gameID, userID)
}

// SetCompleted replaces the user's whole completed-index set for a game, then
// resolves victory. Returns true iff this call credited the user with a win
// (first or later); resubmitting an already-credited winning set returns false.
func (e *Engine) SetCompleted(ctx context.Context, gameID, userID int64, indices []int) (bool, error) {
	e.transition.RLock()
	defer e.transition.RUnlock()

	l := e.pairLock(gameID, userID)
	l.Lock()
	defer l.Unlock()

	g, err := e.store.Game(ctx, gameID)
	if err != nil {
		return false, err
	}
	if g.Completed {
		return false, fmt.Errorf("%w: game %d", ErrGameClosed, gameID)
	}
	if err := e.checkUser(ctx, userID); err != nil {
		return false, err
	}

	cells := g.Cells()
	for _, idx := range indices {
		if idx < 0 || idx >= cells {
			return false, fmt.Errorf("%w: %d (game %d has %d cells)", ErrInvalidIndex, idx, gameID, cells)
		}
	}
	indices = dedupeSorted(indices)

	if err := e.store.ReplaceProgress(ctx, gameID, userID, indices); err != nil {
		return false, err
	}
	return e.resolveWin(ctx, g, userID, indices)
}

// resolveWin runs the victory resolver for a freshly written progress set:
// win detection (with the free cell treated as completed), the ledger
// idempotency check, and the transactional award.
func (e *Engine) resolveWin(ctx context.Context, g *Game, userID int64, indices []int) (bool, error) {
	free, err := e.store.FreeIndex(ctx, g.ID)
	if err != nil {
		return false, err
	}
	withFree := indices
	if !containsInt(indices, free) {
		withFree = append(append([]int{}, indices...), free)
	}

	win, err := IsWinner(g.Size, withFree)
	if err != nil {
		return false, err
	}
	if !win {
		return false, nil
	}

	credited, err := e.store.HasWin(ctx, g.ID, userID)
	if err != nil {
		return false, err
	}
	if credited {
		return false, nil
	}

	res, err := e.awardWithRetry(ctx, g.ID, userID)
	if err != nil {
		if errors.Is(err, ErrInvariant) {
			log.Error().Err(err).Int64("game", g.ID).Int64("user", userID).Msg("victory bookkeeping invariant broken")
		}
		return false, err
	}
	if res.Credited {
		log.Info().
			Int64("game", g.ID).
			Int64("user", userID).
			Bool("first", res.First).
			Msg("bingo win credited")
	}
	return res.Credited, nil
}

// awardWithRetry retries store conflicts a bounded number of times.
func (e *Engine) awardWithRetry(ctx context.Context, gameID, userID int64) (WinResult, error) {
	var res WinResult
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		res, err = e.store.AwardWin(ctx, gameID, userID, FirstWinPoints, LaterWinPoints, time.Now().UTC())
		if err == nil || !errors.Is(err, ErrConflict) {
			return res, err
		}
		select {
		case <-ctx.Done():
			return WinResult{}, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
	return res, err
}

// StartNewGame closes the current open game and opens the next one with a
// fresh board, as one transition no progress update can interleave with.
// If winnerID is supplied (operator override), that user is credited against
// the game being closed through the normal award path: they become the victor
// if the game has none yet, and a later winner otherwise. A size of 0 keeps
// the closing game's size.
func (e *Engine) StartNewGame(ctx context.Context, winnerID *int64, size int) (*Game, error) {
	e.transition.Lock()
	defer e.transition.Unlock()

	cur, err := e.store.OpenGame(ctx)
	if err != nil {
		return nil, err
	}

	if winnerID != nil {
		if err := e.checkUser(ctx, *winnerID); err != nil {
			return nil, err
		}
		credited, err := e.store.HasWin(ctx, cur.ID, *winnerID)
		if err != nil {
			return nil, err
		}
		if !credited {
			if _, err := e.awardWithRetry(ctx, cur.ID, *winnerID); err != nil {
				return nil, err
			}
			log.Info().Int64("game", cur.ID).Int64("user", *winnerID).Msg("operator-declared victor")
		}
	}

	if size <= 0 {
		size = cur.Size
	}
	cells, err := GenerateBoard(size, e.pool)
	if err != nil {
		return nil, err
	}

	g, err := e.store.SwapOpenGame(ctx, size, cells, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	log.Info().Int64("closed", cur.ID).Int64("opened", g.ID).Int("size", size).Msg("started new bingo game")
	return g, nil
}

// checkPair validates that both the game and the user exist.
func (e *Engine) checkPair(ctx context.Context, gameID, userID int64) error {
	if _, err := e.store.Game(ctx, gameID); err != nil {
		return err
	}
	return e.checkUser(ctx, userID)
}

func (e *Engine) checkUser(ctx context.Context, userID int64) error {
	ok, err := e.store.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return nil
}

// dedupeSorted returns the sorted distinct values of in.
func dedupeSorted(in []int) []int {
	if len(in) == 0 {
		return []int{}
	}
	out := append([]int{}, in...)
	sort.Ints(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
