// internal/store/memory.go
//
// In-memory implementation of the bingo.Store interface.
// Used by engine tests and anywhere durability is not required. All state
// lives in maps behind one mutex, so every operation is atomic by
// construction, including the victor check-and-set inside AwardWin.

package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bitbingo/go-server/internal/bingo"
)

type pairKey struct {
	gameID, userID int64
}

type memUser struct {
	points   int
	gamesWon int
}

// Memory is a map-backed Store. State is lost on restart.
type Memory struct {
	mu       sync.Mutex
	nextGame int64
	nextUser int64
	games    map[int64]*bingo.Game
	cells    map[int64][]bingo.Cell
	users    map[int64]*memUser
	progress map[pairKey][]int
	ledger   map[pairKey]bool
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		games:    make(map[int64]*bingo.Game),
		cells:    make(map[int64][]bingo.Cell),
		users:    make(map[int64]*memUser),
		progress: make(map[pairKey][]int),
		ledger:   make(map[pairKey]bool),
	}
}

// AddUser registers a user and returns its id. Test helper.
func (m *Memory) AddUser() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextUser++
	m.users[m.nextUser] = &memUser{}
	return m.nextUser
}

// UserStats returns accumulated points and won-games count. Test helper.
func (m *Memory) UserStats(userID int64) (points, gamesWon int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		return u.points, u.gamesWon
	}
	return 0, 0
}

func (m *Memory) Game(ctx context.Context, id int64) (*bingo.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: game %d", bingo.ErrNotFound, id)
	}
	return copyGame(g), nil
}

func (m *Memory) OpenGame(ctx context.Context) (*bingo.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var open *bingo.Game
	count := 0
	for _, g := range m.games {
		if !g.Completed {
			open = g
			count++
		}
	}
	switch count {
	case 0:
		return nil, fmt.Errorf("%w: no open game", bingo.ErrNotFound)
	case 1:
		return copyGame(open), nil
	default:
		return nil, fmt.Errorf("%w: %d open games", bingo.ErrInvariant, count)
	}
}

func (m *Memory) CreateGame(ctx context.Context, size int, cells []bingo.Cell, now time.Time) (*bingo.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(size, cells, now), nil
}

func (m *Memory) SwapOpenGame(ctx context.Context, size int, cells []bingo.Cell, now time.Time) (*bingo.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.games {
		if !g.Completed {
			g.Completed = true
			if g.FinishedAt == nil {
				t := now
				g.FinishedAt = &t
			}
		}
	}
	return m.insertLocked(size, cells, now), nil
}

func (m *Memory) insertLocked(size int, cells []bingo.Cell, now time.Time) *bingo.Game {
	m.nextGame++
	g := &bingo.Game{ID: m.nextGame, Size: size, CreatedAt: now}
	m.games[g.ID] = g
	m.cells[g.ID] = append([]bingo.Cell{}, cells...)
	return copyGame(g)
}

func (m *Memory) Board(ctx context.Context, gameID int64) ([]bingo.Cell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[gameID]; !ok {
		return nil, fmt.Errorf("%w: game %d", bingo.ErrNotFound, gameID)
	}
	return append([]bingo.Cell{}, m.cells[gameID]...), nil
}

func (m *Memory) FreeIndex(ctx context.Context, gameID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cells[gameID] {
		if c.Prompt == bingo.FreePrompt {
			return c.Index, nil
		}
	}
	return 0, fmt.Errorf("%w: game %d has no free cell", bingo.ErrNotFound, gameID)
}

func (m *Memory) UserExists(ctx context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[userID]
	return ok, nil
}

func (m *Memory) Progress(ctx context.Context, gameID, userID int64) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int{}, m.progress[pairKey{gameID, userID}]...), nil
}

func (m *Memory) ReplaceProgress(ctx context.Context, gameID, userID int64, indices []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress[pairKey{gameID, userID}] = append([]int{}, indices...)
	return nil
}

func (m *Memory) HasWin(ctx context.Context, gameID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger[pairKey{gameID, userID}], nil
}

func (m *Memory) AwardWin(ctx context.Context, gameID, userID int64, firstPoints, laterPoints int, now time.Time) (bingo.WinResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.games[gameID]
	if !ok {
		return bingo.WinResult{}, fmt.Errorf("%w: game %d", bingo.ErrNotFound, gameID)
	}
	u, ok := m.users[userID]
	if !ok {
		return bingo.WinResult{}, fmt.Errorf("%w: user %d", bingo.ErrNotFound, userID)
	}

	key := pairKey{gameID, userID}
	if m.ledger[key] {
		return bingo.WinResult{}, nil
	}
	m.ledger[key] = true

	if g.Victor == nil {
		v := userID
		g.Victor = &v
		if g.FinishedAt == nil {
			t := now
			g.FinishedAt = &t
		}
		u.points += firstPoints
		u.gamesWon++
		return bingo.WinResult{Credited: true, First: true}, nil
	}

	if !m.ledger[pairKey{gameID, *g.Victor}] {
		return bingo.WinResult{}, fmt.Errorf("%w: game %d has a victor without a ledger entry", bingo.ErrInvariant, gameID)
	}
	u.points += laterPoints
	return bingo.WinResult{Credited: true, First: false}, nil
}

// copyGame returns a detached copy so callers never share the stored struct.
func copyGame(g *bingo.Game) *bingo.Game {
	out := *g
	if g.Victor != nil {
		v := *g.Victor
		out.Victor = &v
	}
	if g.FinishedAt != nil {
		t := *g.FinishedAt
		out.FinishedAt = &t
	}
	return &out
}
