package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bitbingo/go-server/internal/bingo"
	"github.com/bitbingo/go-server/internal/store"
)

func testCells(n int) []bingo.Cell {
	cells := make([]bingo.Cell, 0, n*n)
	free := n * n / 2
	for i := 0; i < n*n; i++ {
		prompt := bingo.FreePrompt
		if i != free {
			prompt = "cell " + string(rune('a'+i))
		}
		cells = append(cells, bingo.Cell{Index: i, Prompt: prompt})
	}
	return cells
}

func TestMemoryOpenGameLifecycle(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	now := time.Now().UTC()

	if _, err := m.OpenGame(ctx); !errors.Is(err, bingo.ErrNotFound) {
		t.Fatalf("OpenGame on empty store: %v, want ErrNotFound", err)
	}

	g1, err := m.CreateGame(ctx, 3, testCells(3), now)
	if err != nil {
		t.Fatal(err)
	}
	open, err := m.OpenGame(ctx)
	if err != nil || open.ID != g1.ID {
		t.Fatalf("OpenGame = (%v, %v), want game %d", open, err, g1.ID)
	}

	g2, err := m.SwapOpenGame(ctx, 4, testCells(4), now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	open, err = m.OpenGame(ctx)
	if err != nil || open.ID != g2.ID {
		t.Fatalf("OpenGame after swap = (%v, %v), want game %d", open, err, g2.ID)
	}

	closed, err := m.Game(ctx, g1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !closed.Completed || closed.FinishedAt == nil {
		t.Error("swapped-out game should be completed with a finish timestamp")
	}
}

func TestMemoryAwardWinSemantics(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	now := time.Now().UTC()

	userA := m.AddUser()
	userB := m.AddUser()
	g, err := m.CreateGame(ctx, 3, testCells(3), now)
	if err != nil {
		t.Fatal(err)
	}

	res, err := m.AwardWin(ctx, g.ID, userA, 100, 50, now)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Credited || !res.First {
		t.Fatalf("first award = %+v, want credited first win", res)
	}
	if pts, wins := m.UserStats(userA); pts != 100 || wins != 1 {
		t.Errorf("A stats = (%d, %d), want (100, 1)", pts, wins)
	}

	// Same user again: the ledger blocks a second credit.
	res, err = m.AwardWin(ctx, g.ID, userA, 100, 50, now)
	if err != nil {
		t.Fatal(err)
	}
	if res.Credited {
		t.Error("second award for the same user was credited")
	}

	// Different user: credited, but not first.
	res, err = m.AwardWin(ctx, g.ID, userB, 100, 50, now)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Credited || res.First {
		t.Fatalf("later award = %+v, want credited non-first", res)
	}
	if pts, wins := m.UserStats(userB); pts != 50 || wins != 0 {
		t.Errorf("B stats = (%d, %d), want (50, 0)", pts, wins)
	}

	got, _ := m.Game(ctx, g.ID)
	if got.Victor == nil || *got.Victor != userA {
		t.Errorf("victor = %v, want user %d", got.Victor, userA)
	}
}

func TestMemoryReplaceProgress(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	user := m.AddUser()
	g, _ := m.CreateGame(ctx, 3, testCells(3), time.Now().UTC())

	_ = m.ReplaceProgress(ctx, g.ID, user, []int{0, 1, 2})
	_ = m.ReplaceProgress(ctx, g.ID, user, []int{5})

	got, err := m.Progress(ctx, g.ID, user)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 5 {
		t.Errorf("progress = %v, want [5]", got)
	}
}

func TestMemoryFreeIndex(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	g, _ := m.CreateGame(ctx, 3, testCells(3), time.Now().UTC())

	idx, err := m.FreeIndex(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 4 {
		t.Errorf("free index = %d, want 4", idx)
	}
	if _, err := m.FreeIndex(ctx, g.ID+1); !errors.Is(err, bingo.ErrNotFound) {
		t.Errorf("FreeIndex for unknown game: %v, want ErrNotFound", err)
	}
}
