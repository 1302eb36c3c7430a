// internal/bingo/types.go
//
// Core type definitions for the bingo game engine.
// Defines:
//   - Game: one bingo round, bound to a board size and a set of prompts.
//   - Cell: a single board position (index + prompt text).

package bingo

import "time"

// Game holds the state of a single bingo round.
// Exactly one game has Completed == false at any time (the "open" game);
// the store and engine cooperate to enforce that.
type Game struct {
	ID         int64      `json:"id"`
	Size       int        `json:"size"`      // board is Size x Size, fixed at creation
	Completed  bool       `json:"completed"` // true once the round has been closed
	Victor     *int64     `json:"victor"`    // first winner's user id, nil until someone wins
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt"` // set on first win or on close, whichever comes first
}

// Cells returns the number of board positions (Size squared).
func (g *Game) Cells() int { return g.Size * g.Size }

// Cell is one board position. Index is in [0, n*n); exactly one cell per game
// holds the FreePrompt sentinel.
type Cell struct {
	Index  int    `json:"index"`
	Prompt string `json:"prompt"`
}
