package bingo

import "errors"

// Sentinel error kinds surfaced by the engine. Callers match them with
// errors.Is; wrapped messages carry the offending ids/indices.
var (
	// ErrNotFound is returned when a referenced game, user, or cell does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidIndex is returned for a cell index outside [0, n*n).
	ErrInvalidIndex = errors.New("invalid cell index")

	// ErrPoolExhausted is returned when the prompt pool cannot supply enough
	// distinct prompts to fill a board.
	ErrPoolExhausted = errors.New("prompt pool exhausted")

	// ErrGameClosed is returned for progress updates against a finished game.
	ErrGameClosed = errors.New("game closed")

	// ErrConflict indicates lock/transaction contention in the backing store.
	// The engine retries these a bounded number of times before surfacing.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrInvariant indicates a broken engine invariant (more than one open
	// game, or a victor without a ledger entry). Never swallowed, always logged.
	ErrInvariant = errors.New("invariant violation")
)
