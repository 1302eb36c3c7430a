// internal/bingo/board.go
//
// Board generation: n*n-1 distinct prompts sampled from a pool, plus one
// free cell. The free cell sits at index 4 (the center) on the classic 3x3
// board; for any other size it lands at a uniformly random position.

package bingo

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// FreePrompt is the sentinel text of the free cell. Win detection treats the
// free cell as completed by every user, whether or not the client submits it.
const FreePrompt = "FREE"

// PromptSource supplies k distinct prompt texts, sampled without replacement.
// Implementations should error when they cannot supply k entries.
type PromptSource interface {
	Sample(k int) ([]string, error)
}

// GenerateBoard builds the full ordered cell list for a new n x n game:
// n*n-1 pairwise-distinct prompts with the FreePrompt sentinel spliced in at
// the free position. The caller persists the cells atomically with the game.
func GenerateBoard(n int, pool PromptSource) ([]Cell, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: board size %d", ErrInvalidIndex, n)
	}
	cells := n * n

	texts, err := pool.Sample(cells - 1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPoolExhausted, err)
	}

	free := 4 // classic center free space
	if n != 3 {
		free = randIndex(cells)
	}

	board := make([]Cell, 0, cells)
	for i := 0; i < cells; i++ {
		switch {
		case i < free:
			board = append(board, Cell{Index: i, Prompt: texts[i]})
		case i == free:
			board = append(board, Cell{Index: i, Prompt: FreePrompt})
		default:
			board = append(board, Cell{Index: i, Prompt: texts[i-1]})
		}
	}
	return board, nil
}

// randIndex returns a cryptographically random int in [0, n).
func randIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
