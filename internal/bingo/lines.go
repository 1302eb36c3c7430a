// internal/bingo/lines.go
//
// Win detection for an n x n bingo board.
// A "line" is any full row, column, or diagonal: 2n+2 lines total. Each line
// is a bitmask over the n*n cells, so checking a win is one AND per line
// regardless of how many cells the user completed. The masks for a given n
// never change, so they are computed once and memoized.
//
// This generalizes the classic 3x3 eight-line table:
//   rows [0,1,2] [3,4,5] [6,7,8], cols [0,3,6] [1,4,7] [2,5,8],
//   diagonals [0,4,8] [2,4,6].

package bingo

import (
	"fmt"
	"math/bits"
	"sync"
)

// cellMask is a bitmask over the n*n board cells, bit i set iff cell i is in
// the set. Stored as uint64 words so boards with n*n > 64 work the same way.
type cellMask []uint64

func newCellMask(cells int) cellMask { return make(cellMask, (cells+63)/64) }

func (m cellMask) set(i int) { m[i/64] |= 1 << uint(i%64) }

// covers reports whether m contains every bit of line (superset check, not
// equality: extra completed cells never disqualify a win).
func (m cellMask) covers(line cellMask) bool {
	for w, bitsWanted := range line {
		if m[w]&bitsWanted != bitsWanted {
			return false
		}
	}
	return true
}

func (m cellMask) count() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

var (
	linesMu     sync.Mutex
	linesBySize = map[int][]cellMask{}
)

// winningLines returns the 2n+2 line masks for an n x n board, memoized per n.
func winningLines(n int) []cellMask {
	linesMu.Lock()
	defer linesMu.Unlock()
	if ls, ok := linesBySize[n]; ok {
		return ls
	}

	cells := n * n
	ls := make([]cellMask, 0, 2*n+2)

	for r := 0; r < n; r++ {
		m := newCellMask(cells)
		for c := 0; c < n; c++ {
			m.set(r*n + c)
		}
		ls = append(ls, m)
	}
	for c := 0; c < n; c++ {
		m := newCellMask(cells)
		for r := 0; r < n; r++ {
			m.set(r*n + c)
		}
		ls = append(ls, m)
	}

	diag := newCellMask(cells)
	anti := newCellMask(cells)
	for i := 0; i < n; i++ {
		diag.set(i*n + i)
		anti.set(i*n + (n - 1 - i))
	}
	ls = append(ls, diag, anti)

	linesBySize[n] = ls
	return ls
}

// IsWinner reports whether the completed set covers at least one winning line
// of an n x n board. Indices outside [0, n*n) are rejected with ErrInvalidIndex.
// Duplicate indices are tolerated; fewer than n distinct cells can never win.
func IsWinner(n int, completed []int) (bool, error) {
	if n < 1 {
		return false, fmt.Errorf("%w: board size %d", ErrInvalidIndex, n)
	}
	cells := n * n
	m := newCellMask(cells)
	for _, idx := range completed {
		if idx < 0 || idx >= cells {
			return false, fmt.Errorf("%w: %d (board has %d cells)", ErrInvalidIndex, idx, cells)
		}
		m.set(idx)
	}
	if m.count() < n {
		return false, nil
	}
	for _, line := range winningLines(n) {
		if m.covers(line) {
			return true, nil
		}
	}
	return false, nil
}
