package bingo

import (
	"errors"
	"testing"
)

// classic3x3 is the fixed eight-line table the generalized detector must
// reproduce exactly.
var classic3x3 = [][]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

func TestIsWinnerMatchesClassicTable(t *testing.T) {
	for _, line := range classic3x3 {
		win, err := IsWinner(3, line)
		if err != nil {
			t.Fatalf("IsWinner(3, %v): %v", line, err)
		}
		if !win {
			t.Errorf("IsWinner(3, %v) = false, want true", line)
		}
	}
}

func TestIsWinnerSupersetStillWins(t *testing.T) {
	win, err := IsWinner(3, []int{7, 0, 1, 2, 5})
	if err != nil {
		t.Fatal(err)
	}
	if !win {
		t.Error("completed superset of row [0,1,2] should win")
	}
}

func TestIsWinnerNonWinningSets(t *testing.T) {
	cases := [][]int{
		{},
		{0, 1, 5, 6},
		{0, 4, 7, 5},
		{1, 3, 5, 7}, // all edges, no line
	}
	for _, s := range cases {
		win, err := IsWinner(3, s)
		if err != nil {
			t.Fatalf("IsWinner(3, %v): %v", s, err)
		}
		if win {
			t.Errorf("IsWinner(3, %v) = true, want false", s)
		}
	}
}

func TestIsWinnerTooFewDistinctCells(t *testing.T) {
	// Fewer than n distinct cells can never cover a line, even with duplicates.
	win, err := IsWinner(3, []int{0, 0, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if win {
		t.Error("two distinct cells cannot win on a 3x3 board")
	}

	// Duplicates of a full line still win.
	win, err = IsWinner(3, []int{0, 0, 1, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if !win {
		t.Error("duplicated indices covering a full line should win")
	}
}

func TestIsWinnerRejectsOutOfRange(t *testing.T) {
	for _, s := range [][]int{{9}, {-1}, {0, 1, 100}} {
		if _, err := IsWinner(3, s); !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("IsWinner(3, %v) err = %v, want ErrInvalidIndex", s, err)
		}
	}
	if _, err := IsWinner(0, nil); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("IsWinner(0) err = %v, want ErrInvalidIndex", err)
	}
}

func TestWinningLineShapes(t *testing.T) {
	for n := 1; n <= 6; n++ {
		ls := winningLines(n)
		if len(ls) != 2*n+2 {
			t.Errorf("n=%d: %d lines, want %d", n, len(ls), 2*n+2)
		}
		for i, line := range ls {
			if got := line.count(); got != n {
				t.Errorf("n=%d line %d: %d cells, want %d", n, i, got, n)
			}
		}
	}
}

func TestIsWinnerLargerBoards(t *testing.T) {
	cases := []struct {
		name string
		n    int
		set  []int
		want bool
	}{
		{"5x5 middle row", 5, []int{10, 11, 12, 13, 14}, true},
		{"5x5 column", 5, []int{3, 8, 13, 18, 23}, true},
		{"4x4 anti-diagonal", 4, []int{3, 6, 9, 12}, true},
		{"4x4 near miss", 4, []int{3, 6, 9, 13}, false},
		{"1x1 single cell", 1, []int{0}, true},
		{"1x1 empty", 1, []int{}, false},
		// 9x9 needs two mask words (81 bits).
		{"9x9 main diagonal", 9, []int{0, 10, 20, 30, 40, 50, 60, 70, 80}, true},
		{"9x9 last row", 9, []int{72, 73, 74, 75, 76, 77, 78, 79, 80}, true},
		{"9x9 scattered", 9, []int{0, 10, 20, 30, 40, 50, 60, 70, 79}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			win, err := IsWinner(tc.n, tc.set)
			if err != nil {
				t.Fatal(err)
			}
			if win != tc.want {
				t.Errorf("IsWinner(%d, %v) = %v, want %v", tc.n, tc.set, win, tc.want)
			}
		})
	}
}

// TestIsWinnerExhaustive3x3 checks every subset of the 3x3 board against the
// fixed table: a set wins iff it is a superset of one of the eight lines.
func TestIsWinnerExhaustive3x3(t *testing.T) {
	for bitset := 0; bitset < 1<<9; bitset++ {
		var set []int
		for i := 0; i < 9; i++ {
			if bitset&(1<<i) != 0 {
				set = append(set, i)
			}
		}

		want := false
		for _, line := range classic3x3 {
			covered := true
			for _, idx := range line {
				if bitset&(1<<idx) == 0 {
					covered = false
					break
				}
			}
			if covered {
				want = true
				break
			}
		}

		got, err := IsWinner(3, set)
		if err != nil {
			t.Fatalf("IsWinner(3, %v): %v", set, err)
		}
		if got != want {
			t.Errorf("IsWinner(3, %v) = %v, want %v", set, got, want)
		}
	}
}
