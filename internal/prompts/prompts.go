// internal/prompts/prompts.go
//
// Prompt pool for board generation.
//
// Loading behavior (Load):
//   1. If PROMPTS_FILE is set, read one prompt per line from that file.
//   2. Otherwise fall back to the embedded default list.
//
// Lines are trimmed; empty lines and "#" comments are skipped; duplicates are
// dropped (first occurrence wins). Lines reading "FREE" are ignored because
// the board inserts its own free cell.

package prompts

import (
	"bufio"
	"crypto/rand"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
)

//go:embed default_prompts.txt
var embedded string

// Pool is a de-duplicated collection of candidate prompt texts.
type Pool struct {
	entries []string
}

// Load builds a pool from PROMPTS_FILE or the embedded defaults.
func Load() (*Pool, error) {
	var lines []string
	if path := os.Getenv("PROMPTS_FILE"); path != "" {
		var err error
		lines, err = readLines(path)
		if err != nil {
			return nil, fmt.Errorf("load prompts from %s: %w", path, err)
		}
	} else {
		lines = strings.Split(embedded, "\n")
	}

	p := FromList(lines)
	if p.Len() == 0 {
		return nil, errors.New("prompts: pool is empty")
	}
	return p, nil
}

// FromList builds a pool from raw lines, applying the same normalization as Load.
func FromList(lines []string) *Pool {
	seen := make(map[string]struct{}, len(lines))
	var entries []string
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if s == "" || strings.HasPrefix(s, "#") || s == "FREE" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		entries = append(entries, s)
	}
	return &Pool{entries: entries}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out, sc.Err()
}

// Len returns the number of distinct prompts available.
func (p *Pool) Len() int { return len(p.entries) }

// Sample returns k distinct prompts chosen uniformly without replacement.
// Errors when the pool holds fewer than k entries.
func (p *Pool) Sample(k int) ([]string, error) {
	if k < 0 {
		return nil, fmt.Errorf("prompts: negative sample size %d", k)
	}
	if k > len(p.entries) {
		return nil, fmt.Errorf("prompts: need %d distinct prompts, pool has %d", k, len(p.entries))
	}

	// Partial Fisher-Yates over a copy; only the first k slots are drawn.
	deck := append([]string{}, p.entries...)
	for i := 0; i < k; i++ {
		j := i + randInt(len(deck)-i)
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck[:k], nil
}

// randInt returns a cryptographically random int in [0, n).
func randInt(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
