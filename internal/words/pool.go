// Package words supplies the word pool the match engine deals boards from.
package words

import (
	"bufio"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
)

//go:embed wordlist.txt
var wordlistFS embed.FS

// Pool supplies n distinct words per draw. Content source and localization
// live behind this boundary.
type Pool interface {
	Draw(n int) ([]string, error)
}

// StaticPool draws from a fixed in-memory word list.
type StaticPool struct {
	mu    sync.Mutex
	words []string
	rng   *rand.Rand
}

// NewStaticPool builds a pool from the given words, dropping blanks and
// case-insensitive duplicates.
func NewStaticPool(list []string, rng *rand.Rand) (*StaticPool, error) {
	seen := make(map[string]struct{}, len(list))
	words := make([]string, 0, len(list))
	for _, w := range list {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		key := strings.ToLower(w)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		words = append(words, w)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("word list is empty")
	}
	return &StaticPool{words: words, rng: rng}, nil
}

// NewEmbeddedPool loads the word list shipped with the binary.
func NewEmbeddedPool(rng *rand.Rand) (*StaticPool, error) {
	f, err := wordlistFS.Open("wordlist.txt")
	if err != nil {
		return nil, fmt.Errorf("open embedded word list: %w", err)
	}
	defer f.Close()

	var list []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		list = append(list, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read embedded word list: %w", err)
	}
	return NewStaticPool(list, rng)
}

// NewFilePool loads a newline-delimited word list from disk, falling back to
// the embedded list when path is empty.
func NewFilePool(path string, rng *rand.Rand) (*StaticPool, error) {
	if path == "" {
		return NewEmbeddedPool(rng)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read word list %s: %w", path, err)
	}
	return NewStaticPool(strings.Split(string(data), "\n"), rng)
}

// Draw returns n distinct words sampled without replacement.
func (p *StaticPool) Draw(n int) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n > len(p.words) {
		return nil, fmt.Errorf("pool holds %d words, cannot draw %d", len(p.words), n)
	}
	idx := p.rng.Perm(len(p.words))[:n]
	draw := make([]string, n)
	for i, j := range idx {
		draw[i] = p.words[j]
	}
	return draw, nil
}

// Size returns the number of words available to draw from.
func (p *StaticPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.words)
}
