package game

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// BoardSize is the fixed number of cards on a board.
const BoardSize = 25

// Config holds the tunable rules of a match. The card distribution is fixed
// once a board is created and must always sum to BoardSize.
type Config struct {
	FirstTeamCards  int           `json:"first_team_cards"`
	SecondTeamCards int           `json:"second_team_cards"`
	NeutralCards    int           `json:"neutral_cards"`
	AssassinCards   int           `json:"assassin_cards"`
	TurnTimeout     time.Duration `json:"turn_timeout"`
	// StalemateAfter ends the game after this many consecutive timeouts with
	// no accepted clue or guess in between. Zero disables the policy.
	StalemateAfter int `json:"stalemate_after"`
}

// DefaultConfig returns the standard 9/8/7/1 ruleset with 60s turns.
func DefaultConfig() Config {
	return Config{
		FirstTeamCards:  9,
		SecondTeamCards: 8,
		NeutralCards:    7,
		AssassinCards:   1,
		TurnTimeout:     60 * time.Second,
		StalemateAfter:  6,
	}
}

// Validate checks that the distribution fills the board exactly.
func (c Config) Validate() error {
	total := c.FirstTeamCards + c.SecondTeamCards + c.NeutralCards + c.AssassinCards
	if total != BoardSize {
		return fmt.Errorf("card distribution sums to %d, want %d: %w", total, BoardSize, ErrIntegrityFault)
	}
	if c.FirstTeamCards <= c.SecondTeamCards {
		return fmt.Errorf("first team must hold the larger card share: %w", ErrIntegrityFault)
	}
	if c.AssassinCards < 1 {
		return fmt.Errorf("at least one assassin card required: %w", ErrIntegrityFault)
	}
	return nil
}

// NewBoard assembles a shuffled board from exactly BoardSize distinct words.
// Which team receives the larger card share is decided by the rng; that team
// moves first and is returned alongside the board.
func NewBoard(words []string, cfg Config, rng *rand.Rand) ([]Card, Team, error) {
	if err := cfg.Validate(); err != nil {
		return nil, TeamNone, err
	}
	if len(words) != BoardSize {
		return nil, TeamNone, fmt.Errorf("got %d words, want %d: %w", len(words), BoardSize, ErrIntegrityFault)
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		key := strings.ToLower(strings.TrimSpace(w))
		if key == "" {
			return nil, TeamNone, fmt.Errorf("empty word in pool draw: %w", ErrIntegrityFault)
		}
		if _, dup := seen[key]; dup {
			return nil, TeamNone, fmt.Errorf("duplicate word %q in pool draw: %w", w, ErrIntegrityFault)
		}
		seen[key] = struct{}{}
	}

	first := TeamA
	if rng.Intn(2) == 1 {
		first = TeamB
	}

	types := make([]CardType, 0, BoardSize)
	for i := 0; i < cfg.FirstTeamCards; i++ {
		types = append(types, TeamCardType(first))
	}
	for i := 0; i < cfg.SecondTeamCards; i++ {
		types = append(types, TeamCardType(first.Opponent()))
	}
	for i := 0; i < cfg.NeutralCards; i++ {
		types = append(types, CardTypeNeutral)
	}
	for i := 0; i < cfg.AssassinCards; i++ {
		types = append(types, CardTypeAssassin)
	}
	rng.Shuffle(len(types), func(i, j int) {
		types[i], types[j] = types[j], types[i]
	})

	board := make([]Card, BoardSize)
	for i, w := range words {
		board[i] = Card{Word: w, Type: types[i]}
	}
	return board, first, nil
}
