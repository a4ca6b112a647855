package bot

import (
	"math/rand"
	"strings"

	"github.com/cluegrid/cluegrid/internal/game"
)

// Difficulty tunes how sharply the heuristic strategy plays.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// ClueStrategy selects a clue for the agent's team from the visible state.
type ClueStrategy interface {
	SelectClue(snap game.Snapshot, team game.Team) (word string, number int)
}

// GuessStrategy selects the index of an unrevealed card to reveal.
type GuessStrategy interface {
	SelectGuess(snap game.Snapshot, team game.Team) (cardIndex int, ok bool)
}

// clueLexicon is the vocabulary heuristic clues are drawn from. None of the
// entries appear in the shipped word list, so clues never collide with board
// words.
var clueLexicon = []string{
	"signal", "cluster", "pattern", "motive", "origin",
	"element", "journey", "texture", "motion", "rhythm",
	"climate", "machine", "nature", "object", "animal",
	"vessel", "terrain", "light", "sound", "shape",
}

// HeuristicStrategy implements both strategy sides with a difficulty-weighted
// random heuristic. It carries its own seeded rng, like the autopick path.
type HeuristicStrategy struct {
	difficulty Difficulty
	rng        *rand.Rand
}

// NewHeuristicStrategy constructs a strategy for the given difficulty.
func NewHeuristicStrategy(difficulty Difficulty, rng *rand.Rand) *HeuristicStrategy {
	return &HeuristicStrategy{difficulty: difficulty, rng: rng}
}

// targetBound is the maximum number of own cards one clue may target.
func (s *HeuristicStrategy) targetBound() int {
	switch s.difficulty {
	case DifficultyHard:
		return 3
	case DifficultyMedium:
		return 2
	default:
		return 1
	}
}

// SelectClue targets an unrevealed own-team subset bounded by difficulty and
// emits a lexicon word that does not collide with any board word.
func (s *HeuristicStrategy) SelectClue(snap game.Snapshot, team game.Team) (string, int) {
	remaining := 0
	onBoard := make(map[string]struct{}, len(snap.Board))
	for _, c := range snap.Board {
		onBoard[strings.ToLower(c.Word)] = struct{}{}
		if c.Type == game.TeamCardType(team) && !c.Revealed {
			remaining++
		}
	}

	number := s.targetBound()
	if remaining < number {
		number = remaining
	}

	word := clueLexicon[s.rng.Intn(len(clueLexicon))]
	for attempts := 0; attempts < len(clueLexicon); attempts++ {
		if _, taken := onBoard[word]; !taken {
			break
		}
		word = clueLexicon[s.rng.Intn(len(clueLexicon))]
	}
	return word, number
}

// SelectGuess picks among unrevealed cards with a difficulty-weighted bias
// toward the team's own remaining cards. Hard never touches the assassin.
func (s *HeuristicStrategy) SelectGuess(snap game.Snapshot, team game.Team) (int, bool) {
	var ownBias, assassinWeight int
	switch s.difficulty {
	case DifficultyHard:
		ownBias, assassinWeight = 8, 0
	case DifficultyMedium:
		ownBias, assassinWeight = 4, 1
	default:
		ownBias, assassinWeight = 1, 1
	}

	type candidate struct {
		index  int
		weight int
	}
	var candidates []candidate
	total := 0
	for i, c := range snap.Board {
		if c.Revealed {
			continue
		}
		weight := 1
		switch c.Type {
		case game.TeamCardType(team):
			weight = 1 + ownBias
		case game.CardTypeAssassin:
			weight = assassinWeight
		}
		if weight == 0 {
			continue
		}
		candidates = append(candidates, candidate{index: i, weight: weight})
		total += weight
	}
	if total == 0 {
		return 0, false
	}

	roll := s.rng.Intn(total)
	for _, c := range candidates {
		roll -= c.weight
		if roll < 0 {
			return c.index, true
		}
	}
	return candidates[len(candidates)-1].index, true
}
