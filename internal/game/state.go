package game

import (
	"fmt"
	"math/rand"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Game is the authoritative state of one match. It is a pure state machine:
// every operation is fully applied or fully rejected, and nothing here is
// safe for concurrent use. Serialization is the owning Session's job.
type Game struct {
	ID          uuid.UUID
	Players     []Player
	Board       []Card
	CurrentTurn Team
	CurrentClue *Clue
	Status      Status
	TurnCount   int
	Winner      Team
	Reason      EndReason
	CreatedAt   time.Time
	StartedAt   time.Time
	FinishedAt  time.Time

	cfg                 Config
	consecutiveTimeouts int
}

// NewGame creates a game in the waiting state. The roster is validated at
// Start so callers can assemble players incrementally.
func NewGame(id uuid.UUID, players []Player, cfg Config, now time.Time) *Game {
	return &Game{
		ID:        id,
		Players:   players,
		Status:    StatusWaiting,
		Winner:    TeamNone,
		CreatedAt: now,
		cfg:       cfg,
	}
}

// Config returns the ruleset the game was created with.
func (g *Game) Config() Config {
	return g.cfg
}

// validateRoster enforces the role policy: exactly one spymaster per team,
// zero or more operatives, distinct user ids.
func (g *Game) validateRoster() error {
	spymasters := map[Team]int{}
	seen := map[string]struct{}{}
	for _, p := range g.Players {
		if p.Team != TeamA && p.Team != TeamB {
			return fmt.Errorf("player %s has no team: %w", p.UserID, ErrGameNotReady)
		}
		if _, dup := seen[p.UserID]; dup {
			return fmt.Errorf("duplicate player %s: %w", p.UserID, ErrGameNotReady)
		}
		seen[p.UserID] = struct{}{}
		if p.Role == RoleSpymaster {
			spymasters[p.Team]++
		}
	}
	for _, team := range []Team{TeamA, TeamB} {
		if spymasters[team] != 1 {
			return fmt.Errorf("team %s has %d spymasters, want 1: %w", team, spymasters[team], ErrGameNotReady)
		}
	}
	return nil
}

// Start deals the board from the given pool draw and opens play. The team
// holding the larger card share takes the first turn.
func (g *Game) Start(words []string, rng *rand.Rand, now time.Time) error {
	if g.Status != StatusWaiting {
		return ErrGameNotInProgress
	}
	if err := g.validateRoster(); err != nil {
		return err
	}
	board, first, err := NewBoard(words, g.cfg, rng)
	if err != nil {
		return err
	}
	g.Board = board
	g.CurrentTurn = first
	g.Status = StatusInProgress
	g.StartedAt = now
	return nil
}

func (g *Game) playerByID(userID string) (Player, bool) {
	for _, p := range g.Players {
		if p.UserID == userID {
			return p, true
		}
	}
	return Player{}, false
}

func (g *Game) teamHasOperatives(team Team) bool {
	for _, p := range g.Players {
		if p.Team == team && p.Role == RoleOperative {
			return true
		}
	}
	return false
}

func (g *Game) unrevealedCount(ct CardType) int {
	n := 0
	for _, c := range g.Board {
		if c.Type == ct && !c.Revealed {
			n++
		}
	}
	return n
}

// validClueWord accepts non-empty words made of letters only.
func validClueWord(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// GiveClue records a clue from the current turn's spymaster. The clue grants
// number+1 guesses.
func (g *Game) GiveClue(userID, word string, number int) (Clue, error) {
	if g.Status != StatusInProgress {
		return Clue{}, ErrGameNotInProgress
	}
	p, ok := g.playerByID(userID)
	if !ok {
		return Clue{}, ErrPlayerNotFound
	}
	if p.Team != g.CurrentTurn {
		return Clue{}, ErrNotYourTurn
	}
	if p.Role != RoleSpymaster {
		return Clue{}, ErrWrongRole
	}
	if g.CurrentClue != nil {
		return Clue{}, ErrClueAlreadyActive
	}
	if !validClueWord(word) || number < 0 || number > 9 {
		return Clue{}, ErrInvalidClue
	}
	clue := Clue{Word: word, Number: number, RemainingGuesses: number + 1}
	g.CurrentClue = &clue
	g.consecutiveTimeouts = 0
	return clue, nil
}

// canGuess reports whether the player may reveal cards for their team.
// Operatives always may; a spymaster may only when the team fields no
// operatives (1-vs-1 matches).
func (g *Game) canGuess(p Player) bool {
	if p.Role == RoleOperative {
		return true
	}
	return !g.teamHasOperatives(p.Team)
}

// MakeGuess reveals one card for the guessing team and resolves the
// consequences. The assassin check takes precedence over any win check since
// it is evaluated on the card just revealed.
func (g *Game) MakeGuess(userID string, cardIndex int, now time.Time) (GuessOutcome, error) {
	if g.Status != StatusInProgress {
		return GuessOutcome{}, ErrGameNotInProgress
	}
	p, ok := g.playerByID(userID)
	if !ok {
		return GuessOutcome{}, ErrPlayerNotFound
	}
	if p.Team != g.CurrentTurn {
		return GuessOutcome{}, ErrNotYourTurn
	}
	if !g.canGuess(p) {
		return GuessOutcome{}, ErrWrongRole
	}
	if g.CurrentClue == nil || g.CurrentClue.RemainingGuesses <= 0 {
		return GuessOutcome{}, ErrNoActiveClue
	}
	if cardIndex < 0 || cardIndex >= len(g.Board) {
		return GuessOutcome{}, ErrCardIndexOutOfRange
	}
	if g.Board[cardIndex].Revealed {
		return GuessOutcome{}, ErrCardAlreadyRevealed
	}

	g.Board[cardIndex].Revealed = true
	g.CurrentClue.RemainingGuesses--
	g.consecutiveTimeouts = 0

	card := g.Board[cardIndex]
	outcome := GuessOutcome{
		CardIndex:  cardIndex,
		CardType:   card.Type,
		WasCorrect: card.Type == TeamCardType(g.CurrentTurn),
	}

	switch card.Type {
	case CardTypeAssassin:
		g.finish(g.CurrentTurn.Opponent(), EndReasonAssassin, now)
		outcome.GameFinished = true
	case TeamCardType(g.CurrentTurn):
		if g.unrevealedCount(card.Type) == 0 {
			g.finish(g.CurrentTurn, EndReasonAllCardsRevealed, now)
			outcome.GameFinished = true
		} else if g.CurrentClue.RemainingGuesses == 0 {
			g.passTurn()
			outcome.TurnPassed = true
		}
	case TeamCardType(g.CurrentTurn.Opponent()):
		// Handing the opponent their last card ends the game in their favor.
		if g.unrevealedCount(card.Type) == 0 {
			g.finish(g.CurrentTurn.Opponent(), EndReasonAllCardsRevealed, now)
			outcome.GameFinished = true
		} else {
			g.passTurn()
			outcome.TurnPassed = true
		}
	default:
		g.passTurn()
		outcome.TurnPassed = true
	}
	return outcome, nil
}

// Forfeit ends the game immediately in favor of the caller's opponent.
func (g *Game) Forfeit(userID string, now time.Time) error {
	if g.Status != StatusInProgress {
		return ErrGameNotInProgress
	}
	p, ok := g.playerByID(userID)
	if !ok {
		return ErrPlayerNotFound
	}
	g.finish(p.Team.Opponent(), EndReasonForfeit, now)
	return nil
}

// Timeout applies a forced turn pass without revealing a card. It never ends
// the game by itself; the returned flag tells the session that the stalemate
// policy threshold was crossed.
func (g *Game) Timeout() (stalemate bool, err error) {
	if g.Status != StatusInProgress {
		return false, ErrGameNotInProgress
	}
	g.passTurn()
	g.consecutiveTimeouts++
	return g.cfg.StalemateAfter > 0 && g.consecutiveTimeouts >= g.cfg.StalemateAfter, nil
}

// ResolveStalemate finishes an abandoned game. The team with fewer of its own
// cards left unrevealed wins; a tie is a draw.
func (g *Game) ResolveStalemate(now time.Time) error {
	if g.Status != StatusInProgress {
		return ErrGameNotInProgress
	}
	remA := g.unrevealedCount(CardTypeTeamA)
	remB := g.unrevealedCount(CardTypeTeamB)
	winner := TeamNone
	if remA < remB {
		winner = TeamA
	} else if remB < remA {
		winner = TeamB
	}
	g.finish(winner, EndReasonStalemate, now)
	return nil
}

// passTurn transfers the active turn to the other team and clears any clue.
func (g *Game) passTurn() {
	g.CurrentClue = nil
	g.TurnCount++
	g.CurrentTurn = g.CurrentTurn.Opponent()
}

func (g *Game) finish(winner Team, reason EndReason, now time.Time) {
	g.CurrentClue = nil
	g.Winner = winner
	g.Reason = reason
	g.Status = StatusFinished
	g.FinishedAt = now
}

// CheckIntegrity verifies structural invariants that must hold for the life
// of the match. A violation is a fatal fault, never a player-facing error.
func (g *Game) CheckIntegrity() error {
	if g.Status == StatusWaiting {
		return nil
	}
	if len(g.Board) != BoardSize {
		return fmt.Errorf("board has %d cards, want %d: %w", len(g.Board), BoardSize, ErrIntegrityFault)
	}
	counts := map[CardType]int{}
	for _, c := range g.Board {
		counts[c.Type]++
	}
	if counts[CardTypeAssassin] != g.cfg.AssassinCards {
		return fmt.Errorf("board has %d assassin cards, want %d: %w", counts[CardTypeAssassin], g.cfg.AssassinCards, ErrIntegrityFault)
	}
	return nil
}

// Summary builds the finalized archive record. Valid only once finished.
func (g *Game) Summary() (Summary, error) {
	if g.Status != StatusFinished {
		return Summary{}, ErrGameNotInProgress
	}
	board := make([]Card, len(g.Board))
	copy(board, g.Board)
	players := make([]Player, len(g.Players))
	copy(players, g.Players)
	return Summary{
		SessionID:  g.ID,
		Players:    players,
		Winner:     g.Winner,
		Reason:     g.Reason,
		TurnCount:  g.TurnCount,
		Duration:   g.FinishedAt.Sub(g.StartedAt),
		FinalBoard: board,
	}, nil
}

// Snapshot is a deep copy of the externally visible game state. Redaction of
// unrevealed card types for non-spymaster clients is the gateway's concern.
type Snapshot struct {
	ID          uuid.UUID `json:"id"`
	Players     []Player  `json:"players"`
	Board       []Card    `json:"board"`
	CurrentTurn Team      `json:"current_turn"`
	CurrentClue *Clue     `json:"current_clue,omitempty"`
	Status      Status    `json:"status"`
	TurnCount   int       `json:"turn_count"`
	Winner      Team      `json:"winner"`
	Reason      EndReason `json:"reason,omitempty"`
}

// Snapshot returns a copy that shares no memory with the live game.
func (g *Game) Snapshot() Snapshot {
	board := make([]Card, len(g.Board))
	copy(board, g.Board)
	players := make([]Player, len(g.Players))
	copy(players, g.Players)
	var clue *Clue
	if g.CurrentClue != nil {
		c := *g.CurrentClue
		clue = &c
	}
	return Snapshot{
		ID:          g.ID,
		Players:     players,
		Board:       board,
		CurrentTurn: g.CurrentTurn,
		CurrentClue: clue,
		Status:      g.Status,
		TurnCount:   g.TurnCount,
		Winner:      g.Winner,
		Reason:      g.Reason,
	}
}
