package game

import (
	"time"

	"github.com/google/uuid"
)

// Team identifies one of the two sides of a match.
type Team string

const (
	TeamA Team = "TEAM_A"
	TeamB Team = "TEAM_B"
	// TeamNone is used for winnerless outcomes (stalemate draws).
	TeamNone Team = "NONE"
)

// Opponent returns the other team.
func (t Team) Opponent() Team {
	switch t {
	case TeamA:
		return TeamB
	case TeamB:
		return TeamA
	}
	return TeamNone
}

// Role defines what a player may do on their team's turn.
type Role string

const (
	// RoleSpymaster submits clues and sees every card's true type.
	RoleSpymaster Role = "SPYMASTER"
	// RoleOperative reveals cards based on an active clue.
	RoleOperative Role = "OPERATIVE"
)

// CardType is the hidden affiliation of a board card.
type CardType string

const (
	CardTypeTeamA    CardType = "TEAM_A"
	CardTypeTeamB    CardType = "TEAM_B"
	CardTypeNeutral  CardType = "NEUTRAL"
	CardTypeAssassin CardType = "ASSASSIN"
)

// TeamCardType maps a team to the card type it must reveal to win.
func TeamCardType(t Team) CardType {
	if t == TeamA {
		return CardTypeTeamA
	}
	return CardTypeTeamB
}

// Status defines the lifecycle state of a game.
type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusFinished   Status = "FINISHED"
)

// EndReason explains why a game reached the finished status.
type EndReason string

const (
	EndReasonAllCardsRevealed EndReason = "ALL_CARDS_REVEALED"
	EndReasonAssassin         EndReason = "ASSASSIN"
	EndReasonForfeit          EndReason = "FORFEIT"
	EndReasonStalemate        EndReason = "STALEMATE"
)

// Card is a single board cell. Only Revealed mutates after creation.
type Card struct {
	Word     string   `json:"word"`
	Type     CardType `json:"type"`
	Revealed bool     `json:"revealed"`
}

// Player is a participant bound to one team and one role.
type Player struct {
	UserID string `json:"user_id"`
	Team   Team   `json:"team"`
	Role   Role   `json:"role"`
}

// Clue is the active hint for the guessing team. RemainingGuesses starts at
// Number+1 per the standard extra-guess rule and only decreases until the
// clue is cleared by a turn pass.
type Clue struct {
	Word             string `json:"word"`
	Number           int    `json:"number"`
	RemainingGuesses int    `json:"remaining_guesses"`
}

// Summary is the finalized record handed to the archive sink when a game
// reaches the finished status.
type Summary struct {
	SessionID  uuid.UUID     `json:"session_id"`
	Players    []Player      `json:"players"`
	Winner     Team          `json:"winner"`
	Reason     EndReason     `json:"reason"`
	TurnCount  int           `json:"turn_count"`
	Duration   time.Duration `json:"duration"`
	FinalBoard []Card        `json:"final_board"`
}

// GuessOutcome reports what a single accepted guess did to the game.
type GuessOutcome struct {
	CardIndex    int      `json:"card_index"`
	CardType     CardType `json:"card_type"`
	WasCorrect   bool     `json:"was_correct"`
	TurnPassed   bool     `json:"turn_passed"`
	GameFinished bool     `json:"game_finished"`
}
