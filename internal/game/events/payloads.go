package events

// Event payload types shared between the match engine and the gateway.

// ClueGivenPayload is the payload for a ClueGiven event.
type ClueGivenPayload struct {
	Word             string `json:"word"`
	Number           int    `json:"number"`
	RemainingGuesses int    `json:"remaining_guesses"`
	Team             string `json:"team"`
}

// CardRevealedPayload is the payload for a CardRevealed event.
type CardRevealedPayload struct {
	Index      int    `json:"index"`
	CardType   string `json:"card_type"`
	WasCorrect bool   `json:"was_correct"`
	Team       string `json:"team"`
}

// TurnChangedPayload is the payload for a TurnChanged event.
type TurnChangedPayload struct {
	Team      string `json:"team"`
	TurnCount int    `json:"turn_count"`
}

// GameEndedPayload is the payload for a GameEnded event.
type GameEndedPayload struct {
	Winner    string `json:"winner"`
	Reason    string `json:"reason"`
	TurnCount int    `json:"turn_count"`
}

// QueueUpdatedPayload is the payload for a QueueUpdated event. Position is
// 1-based within the waiting pool.
type QueueUpdatedPayload struct {
	UserID       string `json:"user_id"`
	Position     int    `json:"position"`
	TotalWaiting int    `json:"total_waiting"`
}

// MatchFoundPayload is the payload for a MatchFound event.
type MatchFoundPayload struct {
	SessionID string   `json:"session_id"`
	UserIDs   []string `json:"user_ids"`
}
