package game

import "errors"

// Rejection errors returned by game operations. Every rejection leaves the
// game state untouched; callers may correct and retry.
var (
	// ErrNotYourTurn is returned when the caller's team does not hold the turn.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrWrongRole is returned when the caller's role cannot perform the action.
	ErrWrongRole = errors.New("wrong role")
	// ErrInvalidClue is returned for an empty, non-letter, or out-of-range clue.
	ErrInvalidClue = errors.New("invalid clue")
	// ErrClueAlreadyActive is returned when a clue is pending guesses.
	ErrClueAlreadyActive = errors.New("clue already active")
	// ErrNoActiveClue is returned when guessing without an active clue.
	ErrNoActiveClue = errors.New("no active clue")
	// ErrCardAlreadyRevealed is returned when the target card was already revealed.
	ErrCardAlreadyRevealed = errors.New("card already revealed")
	// ErrCardIndexOutOfRange is returned for indexes outside the board.
	ErrCardIndexOutOfRange = errors.New("card index out of range")
	// ErrGameNotReady is returned when starting without the required players.
	ErrGameNotReady = errors.New("game not ready")
	// ErrGameNotInProgress is returned for any action on a game that is not running.
	ErrGameNotInProgress = errors.New("game not in progress")
	// ErrPlayerNotFound is returned when the acting user is not in the match.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrIntegrityFault flags an internal invariant violation; the session
	// holding the game must be terminated.
	ErrIntegrityFault = errors.New("integrity fault")
)
