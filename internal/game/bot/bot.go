// Package bot provides the solo-mode participant. The agent goes through the
// identical session validation path as a human player; difficulty tuning
// lives entirely in the pluggable strategies.
package bot

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/game"
	"github.com/cluegrid/cluegrid/internal/game/events"
)

// Agent decides actions for one bot player.
type Agent struct {
	userID string
	team   game.Team
	role   game.Role
	clues  ClueStrategy
	guess  GuessStrategy
}

// NewAgent builds an agent for a player already present in the match roster.
func NewAgent(player game.Player, clues ClueStrategy, guess GuessStrategy) *Agent {
	return &Agent{
		userID: player.UserID,
		team:   player.Team,
		role:   player.Role,
		clues:  clues,
		guess:  guess,
	}
}

// UserID returns the bot's player id.
func (a *Agent) UserID() string {
	return a.userID
}

// mayGuess mirrors the session's guess eligibility: operatives always, the
// spymaster only when the team fields no operatives.
func (a *Agent) mayGuess(snap game.Snapshot) bool {
	if a.role == game.RoleOperative {
		return true
	}
	for _, p := range snap.Players {
		if p.Team == a.team && p.Role == game.RoleOperative {
			return false
		}
	}
	return true
}

// NextAction returns the agent's move for the given state, if it has one.
func (a *Agent) NextAction(snap game.Snapshot) (game.Action, bool) {
	if snap.Status != game.StatusInProgress || snap.CurrentTurn != a.team {
		return nil, false
	}
	if snap.CurrentClue == nil {
		if a.role != game.RoleSpymaster {
			return nil, false
		}
		word, number := a.clues.SelectClue(snap, a.team)
		return game.GiveClueAction{PlayerID: a.userID, Word: word, Number: number}, true
	}
	if !a.mayGuess(snap) {
		return nil, false
	}
	index, ok := a.guess.SelectGuess(snap, a.team)
	if !ok {
		return nil, false
	}
	return game.MakeGuessAction{PlayerID: a.userID, CardIndex: index}, true
}

// Runner drives an agent against a live session: every session event wakes it
// to reconsider, and each action it submits is validated exactly like a
// human's.
type Runner struct {
	agent   *Agent
	session *game.Session
	wake    chan struct{}
}

// NewRunner builds a runner for the agent. Notify is safe immediately; Bind
// must attach the session before Run.
func NewRunner(agent *Agent) *Runner {
	return &Runner{
		agent: agent,
		wake:  make(chan struct{}, 1),
	}
}

// Bind attaches the live session the runner plays against.
func (r *Runner) Bind(session *game.Session) {
	r.session = session
}

// Notify wakes the runner. Never blocks; a coalesced wake is enough because
// the runner re-reads the full snapshot before acting.
func (r *Runner) Notify(events.Event) {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run loops until the session finishes or the context is cancelled.
func (r *Runner) Run(ctx context.Context) {
	if r.session == nil {
		log.Error().Str("bot_id", r.agent.UserID()).Msg("bot runner started without a session")
		return
	}
	log.Info().
		Str("session_id", r.session.ID()).
		Str("bot_id", r.agent.UserID()).
		Msg("bot runner started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.session.Done():
			log.Info().
				Str("session_id", r.session.ID()).
				Str("bot_id", r.agent.UserID()).
				Msg("session finished, bot runner stopping")
			return
		case <-r.wake:
			r.act(ctx)
		}
	}
}

// act submits at most one action; the event it produces wakes the runner for
// the next one.
func (r *Runner) act(ctx context.Context) {
	snap := r.session.Snapshot(ctx)
	action, ok := r.agent.NextAction(snap)
	if !ok {
		return
	}
	if _, err := r.session.Do(ctx, action); err != nil {
		if errors.Is(err, game.ErrGameNotInProgress) || errors.Is(err, context.Canceled) {
			return
		}
		// A rejection here means the state moved under us; the next event
		// wakes the runner with a fresh snapshot.
		log.Debug().
			Err(err).
			Str("session_id", r.session.ID()).
			Str("bot_id", r.agent.UserID()).
			Msg("bot action rejected")
	}
}
