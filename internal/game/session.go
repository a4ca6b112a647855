package game

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/game/events"
)

// Action is a command submitted to a session. The closed set of variants
// keeps the gateway boundary exhaustively checkable.
type Action interface {
	isAction()
}

// GiveClueAction submits a spymaster clue.
type GiveClueAction struct {
	PlayerID string
	Word     string
	Number   int
}

func (GiveClueAction) isAction() {}

// MakeGuessAction reveals one card.
type MakeGuessAction struct {
	PlayerID  string
	CardIndex int
}

func (MakeGuessAction) isAction() {}

// ForfeitAction concedes the match for the caller's team.
type ForfeitAction struct {
	PlayerID string
}

func (ForfeitAction) isAction() {}

type actionResult struct {
	snap Snapshot
	err  error
}

type sessionCommand struct {
	action Action
	reply  chan actionResult
}

// Session owns one Game for the lifetime of the match. All mutations flow
// through a single inbound command channel, so actions on one session are
// applied strictly in acceptance order without locks in the state machine.
type Session struct {
	game      *Game
	clock     clockwork.Clock
	publisher events.Publisher

	cmds chan sessionCommand
	done chan struct{}

	// onFinished receives the archive summary exactly once.
	onFinished func(Summary)
	// notify fans events to a local observer (bot runner). Must not block.
	notify func(events.Event)

	finalMu   sync.Mutex
	finalSnap Snapshot
}

// SessionOption configures a Session before Run.
type SessionOption func(*Session)

// WithObserver registers a non-blocking local event observer.
func WithObserver(fn func(events.Event)) SessionOption {
	return func(s *Session) { s.notify = fn }
}

// WithFinishedHook registers the archive callback invoked once on finish.
func WithFinishedHook(fn func(Summary)) SessionOption {
	return func(s *Session) { s.onFinished = fn }
}

// NewSession wraps a started game in its serialized actor.
func NewSession(g *Game, clock clockwork.Clock, publisher events.Publisher, opts ...SessionOption) *Session {
	s := &Session{
		game:      g,
		clock:     clock,
		publisher: publisher,
		cmds:      make(chan sessionCommand),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.game.ID.String()
}

// Done is closed once the session reaches the finished status.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Do submits one action and waits for its result. Once the session has
// finished, every further action is rejected with ErrGameNotInProgress.
func (s *Session) Do(ctx context.Context, action Action) (Snapshot, error) {
	cmd := sessionCommand{action: action, reply: make(chan actionResult, 1)}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return s.Snapshot(ctx), ErrGameNotInProgress
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case res := <-cmd.reply:
		return res.snap, res.err
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Snapshot returns a consistent copy of the current state.
func (s *Session) Snapshot(ctx context.Context) Snapshot {
	cmd := sessionCommand{reply: make(chan actionResult, 1)}
	select {
	case s.cmds <- cmd:
		select {
		case res := <-cmd.reply:
			return res.snap
		case <-ctx.Done():
		}
	case <-s.done:
		s.finalMu.Lock()
		defer s.finalMu.Unlock()
		return s.finalSnap
	case <-ctx.Done():
	}
	return Snapshot{}
}

// Run drives the session until it finishes or the context is cancelled. The
// turn timer lives inside this loop: one timer per in-progress session,
// re-armed by every accepted state-changing action, cancelled on finish.
func (s *Session) Run(ctx context.Context) {
	if s.game.Status != StatusInProgress {
		log.Error().Str("session_id", s.ID()).Msg("session started before game start")
		return
	}
	if err := s.game.CheckIntegrity(); err != nil {
		s.fault(ctx, err)
		return
	}

	timer := s.clock.NewTimer(s.game.cfg.TurnTimeout)
	defer stopAndDrainTimer(timer)
	armedTurn := s.game.TurnCount

	s.publish(ctx, events.TypeSnapshot, s.game.Snapshot())

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.cmds:
			if cmd.action == nil {
				cmd.reply <- actionResult{snap: s.game.Snapshot()}
				continue
			}
			advanced, err := s.apply(ctx, cmd.action)
			cmd.reply <- actionResult{snap: s.game.Snapshot(), err: err}
			if s.game.Status == StatusFinished {
				s.finish(ctx)
				return
			}
			if advanced {
				stopAndDrainTimer(timer)
				timer.Reset(s.game.cfg.TurnTimeout)
				armedTurn = s.game.TurnCount
			}
		case <-timer.Chan():
			// Stale fires are no-ops: the turn the timer was armed for must
			// still be the live one.
			if s.game.Status != StatusInProgress || s.game.TurnCount != armedTurn {
				continue
			}
			s.handleTimeout(ctx)
			if s.game.Status == StatusFinished {
				s.finish(ctx)
				return
			}
			timer.Reset(s.game.cfg.TurnTimeout)
			armedTurn = s.game.TurnCount
		}
	}
}

// apply validates and executes one action. The returned flag reports whether
// the action was accepted and the turn timer must be re-armed.
func (s *Session) apply(ctx context.Context, action Action) (bool, error) {
	now := s.clock.Now()
	switch a := action.(type) {
	case GiveClueAction:
		clue, err := s.game.GiveClue(a.PlayerID, a.Word, a.Number)
		if err != nil {
			return false, err
		}
		s.publish(ctx, events.TypeClueGiven, events.ClueGivenPayload{
			Word:             clue.Word,
			Number:           clue.Number,
			RemainingGuesses: clue.RemainingGuesses,
			Team:             string(s.game.CurrentTurn),
		})
		return true, nil
	case MakeGuessAction:
		guessingTeam := s.game.CurrentTurn
		outcome, err := s.game.MakeGuess(a.PlayerID, a.CardIndex, now)
		if err != nil {
			return false, err
		}
		s.publish(ctx, events.TypeCardRevealed, events.CardRevealedPayload{
			Index:      outcome.CardIndex,
			CardType:   string(outcome.CardType),
			WasCorrect: outcome.WasCorrect,
			Team:       string(guessingTeam),
		})
		if outcome.TurnPassed {
			s.publish(ctx, events.TypeTurnChanged, events.TurnChangedPayload{
				Team:      string(s.game.CurrentTurn),
				TurnCount: s.game.TurnCount,
			})
		}
		return true, nil
	case ForfeitAction:
		if err := s.game.Forfeit(a.PlayerID, now); err != nil {
			return false, err
		}
		return true, nil
	default:
		log.Warn().Str("session_id", s.ID()).Msg("unknown action type - rejecting")
		return false, ErrGameNotInProgress
	}
}

// handleTimeout applies the forced turn pass and the stalemate policy.
func (s *Session) handleTimeout(ctx context.Context) {
	stalemate, err := s.game.Timeout()
	if err != nil {
		return
	}
	log.Info().
		Str("session_id", s.ID()).
		Int("turn_count", s.game.TurnCount).
		Msg("turn timer expired - forcing turn pass")
	s.publish(ctx, events.TypeTurnChanged, events.TurnChangedPayload{
		Team:      string(s.game.CurrentTurn),
		TurnCount: s.game.TurnCount,
	})
	if stalemate {
		if err := s.game.ResolveStalemate(s.clock.Now()); err != nil {
			return
		}
		log.Info().
			Str("session_id", s.ID()).
			Str("winner", string(s.game.Winner)).
			Msg("consecutive timeout limit reached - resolving stalemate")
	}
}

// finish publishes the terminal event, archives the summary, and releases
// waiters. Called exactly once, from the run loop.
func (s *Session) finish(ctx context.Context) {
	s.publish(ctx, events.TypeGameEnded, events.GameEndedPayload{
		Winner:    string(s.game.Winner),
		Reason:    string(s.game.Reason),
		TurnCount: s.game.TurnCount,
	})

	s.finalMu.Lock()
	s.finalSnap = s.game.Snapshot()
	s.finalMu.Unlock()
	close(s.done)

	summary, err := s.game.Summary()
	if err != nil {
		log.Error().Err(err).Str("session_id", s.ID()).Msg("failed to build summary")
		return
	}
	if s.onFinished != nil {
		s.onFinished(summary)
	}
}

// fault terminates the session on an internal invariant violation.
func (s *Session) fault(ctx context.Context, err error) {
	log.Error().Err(err).Str("session_id", s.ID()).Msg("fatal integrity fault - terminating session")
	s.game.finish(TeamNone, "", s.clock.Now())
	s.finalMu.Lock()
	s.finalSnap = s.game.Snapshot()
	s.finalMu.Unlock()
	close(s.done)
}

func (s *Session) publish(ctx context.Context, typ events.Type, payload any) {
	ev, err := events.New(s.game.ID, typ, s.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("session_id", s.ID()).Msg("failed to build event")
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Error().
			Err(err).
			Str("session_id", s.ID()).
			Str("event_type", string(typ)).
			Msg("failed to publish event")
	}
	if s.notify != nil {
		s.notify(ev)
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel so a fire
// racing the stop cannot leak into the next arming.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
