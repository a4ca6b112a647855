// Package registry creates, looks up, and tears down live match sessions.
// Actions on one session are serialized by the session's own command channel;
// distinct sessions proceed fully in parallel.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/game"
	"github.com/cluegrid/cluegrid/internal/game/bot"
	"github.com/cluegrid/cluegrid/internal/game/events"
	"github.com/cluegrid/cluegrid/internal/words"
)

// ErrSessionNotFound is returned when dispatching to an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

const archiveTimeout = 10 * time.Second

type liveSession struct {
	session *game.Session
	cancel  context.CancelFunc
}

// Registry owns every running session.
type Registry struct {
	pool      words.Pool
	clock     clockwork.Clock
	publisher events.Publisher
	archiver  Archiver
	cfg       game.Config

	mu       sync.RWMutex
	sessions map[uuid.UUID]*liveSession
	rng      *rand.Rand

	baseCtx context.Context
	cancel  context.CancelFunc
}

// New builds a registry. Sessions it creates live until they finish, the
// registry is closed, or Remove is called.
func New(pool words.Pool, clock clockwork.Clock, publisher events.Publisher, archiver Archiver, cfg game.Config, rng *rand.Rand) *Registry {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Registry{
		pool:      pool,
		clock:     clock,
		publisher: publisher,
		archiver:  archiver,
		cfg:       cfg,
		sessions:  make(map[uuid.UUID]*liveSession),
		rng:       rng,
		baseCtx:   baseCtx,
		cancel:    cancel,
	}
}

// Create pairs exactly two users into a new 1-vs-1 match. Each player runs
// their own team as its spymaster; guess eligibility falls back to the
// spymaster on teams without operatives.
func (r *Registry) Create(ctx context.Context, userIDs []string) (uuid.UUID, error) {
	if len(userIDs) != 2 {
		return uuid.Nil, fmt.Errorf("pairing requires exactly 2 users, got %d: %w", len(userIDs), game.ErrGameNotReady)
	}
	players := []game.Player{
		{UserID: userIDs[0], Team: game.TeamA, Role: game.RoleSpymaster},
		{UserID: userIDs[1], Team: game.TeamB, Role: game.RoleSpymaster},
	}
	return r.CreateMatch(ctx, players)
}

// CreateMatch starts a session for a full roster. Failures propagate without
// partial registration.
func (r *Registry) CreateMatch(ctx context.Context, players []game.Player, opts ...game.SessionOption) (uuid.UUID, error) {
	draw, err := r.pool.Draw(game.BoardSize)
	if err != nil {
		return uuid.Nil, fmt.Errorf("draw words: %w", err)
	}

	id := uuid.New()
	now := r.clock.Now()
	g := game.NewGame(id, players, r.cfg, now)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := g.Start(draw, r.rng, now); err != nil {
		return uuid.Nil, fmt.Errorf("start game: %w", err)
	}

	opts = append(opts, game.WithFinishedHook(func(summary game.Summary) {
		r.archiveAndRemove(id, summary)
	}))
	sess := game.NewSession(g, r.clock, r.publisher, opts...)

	sessCtx, cancel := context.WithCancel(r.baseCtx)
	r.sessions[id] = &liveSession{session: sess, cancel: cancel}
	go sess.Run(sessCtx)

	log.Info().
		Str("session_id", id.String()).
		Int("players", len(players)).
		Msg("session created")
	return id, nil
}

// CreateBotMatch starts a solo match against a heuristic bot opponent. The
// bot submits actions through the same dispatch path as the human.
func (r *Registry) CreateBotMatch(ctx context.Context, userID string, difficulty bot.Difficulty) (uuid.UUID, error) {
	botID := "bot-" + uuid.New().String()[:8]
	players := []game.Player{
		{UserID: userID, Team: game.TeamA, Role: game.RoleSpymaster},
		{UserID: botID, Team: game.TeamB, Role: game.RoleSpymaster},
	}

	r.mu.Lock()
	strat := bot.NewHeuristicStrategy(difficulty, rand.New(rand.NewSource(r.rng.Int63())))
	r.mu.Unlock()
	agent := bot.NewAgent(players[1], strat, strat)
	runner := bot.NewRunner(agent)

	id, err := r.CreateMatch(ctx, players, game.WithObserver(runner.Notify))
	if err != nil {
		return uuid.Nil, err
	}

	r.mu.RLock()
	live := r.sessions[id]
	r.mu.RUnlock()
	if live == nil {
		return uuid.Nil, ErrSessionNotFound
	}
	runner.Bind(live.session)
	go runner.Run(r.baseCtx)
	runner.Notify(events.Event{})

	log.Info().
		Str("session_id", id.String()).
		Str("bot_id", botID).
		Str("difficulty", string(difficulty)).
		Msg("bot match created")
	return id, nil
}

// Dispatch applies one action to the identified session.
func (r *Registry) Dispatch(ctx context.Context, sessionID uuid.UUID, action game.Action) (game.Snapshot, error) {
	r.mu.RLock()
	live, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return game.Snapshot{}, ErrSessionNotFound
	}
	return live.session.Do(ctx, action)
}

// Snapshot returns the current state of the identified session.
func (r *Registry) Snapshot(ctx context.Context, sessionID uuid.UUID) (game.Snapshot, error) {
	r.mu.RLock()
	live, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return game.Snapshot{}, ErrSessionNotFound
	}
	return live.session.Snapshot(ctx), nil
}

// Remove frees a session's resources. Finished sessions remove themselves
// after archival; this also covers administrative teardown.
func (r *Registry) Remove(sessionID uuid.UUID) {
	r.mu.Lock()
	live, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()
	if ok {
		live.cancel()
		log.Info().Str("session_id", sessionID.String()).Msg("session removed")
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close cancels every live session.
func (r *Registry) Close() {
	r.cancel()
	r.mu.Lock()
	r.sessions = make(map[uuid.UUID]*liveSession)
	r.mu.Unlock()
}

// archiveAndRemove hands the summary to the sink, then frees the session.
// Runs on the session goroutine as its last act.
func (r *Registry) archiveAndRemove(id uuid.UUID, summary game.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := r.archiver.Archive(ctx, summary); err != nil {
		log.Error().Err(err).Str("session_id", id.String()).Msg("failed to archive session summary")
	}
	r.Remove(id)
}
