// Package matchmaking holds the FIFO waiting pool that pairs players into
// new sessions. Every mutation runs inside one critical section, so a tick
// can never pair a user that just left, and never pairs anyone twice.
package matchmaking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/game/events"
)

// ErrQueueEntryNotFound is returned when pinging a user who is not queued.
var ErrQueueEntryNotFound = errors.New("queue entry not found")

// SessionCreator is the registry-facing seam: pair two users into a match.
type SessionCreator interface {
	Create(ctx context.Context, userIDs []string) (uuid.UUID, error)
}

// Entry is one waiting player.
type Entry struct {
	UserID   string
	JoinedAt time.Time
	LastPing time.Time
}

// Config tunes queue reconciliation.
type Config struct {
	// InactivityWindow evicts entries whose last ping is older than this.
	InactivityWindow time.Duration
	// TickInterval drives periodic reconciliation in Run.
	TickInterval time.Duration
}

// DefaultConfig matches the standard 60s heartbeat window with 2s ticks.
func DefaultConfig() Config {
	return Config{
		InactivityWindow: 60 * time.Second,
		TickInterval:     2 * time.Second,
	}
}

// Queue is the matchmaking pool.
type Queue struct {
	mu      sync.Mutex
	entries []*Entry
	byUser  map[string]*Entry

	clock     clockwork.Clock
	cfg       Config
	sessions  SessionCreator
	publisher events.Publisher
}

// New builds an empty queue.
func New(sessions SessionCreator, publisher events.Publisher, clock clockwork.Clock, cfg Config) *Queue {
	return &Queue{
		byUser:    make(map[string]*Entry),
		clock:     clock,
		cfg:       cfg,
		sessions:  sessions,
		publisher: publisher,
	}
}

// Join inserts the user at the back of the pool. Re-joining while already
// queued is a no-op that refreshes the heartbeat, never the position.
func (q *Queue) Join(ctx context.Context, userID string) {
	q.mu.Lock()
	now := q.clock.Now()
	if e, ok := q.byUser[userID]; ok {
		e.LastPing = now
		q.mu.Unlock()
		return
	}
	e := &Entry{UserID: userID, JoinedAt: now, LastPing: now}
	q.entries = append(q.entries, e)
	q.byUser[userID] = e
	position := len(q.entries)
	total := len(q.entries)
	q.mu.Unlock()

	log.Info().
		Str("user_id", userID).
		Int("position", position).
		Msg("user joined matchmaking queue")
	q.publishQueueUpdated(ctx, userID, position, total)
}

// Leave removes the user if present; absent users are not an error.
func (q *Queue) Leave(ctx context.Context, userID string) {
	q.mu.Lock()
	_, ok := q.byUser[userID]
	if ok {
		q.removeLocked(userID)
	}
	q.mu.Unlock()

	if ok {
		log.Info().Str("user_id", userID).Msg("user left matchmaking queue")
	}
}

// Ping refreshes the user's heartbeat.
func (q *Queue) Ping(ctx context.Context, userID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.byUser[userID]
	if !ok {
		return ErrQueueEntryNotFound
	}
	e.LastPing = q.clock.Now()
	return nil
}

// Len reports the number of waiting entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Tick runs one reconciliation pass: evict stale entries, then pair the two
// oldest entries for as long as at least two remain. A failed session
// creation re-inserts both entries in their original order.
func (q *Queue) Tick(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.evictStaleLocked(ctx)

	for len(q.entries) >= 2 {
		a, b := q.entries[0], q.entries[1]
		q.entries = q.entries[2:]
		delete(q.byUser, a.UserID)
		delete(q.byUser, b.UserID)

		sessionID, err := q.sessions.Create(ctx, []string{a.UserID, b.UserID})
		if err != nil {
			log.Error().
				Err(err).
				Str("user_a", a.UserID).
				Str("user_b", b.UserID).
				Msg("session creation failed - re-queueing both users")
			q.entries = append([]*Entry{a, b}, q.entries...)
			q.byUser[a.UserID] = a
			q.byUser[b.UserID] = b
			return
		}

		log.Info().
			Str("session_id", sessionID.String()).
			Str("user_a", a.UserID).
			Str("user_b", b.UserID).
			Msg("paired users into new session")
		q.publishMatchFound(ctx, sessionID, []string{a.UserID, b.UserID})
	}

	q.publishPositionsLocked(ctx)
}

// Run drives Tick on the configured interval until the context ends.
func (q *Queue) Run(ctx context.Context) {
	ticker := q.clock.NewTicker(q.cfg.TickInterval)
	defer ticker.Stop()

	log.Info().
		Dur("tick_interval", q.cfg.TickInterval).
		Dur("inactivity_window", q.cfg.InactivityWindow).
		Msg("matchmaking queue started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("matchmaking queue stopping")
			return
		case <-ticker.Chan():
			q.Tick(ctx)
		}
	}
}

// evictStaleLocked drops entries whose heartbeat exceeded the window.
func (q *Queue) evictStaleLocked(ctx context.Context) {
	cutoff := q.clock.Now().Add(-q.cfg.InactivityWindow)
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.LastPing.Before(cutoff) {
			delete(q.byUser, e.UserID)
			log.Info().
				Str("user_id", e.UserID).
				Time("last_ping", e.LastPing).
				Msg("evicting stale queue entry")
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
}

func (q *Queue) removeLocked(userID string) {
	delete(q.byUser, userID)
	for i, e := range q.entries {
		if e.UserID == userID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// publishPositionsLocked reports each remaining entry's position after a
// reconciliation pass changed the pool.
func (q *Queue) publishPositionsLocked(ctx context.Context) {
	total := len(q.entries)
	for i, e := range q.entries {
		q.publishQueueUpdated(ctx, e.UserID, i+1, total)
	}
}

func (q *Queue) publishQueueUpdated(ctx context.Context, userID string, position, total int) {
	ev, err := events.New(uuid.Nil, events.TypeQueueUpdated, q.clock.Now(), events.QueueUpdatedPayload{
		UserID:       userID,
		Position:     position,
		TotalWaiting: total,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build QueueUpdated event")
		return
	}
	if err := q.publisher.Publish(ctx, ev); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to publish QueueUpdated event")
	}
}

func (q *Queue) publishMatchFound(ctx context.Context, sessionID uuid.UUID, userIDs []string) {
	ev, err := events.New(sessionID, events.TypeMatchFound, q.clock.Now(), events.MatchFoundPayload{
		SessionID: sessionID.String(),
		UserIDs:   userIDs,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build MatchFound event")
		return
	}
	if err := q.publisher.Publish(ctx, ev); err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to publish MatchFound event")
	}
}
