package ingest

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/cluegrid/cluegrid/internal/game"
	"github.com/cluegrid/cluegrid/internal/game/events"
	"github.com/cluegrid/cluegrid/internal/game/registry"
	"github.com/cluegrid/cluegrid/internal/matchmaking"
	"github.com/cluegrid/cluegrid/internal/words"
)

type nopArchiver struct{}

func (nopArchiver) Archive(ctx context.Context, s game.Summary) error { return nil }

func newTestConsumer(t *testing.T) (*Consumer, *matchmaking.Queue, *registry.Registry) {
	t.Helper()
	list := make([]string, 40)
	for i := range list {
		list[i] = fmt.Sprintf("word%02d", i)
	}
	pool, err := words.NewStaticPool(list, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatal(err)
	}
	clock := clockwork.NewFakeClock()
	reg := registry.New(pool, clock, events.NopPublisher{}, nopArchiver{}, game.DefaultConfig(), rand.New(rand.NewSource(3)))
	t.Cleanup(reg.Close)
	queue := matchmaking.New(reg, events.NopPublisher{}, clock, matchmaking.DefaultConfig())
	return &Consumer{config: DefaultConfig(), queue: queue, registry: reg}, queue, reg
}

func TestRouteQueueCommands(t *testing.T) {
	c, queue, _ := newTestConsumer(t)
	ctx := context.Background()

	if err := c.route(ctx, Command{Type: CommandQueueJoin, UserID: "alice"}); err != nil {
		t.Fatal(err)
	}
	if queue.Len() != 1 {
		t.Fatalf("queue Len() = %d after join, want 1", queue.Len())
	}

	if err := c.route(ctx, Command{Type: CommandQueuePing, UserID: "alice"}); err != nil {
		t.Fatal(err)
	}
	// Pinging an unknown user is a caller mistake, never a processing error.
	if err := c.route(ctx, Command{Type: CommandQueuePing, UserID: "ghost"}); err != nil {
		t.Errorf("unknown ping returned %v, want nil", err)
	}

	if err := c.route(ctx, Command{Type: CommandQueueLeave, UserID: "alice"}); err != nil {
		t.Fatal(err)
	}
	if queue.Len() != 0 {
		t.Errorf("queue Len() = %d after leave, want 0", queue.Len())
	}
}

func TestRouteSoloCommand(t *testing.T) {
	c, _, reg := newTestConsumer(t)

	if err := c.route(context.Background(), Command{Type: CommandQueueSolo, UserID: "alice"}); err != nil {
		t.Fatal(err)
	}
	if reg.Len() != 1 {
		t.Errorf("registry Len() = %d after solo command, want 1", reg.Len())
	}
}

func TestRouteSessionCommands(t *testing.T) {
	c, _, reg := newTestConsumer(t)
	ctx := context.Background()

	id, err := reg.Create(ctx, []string{"alice", "bob"})
	if err != nil {
		t.Fatal(err)
	}
	snap, err := reg.Snapshot(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	spy := "alice"
	if snap.CurrentTurn == game.TeamB {
		spy = "bob"
	}

	err = c.route(ctx, Command{
		Type:      CommandSessionGiveClue,
		UserID:    spy,
		SessionID: id.String(),
		Word:      "ocean",
		Number:    1,
	})
	if err != nil {
		t.Fatal(err)
	}
	snap, err = reg.Snapshot(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if snap.CurrentClue == nil || snap.CurrentClue.Word != "ocean" {
		t.Errorf("clue not applied: %+v", snap.CurrentClue)
	}

	// A rule rejection is logged and swallowed so the message gets acked.
	err = c.route(ctx, Command{
		Type:      CommandSessionGiveClue,
		UserID:    spy,
		SessionID: id.String(),
		Word:      "river",
		Number:    1,
	})
	if err != nil {
		t.Errorf("rejected clue returned %v, want nil", err)
	}

	err = c.route(ctx, Command{Type: CommandSessionForfeit, UserID: spy, SessionID: id.String()})
	if err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && reg.Len() > 0 {
		time.Sleep(2 * time.Millisecond)
	}
	if reg.Len() != 0 {
		t.Error("forfeit did not tear the session down")
	}
}

func TestRouteRejectsMalformedSessionID(t *testing.T) {
	c, _, _ := newTestConsumer(t)

	err := c.route(context.Background(), Command{
		Type:      CommandSessionForfeit,
		UserID:    "alice",
		SessionID: "not-a-uuid",
	})
	if err == nil {
		t.Error("malformed session id accepted")
	}
}

func TestRouteUnknownSessionIsSwallowed(t *testing.T) {
	c, _, _ := newTestConsumer(t)

	err := c.route(context.Background(), Command{
		Type:      CommandSessionForfeit,
		UserID:    "alice",
		SessionID: uuid.New().String(),
	})
	if err != nil {
		t.Errorf("dispatch to unknown session returned %v, want nil", err)
	}
}

func TestRouteIgnoresUnknownType(t *testing.T) {
	c, _, _ := newTestConsumer(t)
	if err := c.route(context.Background(), Command{Type: "queue.teleport", UserID: "alice"}); err != nil {
		t.Errorf("unknown command type returned %v, want nil", err)
	}
}
