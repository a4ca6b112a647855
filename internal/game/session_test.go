package game

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/cluegrid/cluegrid/internal/game/events"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// newTestSession builds a running session over a deterministic board driven by
// a fake clock.
func newTestSession(t *testing.T, cfg Config, opts ...SessionOption) (*Session, *events.CapturePublisher, *clockwork.FakeClock, context.CancelFunc) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	g := NewGame(uuid.New(), fullRoster(), cfg, clock.Now())
	g.Board = fixedBoard()
	g.CurrentTurn = TeamA
	g.Status = StatusInProgress
	g.StartedAt = clock.Now()

	pub := events.NewCapturePublisher()
	sess := NewSession(g, clock, pub, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sess.Run(ctx)

	// Wait for the run loop to arm the turn timer before any test advances
	// the clock.
	blockCtx, blockCancel := context.WithTimeout(ctx, 2*time.Second)
	defer blockCancel()
	if err := clock.BlockUntilContext(blockCtx, 1); err != nil {
		t.Fatalf("session never armed its turn timer: %v", err)
	}
	return sess, pub, clock, cancel
}

// sync round-trips a read through the command channel, guaranteeing the loop
// finished processing (and re-arming) everything submitted before it.
func syncSnap(t *testing.T, sess *Session) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return sess.Snapshot(ctx)
}

func TestSessionAppliesActionsInOrder(t *testing.T) {
	sess, pub, _, _ := newTestSession(t, DefaultConfig())
	ctx := context.Background()

	snap, err := sess.Do(ctx, GiveClueAction{PlayerID: "spy-a", Word: "ocean", Number: 1})
	if err != nil {
		t.Fatalf("GiveClue action: %v", err)
	}
	if snap.CurrentClue == nil || snap.CurrentClue.RemainingGuesses != 2 {
		t.Fatalf("clue not recorded in snapshot: %+v", snap.CurrentClue)
	}

	snap, err = sess.Do(ctx, MakeGuessAction{PlayerID: "op-a", CardIndex: 0})
	if err != nil {
		t.Fatalf("MakeGuess action: %v", err)
	}
	if !snap.Board[0].Revealed {
		t.Error("guessed card not revealed in snapshot")
	}

	// A rejected action must surface its sentinel and leave state alone.
	if _, err := sess.Do(ctx, MakeGuessAction{PlayerID: "op-b", CardIndex: 1}); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("out-of-turn guess error = %v, want ErrNotYourTurn", err)
	}
	if syncSnap(t, sess).Board[1].Revealed {
		t.Error("rejected guess revealed a card")
	}

	if got := len(pub.ByType(events.TypeSnapshot)); got != 1 {
		t.Errorf("initial snapshot events = %d, want 1", got)
	}
	if got := len(pub.ByType(events.TypeClueGiven)); got != 1 {
		t.Errorf("clue events = %d, want 1", got)
	}
	if got := len(pub.ByType(events.TypeCardRevealed)); got != 1 {
		t.Errorf("reveal events = %d, want 1", got)
	}
}

func TestSessionTimeoutPassesTurn(t *testing.T) {
	cfg := DefaultConfig()
	sess, pub, clock, _ := newTestSession(t, cfg)
	ctx := context.Background()

	if _, err := sess.Do(ctx, GiveClueAction{PlayerID: "spy-a", Word: "ocean", Number: 3}); err != nil {
		t.Fatal(err)
	}
	syncSnap(t, sess)

	clock.Advance(cfg.TurnTimeout)
	waitFor(t, "turn pass", func() bool { return syncSnap(t, sess).TurnCount == 1 })

	snap := syncSnap(t, sess)
	if snap.CurrentTurn != TeamB {
		t.Errorf("CurrentTurn = %s, want TeamB", snap.CurrentTurn)
	}
	if snap.CurrentClue != nil {
		t.Error("clue survived the timeout")
	}
	for i, c := range snap.Board {
		if c.Revealed {
			t.Fatalf("timeout revealed card %d", i)
		}
	}
	if snap.Status != StatusInProgress {
		t.Errorf("Status = %s, want in progress", snap.Status)
	}
	if got := len(pub.ByType(events.TypeTurnChanged)); got != 1 {
		t.Errorf("turn change events = %d, want 1", got)
	}
}

func TestSessionActionRearmsTimer(t *testing.T) {
	cfg := DefaultConfig()
	sess, _, clock, _ := newTestSession(t, cfg)
	ctx := context.Background()

	if _, err := sess.Do(ctx, GiveClueAction{PlayerID: "spy-a", Word: "ocean", Number: 1}); err != nil {
		t.Fatal(err)
	}
	syncSnap(t, sess)
	clock.Advance(cfg.TurnTimeout / 2)

	// A neutral reveal passes the turn and re-arms the timer from now.
	if _, err := sess.Do(ctx, MakeGuessAction{PlayerID: "op-a", CardIndex: 17}); err != nil {
		t.Fatal(err)
	}
	snap := syncSnap(t, sess)
	if snap.TurnCount != 1 || snap.CurrentTurn != TeamB {
		t.Fatalf("turn did not pass on neutral reveal: %+v", snap)
	}

	// Past the original deadline but short of the re-armed one: no pass.
	clock.Advance(cfg.TurnTimeout * 3 / 4)
	if got := syncSnap(t, sess).TurnCount; got != 1 {
		t.Fatalf("stale deadline forced a pass: TurnCount = %d", got)
	}

	clock.Advance(cfg.TurnTimeout / 2)
	waitFor(t, "re-armed timer to fire", func() bool { return syncSnap(t, sess).TurnCount == 2 })
}

func TestSessionRejectsActionsAfterFinish(t *testing.T) {
	var archived Summary
	done := make(chan struct{})
	sess, pub, _, _ := newTestSession(t, DefaultConfig(), WithFinishedHook(func(s Summary) {
		archived = s
		close(done)
	}))
	ctx := context.Background()

	snap, err := sess.Do(ctx, ForfeitAction{PlayerID: "op-b"})
	if err != nil {
		t.Fatalf("Forfeit action: %v", err)
	}
	if snap.Status != StatusFinished || snap.Winner != TeamA {
		t.Fatalf("snapshot after forfeit: status=%s winner=%s", snap.Status, snap.Winner)
	}

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after finish")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("finished hook never ran")
	}
	if archived.Winner != TeamA || archived.Reason != EndReasonForfeit {
		t.Errorf("archived summary = %+v", archived)
	}

	if _, err := sess.Do(ctx, GiveClueAction{PlayerID: "spy-b", Word: "river", Number: 1}); !errors.Is(err, ErrGameNotInProgress) {
		t.Errorf("post-finish action error = %v, want ErrGameNotInProgress", err)
	}
	if got := sess.Snapshot(ctx); got.Status != StatusFinished {
		t.Errorf("post-finish snapshot status = %s", got.Status)
	}

	ended := pub.ByType(events.TypeGameEnded)
	if len(ended) != 1 {
		t.Fatalf("game ended events = %d, want 1", len(ended))
	}
	var payload events.GameEndedPayload
	if err := json.Unmarshal(ended[0].Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Winner != string(TeamA) || payload.Reason != string(EndReasonForfeit) {
		t.Errorf("game ended payload = %+v", payload)
	}
}

func TestSessionStalemateResolution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StalemateAfter = 2
	sess, pub, clock, _ := newTestSession(t, cfg)

	clock.Advance(cfg.TurnTimeout)
	waitFor(t, "first timeout", func() bool { return syncSnap(t, sess).TurnCount == 1 })
	clock.Advance(cfg.TurnTimeout)

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish after consecutive timeout limit")
	}

	snap := sess.Snapshot(context.Background())
	if snap.Status != StatusFinished || snap.Reason != EndReasonStalemate {
		t.Fatalf("status=%s reason=%s, want finished stalemate", snap.Status, snap.Reason)
	}
	// Team B holds 8 unrevealed cards to team A's 9 and wins the tiebreak.
	if snap.Winner != TeamB {
		t.Errorf("Winner = %s, want TeamB", snap.Winner)
	}
	if got := len(pub.ByType(events.TypeGameEnded)); got != 1 {
		t.Errorf("game ended events = %d, want 1", got)
	}
}

func TestSessionObserverSeesEvents(t *testing.T) {
	var seen []events.Type
	ch := make(chan events.Type, 16)
	sess, _, _, _ := newTestSession(t, DefaultConfig(), WithObserver(func(ev events.Event) {
		ch <- ev.Type
	}))

	if _, err := sess.Do(context.Background(), GiveClueAction{PlayerID: "spy-a", Word: "ocean", Number: 0}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "observer notifications", func() bool {
		for {
			select {
			case typ := <-ch:
				seen = append(seen, typ)
			default:
				return len(seen) >= 2
			}
		}
	})
	if seen[0] != events.TypeSnapshot || seen[1] != events.TypeClueGiven {
		t.Errorf("observer saw %v, want snapshot then clue", seen)
	}
}

func TestSessionIntegrityFaultTerminates(t *testing.T) {
	clock := clockwork.NewFakeClock()
	g := NewGame(uuid.New(), fullRoster(), DefaultConfig(), clock.Now())
	g.Board = fixedBoard()[:BoardSize-1] // corrupt: one card short
	g.CurrentTurn = TeamA
	g.Status = StatusInProgress
	g.StartedAt = clock.Now()

	sess := NewSession(g, clock, events.NewCapturePublisher())
	go sess.Run(context.Background())

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("faulted session never terminated")
	}
	snap := sess.Snapshot(context.Background())
	if snap.Status != StatusFinished || snap.Winner != TeamNone {
		t.Errorf("faulted session status=%s winner=%s, want finished draw", snap.Status, snap.Winner)
	}
}
