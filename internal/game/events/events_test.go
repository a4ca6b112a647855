package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewEnvelope(t *testing.T) {
	sessionID := uuid.New()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	ev, err := New(sessionID, TypeClueGiven, at, ClueGivenPayload{Word: "ocean", Number: 2, RemainingGuesses: 3, Team: "TEAM_A"})
	if err != nil {
		t.Fatal(err)
	}
	if ev.SessionID != sessionID || ev.Type != TypeClueGiven || !ev.Timestamp.Equal(at) {
		t.Errorf("envelope = %+v", ev)
	}
	if ev.ID == uuid.Nil {
		t.Error("envelope has no id")
	}

	var payload ClueGivenPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Word != "ocean" || payload.RemainingGuesses != 3 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestCapturePublisher(t *testing.T) {
	pub := NewCapturePublisher()
	ctx := context.Background()

	for _, typ := range []Type{TypeSnapshot, TypeClueGiven, TypeClueGiven} {
		ev, err := New(uuid.New(), typ, time.Now(), struct{}{})
		if err != nil {
			t.Fatal(err)
		}
		if err := pub.Publish(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	if got := len(pub.Events()); got != 3 {
		t.Errorf("Events() = %d, want 3", got)
	}
	if got := len(pub.ByType(TypeClueGiven)); got != 2 {
		t.Errorf("ByType(ClueGiven) = %d, want 2", got)
	}
	if got := len(pub.ByType(TypeGameEnded)); got != 0 {
		t.Errorf("ByType(GameEnded) = %d, want 0", got)
	}
}
