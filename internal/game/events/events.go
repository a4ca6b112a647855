// Package events defines the closed set of typed events the match engine
// emits toward the gateway, and the publisher boundary they cross.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type identifies an outbound event.
type Type string

const (
	TypeSnapshot     Type = "Snapshot"
	TypeClueGiven    Type = "ClueGiven"
	TypeCardRevealed Type = "CardRevealed"
	TypeTurnChanged  Type = "TurnChanged"
	TypeGameEnded    Type = "GameEnded"
	TypeQueueUpdated Type = "QueueUpdated"
	TypeMatchFound   Type = "MatchFound"
)

// Event is the envelope carried to the gateway. SessionID is zero for queue
// events that precede a match.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id,omitempty"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New wraps a payload into an envelope. Payload types in this package always
// marshal; an error here indicates a programming mistake upstream.
func New(sessionID uuid.UUID, typ Type, at time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Event{
		ID:        uuid.New(),
		SessionID: sessionID,
		Type:      typ,
		Timestamp: at,
		Data:      data,
	}, nil
}

// Publisher hands events to the gateway boundary.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when the engine runs without a bus.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }
