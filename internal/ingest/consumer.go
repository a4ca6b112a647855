// Package ingest consumes the gateway's command stream and routes each
// command into the matchmaking queue or the session registry. Rejections are
// caller errors: they are logged and acked, never redelivered.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/game"
	"github.com/cluegrid/cluegrid/internal/game/bot"
	"github.com/cluegrid/cluegrid/internal/game/registry"
	"github.com/cluegrid/cluegrid/internal/matchmaking"
)

// CommandType enumerates the inbound action surface.
type CommandType string

const (
	CommandQueueJoin        CommandType = "queue.join"
	CommandQueueLeave       CommandType = "queue.leave"
	CommandQueuePing        CommandType = "queue.ping"
	CommandQueueSolo        CommandType = "queue.solo"
	CommandSessionGiveClue  CommandType = "session.giveClue"
	CommandSessionMakeGuess CommandType = "session.makeGuess"
	CommandSessionForfeit   CommandType = "session.forfeit"
)

// Command is the envelope the gateway publishes per player action.
type Command struct {
	CommandID  string      `json:"commandId"`
	Type       CommandType `json:"type"`
	UserID     string      `json:"userId"`
	SessionID  string      `json:"sessionId,omitempty"`
	Word       string      `json:"word,omitempty"`
	Number     int         `json:"number,omitempty"`
	CardIndex  int         `json:"cardIndex,omitempty"`
	Difficulty string      `json:"difficulty,omitempty"`
}

// Config configures the command stream consumer.
type Config struct {
	URL           string
	StreamName    string
	SubjectPrefix string
	ConsumerName  string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
}

// DefaultConfig returns the standard MATCH_COMMANDS consumer settings.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		StreamName:    "MATCH_COMMANDS",
		SubjectPrefix: "match.commands",
		ConsumerName:  "match-engine",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
	}
}

// Consumer pulls gateway commands off the bus.
type Consumer struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   Config

	queue    *matchmaking.Queue
	registry *registry.Registry
}

// NewConsumer connects, ensures the command stream, and binds the durable
// consumer.
func NewConsumer(cfg Config, queue *matchmaking.Queue, reg *registry.Registry) (*Consumer, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	c := &Consumer{nc: nc, js: js, config: cfg, queue: queue, registry: reg}

	ctx := context.Background()
	if err := c.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	if err := c.ensureConsumer(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}

	return c, nil
}

func (c *Consumer) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        c.config.StreamName,
		Description: "Inbound gateway commands for the match engine",
		Subjects:    []string{fmt.Sprintf("%s.>", c.config.SubjectPrefix)},
		Retention:   jetstream.WorkQueuePolicy,
		Storage:     jetstream.FileStorage,
	}
	if _, err := c.js.Stream(ctx, c.config.StreamName); err != nil {
		if _, err = c.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", c.config.StreamName).Msg("created JetStream stream")
	}
	return nil
}

func (c *Consumer) ensureConsumer(ctx context.Context) error {
	stream, err := c.js.Stream(ctx, c.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          c.config.ConsumerName,
		Durable:       c.config.ConsumerName,
		Description:   "Match engine command consumer",
		FilterSubject: fmt.Sprintf("%s.>", c.config.SubjectPrefix),
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    c.config.MaxDeliver,
		AckWait:       c.config.AckWait,
		MaxAckPending: c.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, c.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().Msg("created JetStream consumer for command ingest")
	} else {
		log.Info().Msg("using existing JetStream consumer for command ingest")
	}

	c.consumer = consumer
	return nil
}

// Start consumes commands until the context ends.
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().Msg("starting command ingest consumer")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("command ingest consumer shutting down")
			return nil
		case msg := <-messageCh:
			if err := c.processMessage(ctx, msg); err != nil {
				log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process command")
				if nakErr := msg.Nak(); nakErr != nil {
					log.Error().Err(nakErr).Msg("failed to NAK message")
				}
			} else {
				if ackErr := msg.Ack(); ackErr != nil {
					log.Error().Err(ackErr).Msg("failed to ACK message")
				}
			}
		}
	}
}

// processMessage decodes one command envelope and routes it.
func (c *Consumer) processMessage(ctx context.Context, msg jetstream.Msg) error {
	var cmd Command
	if err := json.Unmarshal(msg.Data(), &cmd); err != nil {
		return fmt.Errorf("unmarshal command envelope: %w", err)
	}
	return c.route(ctx, cmd)
}

// route executes one decoded command. Only infrastructure failures return
// errors; rule rejections stay with the caller.
func (c *Consumer) route(ctx context.Context, cmd Command) error {
	log.Debug().
		Str("command_id", cmd.CommandID).
		Str("type", string(cmd.Type)).
		Str("user_id", cmd.UserID).
		Msg("processing command")

	switch cmd.Type {
	case CommandQueueJoin:
		c.queue.Join(ctx, cmd.UserID)
	case CommandQueueLeave:
		c.queue.Leave(ctx, cmd.UserID)
	case CommandQueuePing:
		if err := c.queue.Ping(ctx, cmd.UserID); err != nil {
			log.Debug().Str("user_id", cmd.UserID).Msg("ping for unknown queue entry")
		}
	case CommandQueueSolo:
		difficulty := bot.Difficulty(cmd.Difficulty)
		if difficulty == "" {
			difficulty = bot.DifficultyMedium
		}
		if _, err := c.registry.CreateBotMatch(ctx, cmd.UserID, difficulty); err != nil {
			return fmt.Errorf("create bot match: %w", err)
		}
	case CommandSessionGiveClue, CommandSessionMakeGuess, CommandSessionForfeit:
		return c.dispatch(ctx, cmd)
	default:
		log.Warn().Str("type", string(cmd.Type)).Msg("unknown command type - ignoring")
	}
	return nil
}

func (c *Consumer) dispatch(ctx context.Context, cmd Command) error {
	sessionID, err := uuid.Parse(cmd.SessionID)
	if err != nil {
		return fmt.Errorf("parse session ID: %w", err)
	}

	var action game.Action
	switch cmd.Type {
	case CommandSessionGiveClue:
		action = game.GiveClueAction{PlayerID: cmd.UserID, Word: cmd.Word, Number: cmd.Number}
	case CommandSessionMakeGuess:
		action = game.MakeGuessAction{PlayerID: cmd.UserID, CardIndex: cmd.CardIndex}
	case CommandSessionForfeit:
		action = game.ForfeitAction{PlayerID: cmd.UserID}
	}

	if _, err := c.registry.Dispatch(ctx, sessionID, action); err != nil {
		// Typed rejection: the caller corrects and retries, redelivery won't.
		log.Info().
			Err(err).
			Str("command_id", cmd.CommandID).
			Str("session_id", cmd.SessionID).
			Str("user_id", cmd.UserID).
			Str("type", string(cmd.Type)).
			Msg("command rejected")
	}
	return nil
}

// Close shuts down the connection.
func (c *Consumer) Close() error {
	if c.nc != nil {
		c.nc.Close()
	}
	return nil
}
