package registry

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/game"
)

// Archiver is the external sink finished sessions hand their summary to.
// Whether or how the summary is durably stored is not this engine's concern.
type Archiver interface {
	Archive(ctx context.Context, summary game.Summary) error
}

// LogArchiver records summaries to the structured log. It stands in for a
// real history/ranking store in development deployments.
type LogArchiver struct{}

func (LogArchiver) Archive(ctx context.Context, summary game.Summary) error {
	log.Info().
		Str("session_id", summary.SessionID.String()).
		Str("winner", string(summary.Winner)).
		Str("reason", string(summary.Reason)).
		Int("turn_count", summary.TurnCount).
		Dur("duration", summary.Duration).
		Int("players", len(summary.Players)).
		Msg("archived finished session")
	return nil
}
