package audit

import (
	"context"
	"log/slog"

	"github.com/PeterWorld816/movieapi/internal/actorctx"
	"github.com/PeterWorld816/movieapi/internal/observability"
)

type LogRecorder struct {
	log  *slog.Logger
	prom *observability.Prom
}

// NewLogRecorder writes one structured line per event and counts it when
// prom is set.
func NewLogRecorder(log *slog.Logger, prom *observability.Prom) *LogRecorder {
	if log == nil {
		log = slog.Default()
	}
	return &LogRecorder{log: log, prom: prom}
}

func (r *LogRecorder) Record(ctx context.Context, ev Event) {
	attrs := []any{
		"action", string(ev.Action),
		"outcome", ev.Outcome,
	}
	if ev.Reason != "" {
		attrs = append(attrs, "reason", ev.Reason)
	}
	if ev.UserID != "" {
		attrs = append(attrs, "user_id", ev.UserID)
	}
	if ev.Subject != "" {
		attrs = append(attrs, "subject", ev.Subject)
	}
	if reqID, ok := actorctx.RequestIDFrom(ctx); ok {
		attrs = append(attrs, "request_id", reqID)
	}

	level := slog.LevelInfo
	if ev.Outcome == OutcomeFailure {
		level = slog.LevelWarn
	}
	r.log.Log(ctx, level, "auth_event", attrs...)

	if r.prom != nil {
		r.prom.AuthEventsTotal.WithLabelValues(string(ev.Action), ev.Outcome, ev.Reason).Inc()
	}
}
