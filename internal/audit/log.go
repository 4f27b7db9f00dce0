package audit

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"iskolar.org/internal/auth"
	"iskolar.org/internal/stream"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Recorder writes audit entries to the structured log and mirrors them onto
// the live activity stream.
type Recorder struct {
	log    zerolog.Logger
	stream *stream.Stream
}

// NewRecorder builds a recorder. A nil stream disables the live feed mirror.
func NewRecorder(log zerolog.Logger, st *stream.Stream) *Recorder {
	return &Recorder{log: log, stream: st}
}

// Record emits one audit entry enriched with request and actor context.
func (r *Recorder) Record(ctx context.Context, event string, fields map[string]any) {
	event = strings.TrimSpace(event)
	if event == "" {
		return
	}

	evt := stream.Event{Event: event, RequestID: RequestIDFromContext(ctx)}
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		evt.ActorID = identity.AccountID
		evt.ActorRole = string(identity.Role)
	}
	if len(fields) > 0 {
		evt.Fields = make(map[string]any, len(fields))
		for k, v := range fields {
			evt.Fields[k] = v
		}
	}

	entry := r.log.Info().Str("type", "audit").Str("event", event)
	if evt.RequestID != "" {
		entry = entry.Str("request_id", evt.RequestID)
	}
	if evt.ActorID != "" {
		entry = entry.Str("actor_id", evt.ActorID).Str("actor_role", evt.ActorRole)
	}
	if evt.Fields != nil {
		entry = entry.Interface("fields", evt.Fields)
	}
	entry.Msg("audit")

	if r.stream != nil {
		r.stream.Publish(evt)
	}
}
