package events

import (
	"log/slog"

	"corepay/core/types"
)

// attributed is satisfied by event payloads that can render themselves as a
// wire-friendly attribute map.
type attributed interface {
	Event() *types.Event
}

// LogEmitter writes every emitted event to a structured logger. It is the
// default sink for a standalone node; an indexer or RPC subscription layer
// would replace it.
type LogEmitter struct {
	log *slog.Logger
}

// NewLogEmitter creates an emitter forwarding events to the supplied logger.
func NewLogEmitter(log *slog.Logger) *LogEmitter {
	if log == nil {
		log = slog.Default()
	}
	return &LogEmitter{log: log}
}

// Emit implements the Emitter interface.
func (e *LogEmitter) Emit(evt Event) {
	if evt == nil {
		return
	}
	args := []any{"type", evt.EventType()}
	if conv, ok := evt.(attributed); ok {
		if rendered := conv.Event(); rendered != nil {
			for key, value := range rendered.Attributes {
				args = append(args, key, value)
			}
		}
	}
	e.log.Info("ledger event", args...)
}
