package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"autoresearcher/pkg/archive"
)

// DBLogHandler is a slog.Handler that mirrors a run's log records into the
// archive, so the logs endpoint can replay what happened during a run.
type DBLogHandler struct {
	Store *archive.Store
	RunID uuid.UUID
}

func NewDBLogHandler(store *archive.Store, runID uuid.UUID) *DBLogHandler {
	return &DBLogHandler{
		Store: store,
		RunID: runID,
	}
}

func (h *DBLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *DBLogHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	metaJSON, err := json.Marshal(attrs)
	if err != nil {
		metaJSON = []byte("{}")
	}

	// Insert with a background context so records survive request
	// cancellation.
	return h.Store.InsertLog(context.Background(), h.RunID, r.Time, r.Level.String(), r.Message, metaJSON)
}

// WithAttrs and WithGroup return the handler unchanged. Per-run records are
// flat inserts; attribute chaining is not needed here.
func (h *DBLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *DBLogHandler) WithGroup(name string) slog.Handler {
	return h
}
