package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"autoresearcher/pkg/database"
	"autoresearcher/pkg/research"
)

// Store persists completed research runs and their logs. It is only
// constructed when a database is configured; the rest of the system treats a
// nil *Store as "archiving disabled".
type Store struct {
	DB *database.PostgresDB
}

func NewStore(db *database.PostgresDB) *Store {
	return &Store{DB: db}
}

// Run is an archived research run.
type Run struct {
	ID        uuid.UUID       `json:"id"`
	Topic     string          `json:"topic"`
	Status    string          `json:"status"`
	Report    *string         `json:"report,omitempty"`
	Sources   json.RawMessage `json:"sources,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreateRun inserts a new run in status running. Research executes inline
// with the request, so there is no pending state.
func (s *Store) CreateRun(ctx context.Context, topic string) (*Run, error) {
	query := `
		INSERT INTO research_runs (id, topic, status)
		VALUES ($1, $2, 'running')
		RETURNING id, topic, status, created_at, updated_at
	`

	run := &Run{}
	err := s.DB.Pool.QueryRow(ctx, query, uuid.New(), topic).Scan(
		&run.ID, &run.Topic, &run.Status, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun stores the report and surviving sources and marks the run
// completed.
func (s *Store) CompleteRun(ctx context.Context, id uuid.UUID, report string, sources []research.Source) error {
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}

	_, err = s.DB.Pool.Exec(ctx,
		"UPDATE research_runs SET status = 'completed', report = $2, sources = $3, updated_at = NOW() WHERE id = $1",
		id, report, sourcesJSON)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// FailRun marks the run failed. The failure reason travels through the run's
// log stream, not this row.
func (s *Store) FailRun(ctx context.Context, id uuid.UUID) error {
	_, err := s.DB.Pool.Exec(ctx,
		"UPDATE research_runs SET status = 'failed', updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `
		SELECT id, topic, status, report, sources, created_at, updated_at
		FROM research_runs
		WHERE id = $1
	`
	run := &Run{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Topic, &run.Status, &run.Report, &run.Sources, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	query := `
		SELECT id, topic, status, report, sources, created_at, updated_at
		FROM research_runs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Topic, &run.Status, &run.Report, &run.Sources, &run.CreatedAt, &run.UpdatedAt); err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// LogEntry is one archived log record of a run.
type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Store) RunLogs(ctx context.Context, runID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE run_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// InsertLog appends one log record to a run. Used by the slog handler that
// mirrors engine logs into the archive.
func (s *Store) InsertLog(ctx context.Context, runID uuid.UUID, at time.Time, level, message string, metadata []byte) error {
	query := `
		INSERT INTO research_logs (run_id, timestamp, level, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.DB.Pool.Exec(ctx, query, runID, at, level, message, metadata)
	return err
}
