// Package sqlite provides a checkpoint.Store backed by SQLite, using the
// CGO-free ncruces driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deepnoodle-ai/relay/checkpoint"
	"github.com/deepnoodle-ai/relay/checkpoint/sqlite/migrations"
	"github.com/deepnoodle-ai/relay/conversation"
	"github.com/jmoiron/sqlx"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Store persists checkpoints in a SQLite database.
type Store struct {
	db   *sqlx.DB
	path string
}

var _ checkpoint.Store = (*Store)(nil)
var _ checkpoint.Lister = (*Store)(nil)

// Open opens (or creates) the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := migrations.Run(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

type checkpointRow struct {
	CorrelationID         string `db:"correlation_id"`
	ExecutionID           string `db:"execution_id"`
	Workflow              string `db:"workflow"`
	RequestingParticipant string `db:"requesting_participant"`
	Prompt                string `db:"prompt"`
	PreservedSnapshot     string `db:"preserved_snapshot"`
	IterationCount        int    `db:"iteration_count"`
	CreatedAt             string `db:"created_at"`
}

func toRow(cp *checkpoint.Checkpoint) (*checkpointRow, error) {
	snapshot, err := json.Marshal(cp.PreservedSnapshot)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return &checkpointRow{
		CorrelationID:         cp.CorrelationID,
		ExecutionID:           cp.ExecutionID,
		Workflow:              cp.Workflow,
		RequestingParticipant: cp.RequestingParticipant,
		Prompt:                cp.Prompt,
		PreservedSnapshot:     string(snapshot),
		IterationCount:        cp.IterationCount,
		CreatedAt:             cp.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func (r *checkpointRow) toCheckpoint() (*checkpoint.Checkpoint, error) {
	var snapshot conversation.Snapshot
	if err := json.Unmarshal([]byte(r.PreservedSnapshot), &snapshot); err != nil {
		return nil, fmt.Errorf("decoding snapshot of %s: %w", r.CorrelationID, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("decoding created_at of %s: %w", r.CorrelationID, err)
	}
	return &checkpoint.Checkpoint{
		CorrelationID:         r.CorrelationID,
		ExecutionID:           r.ExecutionID,
		Workflow:              r.Workflow,
		RequestingParticipant: r.RequestingParticipant,
		Prompt:                r.Prompt,
		PreservedSnapshot:     snapshot,
		IterationCount:        r.IterationCount,
		CreatedAt:             createdAt,
	}, nil
}

const selectColumns = `correlation_id, execution_id, workflow, requesting_participant, prompt,
	preserved_snapshot, iteration_count, created_at`

func (s *Store) Save(ctx context.Context, cp *checkpoint.Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	row, err := toRow(cp)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO checkpoints (`+selectColumns+`)
		VALUES (:correlation_id, :execution_id, :workflow, :requesting_participant, :prompt,
			:preserved_snapshot, :iteration_count, :created_at)
		ON CONFLICT (correlation_id) DO UPDATE SET
			execution_id = excluded.execution_id,
			workflow = excluded.workflow,
			requesting_participant = excluded.requesting_participant,
			prompt = excluded.prompt,
			preserved_snapshot = excluded.preserved_snapshot,
			iteration_count = excluded.iteration_count,
			created_at = excluded.created_at`, row)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (*checkpoint.Checkpoint, error) {
	var row checkpointRow
	err := s.db.GetContext(ctx, &row, `SELECT `+selectColumns+` FROM checkpoints WHERE correlation_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, checkpoint.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return row.toCheckpoint()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE correlation_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	if n == 0 {
		return checkpoint.ErrNotFound
	}
	return nil
}

// List returns pending checkpoints, oldest first.
func (s *Store) List(ctx context.Context) ([]*checkpoint.Checkpoint, error) {
	var rows []checkpointRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+selectColumns+` FROM checkpoints ORDER BY created_at, correlation_id`); err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	out := make([]*checkpoint.Checkpoint, 0, len(rows))
	for i := range rows {
		cp, err := rows[i].toCheckpoint()
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}
