// Package postgres persists analysis artifacts as JSONB rows.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"seufit/domain/core"
	"seufit/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_artifacts (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	kind       TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_artifacts_run ON analysis_artifacts (run_id, created_at);
`

// resultLedger implements ports.ResultLedger on Postgres
type resultLedger struct {
	db *sqlx.DB
}

// NewResultLedger creates a Postgres-backed result ledger
func NewResultLedger(db *sqlx.DB) ports.ResultLedger {
	return &resultLedger{db: db}
}

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the artifact table when missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure ledger schema: %w", err)
	}
	return nil
}

// StoreArtifact inserts one artifact row under a run
func (r *resultLedger) StoreArtifact(ctx context.Context, runID core.RunID, artifact core.Artifact) error {
	payloadJSON, err := json.Marshal(artifact.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact payload: %w", err)
	}

	query := `INSERT INTO analysis_artifacts (id, run_id, kind, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = r.db.ExecContext(ctx, query,
		artifact.ID.String(), runID.String(), string(artifact.Kind), payloadJSON, artifact.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to store artifact: %w", err)
	}
	return nil
}

// ArtifactsByRun lists a run's artifacts oldest first
func (r *resultLedger) ArtifactsByRun(ctx context.Context, runID core.RunID) ([]core.Artifact, error) {
	query := `SELECT id, kind, payload, created_at
		FROM analysis_artifacts WHERE run_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []core.Artifact
	for rows.Next() {
		var (
			a           core.Artifact
			id, kind    string
			payloadJSON []byte
			createdAt   time.Time
		)
		if err := rows.Scan(&id, &kind, &payloadJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact row: %w", err)
		}
		a.ID = core.ID(id)
		a.Kind = core.ArtifactKind(kind)
		a.CreatedAt = core.NewTimestamp(createdAt)

		var payload map[string]interface{}
		if err := json.Unmarshal(payloadJSON, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal artifact payload: %w", err)
		}
		a.Payload = payload

		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading artifact rows: %w", err)
	}
	return artifacts, nil
}
