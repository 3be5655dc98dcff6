package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/talentflow/internal/pipeline"
)

// payload is the JSONB column shape: statuses and artifacts live together in
// one document, mirroring the record's wire form.
type payload struct {
	Statuses  map[string]pipeline.Status `json:"statuses"`
	Artifacts map[string]any             `json:"artifacts,omitempty"`
}

// Postgres persists pipelines in a single table with a JSONB payload column.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres establishes a connection pool and verifies it.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the pipelines table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pipelines (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			company       TEXT,
			jd_id         TEXT,
			resume_id     TEXT,
			created_at_ms BIGINT NOT NULL,
			payload       JSONB NOT NULL DEFAULT '{}'::jsonb
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Create inserts a new pipeline record.
func (s *Postgres) Create(ctx context.Context, p *pipeline.Pipeline) error {
	doc, err := json.Marshal(payload{Statuses: p.Statuses, Artifacts: p.Artifacts})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO pipelines (id, name, company, jd_id, resume_id, created_at_ms, payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.Company, p.JDID, p.ResumeID, p.CreatedAt, doc,
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	return nil
}

// Get retrieves a pipeline by id, or ErrNotFound.
func (s *Postgres) Get(ctx context.Context, id string) (*pipeline.Pipeline, error) {
	return s.get(ctx, s.pool, id)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Postgres) get(ctx context.Context, q querier, id string) (*pipeline.Pipeline, error) {
	var (
		p   pipeline.Pipeline
		doc []byte
	)
	err := q.QueryRow(ctx,
		`SELECT id, name, company, jd_id, resume_id, created_at_ms, payload
		 FROM pipelines WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Company, &p.JDID, &p.ResumeID, &p.CreatedAt, &doc)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline: %w", err)
	}
	if err := decodePayload(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List retrieves all pipelines, newest first.
func (s *Postgres) List(ctx context.Context) ([]*pipeline.Pipeline, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, company, jd_id, resume_id, created_at_ms, payload
		 FROM pipelines ORDER BY created_at_ms DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}
	defer rows.Close()

	var out []*pipeline.Pipeline
	for rows.Next() {
		var (
			p   pipeline.Pipeline
			doc []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Company, &p.JDID, &p.ResumeID, &p.CreatedAt, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan pipeline: %w", err)
		}
		if err := decodePayload(doc, &p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Patch applies a partial update inside a transaction using read-modify-write
// with a row lock, so two patches on the same record do not interleave within
// this process. Cross-session clobbering at the field level remains possible;
// see the store package notes.
func (s *Postgres) Patch(ctx context.Context, id string, patch Patch) (*pipeline.Pipeline, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var (
		p   pipeline.Pipeline
		doc []byte
	)
	err = tx.QueryRow(ctx,
		`SELECT id, name, company, jd_id, resume_id, created_at_ms, payload
		 FROM pipelines WHERE id = $1 FOR UPDATE`, id,
	).Scan(&p.ID, &p.Name, &p.Company, &p.JDID, &p.ResumeID, &p.CreatedAt, &doc)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock pipeline: %w", err)
	}
	if err := decodePayload(doc, &p); err != nil {
		return nil, err
	}

	merged := apply(&p, patch)
	newDoc, err := json.Marshal(payload{Statuses: merged.Statuses, Artifacts: merged.Artifacts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE pipelines SET name = $1, company = $2, jd_id = $3, resume_id = $4, payload = $5
		 WHERE id = $6`,
		merged.Name, merged.Company, merged.JDID, merged.ResumeID, newDoc, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update pipeline: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit patch: %w", err)
	}
	return merged, nil
}

// Delete removes a pipeline record.
func (s *Postgres) Delete(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM pipelines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pipeline: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func decodePayload(doc []byte, p *pipeline.Pipeline) error {
	if len(doc) == 0 {
		p.Statuses = map[string]pipeline.Status{}
		return nil
	}
	var pl payload
	if err := json.Unmarshal(doc, &pl); err != nil {
		return fmt.Errorf("failed to decode payload for %s: %w", p.ID, err)
	}
	if pl.Statuses == nil {
		pl.Statuses = map[string]pipeline.Status{}
	}
	p.Statuses = pl.Statuses
	p.Artifacts = pl.Artifacts
	return nil
}
