// Package store persists uploads and saved pipelines in PostgreSQL.
// Parsed tables are never stored; the raw file bytes are kept so a pipeline
// replay always starts from a fresh parse.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tabledesk/tabledesk/internal/tabular"
	"github.com/tabledesk/tabledesk/internal/transform"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Upload is a stored source file plus the parse options it was uploaded with.
type Upload struct {
	ID         uuid.UUID            `json:"id"`
	Filename   string               `json:"filename"`
	SourceType tabular.SourceType   `json:"sourceType"`
	Options    tabular.ParseOptions `json:"options"`
	Data       []byte               `json:"-"`
	CreatedAt  time.Time            `json:"createdAt"`
}

// Pipeline is a named, ordered step list.
type Pipeline struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Steps     []transform.Step `json:"steps"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Store provides CRUD access to uploads and pipelines.
type Store struct {
	db DBTX
}

// New creates a Store backed by the given connection or pool.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// Init creates the schema if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS uploads (
    id          UUID PRIMARY KEY,
    filename    TEXT NOT NULL,
    source_type TEXT NOT NULL,
    options     JSONB NOT NULL DEFAULT '{}'::jsonb,
    data        BYTEA NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pipelines (
    id         UUID PRIMARY KEY,
    name       TEXT NOT NULL,
    steps      JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_pipelines_name ON pipelines (name);
`
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// CreateUpload stores a new upload and returns it with ID and timestamp set.
func (s *Store) CreateUpload(ctx context.Context, filename string, srcType tabular.SourceType, opts tabular.ParseOptions, data []byte) (*Upload, error) {
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}

	up := &Upload{
		ID:         uuid.New(),
		Filename:   filename,
		SourceType: srcType,
		Options:    opts,
		Data:       data,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO uploads (id, filename, source_type, options, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		pgUUID(up.ID), up.Filename, string(up.SourceType), optsJSON, up.Data,
	)
	var createdAt pgtype.Timestamptz
	if err := row.Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("insert upload: %w", err)
	}
	up.CreatedAt = createdAt.Time
	return up, nil
}

// GetUpload fetches one upload by ID, including the raw file bytes.
func (s *Store) GetUpload(ctx context.Context, id uuid.UUID) (*Upload, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, filename, source_type, options, data, created_at
		FROM uploads WHERE id = $1`,
		pgUUID(id),
	)
	return scanUpload(row, true)
}

// ListUploads returns uploads newest first, without file bytes.
func (s *Store) ListUploads(ctx context.Context, limit int) ([]*Upload, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, filename, source_type, options, created_at
		FROM uploads
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var out []*Upload
	for rows.Next() {
		up, err := scanUpload(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, up)
	}
	return out, rows.Err()
}

// DeleteUpload removes one upload. Returns ErrNotFound if it does not exist.
func (s *Store) DeleteUpload(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM uploads WHERE id = $1`, pgUUID(id))
	if err != nil {
		return fmt.Errorf("delete upload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreatePipeline stores a new pipeline and returns it with ID and timestamps set.
func (s *Store) CreatePipeline(ctx context.Context, name string, steps []transform.Step) (*Pipeline, error) {
	stepsJSON, err := marshalSteps(steps)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{ID: uuid.New(), Name: name, Steps: steps}
	row := s.db.QueryRow(ctx, `
		INSERT INTO pipelines (id, name, steps)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		pgUUID(p.ID), p.Name, stepsJSON,
	)
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("insert pipeline: %w", err)
	}
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time
	return p, nil
}

// GetPipeline fetches one pipeline by ID.
func (s *Store) GetPipeline(ctx context.Context, id uuid.UUID) (*Pipeline, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, steps, created_at, updated_at
		FROM pipelines WHERE id = $1`,
		pgUUID(id),
	)
	return scanPipeline(row)
}

// UpdatePipeline replaces a pipeline's name and steps.
func (s *Store) UpdatePipeline(ctx context.Context, id uuid.UUID, name string, steps []transform.Step) (*Pipeline, error) {
	stepsJSON, err := marshalSteps(steps)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRow(ctx, `
		UPDATE pipelines
		SET name = $2, steps = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, name, steps, created_at, updated_at`,
		pgUUID(id), name, stepsJSON,
	)
	p, err := scanPipeline(row)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPipelines returns all pipelines ordered by name.
func (s *Store) ListPipelines(ctx context.Context) ([]*Pipeline, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, steps, created_at, updated_at
		FROM pipelines
		ORDER BY name, created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	defer rows.Close()

	var out []*Pipeline
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePipeline removes one pipeline. Returns ErrNotFound if it does not exist.
func (s *Store) DeletePipeline(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM pipelines WHERE id = $1`, pgUUID(id))
	if err != nil {
		return fmt.Errorf("delete pipeline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalSteps(steps []transform.Step) ([]byte, error) {
	if steps == nil {
		steps = []transform.Step{}
	}
	b, err := json.Marshal(steps)
	if err != nil {
		return nil, fmt.Errorf("marshal steps: %w", err)
	}
	return b, nil
}

func scanUpload(row pgx.Row, withData bool) (*Upload, error) {
	var (
		id        pgtype.UUID
		filename  string
		srcType   string
		optsJSON  []byte
		data      []byte
		createdAt pgtype.Timestamptz
	)

	var err error
	if withData {
		err = row.Scan(&id, &filename, &srcType, &optsJSON, &data, &createdAt)
	} else {
		err = row.Scan(&id, &filename, &srcType, &optsJSON, &createdAt)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan upload: %w", err)
	}

	up := &Upload{
		ID:         uuid.UUID(id.Bytes),
		Filename:   filename,
		SourceType: tabular.SourceType(srcType),
		Data:       data,
		CreatedAt:  createdAt.Time,
	}
	if len(optsJSON) > 0 {
		if err := json.Unmarshal(optsJSON, &up.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
	}
	return up, nil
}

func scanPipeline(row pgx.Row) (*Pipeline, error) {
	var (
		id        pgtype.UUID
		name      string
		stepsJSON []byte
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	if err := row.Scan(&id, &name, &stepsJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan pipeline: %w", err)
	}

	p := &Pipeline{
		ID:        uuid.UUID(id.Bytes),
		Name:      name,
		CreatedAt: createdAt.Time,
		UpdatedAt: updatedAt.Time,
	}
	if len(stepsJSON) > 0 {
		if err := json.Unmarshal(stepsJSON, &p.Steps); err != nil {
			return nil, fmt.Errorf("unmarshal steps: %w", err)
		}
	}
	return p, nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
