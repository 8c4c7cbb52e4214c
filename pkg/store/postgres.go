package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xhad/smartnotes/internal/models"
)

// Postgres stores notes in a single table through a pgx connection pool.
type Postgres struct {
	table string
	pool  *pgxpool.Pool
}

func NewPostgres(ctx context.Context, config StoreConfig) (*Postgres, error) {
	table, err := tableName(config)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ps := &Postgres{
		table: table,
		pool:  pool,
	}

	if err := ps.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return ps, nil
}

func (ps *Postgres) initialize(ctx context.Context) error {
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			transcript TEXT NOT NULL,
			structured_notes TEXT NOT NULL,
			mindmap_data TEXT,
			source TEXT NOT NULL,
			source_url TEXT,
			file_name TEXT,
			user_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`, ps.table)

	if _, err := ps.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_user_created_idx
		ON %s (user_id, created_at DESC)`,
		ps.table, ps.table)

	if _, err := ps.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func (ps *Postgres) Create(ctx context.Context, note *models.Note) (*models.Note, error) {
	n, err := prepare(note, time.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, title, transcript, structured_notes, mindmap_data,
			source, source_url, file_name, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		ps.table)

	_, err = ps.pool.Exec(ctx, stmt,
		n.ID, n.Title, n.Transcript, n.StructuredNotes, n.MindmapData,
		string(n.Source), n.SourceURL, n.FileName, n.UserID, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert note: %w", err)
	}

	return n, nil
}

func (ps *Postgres) Get(ctx context.Context, id, ownerID string) (*models.Note, error) {
	query := fmt.Sprintf(`
		SELECT id, title, transcript, structured_notes, mindmap_data,
			source, source_url, file_name, user_id, created_at, updated_at
		FROM %s
		WHERE id = $1 AND user_id = $2`,
		ps.table)

	var (
		n      models.Note
		source string
	)
	err := ps.pool.QueryRow(ctx, query, id, ownerID).Scan(
		&n.ID,
		&n.Title,
		&n.Transcript,
		&n.StructuredNotes,
		&n.MindmapData,
		&source,
		&n.SourceURL,
		&n.FileName,
		&n.UserID,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query note: %w", err)
	}
	n.Source = models.SourceKind(source)

	return &n, nil
}

func (ps *Postgres) Delete(ctx context.Context, id, ownerID string) error {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, ps.table)

	tag, err := ps.pool.Exec(ctx, stmt, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound()
	}
	return nil
}

func (ps *Postgres) List(ctx context.Context, ownerID string) ([]models.NoteSummary, error) {
	query := fmt.Sprintf(`
		SELECT id, title, source, source_url, file_name, created_at, updated_at
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		ps.table)

	rows, err := ps.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.NoteSummary, 0)
	for rows.Next() {
		var (
			s      models.NoteSummary
			source string
		)
		if err := rows.Scan(&s.ID, &s.Title, &source, &s.SourceURL, &s.FileName, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		s.Source = models.SourceKind(source)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}

	return summaries, nil
}

func (ps *Postgres) Close() {
	if ps.pool != nil {
		ps.pool.Close()
	}
}
