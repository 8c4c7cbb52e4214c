package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xhad/smartnotes/internal/models"
)

// Fixed-width so that timestamps sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite stores notes in a local database file.
type SQLite struct {
	table string
	db    *sql.DB
}

func NewSQLite(ctx context.Context, config StoreConfig) (*SQLite, error) {
	table, err := tableName(config)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", config.URL)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &SQLite{table: table, db: db}
	if err := s.initialize(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initialize(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			transcript TEXT NOT NULL,
			structured_notes TEXT NOT NULL,
			mindmap_data TEXT,
			source TEXT NOT NULL,
			source_url TEXT,
			file_name TEXT,
			user_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_user_created_idx ON %s (user_id, created_at DESC)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (s *SQLite) Create(ctx context.Context, note *models.Note) (*models.Note, error) {
	n, err := prepare(note, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (
			id, title, transcript, structured_notes, mindmap_data,
			source, source_url, file_name, user_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table),
		n.ID,
		n.Title,
		n.Transcript,
		n.StructuredNotes,
		nullableString(n.MindmapData),
		string(n.Source),
		nullableString(n.SourceURL),
		nullableString(n.FileName),
		n.UserID,
		n.CreatedAt.Format(sqliteTimeLayout),
		n.UpdatedAt.Format(sqliteTimeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	return n, nil
}

func (s *SQLite) Get(ctx context.Context, id, ownerID string) (*models.Note, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id, title, transcript, structured_notes, mindmap_data,
			source, source_url, file_name, user_id, created_at, updated_at
		FROM %s WHERE id = ? AND user_id = ?`, s.table),
		id, ownerID,
	)

	var (
		n                      models.Note
		source                 string
		mindmap, url, fileName sql.NullString
		created, updated       string
	)
	err := row.Scan(&n.ID, &n.Title, &n.Transcript, &n.StructuredNotes, &mindmap,
		&source, &url, &fileName, &n.UserID, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound()
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}

	n.Source = models.SourceKind(source)
	n.MindmapData = stringPtr(mindmap)
	n.SourceURL = stringPtr(url)
	n.FileName = stringPtr(fileName)
	if n.CreatedAt, err = time.Parse(sqliteTimeLayout, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if n.UpdatedAt, err = time.Parse(sqliteTimeLayout, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &n, nil
}

func (s *SQLite) Delete(ctx context.Context, id, ownerID string) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND user_id = ?`, s.table),
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if affected == 0 {
		return notFound()
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, ownerID string) ([]models.NoteSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, title, source, source_url, file_name, created_at, updated_at
		FROM %s WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, s.table),
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.NoteSummary, 0)
	for rows.Next() {
		var (
			sum              models.NoteSummary
			source           string
			url, fileName    sql.NullString
			created, updated string
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &source, &url, &fileName, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		sum.Source = models.SourceKind(source)
		sum.SourceURL = stringPtr(url)
		sum.FileName = stringPtr(fileName)
		if sum.CreatedAt, err = time.Parse(sqliteTimeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if sum.UpdatedAt, err = time.Parse(sqliteTimeLayout, updated); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return summaries, nil
}

func (s *SQLite) Close() {
	if s == nil || s.db == nil {
		return
	}
	_ = s.db.Close()
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
