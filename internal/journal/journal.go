package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// View is one recorded view-registration event.
type View struct {
	ContainerID  string
	VideoID      string
	RegisteredAt time.Time
}

// Journal is the SQLite-backed event journal.
// Uses WAL mode so readers never block the single writer.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path. Pass ":memory:"
// for an ephemeral journal in tests. Idempotent: pragmas and schema are
// re-applied on every open.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	// SQLite supports a single writer; a one-connection pool avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// RecordView inserts a view registration. Idempotent per
// (container, video) pairing via ON CONFLICT DO NOTHING: the slot layer
// already guarantees at-most-once emission, and the journal enforces the
// same property on its own key so replays never double-count.
func (j *Journal) RecordView(ctx context.Context, containerID, videoID string, at time.Time) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO views (container_id, video_id, registered_at)
		VALUES (?, ?, ?)
		ON CONFLICT(container_id, video_id) DO NOTHING
	`, containerID, videoID, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	return nil
}

// RecordLoop appends a loop event. Loops are not deduplicated - every
// seamless restart is a distinct occurrence.
func (j *Journal) RecordLoop(ctx context.Context, containerID, videoID string, at time.Time) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO loops (container_id, video_id, looped_at)
		VALUES (?, ?, ?)
	`, containerID, videoID, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record loop: %w", err)
	}
	return nil
}

// Views returns every recorded view for videoID, ordered by container.
func (j *Journal) Views(ctx context.Context, videoID string) ([]View, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT container_id, video_id, registered_at
		FROM views
		WHERE video_id = ?
		ORDER BY container_id
	`, videoID)
	if err != nil {
		return nil, fmt.Errorf("query views: %w", err)
	}
	defer rows.Close()

	var out []View
	for rows.Next() {
		var v View
		var at string
		if err := rows.Scan(&v.ContainerID, &v.VideoID, &at); err != nil {
			return nil, fmt.Errorf("scan view: %w", err)
		}
		v.RegisteredAt, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse view timestamp: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ViewCount returns the total number of registered views for videoID.
func (j *Journal) ViewCount(ctx context.Context, videoID string) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM views WHERE video_id = ?`, videoID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count views: %w", err)
	}
	return n, nil
}

// LoopCount returns the total number of loop events for videoID.
func (j *Journal) LoopCount(ctx context.Context, videoID string) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loops WHERE video_id = ?`, videoID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count loops: %w", err)
	}
	return n, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}
