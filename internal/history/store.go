// Package history keeps a local log of detected moods in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dohr-michael/moodstream/internal/mood"
)

const schema = `
CREATE TABLE IF NOT EXISTS detections (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	label       TEXT NOT NULL,
	expression  TEXT NOT NULL DEFAULT '',
	score       REAL NOT NULL,
	fallback    INTEGER NOT NULL DEFAULT 0,
	scores      TEXT NOT NULL DEFAULT '{}',
	detected_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_detections_detected_at ON detections(detected_at);
`

// Entry is one recorded detection.
type Entry struct {
	ID         string            `json:"id" yaml:"id"`
	SessionID  string            `json:"session_id" yaml:"session_id"`
	Label      mood.Label        `json:"label" yaml:"label"`
	Expression mood.Expression   `json:"expression,omitempty" yaml:"expression,omitempty"`
	Score      float64           `json:"score" yaml:"score"`
	Fallback   bool              `json:"fallback" yaml:"fallback"`
	Scores     mood.Distribution `json:"scores,omitempty" yaml:"scores,omitempty"`
	DetectedAt time.Time         `json:"detected_at" yaml:"detected_at"`
}

// Store is the SQLite backed detection log.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (and creates if needed) the database at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}

	return &Store{db: db, logger: logger.With("system", "history")}, nil
}

// Record stores an entry. ID and DetectedAt are filled in when empty.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.DetectedAt.IsZero() {
		e.DetectedAt = time.Now()
	}
	if _, err := mood.ParseLabel(string(e.Label)); err != nil {
		return Entry{}, err
	}

	scores, err := json.Marshal(e.Scores)
	if err != nil {
		return Entry{}, fmt.Errorf("encode scores: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO detections (id, session_id, label, expression, score, fallback, scores, detected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, string(e.Label), string(e.Expression), e.Score, e.Fallback, string(scores), e.DetectedAt.UnixMilli(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert detection: %w", err)
	}
	return e, nil
}

// List returns the most recent entries first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT id, session_id, label, expression, score, fallback, scores, detected_at
	      FROM detections ORDER BY detected_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query detections: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			label      string
			expression string
			scores     string
			detectedAt int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &label, &expression, &e.Score, &e.Fallback, &scores, &detectedAt); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		e.Label = mood.Label(label)
		e.Expression = mood.Expression(expression)
		e.DetectedAt = time.UnixMilli(detectedAt)
		if scores != "" && scores != "null" {
			if err := json.Unmarshal([]byte(scores), &e.Scores); err != nil {
				s.logger.Warn("skipping malformed scores", "id", e.ID, "error", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Counts returns how many detections each label has.
func (s *Store) Counts(ctx context.Context) (map[mood.Label]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label, COUNT(*) FROM detections GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("count detections: %w", err)
	}
	defer rows.Close()

	counts := make(map[mood.Label]int)
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[mood.Label(label)] = n
	}
	return counts, rows.Err()
}

// Prune deletes entries detected before the cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM detections WHERE detected_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune detections: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info("pruned detections", "count", n, "before", before.Format(time.RFC3339))
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
