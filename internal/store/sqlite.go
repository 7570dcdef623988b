package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tanukilabs/questrun/internal/types"
	_ "modernc.org/sqlite"
)

// SQLiteStore represents the SQLite-backed content database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore instance.
// It initializes the database with WAL mode, applies pragmas, and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertActivities inserts or replaces the given activities by ID.
func (s *SQLiteStore) UpsertActivities(ctx context.Context, activities []types.Activity) (*types.IngestResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result := &types.IngestResult{}
	now := time.Now().UTC().Format(time.RFC3339)

	for _, a := range activities {
		optionsJSON, err := json.Marshal(a.Options)
		if err != nil {
			return nil, fmt.Errorf("marshal options for %s: %w", a.ID, err)
		}
		tagsJSON, err := json.Marshal(a.Tags)
		if err != nil {
			return nil, fmt.Errorf("marshal tags for %s: %w", a.ID, err)
		}

		var exists bool
		err = tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM activities WHERE id = ?)", a.ID).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check activity %s: %w", a.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO activities (id, lesson_id, type, story, question, options, difficulty, topic, tags, source, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				lesson_id = excluded.lesson_id,
				type = excluded.type,
				story = excluded.story,
				question = excluded.question,
				options = excluded.options,
				difficulty = excluded.difficulty,
				topic = excluded.topic,
				tags = excluded.tags,
				source = excluded.source,
				updated_at = excluded.updated_at
		`, a.ID, a.LessonID, string(a.Type), a.Story, a.Question, string(optionsJSON), int(a.Difficulty), string(a.Topic), string(tagsJSON), string(a.Source), now, now)
		if err != nil {
			return nil, fmt.Errorf("upsert activity %s: %w", a.ID, err)
		}

		if exists {
			result.Updated++
		} else {
			result.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return result, nil
}

// ListActivities returns every stored activity.
func (s *SQLiteStore) ListActivities(ctx context.Context) ([]types.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lesson_id, type, story, question, options, difficulty, topic, tags, source
		FROM activities
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var out []types.Activity
	for rows.Next() {
		var a types.Activity
		var optionsJSON, tagsJSON string
		err := rows.Scan(&a.ID, &a.LessonID, &a.Type, &a.Story, &a.Question, &optionsJSON, &a.Difficulty, &a.Topic, &tagsJSON, &a.Source)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if err := json.Unmarshal([]byte(optionsJSON), &a.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for %s: %w", a.ID, err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &a.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags for %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertFactSeeds inserts or replaces the given fact seeds by ID.
func (s *SQLiteStore) UpsertFactSeeds(ctx context.Context, facts []types.FactSeed) (*types.IngestResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result := &types.IngestResult{}
	now := time.Now().UTC().Format(time.RFC3339)

	for _, f := range facts {
		distractorsJSON, err := json.Marshal(f.Distractors)
		if err != nil {
			return nil, fmt.Errorf("marshal distractors for %s: %w", f.ID, err)
		}

		var exists bool
		err = tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM fact_seeds WHERE id = ?)", f.ID).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check fact seed %s: %w", f.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO fact_seeds (id, topic, story, question, answer, distractors, difficulty, explanation, confidence, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				topic = excluded.topic,
				story = excluded.story,
				question = excluded.question,
				answer = excluded.answer,
				distractors = excluded.distractors,
				difficulty = excluded.difficulty,
				explanation = excluded.explanation,
				confidence = excluded.confidence,
				updated_at = excluded.updated_at
		`, f.ID, string(f.Topic), f.Story, f.Question, f.Answer, string(distractorsJSON), int(f.Difficulty), f.Explanation, f.Confidence, now, now)
		if err != nil {
			return nil, fmt.Errorf("upsert fact seed %s: %w", f.ID, err)
		}

		if exists {
			result.Updated++
		} else {
			result.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return result, nil
}

// ListFactSeeds returns every stored fact seed.
func (s *SQLiteStore) ListFactSeeds(ctx context.Context) ([]types.FactSeed, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic, story, question, answer, distractors, difficulty, explanation, confidence
		FROM fact_seeds
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query fact seeds: %w", err)
	}
	defer rows.Close()

	var out []types.FactSeed
	for rows.Next() {
		var f types.FactSeed
		var distractorsJSON string
		err := rows.Scan(&f.ID, &f.Topic, &f.Story, &f.Question, &f.Answer, &distractorsJSON, &f.Difficulty, &f.Explanation, &f.Confidence)
		if err != nil {
			return nil, fmt.Errorf("scan fact seed: %w", err)
		}
		if err := json.Unmarshal([]byte(distractorsJSON), &f.Distractors); err != nil {
			return nil, fmt.Errorf("unmarshal distractors for %s: %w", f.ID, err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// RecentSeenKeys returns the child's most recently recorded content keys,
// newest first, capped at limit.
func (s *SQLiteStore) RecentSeenKeys(ctx context.Context, childID string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content_key FROM seen_keys
		WHERE child_id = ?
		ORDER BY seen_at DESC, content_key
		LIMIT ?
	`, childID, limit)
	if err != nil {
		return nil, fmt.Errorf("query seen keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan seen key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RecordSeenKeys marks the given content keys as seen by the child.
// Re-recording a key refreshes its recency.
func (s *SQLiteStore) RecordSeenKeys(ctx context.Context, childID string, keys []string, seenAt time.Time) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	ts := seenAt.UTC().Format(time.RFC3339)
	for _, key := range keys {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO seen_keys (child_id, content_key, seen_at)
			VALUES (?, ?, ?)
			ON CONFLICT(child_id, content_key) DO UPDATE SET seen_at = excluded.seen_at
		`, childID, key, ts)
		if err != nil {
			return fmt.Errorf("record seen key %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SaveCheckpoint stores the serialized checkpoint payload for the child,
// replacing any previous one.
func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, childID string, payload []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (child_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(child_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, childID, payload, now)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the stored checkpoint payload for the child.
// The second return value is false when no checkpoint exists.
func (s *SQLiteStore) LoadCheckpoint(ctx context.Context, childID string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM checkpoints WHERE child_id = ?", childID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint: %w", err)
	}
	return payload, true, nil
}

// DeleteCheckpoint removes the child's checkpoint if present.
func (s *SQLiteStore) DeleteCheckpoint(ctx context.Context, childID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE child_id = ?", childID)
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// DeleteExpiredCheckpoints removes every checkpoint last written before
// the given cutoff and reports how many rows were removed.
func (s *SQLiteStore) DeleteExpiredCheckpoints(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM checkpoints WHERE updated_at < ?", before.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("delete expired checkpoints: %w", err)
	}
	return res.RowsAffected()
}

// UpsertRunSummaries writes the telemetry rows for a committed run.
// Rows are keyed by (child, session, topic) so a replayed commit
// overwrites rather than double-counts.
func (s *SQLiteStore) UpsertRunSummaries(ctx context.Context, rows []types.RunSummaryRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_summaries (child_id, session_key, topic, total, generated, remixed, shortage, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(child_id, session_key, topic) DO UPDATE SET
				total = excluded.total,
				generated = excluded.generated,
				remixed = excluded.remixed,
				shortage = excluded.shortage,
				updated_at = excluded.updated_at
		`, r.ChildID, r.SessionKey, string(r.Topic), r.Total, r.Generated, r.Remixed, r.Shortage, now)
		if err != nil {
			return fmt.Errorf("upsert run summary %s/%s/%s: %w", r.ChildID, r.SessionKey, r.Topic, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetStats returns aggregate store statistics.
func (s *SQLiteStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	stats := &types.StoreStats{}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activities").Scan(&stats.ActivityCount); err != nil {
		return nil, fmt.Errorf("count activities: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fact_seeds").Scan(&stats.FactSeedCount); err != nil {
		return nil, fmt.Errorf("count fact seeds: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM checkpoints").Scan(&stats.CheckpointCount); err != nil {
		return nil, fmt.Errorf("count checkpoints: %w", err)
	}
	return stats, nil
}
