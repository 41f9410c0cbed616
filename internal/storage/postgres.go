package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a Postgres database with methods for content records,
// feedback, and generation run summaries.
type Store struct {
	db *sql.DB
}

// Open connects to the Postgres database at databaseURL and runs
// pending migrations. serviceKey, when non-empty, overrides the
// password embedded in the URL — deployments keep the credential out
// of the URL and supply it separately.
func Open(databaseURL, serviceKey string) (*Store, error) {
	conninfo, err := pq.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if serviceKey != "" {
		conninfo += " password=" + quoteConnValue(serviceKey)
	}

	db, err := sql.Open("postgres", conninfo)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// OpenDB wraps an existing connection and runs pending migrations.
// Used by tests that manage their own connection string.
func OpenDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// quoteConnValue escapes a value for the keyword/value conninfo format.
func quoteConnValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// migrate reads embedded SQL migration files and applies any that
// haven't been run yet, recording them in schema_version.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = $1", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES ($1)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the applied migration versions ascending.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Content records ---

const contentColumns = `content_hash, content, user_message, topics, programming_languages, frameworks, level, learning_style, model, created_at, updated_at`

// InsertContent stores a new content record. A unique-constraint
// violation on content_hash surfaces as ErrDuplicateHash; records are
// never updated in place.
func (s *Store) InsertContent(rec ContentRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO learning_content (content_hash, content, user_message, topics, programming_languages, frameworks, level, learning_style, model)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ContentHash, rec.Content, rec.UserMessage,
		pq.Array(rec.Topics), pq.Array(rec.Languages), pq.Array(rec.Frameworks),
		rec.Level, rec.LearningStyle, rec.Model,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("inserting content %s: %w", rec.ContentHash, ErrDuplicateHash)
		}
		return fmt.Errorf("inserting content %s: %w", rec.ContentHash, err)
	}
	return nil
}

// ContentExists reports whether any record matches all five selectors:
// array membership on topics, languages, and frameworks, exact match
// on level and learning style. The query is limited to one row.
func (s *Store) ContentExists(sel Selector) (bool, error) {
	var one int
	err := s.db.QueryRow(`
		SELECT 1 FROM learning_content
		WHERE topics @> ARRAY[$1]
		  AND programming_languages @> ARRAY[$2]
		  AND frameworks @> ARRAY[$3]
		  AND level = $4
		  AND learning_style = $5
		LIMIT 1`,
		sel.Topic, sel.Language, sel.Framework, sel.Level, sel.LearningStyle,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking content existence: %w", err)
	}
	return true, nil
}

// GetContent returns the record with the given content hash.
func (s *Store) GetContent(hash string) (ContentRecord, error) {
	var rec ContentRecord
	err := s.db.QueryRow(`
		SELECT `+contentColumns+`
		FROM learning_content WHERE content_hash = $1`, hash,
	).Scan(
		&rec.ContentHash, &rec.Content, &rec.UserMessage,
		pq.Array(&rec.Topics), pq.Array(&rec.Languages), pq.Array(&rec.Frameworks),
		&rec.Level, &rec.LearningStyle, &rec.Model, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return ContentRecord{}, ErrNotFound
	}
	if err != nil {
		return ContentRecord{}, fmt.Errorf("getting content %s: %w", hash, err)
	}
	return rec, nil
}

// ListContent returns records newest-first.
func (s *Store) ListContent(limit, offset int) ([]ContentRecord, error) {
	rows, err := s.db.Query(`
		SELECT `+contentColumns+`
		FROM learning_content ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing content: %w", err)
	}
	defer rows.Close()

	var results []ContentRecord
	for rows.Next() {
		var rec ContentRecord
		if err := rows.Scan(
			&rec.ContentHash, &rec.Content, &rec.UserMessage,
			pq.Array(&rec.Topics), pq.Array(&rec.Languages), pq.Array(&rec.Frameworks),
			&rec.Level, &rec.LearningStyle, &rec.Model, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning content row: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// DeleteContent removes a record; feedback rows cascade.
func (s *Store) DeleteContent(hash string) error {
	res, err := s.db.Exec(`DELETE FROM learning_content WHERE content_hash = $1`, hash)
	if err != nil {
		return fmt.Errorf("deleting content %s: %w", hash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountContent returns the total number of stored content records.
func (s *Store) CountContent() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM learning_content`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting content: %w", err)
	}
	return n, nil
}

// --- Feedback ---

// SaveFeedback attaches a learner rating to a content record.
func (s *Store) SaveFeedback(f Feedback) error {
	_, err := s.db.Exec(`
		INSERT INTO content_feedback (id, content_hash, rating, notes)
		VALUES ($1, $2, $3, $4)`,
		f.ID, f.ContentHash, f.Rating, f.Notes,
	)
	if err != nil {
		var pqErr *pq.Error
		// 23503: the referenced content record does not exist.
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return fmt.Errorf("saving feedback for %s: %w", f.ContentHash, ErrNotFound)
		}
		return fmt.Errorf("saving feedback for %s: %w", f.ContentHash, err)
	}
	return nil
}

// ListFeedback returns all feedback for a content record, newest-first.
func (s *Store) ListFeedback(contentHash string) ([]Feedback, error) {
	rows, err := s.db.Query(`
		SELECT id, content_hash, rating, notes, created_at
		FROM content_feedback WHERE content_hash = $1 ORDER BY created_at DESC`, contentHash,
	)
	if err != nil {
		return nil, fmt.Errorf("listing feedback: %w", err)
	}
	defer rows.Close()

	var results []Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.ContentHash, &f.Rating, &f.Notes, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning feedback row: %w", err)
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

// --- Generation runs ---

// SaveRun records the summary of one finished generation run.
func (s *Store) SaveRun(r Run) error {
	_, err := s.db.Exec(`
		INSERT INTO generation_runs (id, model, generated, skipped, errors, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.Model, r.Generated, r.Skipped, r.Errors, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns run summaries newest-first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT id, model, generated, skipped, errors, started_at, finished_at
		FROM generation_runs ORDER BY started_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Model, &r.Generated, &r.Skipped, &r.Errors, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
