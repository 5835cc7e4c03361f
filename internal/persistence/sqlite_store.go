package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	_ "modernc.org/sqlite"

	"github.com/MimeLyc/subedit/internal/jobs"
	"github.com/MimeLyc/subedit/internal/subtitle"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		// embed.FS paths always use forward slashes
		content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

type subtitleSetPayload struct {
	Records []subtitle.Record `json:"records"`
}

// SaveSubtitleSet upserts the set by video id and returns the stored revision.
func (s *SQLiteStore) SaveSubtitleSet(ctx context.Context, set SubtitleSet) (int, error) {
	if strings.TrimSpace(set.VideoID) == "" {
		return 0, fmt.Errorf("video id is required")
	}
	payload, err := json.Marshal(subtitleSetPayload{Records: subtitle.Clone(set.Records)})
	if err != nil {
		return 0, err
	}
	updatedAt := set.UpdatedAt.UTC()
	if set.UpdatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	var revision int
	err = s.db.QueryRowContext(
		ctx,
		`INSERT INTO subtitle_sets (
			video_id, payload_json, record_count, original_lang, translated_lang, source, revision, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			payload_json=excluded.payload_json,
			record_count=excluded.record_count,
			original_lang=excluded.original_lang,
			translated_lang=excluded.translated_lang,
			source=excluded.source,
			revision=subtitle_sets.revision + 1,
			updated_at=excluded.updated_at
		RETURNING revision`,
		set.VideoID,
		string(payload),
		len(set.Records),
		set.OriginalLanguage.String(),
		set.TranslatedLanguage.String(),
		set.Source,
		updatedAt,
	).Scan(&revision)
	if err != nil {
		return 0, err
	}
	return revision, nil
}

func (s *SQLiteStore) LoadSubtitleSet(ctx context.Context, videoID string) (SubtitleSet, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT video_id, payload_json, original_lang, translated_lang, source, revision, updated_at
		 FROM subtitle_sets
		 WHERE video_id = ?`,
		videoID,
	)

	var ret SubtitleSet
	var payloadJSON, originalLang, translatedLang string
	if err := row.Scan(&ret.VideoID, &payloadJSON, &originalLang, &translatedLang, &ret.Source, &ret.Revision, &ret.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SubtitleSet{}, false, nil
		}
		return SubtitleSet{}, false, err
	}
	var payload subtitleSetPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return SubtitleSet{}, false, fmt.Errorf("decode subtitle set %s: %w", videoID, err)
	}
	ret.Records = subtitle.Clone(payload.Records)
	ret.OriginalLanguage = parseTag(originalLang)
	ret.TranslatedLanguage = parseTag(translatedLang)
	return ret, true, nil
}

func (s *SQLiteStore) DeleteSubtitleSet(ctx context.Context, videoID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subtitle_sets WHERE video_id = ?`, videoID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListSubtitleSets returns all saved sets, most recently updated first.
func (s *SQLiteStore) ListSubtitleSets(ctx context.Context) ([]SubtitleSetSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT video_id, record_count, original_lang, translated_lang, revision, updated_at
		 FROM subtitle_sets
		 ORDER BY updated_at DESC, video_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]SubtitleSetSummary, 0)
	for rows.Next() {
		var item SubtitleSetSummary
		var originalLang, translatedLang string
		if err := rows.Scan(&item.VideoID, &item.RecordCount, &originalLang, &translatedLang, &item.Revision, &item.UpdatedAt); err != nil {
			return nil, err
		}
		item.OriginalLanguage = parseTag(originalLang)
		item.TranslatedLanguage = parseTag(translatedLang)
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) LoadJobs(ctx context.Context) ([]*jobs.SaveJob, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, source, session_id, video_id, status, error, created_at, updated_at
		 FROM save_jobs
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*jobs.SaveJob, 0)
	for rows.Next() {
		var item jobs.SaveJob
		var status string
		if err := rows.Scan(
			&item.ID,
			&item.Source,
			&item.SessionID,
			&item.VideoID,
			&status,
			&item.Error,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		item.Status = jobs.Status(status)
		ret = append(ret, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM save_jobs WHERE id = ?`, jobID)
	return err
}

func (s *SQLiteStore) UpsertJob(ctx context.Context, job *jobs.SaveJob) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO save_jobs (
			id, source, session_id, video_id, status, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source=excluded.source,
			session_id=excluded.session_id,
			video_id=excluded.video_id,
			status=excluded.status,
			error=excluded.error,
			updated_at=excluded.updated_at`,
		job.ID,
		job.Source,
		job.SessionID,
		job.VideoID,
		string(job.Status),
		job.Error,
		job.CreatedAt.UTC(),
		job.UpdatedAt.UTC(),
	)
	return err
}

func parseTag(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und
	}
	return tag
}
