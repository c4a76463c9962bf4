package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_contextual_store.go -package=mocks rasoi-ai/internal/storage ContextualStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// ContextualStore defines the interface for contextual Q&A storage.
type ContextualStore interface {
	// ListAll returns every stored entry.
	ListAll(ctx context.Context) ([]ContextualEntry, error)
	// ListURLs returns the set of stored source URLs.
	ListURLs(ctx context.Context) (map[string]struct{}, error)
	// InsertIfAbsent inserts an entry unless its source URL is already
	// stored. Returns true if a row was inserted.
	InsertIfAbsent(ctx context.Context, entry *ContextualEntry) (bool, error)
	// UpdateTags replaces the tags of an entry.
	UpdateTags(ctx context.Context, id int64, tags []string) error
	// UpdateLanguage sets the language code of an entry.
	UpdateLanguage(ctx context.Context, id int64, language string) error
}

// ContextualRepo provides methods for contextual entry operations.
// It implements the ContextualStore interface.
type ContextualRepo struct {
	db *sql.DB
}

// NewContextualRepo creates a new ContextualRepo.
func NewContextualRepo(db *sql.DB) *ContextualRepo {
	return &ContextualRepo{db: db}
}

// ListAll returns every stored entry.
func (r *ContextualRepo) ListAll(ctx context.Context) ([]ContextualEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, question, answer, intent, source_platform, source_url, score, language, tags, created_at
		 FROM contextual_entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query contextual entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []ContextualEntry
	for rows.Next() {
		entry, err := scanContextualEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contextual entries: %w", err)
	}
	return entries, nil
}

// ListURLs returns the set of stored source URLs.
func (r *ContextualRepo) ListURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT source_url FROM contextual_entries")
	if err != nil {
		return nil, fmt.Errorf("failed to query source URLs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	urls := make(map[string]struct{})
	for rows.Next() {
		var u sql.NullString
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan source URL: %w", err)
		}
		if u.Valid {
			urls[u.String] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate source URLs: %w", err)
	}
	return urls, nil
}

// InsertIfAbsent inserts an entry unless its source URL is already stored.
func (r *ContextualRepo) InsertIfAbsent(ctx context.Context, entry *ContextualEntry) (bool, error) {
	tags, err := marshalTags(entry.Tags)
	if err != nil {
		return false, err
	}

	intentLabel := entry.Intent
	if intentLabel == "" {
		intentLabel = "troubleshooting"
	}
	language := entry.Language
	if language == "" {
		language = "en"
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO contextual_entries (question, answer, intent, source_platform, source_url, score, language, tags)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (source_url) DO NOTHING`,
		entry.Question, entry.Answer, intentLabel, entry.SourcePlatform, entry.SourceURL, entry.Score, language, tags,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert contextual entry: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	if inserted > 0 {
		id, err := res.LastInsertId()
		if err == nil {
			entry.ID = id
		}
	}
	return inserted > 0, nil
}

// UpdateTags replaces the tags of an entry.
func (r *ContextualRepo) UpdateTags(ctx context.Context, id int64, tags []string) error {
	encoded, err := marshalTags(tags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, "UPDATE contextual_entries SET tags = ? WHERE id = ?", encoded, id)
	if err != nil {
		return fmt.Errorf("failed to update tags: %w", err)
	}
	return checkAffected(res)
}

// UpdateLanguage sets the language code of an entry.
func (r *ContextualRepo) UpdateLanguage(ctx context.Context, id int64, language string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE contextual_entries SET language = ? WHERE id = ?", language, id)
	if err != nil {
		return fmt.Errorf("failed to update language: %w", err)
	}
	return checkAffected(res)
}

// scanContextualEntry reads one row from a ListAll query.
func scanContextualEntry(rows *sql.Rows) (*ContextualEntry, error) {
	var entry ContextualEntry
	var platform, sourceURL, tagsJSON sql.NullString
	var createdAt sql.NullString

	err := rows.Scan(&entry.ID, &entry.Question, &entry.Answer, &entry.Intent,
		&platform, &sourceURL, &entry.Score, &entry.Language, &tagsJSON, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan contextual entry: %w", err)
	}

	entry.SourcePlatform = platform.String
	entry.SourceURL = sourceURL.String

	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &entry.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags for entry %d: %w", entry.ID, err)
		}
	}

	if createdAt.Valid {
		entry.CreatedAt = parseTimestamp(createdAt.String)
	}

	return &entry, nil
}

// parseTimestamp handles the DATETIME formats SQLite may return.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// marshalTags encodes a tag list as JSON; nil encodes as SQL NULL.
func marshalTags(tags []string) (any, error) {
	if tags == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(encoded), nil
}

// checkAffected maps a zero-row update to ErrNotFound.
func checkAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
