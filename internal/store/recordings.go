package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"parley/internal/services"
)

const storeStage = "store"

// MaxTitleLength is the longest title, in characters, a recording may carry.
const MaxTitleLength = 255

// ValidateTitle trims title and rejects it when empty or longer than
// MaxTitleLength characters.
func ValidateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", services.Wrap(services.ErrValidation, storeStage, "validate title", "title cannot be empty", nil)
	}
	if utf8.RuneCountInString(trimmed) > MaxTitleLength {
		return "", services.Wrap(services.ErrValidation, storeStage, "validate title",
			fmt.Sprintf("title cannot exceed %d characters", MaxTitleLength), nil)
	}
	return trimmed, nil
}

func notFound(op, id string) error {
	return services.Wrap(services.ErrNotFound, storeStage, op, fmt.Sprintf("recording %s", id), nil)
}

// NewRecording registers an uploaded file as a pending recording. An empty
// title is derived from the file name; an explicit one must pass ValidateTitle.
func (s *Store) NewRecording(ctx context.Context, title, sourcePath string) (*Recording, error) {
	if strings.TrimSpace(sourcePath) == "" {
		return nil, services.Wrap(services.ErrValidation, storeStage, "new recording", "source path is required", nil)
	}
	if strings.TrimSpace(title) == "" {
		title = inferTitleFromPath(sourcePath)
	} else {
		var err error
		if title, err = ValidateTitle(title); err != nil {
			return nil, err
		}
	}
	id := uuid.NewString()
	timestamp := now()
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO recordings (id, title, source_path, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id, title, sourcePath, StatusPending, timestamp, timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert recording: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a recording by identifier. It returns nil, nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*Recording, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	return rec, nil
}

// Resolve finds a recording by full identifier or by a unique identifier
// prefix such as the short form printed in logs.
func (s *Store) Resolve(ctx context.Context, idOrPrefix string) (*Recording, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, services.Wrap(services.ErrValidation, storeStage, "resolve", "recording id is required", nil)
	}
	rec, err := s.Get(ctx, idOrPrefix)
	if err != nil || rec != nil {
		return rec, err
	}

	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(idOrPrefix)
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+recordingColumns+` FROM recordings WHERE id LIKE ? ESCAPE '\' ORDER BY created_at LIMIT 2`,
		escaped+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("resolve recording: %w", err)
	}
	defer rows.Close()

	var matches []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, notFound("resolve", idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return nil, services.Wrap(services.ErrValidation, storeStage, "resolve",
			fmt.Sprintf("recording id prefix %q is ambiguous", idOrPrefix), nil)
	}
}

// List returns recordings filtered by status set (or all recordings when no
// status is provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Recording, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + recordingColumns + ` FROM recordings`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var recs []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// UpdateTitle renames a recording.
func (s *Store) UpdateTitle(ctx context.Context, id, title string) error {
	validated, err := ValidateTitle(title)
	if err != nil {
		return err
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE recordings SET title = ?, updated_at = ? WHERE id = ?`,
		validated, now(), id,
	)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	return requireAffected(res, "update title", id)
}

// UpdateStatus moves a recording to status and clears its progress line.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return services.Wrap(services.ErrValidation, storeStage, "update status", fmt.Sprintf("unknown status %q", status), nil)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE recordings SET status = ?, progress_message = NULL, updated_at = ? WHERE id = ?`,
		status, now(), id,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return requireAffected(res, "update status", id)
}

// UpdateProgress records a human-readable progress line and percentage.
func (s *Store) UpdateProgress(ctx context.Context, id, message string, percent float64) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE recordings SET progress_message = ?, progress_percent = ?, updated_at = ? WHERE id = ?`,
		nullableString(message), percent, now(), id,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return requireAffected(res, "update progress", id)
}

// SetChunkPlan records how the recording was split.
func (s *Store) SetChunkPlan(ctx context.Context, id string, plan ChunkPlan) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE recordings SET chunk_count = ?, chunk_seconds = ?, duration_seconds = ?, updated_at = ? WHERE id = ?`,
		plan.Count, plan.Seconds, plan.DurationSeconds, now(), id,
	)
	if err != nil {
		return fmt.Errorf("set chunk plan: %w", err)
	}
	return requireAffected(res, "set chunk plan", id)
}

// MarkFailed marks the recording failed. chunk is the zero-based failing
// chunk index, or negative when no single chunk is to blame.
func (s *Store) MarkFailed(ctx context.Context, id string, chunk int, message string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE recordings
         SET status = ?, error_message = ?, failed_chunk = ?, progress_message = NULL, updated_at = ?
         WHERE id = ?`,
		StatusFailed, nullableString(message), nullableInt(chunk, chunk >= 0), now(), id,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireAffected(res, "mark failed", id)
}

// ResetForReprocess discards a recording's stored output and error state
// and returns it to pending.
func (s *Store) ResetForReprocess(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE recordings
             SET status = ?, error_message = NULL, failed_chunk = NULL, progress_message = NULL,
                 progress_percent = 0, completed_at = NULL, updated_at = ?
             WHERE id = ?`,
			StatusPending, now(), id,
		)
		if err != nil {
			return fmt.Errorf("reset recording: %w", err)
		}
		if err := requireAffected(res, "reset", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM transcripts WHERE recording_id = ?`, id); err != nil {
			return fmt.Errorf("clear transcript: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM speaker_embeddings WHERE recording_id = ?`, id); err != nil {
			return fmt.Errorf("clear speakers: %w", err)
		}
		return nil
	})
}

// Delete removes a recording and everything stored for it.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete recording: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats returns a count of recordings grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM recordings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("recording stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func requireAffected(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound(op, id)
	}
	return nil
}

func inferTitleFromPath(path string) string {
	base := strings.TrimSpace(filepath.Base(path))
	cleaned := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if cleaned == "" || cleaned == "." || cleaned == string(filepath.Separator) {
		return "Untitled Recording"
	}
	if utf8.RuneCountInString(cleaned) > MaxTitleLength {
		cleaned = strings.TrimSpace(string([]rune(cleaned)[:MaxTitleLength]))
	}
	return cleaned
}
