package store

import (
	"database/sql"
	"errors"
	"time"
)

const recordingColumns = "id, title, source_path, status, chunk_count, chunk_seconds, duration_seconds, progress_message, progress_percent, error_message, failed_chunk, created_at, updated_at, completed_at"

func scanRecording(scanner interface{ Scan(dest ...any) error }) (*Recording, error) {
	var (
		rec          Recording
		statusStr    string
		progressMsg  sql.NullString
		errorMessage sql.NullString
		failedChunk  sql.NullInt64
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		completedRaw sql.NullString
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.Title,
		&rec.SourcePath,
		&statusStr,
		&rec.ChunkCount,
		&rec.ChunkSeconds,
		&rec.DurationSeconds,
		&progressMsg,
		&rec.ProgressPercent,
		&errorMessage,
		&failedChunk,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	rec.Status = Status(statusStr)
	rec.ProgressMessage = progressMsg.String
	rec.ErrorMessage = errorMessage.String
	if failedChunk.Valid {
		idx := int(failedChunk.Int64)
		rec.FailedChunk = &idx
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		rec.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			rec.CompletedAt = &completed
		}
	}
	return &rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int, valid bool) any {
	if !valid {
		return nil
	}
	return value
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
