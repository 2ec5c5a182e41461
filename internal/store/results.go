package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"parley/internal/dialog"
	"parley/internal/services"
	"parley/internal/speakers"
)

// SaveResult replaces the recording's transcript and speakers and marks it
// completed, all in one transaction.
func (s *Store) SaveResult(ctx context.Context, id string, result Result) error {
	turns := result.Turns
	if turns == nil {
		turns = []dialog.Turn{}
	}
	turnsJSON, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal turns: %w", err)
	}

	type encodedSpeaker struct {
		Speaker
		blob []byte
	}
	encoded := make([]encodedSpeaker, 0, len(result.Speakers))
	seen := make(map[string]struct{}, len(result.Speakers))
	dim := 0
	for _, sp := range result.Speakers {
		if sp.Label == "" || sp.Label == speakers.UnknownLabel {
			return services.Wrap(services.ErrValidation, storeStage, "save result",
				fmt.Sprintf("invalid speaker label %q", sp.Label), nil)
		}
		if _, dup := seen[sp.Label]; dup {
			return services.Wrap(services.ErrValidation, storeStage, "save result", "", fmt.Errorf("%w: %q", speakers.ErrDuplicateLabel, sp.Label))
		}
		seen[sp.Label] = struct{}{}
		if dim == 0 {
			dim = len(sp.Embedding)
		}
		if err := sp.Embedding.Validate(dim); err != nil {
			return services.Wrap(services.ErrValidation, storeStage, "save result", fmt.Sprintf("speaker %q", sp.Label), err)
		}
		blob, err := encodeEmbedding(sp.Embedding)
		if err != nil {
			return err
		}
		encoded = append(encoded, encodedSpeaker{Speaker: sp, blob: blob})
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		timestamp := now()
		res, err := tx.ExecContext(ctx,
			`UPDATE recordings
             SET status = ?, error_message = NULL, failed_chunk = NULL, progress_message = NULL,
                 progress_percent = 100, completed_at = ?, updated_at = ?
             WHERE id = ?`,
			StatusCompleted, timestamp, timestamp, id,
		)
		if err != nil {
			return fmt.Errorf("complete recording: %w", err)
		}
		if err := requireAffected(res, "save result", id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transcripts (recording_id, dialog, transcription, turns_json, created_at)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT(recording_id) DO UPDATE SET
                 dialog = excluded.dialog, transcription = excluded.transcription,
                 turns_json = excluded.turns_json, created_at = excluded.created_at`,
			id, result.Dialog, result.Transcription, string(turnsJSON), timestamp,
		); err != nil {
			return fmt.Errorf("save transcript: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM speaker_embeddings WHERE recording_id = ?`, id); err != nil {
			return fmt.Errorf("clear speakers: %w", err)
		}
		for i, sp := range encoded {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO speaker_embeddings (recording_id, label, position, first_chunk, dim, embedding)
                 VALUES (?, ?, ?, ?, ?, ?)`,
				id, sp.Label, i, sp.FirstChunk, len(sp.Embedding), sp.blob,
			); err != nil {
				return fmt.Errorf("save speaker %s: %w", sp.Label, err)
			}
		}
		return nil
	})
}

// Transcript returns the stored transcript, or nil when none exists.
func (s *Store) Transcript(ctx context.Context, id string) (*Transcript, error) {
	var (
		t          Transcript
		turnsJSON  string
		createdRaw string
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT recording_id, dialog, transcription, turns_json, created_at FROM transcripts WHERE recording_id = ?`, id,
	).Scan(&t.RecordingID, &t.Dialog, &t.Transcription, &turnsJSON, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	if err := json.Unmarshal([]byte(turnsJSON), &t.Turns); err != nil {
		return nil, fmt.Errorf("decode turns: %w", err)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		t.CreatedAt = created
	}
	return &t, nil
}

// SpeakerEmbeddings returns the stored reference set in insertion order.
func (s *Store) SpeakerEmbeddings(ctx context.Context, id string) ([]Speaker, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT label, position, first_chunk, dim, embedding FROM speaker_embeddings
         WHERE recording_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("query speakers: %w", err)
	}
	defer rows.Close()

	var out []Speaker
	for rows.Next() {
		var (
			sp   Speaker
			dim  int
			blob []byte
		)
		if err := rows.Scan(&sp.Label, &sp.Position, &sp.FirstChunk, &dim, &blob); err != nil {
			return nil, err
		}
		sp.Embedding, err = decodeEmbedding(blob, dim)
		if err != nil {
			return nil, fmt.Errorf("speaker %s: %w", sp.Label, err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}
