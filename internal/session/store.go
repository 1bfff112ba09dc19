package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"clipflow/internal/config"
)

// Store manages session persistence backed by SQLite. Updates flow through
// the orchestrator's single-writer loop; the store itself only serializes.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the sessions database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "sessions.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps every statement on the connection the
	// pragmas below configured and preserves the single-writer discipline.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewSession inserts a fresh session record for the supplied video.
func (s *Store) NewSession(ctx context.Context, videoHandle string, durationSeconds float64) (*Session, error) {
	if strings.TrimSpace(videoHandle) == "" {
		return nil, errors.New("video handle required")
	}

	now := time.Now().UTC()
	sess := &Session{
		ID:                       uuid.NewString(),
		VideoHandle:              videoHandle,
		DurationSeconds:          durationSeconds,
		Stage:                    StagePending,
		FramesOutstanding:        1,
		TranscriptionOutstanding: 1,
		TranscriptionStage:       TranscriptionIdle,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	framesJSON, segmentsJSON, errorsJSON, costsJSON, err := encodeCollections(sess)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (
            id, video_handle, duration_seconds, stage,
            frames_outstanding, transcription_outstanding,
            audio_source_handle, extraction_progress, transcription_stage,
            segmentation_progress, waiting_message, estimated_wait_seconds,
            full_transcript, frames_json, segments_json, errors_json,
            cost_entries_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.VideoHandle, sess.DurationSeconds, sess.Stage,
		sess.FramesOutstanding, sess.TranscriptionOutstanding,
		nullableString(sess.AudioSourceHandle), sess.ExtractionProgress, sess.TranscriptionStage,
		sess.SegmentationProgress, nullableString(sess.WaitingMessage), sess.EstimatedWaitSeconds,
		nullableString(sess.FullTranscript), framesJSON, segmentsJSON, errorsJSON,
		costsJSON, sess.CreatedAt.Format(time.RFC3339Nano), sess.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// GetByID fetches a session by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM sessions WHERE id = ?", id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sess, err
}

// List returns all sessions ordered by creation time, newest first.
func (s *Store) List(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" FROM sessions ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Update persists the full session record.
func (s *Store) Update(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("session id required")
	}
	sess.UpdatedAt = time.Now().UTC()

	framesJSON, segmentsJSON, errorsJSON, costsJSON, err := encodeCollections(sess)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET
            video_handle = ?, duration_seconds = ?, stage = ?,
            frames_outstanding = ?, transcription_outstanding = ?,
            audio_source_handle = ?, extraction_progress = ?, transcription_stage = ?,
            segmentation_progress = ?, waiting_message = ?, estimated_wait_seconds = ?,
            full_transcript = ?, frames_json = ?, segments_json = ?, errors_json = ?,
            cost_entries_json = ?, updated_at = ?
        WHERE id = ?`,
		sess.VideoHandle, sess.DurationSeconds, sess.Stage,
		sess.FramesOutstanding, sess.TranscriptionOutstanding,
		nullableString(sess.AudioSourceHandle), sess.ExtractionProgress, sess.TranscriptionStage,
		sess.SegmentationProgress, nullableString(sess.WaitingMessage), sess.EstimatedWaitSeconds,
		nullableString(sess.FullTranscript), framesJSON, segmentsJSON, errorsJSON,
		costsJSON, sess.UpdatedAt.Format(time.RFC3339Nano),
		sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s not found", sess.ID)
	}
	return nil
}

// FailInFlight marks every non-terminal session failed with the supplied
// reason. Called during daemon shutdown; interrupted workers are not resumed.
func (s *Store) FailInFlight(ctx context.Context, reason string) (int64, error) {
	sessions, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	for _, sess := range sessions {
		if sess.Terminal() {
			continue
		}
		sess.Stage = StageFailed
		sess.AppendError(SectionUpload, reason)
		if err := s.Update(ctx, sess); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

const selectColumns = `SELECT
    id, video_handle, duration_seconds, stage,
    frames_outstanding, transcription_outstanding,
    audio_source_handle, extraction_progress, transcription_stage,
    segmentation_progress, waiting_message, estimated_wait_seconds,
    full_transcript, frames_json, segments_json, errors_json,
    cost_entries_json, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var audioHandle, waitingMessage, fullTranscript sql.NullString
	var framesJSON, segmentsJSON, errorsJSON, costsJSON sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(
		&sess.ID, &sess.VideoHandle, &sess.DurationSeconds, &sess.Stage,
		&sess.FramesOutstanding, &sess.TranscriptionOutstanding,
		&audioHandle, &sess.ExtractionProgress, &sess.TranscriptionStage,
		&sess.SegmentationProgress, &waitingMessage, &sess.EstimatedWaitSeconds,
		&fullTranscript, &framesJSON, &segmentsJSON, &errorsJSON,
		&costsJSON, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	sess.AudioSourceHandle = audioHandle.String
	sess.WaitingMessage = waitingMessage.String
	sess.FullTranscript = fullTranscript.String

	if err := decodeJSON(framesJSON, &sess.Frames); err != nil {
		return nil, fmt.Errorf("decode frames: %w", err)
	}
	if err := decodeJSON(segmentsJSON, &sess.Segments); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	if err := decodeJSON(errorsJSON, &sess.Errors); err != nil {
		return nil, fmt.Errorf("decode errors: %w", err)
	}
	if err := decodeJSON(costsJSON, &sess.CostEntries); err != nil {
		return nil, fmt.Errorf("decode cost entries: %w", err)
	}

	if sess.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if sess.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &sess, nil
}

func encodeCollections(sess *Session) (frames, segments, errs, costs string, err error) {
	encode := func(v any) (string, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if frames, err = encode(sess.Frames); err != nil {
		return "", "", "", "", fmt.Errorf("encode frames: %w", err)
	}
	if segments, err = encode(sess.Segments); err != nil {
		return "", "", "", "", fmt.Errorf("encode segments: %w", err)
	}
	if errs, err = encode(sess.Errors); err != nil {
		return "", "", "", "", fmt.Errorf("encode errors: %w", err)
	}
	if costs, err = encode(sess.CostEntries); err != nil {
		return "", "", "", "", fmt.Errorf("encode cost entries: %w", err)
	}
	return frames, segments, errs, costs, nil
}

func decodeJSON(value sql.NullString, out any) error {
	if !value.Valid || strings.TrimSpace(value.String) == "" || value.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(value.String), out)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
