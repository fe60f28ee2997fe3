package session

import (
	"context"
	"errors"
	"log"
	"time"

	"backend-cogload/internal/db"
	"backend-cogload/internal/ingest"
	"backend-cogload/internal/timeline"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrSessionNotFound = errors.New("session not found")

type Service struct {
	db       db.Querier
	control  *ingest.Control
	timeline *timeline.Service
}

func NewService(database db.Querier, control *ingest.Control, tl *timeline.Service) *Service {
	return &Service{db: database, control: control, timeline: tl}
}

// Start creates a practice session and tells the device to begin streaming.
// A failed control publish is logged; the stored session is still returned.
func (s *Service) Start(ctx context.Context, input Session) (Session, error) {
	input.ID = uuid.NewString()
	if input.StartedAt.IsZero() {
		input.StartedAt = time.Now()
	}
	input.State = StateUncalibrated

	row := s.db.QueryRow(ctx, `
		INSERT INTO sessions (id, user_id, subtopic, mode, started_at, state)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING started_at, state
	`, input.ID, input.UserID, input.Subtopic, input.Mode, input.StartedAt, input.State)
	if err := row.Scan(&input.StartedAt, &input.State); err != nil {
		return Session{}, err
	}

	s.publish(ctx, ingest.CmdStart, input.ID)
	return input, nil
}

// Stop finalizes the session and tells the device to stop streaming. The
// active question label is cleared so late-arriving beats are not tagged.
func (s *Service) Stop(ctx context.Context, sessionID string) (Session, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE sessions SET ended_at=NOW(), state=$2
		WHERE id=$1
		RETURNING id, user_id, subtopic, mode, started_at, ended_at, state
	`, sessionID, StateFinalized)

	var out Session
	err := row.Scan(&out.ID, &out.UserID, &out.Subtopic, &out.Mode, &out.StartedAt, &out.EndedAt, &out.State)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}

	if s.timeline != nil {
		s.timeline.ClearActiveQuestion(sessionID)
	}
	s.publish(ctx, ingest.CmdStop, sessionID)
	return out, nil
}

// Calibrate asks the device to enter its calibration mode.
func (s *Service) Calibrate(ctx context.Context, sessionID string) error {
	var one int
	err := s.db.QueryRow(ctx, `SELECT 1 FROM sessions WHERE id=$1`, sessionID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}

	s.publish(ctx, ingest.CmdCalibrate, sessionID)
	return nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, subtopic, mode, started_at, ended_at, state,
		       baseline_rmssd, baseline_confidence, calibration_beat_count, attention_rate
		FROM sessions WHERE id=$1
	`, sessionID)

	var out Session
	err := row.Scan(&out.ID, &out.UserID, &out.Subtopic, &out.Mode, &out.StartedAt, &out.EndedAt,
		&out.State, &out.BaselineRMSSD, &out.BaselineConfidence, &out.CalibrationBeatCount, &out.AttentionRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, cmd, sessionID string) {
	if s.control == nil {
		return
	}
	if err := s.control.Publish(ctx, cmd, sessionID); err != nil {
		log.Printf("control publish %s failed for session %s: %v", cmd, sessionID, err)
	}
}
