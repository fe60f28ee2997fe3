package attention

import (
	"context"
	"errors"
	"log"
	"math"

	"backend-cogload/internal/db"
)

var ErrInvalidStatus = errors.New("status must be FOCUSED or DISTRACTED")

type Service struct {
	db db.Querier
}

func NewService(database db.Querier) *Service {
	return &Service{db: database}
}

func (s *Service) RecordEvent(ctx context.Context, ev Event) error {
	if ev.Status != StatusFocused && ev.Status != StatusDistracted {
		return ErrInvalidStatus
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO attention_events (session_id, status, question_label, ts_ms)
		VALUES ($1,$2,$3,$4)
	`, ev.SessionID, ev.Status, ev.QuestionLabel, ev.TsMS)
	return err
}

// ComputeRate aggregates focused/total over the scope. An empty question
// label scopes to the whole session. Zero events produce a nil rate, not
// zero: "no measurement" and "fully distracted" are different answers. The
// computed rate is written back best-effort; a failed write still returns
// the result.
func (s *Service) ComputeRate(ctx context.Context, sessionID, questionLabel string) (Rate, error) {
	r := Rate{SessionID: sessionID, QuestionLabel: questionLabel}

	var err error
	if questionLabel == "" {
		err = s.db.QueryRow(ctx, `
			SELECT COUNT(*) FILTER (WHERE status='FOCUSED'), COUNT(*)
			FROM attention_events WHERE session_id=$1
		`, sessionID).Scan(&r.FocusedCount, &r.TotalCount)
	} else {
		err = s.db.QueryRow(ctx, `
			SELECT COUNT(*) FILTER (WHERE status='FOCUSED'), COUNT(*)
			FROM attention_events WHERE session_id=$1 AND question_label=$2
		`, sessionID, questionLabel).Scan(&r.FocusedCount, &r.TotalCount)
	}
	if err != nil {
		return Rate{}, err
	}

	if r.TotalCount == 0 {
		return r, nil
	}

	rate := math.Round(float64(r.FocusedCount)/float64(r.TotalCount)*10000) / 100
	r.Rate = &rate

	s.writeBack(ctx, r)
	return r, nil
}

func (s *Service) writeBack(ctx context.Context, r Rate) {
	var err error
	if r.QuestionLabel == "" {
		_, err = s.db.Exec(ctx, `UPDATE sessions SET attention_rate=$2 WHERE id=$1`, r.SessionID, *r.Rate)
	} else {
		_, err = s.db.Exec(ctx, `
			UPDATE question_responses SET attention_rate=$3
			WHERE session_id=$1 AND question_label=$2
		`, r.SessionID, r.QuestionLabel, *r.Rate)
	}
	if err != nil {
		log.Printf("attention rate write-back failed for session %s: %v", r.SessionID, err)
	}
}
