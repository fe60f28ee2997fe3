package timeline

import (
	"context"
	"errors"
	"sync"

	"backend-cogload/internal/db"

	"github.com/jackc/pgx/v5"
)

const (
	EventStart = "start"
	EventEnd   = "end"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidEventType = errors.New("event type must be start or end")
	ErrInvalidTimestamp = errors.New("timestamp must be non-negative")
	ErrNoBeat           = errors.New("no beat recorded for label")
)

type activeLabel struct {
	label string
	tsMS  int64
}

// Service correlates a session's beat stream with question windows. The
// active-question label is in-memory receiver-visible state; boundaries are
// the persisted audit trail used for post-hoc windowing.
type Service struct {
	db db.Querier

	mu     sync.RWMutex
	active map[string]activeLabel
}

func NewService(database db.Querier) *Service {
	return &Service{db: database, active: map[string]activeLabel{}}
}

// SetActiveQuestion records which question incoming beats should be tagged
// with. Concurrent calls resolve last-write-wins by timestamp; a stale
// update never clobbers a newer one.
func (s *Service) SetActiveQuestion(sessionID, label string, tsMS int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.active[sessionID]; ok && tsMS < current.tsMS {
		return
	}
	s.active[sessionID] = activeLabel{label: label, tsMS: tsMS}
}

func (s *Service) ActiveQuestion(sessionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.active[sessionID]
	if !ok || a.label == "" {
		return "", false
	}
	return a.label, true
}

func (s *Service) ClearActiveQuestion(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, sessionID)
}

// MarkBoundary appends a question start/end marker. Boundaries are never
// deleted; the latest timestamp per (session, question, type) wins when the
// aggregator resolves a window.
func (s *Service) MarkBoundary(ctx context.Context, sessionID string, questionIndex int, tsMS int64, eventType string) (Boundary, error) {
	if eventType != EventStart && eventType != EventEnd {
		return Boundary{}, ErrInvalidEventType
	}
	if tsMS < 0 {
		return Boundary{}, ErrInvalidTimestamp
	}

	var one int
	err := s.db.QueryRow(ctx, `SELECT 1 FROM sessions WHERE id=$1`, sessionID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return Boundary{}, ErrSessionNotFound
	}
	if err != nil {
		return Boundary{}, err
	}

	b := Boundary{SessionID: sessionID, QuestionIndex: questionIndex, EventType: eventType, TsMS: tsMS}
	_, err = s.db.Exec(ctx, `
		INSERT INTO question_boundaries (session_id, question_index, event_type, ts_ms)
		VALUES ($1,$2,$3,$4)
	`, b.SessionID, b.QuestionIndex, b.EventType, b.TsMS)
	if err != nil {
		return Boundary{}, err
	}
	return b, nil
}

// LastBeat returns the most recent persisted beat carrying a question label.
// Device timestamps beat wall clocks for deriving end boundaries, since
// network latency makes client-side times unreliable.
func (s *Service) LastBeat(ctx context.Context, sessionID, label string) (Beat, error) {
	var b Beat
	err := s.db.QueryRow(ctx, `
		SELECT id, session_id, ts_ms, ibi_ms, bpm, COALESCE(question_label,'')
		FROM beats
		WHERE session_id=$1 AND question_label=$2
		ORDER BY ts_ms DESC
		LIMIT 1
	`, sessionID, label).Scan(&b.ID, &b.SessionID, &b.TsMS, &b.IBIMS, &b.BPM, &b.QuestionLabel)
	if errors.Is(err, pgx.ErrNoRows) {
		return Beat{}, ErrNoBeat
	}
	if err != nil {
		return Beat{}, err
	}
	return b, nil
}
