package hrv

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"backend-cogload/internal/config"
	"backend-cogload/internal/db"
	"backend-cogload/internal/stream"

	"github.com/jackc/pgx/v5"
)

var ErrSessionNotFound = errors.New("session not found")

type Options struct {
	Filter              FilterOptions
	CalibrationWindowMS int64
	MinBeats            int
	HighFactor          float64
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Filter: FilterOptions{
			MinIBI:   cfg.IBIValidMinMS,
			MaxIBI:   cfg.IBIValidMaxMS,
			MaxDelta: cfg.IBIMaxDeltaMS,
		},
		CalibrationWindowMS: cfg.CalibrationWindowMS,
		MinBeats:            cfg.MinBeatsPerWindow,
		HighFactor:          cfg.HRVHighFactor,
	}
}

type Service struct {
	db   db.Querier
	hub  *stream.Hub
	opts Options
}

func NewService(database db.Querier, hub *stream.Hub, opts Options) *Service {
	return &Service{db: database, hub: hub, opts: opts}
}

// ComputeBaseline derives the session's reference RMSSD from beats inside
// the calibration window. Below the minimum beat count the result is kept
// but flagged low-confidence; a thin window is degraded data, not an error.
// Recomputation overwrites the stored baseline.
func (s *Service) ComputeBaseline(ctx context.Context, sessionID string) (Baseline, error) {
	if err := s.sessionExists(ctx, sessionID); err != nil {
		return Baseline{}, err
	}

	ibis, err := s.windowIBIs(ctx, sessionID, 0, s.opts.CalibrationWindowMS)
	if err != nil {
		return Baseline{}, err
	}

	filtered := FilterIBIs(ibis, s.opts.Filter)
	b := Baseline{
		SessionID:  sessionID,
		RMSSD:      RMSSD(filtered),
		BeatCount:  len(filtered),
		Confidence: ConfidenceOK,
	}
	if b.BeatCount < s.opts.MinBeats {
		b.Confidence = ConfidenceLow
	}

	_, err = s.db.Exec(ctx, `
		UPDATE sessions
		SET baseline_rmssd=$2, baseline_confidence=$3, calibration_beat_count=$4, state='baseline_ready'
		WHERE id=$1
	`, sessionID, b.RMSSD, string(b.Confidence), b.BeatCount)
	if err != nil {
		log.Printf("baseline store failed for session %s: %v", sessionID, err)
	}

	if s.hub != nil {
		s.hub.Broadcast(sessionID, stream.CalibrationComplete(sessionID, b.RMSSD))
	}
	return b, nil
}

// ComputeQuestionHRV computes and classifies a question window's RMSSD
// against the baseline in effect right now. Thin windows and missing
// baselines yield a degraded low/low result instead of an error. The stored
// record is upserted, so recomputation never duplicates.
func (s *Service) ComputeQuestionHRV(ctx context.Context, sessionID string, questionIndex int) (QuestionMetrics, error) {
	base, err := s.loadBaseline(ctx, sessionID)
	if err != nil {
		return QuestionMetrics{}, err
	}

	m := QuestionMetrics{
		SessionID:     sessionID,
		QuestionIndex: questionIndex,
		Label:         LabelLow,
		Confidence:    ConfidenceLow,
		BaselineRMSSD: base.RMSSD,
	}

	ibis, err := s.questionIBIs(ctx, sessionID, questionIndex)
	if err != nil {
		return QuestionMetrics{}, err
	}

	filtered := FilterIBIs(ibis, s.opts.Filter)
	m.BeatCount = len(filtered)

	baselineValid := base.RMSSD > 0
	if baselineValid && m.BeatCount >= s.opts.MinBeats {
		m.RMSSD = RMSSD(filtered)
		if m.RMSSD >= s.opts.HighFactor*base.RMSSD {
			m.Label = LabelHigh
		}
		m.Confidence = ConfidenceOK
		if base.Confidence == ConfidenceLow {
			m.Confidence = ConfidenceLow
		}
	}

	s.upsertMetrics(ctx, m)
	return m, nil
}

func (s *Service) sessionExists(ctx context.Context, sessionID string) error {
	var one int
	err := s.db.QueryRow(ctx, `SELECT 1 FROM sessions WHERE id=$1`, sessionID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSessionNotFound
	}
	return err
}

func (s *Service) loadBaseline(ctx context.Context, sessionID string) (Baseline, error) {
	var b Baseline
	var confidence string
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(baseline_rmssd,0), COALESCE(baseline_confidence,'low'), COALESCE(calibration_beat_count,0)
		FROM sessions WHERE id=$1
	`, sessionID).Scan(&b.RMSSD, &confidence, &b.BeatCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return Baseline{}, ErrSessionNotFound
	}
	if err != nil {
		return Baseline{}, err
	}
	b.SessionID = sessionID
	b.Confidence = Confidence(confidence)
	return b, nil
}

// questionIBIs resolves a question's time window from its boundary records,
// falling back to label-tagged beats when no boundary was ever marked.
func (s *Service) questionIBIs(ctx context.Context, sessionID string, questionIndex int) ([]float64, error) {
	startTS, endTS, found, err := s.questionWindow(ctx, sessionID, questionIndex)
	if err != nil {
		return nil, err
	}
	if found {
		return s.windowIBIs(ctx, sessionID, startTS, endTS)
	}
	return s.taggedIBIs(ctx, sessionID, QuestionLabel(questionIndex))
}

func (s *Service) questionWindow(ctx context.Context, sessionID string, questionIndex int) (startTS, endTS int64, found bool, err error) {
	rows, err := s.db.Query(ctx, `
		SELECT event_type, MAX(ts_ms)
		FROM question_boundaries
		WHERE session_id=$1 AND question_index=$2
		GROUP BY event_type
	`, sessionID, questionIndex)
	if err != nil {
		return 0, 0, false, err
	}
	defer rows.Close()

	endTS = math.MaxInt64
	for rows.Next() {
		var eventType string
		var ts int64
		if err := rows.Scan(&eventType, &ts); err != nil {
			return 0, 0, false, err
		}
		switch eventType {
		case "start":
			startTS = ts
			found = true
		case "end":
			endTS = ts
		}
	}
	if !found {
		// a lone end marker does not define a window
		return 0, 0, false, rows.Err()
	}
	return startTS, endTS, true, rows.Err()
}

func (s *Service) windowIBIs(ctx context.Context, sessionID string, startTS, endTS int64) ([]float64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ts_ms, ibi_ms FROM beats
		WHERE session_id=$1 AND ts_ms >= $2 AND ts_ms < $3 AND ibi_ms IS NOT NULL
		ORDER BY ts_ms
	`, sessionID, startTS, endTS)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIBIs(rows)
}

func (s *Service) taggedIBIs(ctx context.Context, sessionID, label string) ([]float64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ts_ms, ibi_ms FROM beats
		WHERE session_id=$1 AND question_label=$2 AND ibi_ms IS NOT NULL
		ORDER BY ts_ms
	`, sessionID, label)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIBIs(rows)
}

type ibiSample struct {
	ts  int64
	ibi float64
}

// collectIBIs re-sorts by device timestamp before extracting values. The
// transport does not guarantee delivery order, so the SQL ordering alone is
// not trusted for correctness of successive-difference math.
func collectIBIs(rows pgx.Rows) ([]float64, error) {
	var samples []ibiSample
	for rows.Next() {
		var s ibiSample
		if err := rows.Scan(&s.ts, &s.ibi); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(samples, func(i, j int) bool { return samples[i].ts < samples[j].ts })

	ibis := make([]float64, len(samples))
	for i, s := range samples {
		ibis[i] = s.ibi
	}
	return ibis, nil
}

func (s *Service) upsertMetrics(ctx context.Context, m QuestionMetrics) {
	_, err := s.db.Exec(ctx, `
		INSERT INTO hrv_metrics (session_id, question_index, label, rmssd, baseline_rmssd, beat_count, confidence)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (session_id, question_index) DO UPDATE
		SET label=EXCLUDED.label, rmssd=EXCLUDED.rmssd, baseline_rmssd=EXCLUDED.baseline_rmssd,
		    beat_count=EXCLUDED.beat_count, confidence=EXCLUDED.confidence
	`, m.SessionID, m.QuestionIndex, string(m.Label), m.RMSSD, m.BaselineRMSSD, m.BeatCount, string(m.Confidence))
	if err != nil {
		log.Printf("hrv metrics store failed for session %s question %d: %v", m.SessionID, m.QuestionIndex, err)
	}
}

// QuestionLabel is the tag attached to beats while a question is active.
func QuestionLabel(questionIndex int) string {
	return fmt.Sprintf("q%d", questionIndex)
}
