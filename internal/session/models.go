package session

import "time"

// Session states follow the calibration lifecycle: uncalibrated until a
// baseline is computed, baseline_ready while questions accumulate metrics,
// finalized once stopped.
const (
	StateUncalibrated  = "uncalibrated"
	StateBaselineReady = "baseline_ready"
	StateFinalized     = "finalized"
)

type Session struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"user_id"`
	Subtopic             string     `json:"subtopic"`
	Mode                 string     `json:"mode"`
	StartedAt            time.Time  `json:"started_at"`
	EndedAt              *time.Time `json:"ended_at,omitempty"`
	State                string     `json:"state"`
	BaselineRMSSD        *float64   `json:"baseline_rmssd,omitempty"`
	BaselineConfidence   *string    `json:"baseline_confidence,omitempty"`
	CalibrationBeatCount *int       `json:"calibration_beat_count,omitempty"`
	AttentionRate        *float64   `json:"attention_rate,omitempty"`
}
