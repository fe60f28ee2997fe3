package hrv

type Label string

const (
	LabelHigh Label = "high"
	LabelLow  Label = "low"
)

type Confidence string

const (
	ConfidenceOK  Confidence = "ok"
	ConfidenceLow Confidence = "low"
)

// Baseline is the calibration-window RMSSD a session's question metrics are
// compared against. A low-confidence baseline is still stored, just flagged.
type Baseline struct {
	SessionID  string     `json:"session_id"`
	RMSSD      float64    `json:"rmssd"`
	BeatCount  int        `json:"beat_count"`
	Confidence Confidence `json:"confidence"`
}

// QuestionMetrics is the per-question HRV result. BaselineRMSSD snapshots
// the baseline in effect at compute time.
type QuestionMetrics struct {
	SessionID     string     `json:"session_id"`
	QuestionIndex int        `json:"question_index"`
	Label         Label      `json:"label"`
	RMSSD         float64    `json:"rmssd"`
	BaselineRMSSD float64    `json:"baseline_rmssd"`
	BeatCount     int        `json:"beat_count"`
	Confidence    Confidence `json:"confidence"`
}
