package timeline

type Boundary struct {
	SessionID     string `json:"session_id"`
	QuestionIndex int    `json:"question_index"`
	EventType     string `json:"event_type"`
	TsMS          int64  `json:"ts_ms"`
}

type Beat struct {
	ID            int64    `json:"id"`
	SessionID     string   `json:"session_id"`
	TsMS          int64    `json:"ts_ms"`
	IBIMS         *float64 `json:"ibi_ms,omitempty"`
	BPM           float64  `json:"bpm"`
	QuestionLabel string   `json:"question_label,omitempty"`
}
