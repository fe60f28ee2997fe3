package attention

const (
	StatusFocused    = "FOCUSED"
	StatusDistracted = "DISTRACTED"
)

type Event struct {
	SessionID     string `json:"session_id"`
	Status        string `json:"status"`
	QuestionLabel string `json:"question_label,omitempty"`
	TsMS          int64  `json:"ts_ms"`
}

// Rate reports the focused share of attention events for a scope. A nil
// Rate means no events were measured, which is distinct from a rate of 0.
type Rate struct {
	SessionID     string   `json:"session_id"`
	QuestionLabel string   `json:"question_label,omitempty"`
	Rate          *float64 `json:"rate"`
	FocusedCount  int      `json:"focused_count"`
	TotalCount    int      `json:"total_count"`
}
