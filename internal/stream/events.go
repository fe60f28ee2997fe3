package stream

import "encoding/json"

// Event kinds pushed to observers. The type field discriminates; absent
// fields are omitted from the wire form.
const (
	EventCalibrationProgress = "calibration_progress"
	EventCalibrationComplete = "calibration_complete"
	EventSensorStatus        = "sensor_status"
	EventHRUpdate            = "hr_update"
	EventSensorHeartbeat     = "sensor_heartbeat"
)

type Event struct {
	Type      string   `json:"type"`
	SessionID string   `json:"sessionId,omitempty"`
	Progress  *float64 `json:"progress,omitempty"`
	RMSSDBase *float64 `json:"rmssdBase,omitempty"`
	Status    string   `json:"status,omitempty"`
	BPM       *float64 `json:"bpm,omitempty"`
}

func (e Event) Encode() []byte {
	payload, _ := json.Marshal(e)
	return payload
}

func CalibrationProgress(sessionID string, progress float64) Event {
	return Event{Type: EventCalibrationProgress, SessionID: sessionID, Progress: &progress}
}

func CalibrationComplete(sessionID string, rmssdBase float64) Event {
	return Event{Type: EventCalibrationComplete, SessionID: sessionID, RMSSDBase: &rmssdBase}
}

func SensorStatus(status string) Event {
	return Event{Type: EventSensorStatus, Status: status}
}

func HRUpdate(sessionID string, bpm float64) Event {
	return Event{Type: EventHRUpdate, SessionID: sessionID, BPM: &bpm}
}

func SensorHeartbeat() Event {
	return Event{Type: EventSensorHeartbeat}
}
