package ingest

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"

	"backend-cogload/internal/db"
	"backend-cogload/internal/device"
	"backend-cogload/internal/stream"
	"backend-cogload/internal/timeline"

	"github.com/redis/go-redis/v9"
)

// Inbound channels. Readings carry beat samples; the heartbeat channel
// carries device liveness pings.
const (
	ReadingsChannel  = "cogload:readings"
	HeartbeatChannel = "cogload:device:heartbeat"
)

// flexString tolerates device firmware that sends ids as JSON numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type readingPayload struct {
	SessionID flexString `json:"session_id"`
	TsMS      *int64     `json:"ts_ms"`
	IBIMS     *float64   `json:"ibi_ms"`
	BPM       *float64   `json:"bpm"`
}

type heartbeatPayload struct {
	DeviceID  string `json:"device_id"`
	Timestamp *int64 `json:"timestamp"`
}

// Receiver owns the inbound transport subscription for the life of the
// process. It validates and fans out every message; a bad payload or a
// failed storage write never stops the loop.
type Receiver struct {
	redis               *redis.Client
	db                  db.Querier
	hub                 *stream.Hub
	tracker             *device.Tracker
	timeline            *timeline.Service
	calibrationWindowMS int64

	dropped       atomic.Uint64
	storeFailures atomic.Uint64

	pubsub *redis.PubSub
	doneCh chan struct{}
}

func NewReceiver(redisClient *redis.Client, database db.Querier, hub *stream.Hub, tracker *device.Tracker, tl *timeline.Service, calibrationWindowMS int64) *Receiver {
	return &Receiver{
		redis:               redisClient,
		db:                  database,
		hub:                 hub,
		tracker:             tracker,
		timeline:            tl,
		calibrationWindowMS: calibrationWindowMS,
	}
}

// Start subscribes to the reading and heartbeat channels and launches the
// processing loop. The transport-connected flag flips only once the
// subscription is confirmed.
func (r *Receiver) Start(ctx context.Context) error {
	pubsub := r.redis.Subscribe(ctx, ReadingsChannel, HeartbeatChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	r.pubsub = pubsub
	r.tracker.SetConnected(true)

	r.doneCh = make(chan struct{})
	go r.loop()
	return nil
}

func (r *Receiver) Stop() {
	if r.pubsub == nil {
		return
	}
	r.tracker.SetConnected(false)
	_ = r.pubsub.Close()
	<-r.doneCh
}

// Dropped reports how many malformed payloads were rejected at the boundary.
func (r *Receiver) Dropped() uint64 {
	return r.dropped.Load()
}

// StoreFailures reports beats lost to failed storage writes.
func (r *Receiver) StoreFailures() uint64 {
	return r.storeFailures.Load()
}

func (r *Receiver) loop() {
	defer close(r.doneCh)

	for msg := range r.pubsub.Channel() {
		switch msg.Channel {
		case ReadingsChannel:
			r.handleReading([]byte(msg.Payload))
		case HeartbeatChannel:
			r.handleHeartbeat([]byte(msg.Payload))
		}
	}
}

func (r *Receiver) handleReading(data []byte) {
	var p readingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.drop("reading", err.Error())
		return
	}
	if p.SessionID == "" || p.TsMS == nil || p.BPM == nil {
		r.drop("reading", "missing session_id, ts_ms or bpm")
		return
	}
	sessionID := string(p.SessionID)

	label, _ := r.timeline.ActiveQuestion(sessionID)

	// At-most-once storage: a failed write is logged and skipped, never
	// retried inline, so a storage outage cannot back the stream up.
	_, err := r.db.Exec(context.Background(), `
		INSERT INTO beats (session_id, ts_ms, ibi_ms, bpm, question_label)
		VALUES ($1,$2,$3,$4,NULLIF($5,''))
	`, sessionID, *p.TsMS, p.IBIMS, *p.BPM, label)
	if err != nil {
		r.storeFailures.Add(1)
		log.Printf("beat store failed for session %s: %v", sessionID, err)
	}

	r.hub.Broadcast(sessionID, stream.HRUpdate(sessionID, *p.BPM))

	if *p.TsMS <= r.calibrationWindowMS {
		progress := float64(*p.TsMS) / float64(r.calibrationWindowMS) * 100
		if progress > 100 {
			progress = 100
		}
		r.hub.Broadcast(sessionID, stream.CalibrationProgress(sessionID, progress))
	}
}

func (r *Receiver) handleHeartbeat(data []byte) {
	var p heartbeatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.drop("device heartbeat", err.Error())
		return
	}
	if p.DeviceID == "" || p.Timestamp == nil {
		r.drop("device heartbeat", "missing device_id or timestamp")
		return
	}

	r.tracker.MarkHeartbeat(p.DeviceID)
	r.hub.BroadcastAll(stream.SensorHeartbeat())
}

func (r *Receiver) drop(kind, reason string) {
	r.dropped.Add(1)
	log.Printf("dropped %s payload: %s", kind, reason)
}
