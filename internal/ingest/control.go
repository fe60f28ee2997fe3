package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Device control commands published on the per-session control channel.
const (
	CmdStart     = "start"
	CmdStop      = "stop"
	CmdCalibrate = "calibrate"
)

var (
	ErrInvalidCommand = errors.New("command must be start, stop or calibrate")
	ErrNoTransport    = errors.New("control transport unavailable")
)

// Control publishes device control commands. Delivery is fire-and-forget at
// the application level; the returned error only reports transport-layer
// acceptance, and callers log it rather than retrying inline.
type Control struct {
	redis *redis.Client
	now   func() time.Time
}

func NewControl(redisClient *redis.Client) *Control {
	return &Control{redis: redisClient, now: time.Now}
}

type controlMessage struct {
	Cmd       string `json:"cmd"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
}

func (c *Control) Publish(ctx context.Context, cmd, sessionID string) error {
	if cmd != CmdStart && cmd != CmdStop && cmd != CmdCalibrate {
		return ErrInvalidCommand
	}
	if c.redis == nil {
		return ErrNoTransport
	}

	payload, _ := json.Marshal(controlMessage{
		Cmd:       cmd,
		SessionID: sessionID,
		Timestamp: c.now().UnixMilli(),
	})
	return c.redis.Publish(ctx, controlChannel(sessionID), payload).Err()
}

func controlChannel(sessionID string) string {
	return "cogload:control:" + sessionID
}
