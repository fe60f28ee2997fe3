package device

import (
	"sync"
	"time"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Snapshot is a point-in-time view of liveness state. Ready means the
// transport is connected and the device is online.
type Snapshot struct {
	DeviceID      string    `json:"device_id"`
	Status        Status    `json:"status"`
	Connected     bool      `json:"connected"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Ready         bool      `json:"ready"`
}

// Tracker holds process-wide device liveness state. It is constructed once
// at startup and shared by reference; all methods are safe for concurrent
// use and none of them blocks.
type Tracker struct {
	timeout       time.Duration
	checkInterval time.Duration
	now           func() time.Time

	mu            sync.RWMutex
	deviceID      string
	connected     bool
	online        bool
	lastHeartbeat time.Time
	transitionCBs []func(Status)

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewTracker(timeout, checkInterval time.Duration) *Tracker {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	if checkInterval <= 0 {
		checkInterval = 5 * time.Second
	}
	return &Tracker{
		timeout:       timeout,
		checkInterval: checkInterval,
		now:           time.Now,
	}
}

// OnTransition registers a callback fired on every online/offline flip.
// Callbacks must be quick; they run while no tracker lock is held.
func (t *Tracker) OnTransition(fn func(Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transitionCBs = append(t.transitionCBs, fn)
}

// MarkHeartbeat records a device heartbeat and flips the device online.
func (t *Tracker) MarkHeartbeat(deviceID string) {
	t.mu.Lock()
	t.deviceID = deviceID
	t.lastHeartbeat = t.now()
	wasOnline := t.online
	t.online = true
	cbs := t.callbacks()
	t.mu.Unlock()

	if !wasOnline {
		for _, cb := range cbs {
			cb(StatusOnline)
		}
	}
}

// SetConnected records the transport-level connection flag.
func (t *Tracker) SetConnected(connected bool) {
	t.mu.Lock()
	t.connected = connected
	t.mu.Unlock()
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	status := StatusOffline
	if t.online {
		status = StatusOnline
	}
	return Snapshot{
		DeviceID:      t.deviceID,
		Status:        status,
		Connected:     t.connected,
		LastHeartbeat: t.lastHeartbeat,
		Ready:         t.connected && t.online,
	}
}

func (t *Tracker) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected && t.online
}

// Start launches the periodic timeout scan. It runs for the life of the
// process; Stop exists for tests.
func (t *Tracker) Start() {
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	go t.run()
}

func (t *Tracker) Stop() {
	if t.stopCh == nil {
		return
	}
	close(t.stopCh)
	<-t.doneCh
}

func (t *Tracker) run() {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.checkTimeout()
		}
	}
}

func (t *Tracker) checkTimeout() {
	t.mu.Lock()
	if !t.online || t.now().Sub(t.lastHeartbeat) <= t.timeout {
		t.mu.Unlock()
		return
	}
	t.online = false
	cbs := t.callbacks()
	t.mu.Unlock()

	for _, cb := range cbs {
		cb(StatusOffline)
	}
}

func (t *Tracker) callbacks() []func(Status) {
	cbs := make([]func(Status), len(t.transitionCBs))
	copy(cbs, t.transitionCBs)
	return cbs
}
