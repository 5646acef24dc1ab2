// Package alert fans risk events out to notification channels with
// per-message throttling, so a breaker that trips every cycle does not spam
// the operator.
package alert

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level of an alert.
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelCritical Level = "CRITICAL"
)

// Alert is one event to deliver.
type Alert struct {
	Level     Level
	Message   string
	Timestamp time.Time
}

// Channel delivers alerts somewhere.
type Channel interface {
	Send(a Alert) error
	Name() string
}

// Throttler suppresses repeats of the same alert within an interval.
type Throttler struct {
	mu       sync.Mutex
	lastSent map[string]time.Time
	interval time.Duration
	now      func() time.Time
}

func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{
		lastSent: make(map[string]time.Time),
		interval: interval,
		now:      time.Now,
	}
}

// Allow reports whether the keyed alert may be sent now, recording the send
// time when it may.
func (t *Throttler) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if last, ok := t.lastSent[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastSent[key] = now
	return true
}

// Manager sends alerts to every channel, throttled per level+message.
type Manager struct {
	channels []Channel
	throttle *Throttler
	log      *zap.Logger
}

func NewManager(channels []Channel, throttleInterval time.Duration, log *zap.Logger) *Manager {
	return &Manager{
		channels: channels,
		throttle: NewThrottler(throttleInterval),
		log:      log,
	}
}

// Send delivers the alert unless throttled. Channel failures are logged,
// never propagated: alerting must not take the quoting loop down.
func (m *Manager) Send(level Level, message string) {
	if m == nil {
		return
	}
	a := Alert{Level: level, Message: message, Timestamp: time.Now()}
	if !m.throttle.Allow(fmt.Sprintf("%s:%s", level, message)) {
		return
	}
	for _, ch := range m.channels {
		if err := ch.Send(a); err != nil {
			m.log.Warn("alert channel failed",
				zap.String("channel", ch.Name()),
				zap.Error(err))
		}
	}
}

// ZapChannel writes alerts to the structured log.
type ZapChannel struct {
	Log *zap.Logger
}

func (z ZapChannel) Send(a Alert) error {
	z.Log.Warn("alert",
		zap.String("level", string(a.Level)),
		zap.String("message", a.Message))
	return nil
}

func (z ZapChannel) Name() string { return "zap" }
