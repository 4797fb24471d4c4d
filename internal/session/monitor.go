package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jgoulah/billbuddy/internal/clock"
)

const listenerKey = "activity-monitor"

// Monitor forces a logout after a period without activity. It holds a single
// deadline timer which is only armed while the monitor is enabled (logged in).
type Monitor struct {
	mu       sync.Mutex
	clock    clock.Clock
	timeout  time.Duration
	onExpire func()
	log      *zap.SugaredLogger

	enabled bool
	timer   clock.Timer
	gen     int
}

// NewMonitor creates a monitor that calls onExpire after timeout of inactivity
func NewMonitor(c clock.Clock, timeout time.Duration, onExpire func(), log *zap.SugaredLogger) *Monitor {
	if c == nil {
		c = clock.Real{}
	}
	return &Monitor{clock: c, timeout: timeout, onExpire: onExpire, log: log}
}

// Timeout returns the configured inactivity window
func (m *Monitor) Timeout() time.Duration {
	return m.timeout
}

// Attach subscribes the monitor to every activity event on bus. Safe to call again.
func (m *Monitor) Attach(bus *Bus) {
	for _, ev := range ActivityEvents {
		bus.Off(ev, listenerKey)
		bus.On(ev, listenerKey, m.Reset)
	}
}

// Enable allows the deadline to be armed and arms it
func (m *Monitor) Enable() {
	m.mu.Lock()
	m.enabled = true
	m.mu.Unlock()
	m.Reset()
}

// Disable cancels the deadline and keeps it disarmed until Enable
func (m *Monitor) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
	m.stopLocked()
}

// Reset restarts the deadline. It does nothing while disabled.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	if !m.enabled {
		return
	}

	m.gen++
	gen := m.gen
	m.timer = m.clock.AfterFunc(m.timeout, func() { m.fire(gen) })
}

// Armed reports whether a deadline is pending
func (m *Monitor) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer != nil
}

func (m *Monitor) fire(gen int) {
	m.mu.Lock()
	// A Reset raced with this callback; the newer deadline wins
	if gen != m.gen || !m.enabled {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.mu.Unlock()

	if m.log != nil {
		m.log.Infow("session expired", "timeout", m.timeout.String())
	}
	if m.onExpire != nil {
		m.onExpire()
	}
}

func (m *Monitor) stopLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
