package health

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/grigorimaxim422/atom/logger"
	"github.com/grigorimaxim422/atom/metrics"
)

// Subsystems register with an expected reporting interval and then call Ready
// periodically. A subsystem that has not reported within its interval is
// considered dead, and the process as a whole reports not alive. A subsystem
// may also report alive-but-not-ready, which is useful during shutdown.

// Recorder is the interface used by objects that want to record their own
// health status and make it available to the system.
type Recorder interface {
	Register(subsystem string, timeout time.Duration)
	Ready(subsystem string, ready bool)
}

// Reporter is the interface used to read back the health status of the system.
type Reporter interface {
	IsAlive() bool
	IsReady() bool
}

type report struct {
	timeout  time.Duration
	lastSeen time.Time
	ready    bool
}

// Health tracks per-subsystem readiness deadlines against an injected clock.
type Health struct {
	Clock   clockwork.Clock `inject:""`
	Logger  logger.Logger   `inject:""`
	Metrics metrics.Metrics `inject:""`

	mut     sync.RWMutex
	reports map[string]*report

	Recorder
	Reporter
}

func (h *Health) Start() error {
	// null implementations keep tests that don't care about logging simple
	if h.Logger == nil {
		h.Logger = &logger.NullLogger{}
	}
	if h.Metrics == nil {
		h.Metrics = &metrics.NullMetrics{}
	}
	if h.Clock == nil {
		h.Clock = clockwork.NewRealClock()
	}
	h.reports = make(map[string]*report)
	h.Metrics.Register("is_alive", "gauge")
	h.Metrics.Register("is_ready", "gauge")
	return nil
}

func (h *Health) Stop() error {
	return nil
}

// Register a subsystem with the health system. The timeout is the maximum
// expected interval between Ready calls; the clock only starts with the first
// one.
func (h *Health) Register(subsystem string, timeout time.Duration) {
	h.mut.Lock()
	defer h.mut.Unlock()
	h.reports[subsystem] = &report{timeout: timeout}
	h.Logger.Debugf("registered health reporting for %s every %v", subsystem, timeout)
}

// Ready is called by subsystems to report their readiness to do work. Any
// call, ready or not, counts as a liveness report.
func (h *Health) Ready(subsystem string, ready bool) {
	h.mut.Lock()
	defer h.mut.Unlock()
	r, ok := h.reports[subsystem]
	if !ok {
		h.Logger.Errorf("health report from unregistered subsystem %s", subsystem)
		return
	}
	if r.ready != ready {
		h.Logger.Infof("subsystem %s changing ready state to %t", subsystem, ready)
	}
	r.ready = ready
	r.lastSeen = h.Clock.Now()
	h.Metrics.Gauge("is_alive", boolGauge(h.checkAlive()))
	h.Metrics.Gauge("is_ready", boolGauge(h.checkReady()))
}

// IsAlive returns true if every registered subsystem that has started
// reporting has reported within its timeout.
func (h *Health) IsAlive() bool {
	h.mut.RLock()
	defer h.mut.RUnlock()
	return h.checkAlive()
}

// IsReady returns true if at least one subsystem has registered and all
// registered subsystems are ready.
func (h *Health) IsReady() bool {
	h.mut.RLock()
	defer h.mut.RUnlock()
	return h.checkReady()
}

// only call with the lock held
func (h *Health) checkAlive() bool {
	now := h.Clock.Now()
	for subsystem, r := range h.reports {
		if r.lastSeen.IsZero() {
			// never reported; not dead, just not started
			continue
		}
		if now.Sub(r.lastSeen) > r.timeout {
			h.Logger.Errorf("subsystem %s missed its %v reporting deadline", subsystem, r.timeout)
			return false
		}
	}
	return true
}

// only call with the lock held
func (h *Health) checkReady() bool {
	if len(h.reports) == 0 {
		return false
	}
	if !h.checkAlive() {
		return false
	}
	for _, r := range h.reports {
		if !r.ready {
			return false
		}
	}
	return true
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
