package scheduler

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/grigorimaxim422/atom/config"
	"github.com/grigorimaxim422/atom/internal/health"
	"github.com/grigorimaxim422/atom/logger"
	"github.com/grigorimaxim422/atom/metrics"
	"github.com/grigorimaxim422/atom/queue"
	"github.com/grigorimaxim422/atom/types"
)

// StepPollInterval is how often the loop re-checks the step counter while
// gated in the idle state.
var StepPollInterval = 100 * time.Millisecond

// StepWaitInterval is how often the loop re-checks the step counter while
// draining steps in the waiting state.
var StepWaitInterval = 1 * time.Second

// ErrorBackoff is the pause after a failed sampling cycle before the loop
// returns to idle.
var ErrorBackoff = 1 * time.Second

// Sampler is the sampling callback invoked exactly once per cycle.
// Implementations should prefer entries from the organic queue and fall back
// to the synthetic source, and must populate TotalElapsedTime when the
// trigger is time based. Errors are recoverable: the loop logs them, backs
// off, and continues. No timeout is enforced; a Forward that blocks
// indefinitely stalls the loop.
type Sampler interface {
	Forward(ctx context.Context) (types.ForwardSummary, error)
}

// Scheduler runs the organic scoring loop: wait for the trigger condition,
// invoke the sampling callback, then wait an annealed interval computed from
// the organic queue depth. One loop goroutine per instance; sampling cycles
// are strictly ordered and never concurrent with each other.
type Scheduler struct {
	Config  config.Config   `inject:""`
	Logger  logger.Logger   `inject:""`
	Metrics metrics.Metrics `inject:""`
	Clock   clockwork.Clock `inject:""`
	Queue   queue.Queue     `inject:""`
	Sampler Sampler         `inject:""`
	Health  health.Recorder `inject:""`

	triggerKind   config.TriggerKind
	baseFrequency float64
	minFrequency  float64
	scalingFactor float64

	// stepLock guards stepCounter against concurrent increments from the
	// external progress reporter and the loop's own drain. Critical
	// sections are arithmetic only, never held across a sleep.
	stepLock    sync.Mutex
	stepCounter int

	running  atomic.Bool
	done     chan struct{}
	loopDone chan struct{}
	stopOnce sync.Once
}

func (s *Scheduler) Start() error {
	if s.Clock == nil {
		s.Clock = clockwork.NewRealClock()
	}

	kind, err := s.Config.GetTriggerKind()
	if err != nil {
		return err
	}
	switch kind {
	case config.TriggerSeconds, config.TriggerSteps:
		s.triggerKind = kind
	default:
		return errors.Errorf("unknown trigger kind %q", kind)
	}

	if s.baseFrequency, err = s.Config.GetTriggerFrequency(); err != nil {
		return err
	}
	if s.baseFrequency <= 0 {
		return errors.Errorf("trigger frequency must be greater than 0, got %f", s.baseFrequency)
	}
	if s.minFrequency, err = s.Config.GetTriggerFrequencyMin(); err != nil {
		return err
	}
	if s.minFrequency < 0 {
		return errors.Errorf("minimum trigger frequency must not be negative, got %f", s.minFrequency)
	}
	if s.scalingFactor, err = s.Config.GetTriggerScalingFactor(); err != nil {
		return err
	}
	if s.scalingFactor <= 0 {
		return errors.Errorf("the scaling factor must be higher than 0, got %f", s.scalingFactor)
	}

	s.Metrics.Register("scheduler_iterations", "counter")
	s.Metrics.Register("scheduler_forward_errors", "counter")
	s.Metrics.Register("scheduler_forward_duration_ms", "histogram")
	s.Metrics.Register("scheduler_dynamic_unit", "gauge")

	if s.Health != nil {
		s.Health.Register("scheduler", s.healthTimeout())
	}

	s.done = make(chan struct{})
	s.loopDone = make(chan struct{})
	go s.run()
	return nil
}

// Stop requests cooperative termination and waits for the loop to exit. The
// loop observes the request at its poll granularity; a cycle already in the
// sampling or waiting state completes first.
func (s *Scheduler) Stop() error {
	s.RequestStop()
	<-s.loopDone
	return nil
}

// RequestStop asks the loop to exit without waiting for it. Callers needing
// deterministic shutdown should wait on Done or poll IsRunning afterwards.
func (s *Scheduler) RequestStop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Done is closed once the loop has fully exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.loopDone
}

// IsRunning reports whether the loop goroutine is still active.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// IncrementStep advances the external progress counter by one. It is a no-op
// unless the scheduler is configured for step-based triggering. Safe to call
// concurrently with the loop.
func (s *Scheduler) IncrementStep() {
	s.stepLock.Lock()
	defer s.stepLock.Unlock()
	if s.triggerKind == config.TriggerSteps {
		s.stepCounter++
	}
}

// SetStep overwrites the step counter. No-op unless step-triggered. Negative
// values clamp to zero so the counter is never observed negative.
func (s *Scheduler) SetStep(step int) {
	s.stepLock.Lock()
	defer s.stepLock.Unlock()
	if s.triggerKind != config.TriggerSteps {
		return
	}
	if step < 0 {
		step = 0
	}
	s.stepCounter = step
}

// StepCount reads back the current step counter.
func (s *Scheduler) StepCount() int {
	s.stepLock.Lock()
	defer s.stepLock.Unlock()
	return s.stepCounter
}

func (s *Scheduler) run() {
	s.running.Store(true)
	defer func() {
		if s.Health != nil {
			s.Health.Ready("scheduler", false)
		}
		s.running.Store(false)
		close(s.loopDone)
	}()

	s.Logger.Infof("starting organic scheduling loop (trigger=%s frequency=%f)", s.triggerKind, s.baseFrequency)

	for {
		// idle: the only state that begins a new cycle
		select {
		case <-s.done:
			return
		default:
		}

		if s.triggerKind == config.TriggerSteps {
			// entry into a cycle is gated on the configured frequency;
			// the annealed unit only governs the drain afterwards
			if !s.awaitStepGate() {
				return
			}
		}

		s.reportReady()

		summary, err := s.forwardOnce()
		if err != nil {
			s.Logger.Errorf("error occurred during organic scoring iteration: %s", err)
			s.Metrics.IncrementCounter("scheduler_forward_errors")
			s.Clock.Sleep(ErrorBackoff)
			continue
		}

		if !s.waitUntilNext(summary.TotalElapsedTime) {
			return
		}
	}
}

// awaitStepGate blocks until the step counter reaches the configured base
// frequency, polling at StepPollInterval. Returns false if stop was
// requested while polling.
func (s *Scheduler) awaitStepGate() bool {
	for {
		s.stepLock.Lock()
		reached := float64(s.stepCounter) >= s.baseFrequency
		s.stepLock.Unlock()
		if reached {
			return true
		}
		select {
		case <-s.done:
			return false
		case <-s.Clock.After(StepPollInterval):
		}
		s.reportReady()
	}
}

func (s *Scheduler) forwardOnce() (types.ForwardSummary, error) {
	s.Metrics.IncrementCounter("scheduler_iterations")
	start := s.Clock.Now()
	summary, err := s.Sampler.Forward(context.Background())
	if err != nil {
		return types.ForwardSummary{}, err
	}
	elapsed := s.Clock.Now().Sub(start)
	s.Metrics.Histogram("scheduler_forward_duration_ms", float64(elapsed)/float64(time.Millisecond))
	s.Logger.Debugf("completed sampling cycle from source %s in %v", summary.Source, elapsed)
	return summary, nil
}

// waitUntilNext applies the annealed trigger rate. In seconds mode it sleeps
// for the dynamic unit minus the time the cycle already consumed; the sleep
// is not preempted by stop requests, so a cycle in flight always completes.
// In steps mode it drains the dynamic unit from the step counter, polling at
// StepWaitInterval until enough steps have accumulated. Returns false if
// stop was requested while polling.
func (s *Scheduler) waitUntilNext(timerElapsed float64) bool {
	dynamicUnit := s.dynamicRate()
	s.Metrics.Gauge("scheduler_dynamic_unit", dynamicUnit)

	if s.triggerKind == config.TriggerSeconds {
		sleep := time.Duration((dynamicUnit - timerElapsed) * float64(time.Second))
		if sleep > 0 {
			s.Clock.Sleep(sleep)
		}
		return true
	}

	steps := int(dynamicUnit)
	for {
		s.stepLock.Lock()
		if s.stepCounter >= steps {
			s.stepCounter -= steps
			s.stepLock.Unlock()
			return true
		}
		s.stepLock.Unlock()
		select {
		case <-s.done:
			return false
		case <-s.Clock.After(StepWaitInterval):
		}
		s.reportReady()
	}
}

// dynamicRate computes the annealed trigger unit from the current queue
// depth: the deeper the backlog, the shorter the wait, floored at the
// configured minimum. Steps mode truncates to a whole step count.
func (s *Scheduler) dynamicRate() float64 {
	size := float64(s.Queue.Size())
	unit := math.Max(s.baseFrequency-size/s.scalingFactor, s.minFrequency)
	if s.triggerKind == config.TriggerSteps {
		unit = math.Trunc(unit)
	}
	return unit
}

func (s *Scheduler) reportReady() {
	if s.Health != nil {
		s.Health.Ready("scheduler", true)
	}
}

// healthTimeout picks a liveness deadline generous enough to cover a full
// wait in seconds mode; in steps mode the loop reports while polling, so a
// flat deadline works.
func (s *Scheduler) healthTimeout() time.Duration {
	if s.triggerKind == config.TriggerSeconds {
		return time.Duration((s.baseFrequency + 60) * float64(time.Second))
	}
	return 60 * time.Second
}
