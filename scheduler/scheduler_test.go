package scheduler

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grigorimaxim422/atom/config"
	"github.com/grigorimaxim422/atom/logger"
	"github.com/grigorimaxim422/atom/metrics"
	"github.com/grigorimaxim422/atom/queue"
	"github.com/grigorimaxim422/atom/types"
)

// fakeQueue reports a fixed backlog depth without real entries.
type fakeQueue struct {
	mut  sync.Mutex
	size int
}

func (q *fakeQueue) Add(*types.OrganicSample) {
	q.mut.Lock()
	defer q.mut.Unlock()
	q.size++
}

func (q *fakeQueue) Sample() *types.OrganicSample {
	q.mut.Lock()
	defer q.mut.Unlock()
	if q.size == 0 {
		return nil
	}
	q.size--
	return &types.OrganicSample{}
}

func (q *fakeQueue) Size() int {
	q.mut.Lock()
	defer q.mut.Unlock()
	return q.size
}

var _ queue.Queue = (*fakeQueue)(nil)

func testConfig(kind config.TriggerKind, freq, min, scaling float64) *config.MockConfig {
	return &config.MockConfig{
		GetTriggerKindVal:          kind,
		GetTriggerFrequencyVal:     freq,
		GetTriggerFrequencyMinVal:  min,
		GetTriggerScalingFactorVal: scaling,
	}
}

func newTestScheduler(cfg *config.MockConfig, q queue.Queue, sampler Sampler, cl clockwork.Clock) (*Scheduler, *metrics.MockMetrics, *logger.MockLogger) {
	met := &metrics.MockMetrics{}
	met.Start()
	log := &logger.MockLogger{}
	s := &Scheduler{
		Config:  cfg,
		Logger:  log,
		Metrics: met,
		Clock:   cl,
		Queue:   q,
		Sampler: sampler,
	}
	return s, met, log
}

// rateScheduler builds an unstarted scheduler with the trigger fields set
// directly, for exercising the pure rate computation.
func rateScheduler(kind config.TriggerKind, freq, min, scaling float64, queueSize int) *Scheduler {
	return &Scheduler{
		triggerKind:   kind,
		baseFrequency: freq,
		minFrequency:  min,
		scalingFactor: scaling,
		Queue:         &fakeQueue{size: queueSize},
	}
}

func TestDynamicRateExamples(t *testing.T) {
	// empty queue yields the base frequency
	s := rateScheduler(config.TriggerSeconds, 10, 2, 5, 0)
	assert.Equal(t, 10.0, s.dynamicRate())

	// moderate backlog shortens the wait
	s = rateScheduler(config.TriggerSeconds, 10, 2, 5, 10)
	assert.Equal(t, 8.0, s.dynamicRate())

	// deep backlog reaches the floor exactly (10 - 40/5 = 2)
	s = rateScheduler(config.TriggerSeconds, 10, 2, 5, 40)
	assert.Equal(t, 2.0, s.dynamicRate())
}

func TestDynamicRateNeverBelowFloor(t *testing.T) {
	for size := 0; size <= 1000; size += 7 {
		s := rateScheduler(config.TriggerSeconds, 10, 2, 5, size)
		assert.GreaterOrEqual(t, s.dynamicRate(), 2.0, "queue size %d", size)
	}
}

func TestDynamicRateNonIncreasing(t *testing.T) {
	prev := math.Inf(1)
	for size := 0; size <= 200; size++ {
		s := rateScheduler(config.TriggerSeconds, 10, 2, 5, size)
		unit := s.dynamicRate()
		assert.LessOrEqual(t, unit, prev, "queue size %d", size)
		prev = unit
	}
}

func TestDynamicRateTruncatesInStepsMode(t *testing.T) {
	// 10 - 3/2 = 8.5, truncated to 8 steps
	s := rateScheduler(config.TriggerSteps, 10, 2, 2, 3)
	assert.Equal(t, 8.0, s.dynamicRate())

	// seconds mode keeps the fraction
	s = rateScheduler(config.TriggerSeconds, 10, 2, 2, 3)
	assert.Equal(t, 8.5, s.dynamicRate())
}

func TestStartRejectsInvalidScalingFactor(t *testing.T) {
	for _, scaling := range []float64{0, -1} {
		cfg := testConfig(config.TriggerSeconds, 10, 2, scaling)
		s, _, _ := newTestScheduler(cfg, &fakeQueue{}, &MockSampler{}, clockwork.NewFakeClock())
		err := s.Start()
		require.Error(t, err, "scaling factor %f", scaling)
		assert.Contains(t, err.Error(), "scaling factor")
		assert.False(t, s.IsRunning())
	}
}

func TestStartRejectsUnknownTriggerKind(t *testing.T) {
	cfg := testConfig(config.TriggerKind("minutes"), 10, 2, 5)
	s, _, _ := newTestScheduler(cfg, &fakeQueue{}, &MockSampler{}, clockwork.NewFakeClock())
	require.Error(t, s.Start())
}

func TestStepOpsAreNoopsInSecondsMode(t *testing.T) {
	cfg := testConfig(config.TriggerSeconds, 10, 2, 5)
	s, _, _ := newTestScheduler(cfg, &fakeQueue{}, &MockSampler{}, clockwork.NewFakeClock())
	s.triggerKind = config.TriggerSeconds

	s.IncrementStep()
	s.SetStep(99)
	assert.Equal(t, 0, s.StepCount())
}

func TestSetStepClampsNegative(t *testing.T) {
	s := &Scheduler{triggerKind: config.TriggerSteps}
	s.SetStep(-5)
	assert.Equal(t, 0, s.StepCount())
}

func TestStepCounterConcurrency(t *testing.T) {
	s := &Scheduler{triggerKind: config.TriggerSteps}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				s.IncrementStep()
				assert.GreaterOrEqual(t, s.StepCount(), 0)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8000, s.StepCount())
}

func TestLoopRecoversFromForwardError(t *testing.T) {
	cl := clockwork.NewFakeClock()
	sampler := &MockSampler{Err: errors.New("miner query failed"), FailFirst: 2}
	cfg := testConfig(config.TriggerSeconds, 10, 2, 5)
	s, met, log := newTestScheduler(cfg, &fakeQueue{}, sampler, cl)
	require.NoError(t, s.Start())

	// first iteration fails and the loop backs off for a second
	cl.BlockUntil(1)
	assert.Equal(t, 1, sampler.Calls())
	assert.True(t, s.IsRunning())

	// second iteration fails the same way
	cl.Advance(ErrorBackoff)
	cl.BlockUntil(1)
	assert.Equal(t, 2, sampler.Calls())

	// third iteration succeeds and the loop moves to the annealed wait
	cl.Advance(ErrorBackoff)
	cl.BlockUntil(1)
	assert.Equal(t, 3, sampler.Calls())
	assert.True(t, s.IsRunning())
	assert.Equal(t, 2, met.CounterValue("scheduler_forward_errors"))
	assert.Equal(t, 2, log.ErrorCount())

	// a stop request does not preempt the wait in flight; the cycle
	// completes once the clock reaches the dynamic unit
	s.RequestStop()
	cl.Advance(10 * time.Second)
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after stop")
	}
	assert.False(t, s.IsRunning())
}

func TestSecondsWaitSubtractsElapsedTime(t *testing.T) {
	cl := clockwork.NewFakeClock()
	met := &metrics.MockMetrics{}
	met.Start()
	s := &Scheduler{
		Logger:        &logger.NullLogger{},
		Metrics:       met,
		Clock:         cl,
		Queue:         &fakeQueue{},
		triggerKind:   config.TriggerSeconds,
		baseFrequency: 10,
		minFrequency:  2,
		scalingFactor: 5,
		done:          make(chan struct{}),
	}

	// a cycle that took 3s should only wait the remaining 7s
	waited := make(chan struct{})
	go func() {
		s.waitUntilNext(3)
		close(waited)
	}()

	cl.BlockUntil(1)
	cl.Advance(6900 * time.Millisecond)
	select {
	case <-waited:
		t.Fatal("wait ended before the dynamic unit elapsed")
	case <-time.After(10 * time.Millisecond):
	}

	cl.Advance(200 * time.Millisecond)
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not end")
	}
}

func TestSecondsWaitSkipsSleepWhenCycleRanLong(t *testing.T) {
	cl := clockwork.NewFakeClock()
	met := &metrics.MockMetrics{}
	met.Start()
	s := &Scheduler{
		Logger:        &logger.NullLogger{},
		Metrics:       met,
		Clock:         cl,
		Queue:         &fakeQueue{},
		triggerKind:   config.TriggerSeconds,
		baseFrequency: 10,
		minFrequency:  2,
		scalingFactor: 5,
		done:          make(chan struct{}),
	}

	// elapsed beyond the dynamic unit means no sleep at all; this must
	// return without any clock interaction
	assert.True(t, s.waitUntilNext(30))
}

// The steps-mode gate deliberately uses the configured frequency while the
// drain afterwards uses the annealed (smaller) unit. A backlogged queue
// therefore leaves steps behind after each cycle instead of consuming the
// full gate amount.
func TestStepGateConfiguredButDrainAnnealed(t *testing.T) {
	cl := clockwork.NewFakeClock()
	sampler := &MockSampler{}
	cfg := testConfig(config.TriggerSteps, 5, 2, 1)
	// queue depth 10 anneals the drain down to the floor of 2 steps
	s, _, _ := newTestScheduler(cfg, &fakeQueue{size: 10}, sampler, cl)
	require.NoError(t, s.Start())

	// gated: 0 of 5 configured steps
	cl.BlockUntil(1)
	assert.Equal(t, 0, sampler.Calls())

	s.SetStep(5)
	cl.Advance(StepPollInterval)

	// the cycle ran, but only 2 steps were drained, not 5
	cl.BlockUntil(1)
	assert.Equal(t, 1, sampler.Calls())
	assert.Equal(t, 3, s.StepCount())

	// 3 remaining steps do not re-open the gate even though they exceed
	// the annealed unit
	cl.Advance(StepPollInterval)
	cl.BlockUntil(1)
	assert.Equal(t, 1, sampler.Calls())

	s.IncrementStep()
	s.IncrementStep()
	cl.Advance(StepPollInterval)
	cl.BlockUntil(1)
	assert.Equal(t, 2, sampler.Calls())
	assert.Equal(t, 3, s.StepCount())

	s.RequestStop()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after stop")
	}
}

func TestStepsWaitDrainsOnceCounterReached(t *testing.T) {
	cl := clockwork.NewFakeClock()
	sampler := &MockSampler{}
	// floor above the base frequency: the floor simply dominates the drain
	cfg := testConfig(config.TriggerSteps, 2, 5, 5)
	s, _, _ := newTestScheduler(cfg, &fakeQueue{}, sampler, cl)
	require.NoError(t, s.Start())

	cl.BlockUntil(1)
	s.SetStep(2)
	cl.Advance(StepPollInterval)

	// the cycle ran and the loop is now waiting for 5 steps to drain
	cl.BlockUntil(1)
	assert.Equal(t, 1, sampler.Calls())

	s.SetStep(5)
	cl.Advance(StepWaitInterval)

	// drained to zero, gated again
	cl.BlockUntil(1)
	assert.Equal(t, 0, s.StepCount())

	s.RequestStop()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after stop")
	}
}

func TestStopWhileGatedInStepsMode(t *testing.T) {
	cl := clockwork.NewFakeClock()
	cfg := testConfig(config.TriggerSteps, 100, 2, 5)
	s, _, _ := newTestScheduler(cfg, &fakeQueue{}, &MockSampler{}, cl)
	require.NoError(t, s.Start())

	cl.BlockUntil(1)
	assert.True(t, s.IsRunning())

	s.RequestStop()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit while gated")
	}
	assert.False(t, s.IsRunning())
}

func TestSchedulerRunsAndStopsWithRealClock(t *testing.T) {
	sampler := &MockSampler{Summary: types.ForwardSummary{Source: types.SourceSynthetic}}
	cfg := testConfig(config.TriggerSeconds, 0.01, 0, 5)
	s, _, _ := newTestScheduler(cfg, &fakeQueue{}, sampler, clockwork.NewRealClock())
	require.NoError(t, s.Start())

	assert.Eventually(t, func() bool {
		return sampler.Calls() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
}
