package scheduler

import (
	"context"
	"sync"

	"github.com/grigorimaxim422/atom/types"
)

// MockSampler returns canned summaries or errors and counts its invocations
// so tests can verify loop behavior.
type MockSampler struct {
	Summary types.ForwardSummary
	// Err is returned from Forward when set. If FailFirst is positive, only
	// the first FailFirst calls fail and later calls succeed.
	Err       error
	FailFirst int

	mut   sync.Mutex
	calls int
}

var _ Sampler = (*MockSampler)(nil)

func (m *MockSampler) Forward(ctx context.Context) (types.ForwardSummary, error) {
	m.mut.Lock()
	m.calls++
	n := m.calls
	m.mut.Unlock()

	if m.Err != nil && (m.FailFirst == 0 || n <= m.FailFirst) {
		return types.ForwardSummary{}, m.Err
	}
	return m.Summary, nil
}

// Calls returns how many times Forward has been invoked.
func (m *MockSampler) Calls() int {
	m.mut.Lock()
	defer m.mut.Unlock()
	return m.calls
}
