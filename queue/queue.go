package queue

import (
	"sync"

	"github.com/grigorimaxim422/atom/config"
	"github.com/grigorimaxim422/atom/logger"
	"github.com/grigorimaxim422/atom/metrics"
	"github.com/grigorimaxim422/atom/types"
)

// Queue is an ordered buffer of organic samples awaiting evaluation. It must
// be safe for concurrent writers (many simultaneous admissions) with a single
// reader (the scheduling loop's sampling callback).
type Queue interface {
	// Add appends a sample to the queue, taking ownership of it.
	Add(sample *types.OrganicSample)
	// Sample removes and returns the oldest entry, or nil if the queue is
	// empty. Entries are never retained after removal.
	Sample() *types.OrganicSample
	// Size returns the current queue depth.
	Size() int
}

var _ Queue = (*InMemQueue)(nil)

// InMemQueue is a mutex-guarded FIFO. When MaxSize is positive and the queue
// is full, the oldest entry is dropped to make room, which keeps memory
// bounded while preferring fresh traffic.
type InMemQueue struct {
	Config  config.Config   `inject:""`
	Logger  logger.Logger   `inject:""`
	Metrics metrics.Metrics `inject:""`

	maxSize int
	mut     sync.Mutex
	entries []*types.OrganicSample
}

func (q *InMemQueue) Start() error {
	maxSize, err := q.Config.GetMaxQueueSize()
	if err != nil {
		return err
	}
	q.maxSize = maxSize

	q.Metrics.Register("organic_queue_added", "counter")
	q.Metrics.Register("organic_queue_evicted", "counter")
	q.Metrics.Register("organic_queue_size", "gauge")
	return nil
}

func (q *InMemQueue) Add(sample *types.OrganicSample) {
	q.mut.Lock()
	if q.maxSize > 0 && len(q.entries) >= q.maxSize {
		dropped := q.entries[0]
		q.entries = q.entries[1:]
		q.Metrics.IncrementCounter("organic_queue_evicted")
		q.Logger.Debugf("organic queue full; dropping oldest sample %s", dropped.ID)
	}
	q.entries = append(q.entries, sample)
	size := len(q.entries)
	q.mut.Unlock()

	q.Metrics.IncrementCounter("organic_queue_added")
	q.Metrics.Gauge("organic_queue_size", float64(size))
}

func (q *InMemQueue) Sample() *types.OrganicSample {
	q.mut.Lock()
	defer q.mut.Unlock()
	if len(q.entries) == 0 {
		return nil
	}
	sample := q.entries[0]
	// release the popped slot so the backing array doesn't pin it
	q.entries[0] = nil
	q.entries = q.entries[1:]
	q.Metrics.Gauge("organic_queue_size", float64(len(q.entries)))
	return sample
}

func (q *InMemQueue) Size() int {
	q.mut.Lock()
	defer q.mut.Unlock()
	return len(q.entries)
}
