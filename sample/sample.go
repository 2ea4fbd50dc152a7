package sample

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/grigorimaxim422/atom/logger"
	"github.com/grigorimaxim422/atom/metrics"
	"github.com/grigorimaxim422/atom/queue"
	"github.com/grigorimaxim422/atom/synth"
	"github.com/grigorimaxim422/atom/types"
)

// QueueSampler is the default sampling callback: it prefers an organic
// sample when the queue has one and falls back to the synthetic dataset
// otherwise. Evaluation of the selected sample is delegated to Evaluate,
// which is where reward computation lives for a real deployment.
type QueueSampler struct {
	Logger  logger.Logger   `inject:""`
	Metrics metrics.Metrics `inject:""`
	Clock   clockwork.Clock `inject:""`
	Queue   queue.Queue     `inject:""`
	Synth   synth.Dataset   `inject:""`

	// Evaluate scores a single payload. When nil, samples are drained and
	// acknowledged without scoring.
	Evaluate func(ctx context.Context, payload map[string]interface{}) error
}

func (f *QueueSampler) Start() error {
	f.Metrics.Register("forward_organic", "counter")
	f.Metrics.Register("forward_synthetic", "counter")
	f.Metrics.Register("forward_empty", "counter")
	return nil
}

func (f *QueueSampler) Forward(ctx context.Context) (types.ForwardSummary, error) {
	start := f.Clock.Now()

	var payload map[string]interface{}
	source := types.SourceNone

	if organic := f.Queue.Sample(); organic != nil {
		payload = organic.Payload
		source = types.SourceOrganic
		f.Logger.Debugf("forwarding organic sample %s from %s", organic.ID, organic.Sender)
	} else if f.Synth != nil {
		if s := f.Synth.Sample(); s != nil {
			payload = s
			source = types.SourceSynthetic
		}
	}

	switch source {
	case types.SourceOrganic:
		f.Metrics.IncrementCounter("forward_organic")
	case types.SourceSynthetic:
		f.Metrics.IncrementCounter("forward_synthetic")
	default:
		f.Metrics.IncrementCounter("forward_empty")
	}

	if payload != nil && f.Evaluate != nil {
		if err := f.Evaluate(ctx, payload); err != nil {
			return types.ForwardSummary{}, err
		}
	}

	elapsed := f.Clock.Now().Sub(start)
	return types.ForwardSummary{
		TotalElapsedTime: elapsed.Seconds(),
		Source:           source,
	}, nil
}
