package sample

import (
	"github.com/google/uuid"

	"github.com/grigorimaxim422/atom/logger"
	"github.com/grigorimaxim422/atom/queue"
	"github.com/grigorimaxim422/atom/types"
)

// EnqueueHandler is the default on-entry hook: it derives an organic sample
// from the accepted request and appends it to the queue before acknowledging.
type EnqueueHandler struct {
	Logger logger.Logger `inject:""`
	Queue  queue.Queue   `inject:""`
}

func (h *EnqueueHandler) OnEntry(req *types.Request) (*types.Response, error) {
	sample := &types.OrganicSample{
		ID:       req.ID,
		Sender:   req.Sender,
		Priority: req.Priority,
		Received: req.Received,
		Payload:  req.Payload,
	}
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	h.Queue.Add(sample)
	h.Logger.Debugf("queued organic sample %s (priority %f)", sample.ID, sample.Priority)
	return &types.Response{Status: "accepted", Detail: sample.ID}, nil
}
