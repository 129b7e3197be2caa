package queue

import "context"

// NoOpQueue is used when QUEUE_PROVIDER=none. Published tasks are dropped
// and workers block until their context ends.
type NoOpQueue struct{}

func NewNoOp() *NoOpQueue {
	return &NoOpQueue{}
}

func (q *NoOpQueue) Enqueue(context.Context, Task) error {
	return nil
}

func (q *NoOpQueue) Worker(ctx context.Context, _ TaskType, _ Handler) error {
	<-ctx.Done()
	return nil
}
