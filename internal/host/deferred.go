package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

func (b *Bus) enqueue(envs []envelope) {
	if len(envs) == 0 {
		return
	}
	b.queueMu.Lock()
	b.queue = append(b.queue, envs...)
	b.metrics.pending.Set(float64(len(b.queue)))
	b.queueMu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *Bus) dequeue() (envelope, bool) {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	if len(b.queue) == 0 {
		return envelope{}, false
	}
	env := b.queue[0]
	b.queue = b.queue[1:]
	b.metrics.pending.Set(float64(len(b.queue)))
	return env, true
}

// Pending returns the number of deferred messages waiting for delivery.
func (b *Bus) Pending() int {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	return len(b.queue)
}

// Flush delivers deferred messages in FIFO order until the queue is empty,
// including messages deferred by the deliveries themselves. Each delivery is
// its own transaction; a failed delivery is dropped and reported.
func (b *Bus) Flush(ctx context.Context) (int, error) {
	var errs []error
	delivered := 0
	for {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		env, ok := b.dequeue()
		if !ok {
			break
		}

		b.execMu.Lock()
		_, err := b.runTx(ctx, "deferred", env.sender, env.msg)
		b.execMu.Unlock()

		b.metrics.deferred.WithLabelValues(result(err)).Inc()
		if err != nil {
			b.log.WithError(err).WithFields(logrus.Fields{
				"sender":   env.sender,
				"contract": env.msg.Contract,
			}).Warn("deferred delivery failed")
			errs = append(errs, fmt.Errorf("failed to deliver deferred message to %s: %w", env.msg.Contract, err))
			continue
		}
		delivered++
	}
	return delivered, errors.Join(errs...)
}

// Run flushes the deferred queue whenever new messages arrive, until ctx is
// done.
func (b *Bus) Run(ctx context.Context) {
	if _, err := b.Flush(ctx); err != nil && ctx.Err() == nil {
		b.log.WithError(err).Warn("deferred flush finished with errors")
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.notify:
			if _, err := b.Flush(ctx); err != nil && ctx.Err() == nil {
				b.log.WithError(err).Warn("deferred flush finished with errors")
			}
		}
	}
}
