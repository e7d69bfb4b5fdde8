package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler returns nil only when the message is done and its offset may be
// committed. An error means the message is retried in place.
type Handler func(ctx context.Context, m kafka.Message) error

type committer interface {
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Consumer struct {
	r       *kafka.Reader
	commits committer
	workers int
	log     *zap.Logger

	newBackOff func() backoff.BackOff
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		r:          r,
		commits:    r,
		workers:    workers,
		log:        log.With(zap.String("topic", topic), zap.String("group", group)),
		newBackOff: retryBackOff,
	}
}

// retryBackOff never gives up on its own; only ctx ends a retry loop.
func retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Start reads until ctx is cancelled, fanning messages out to the worker pool.
// Every partition is pinned to one worker so its offsets are handled and
// committed in order. It returns after every worker has finished.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range jobs {
		jobs[i] = make(chan kafka.Message, 128)
		wg.Add(1)
		go func(id int, in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				c.handle(ctx, id, h, m)
			}
		}(i, jobs[i])
	}
	stop := func() {
		for _, ch := range jobs {
			close(ch)
		}
		wg.Wait()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case jobs[workerFor(m.Partition, c.workers)] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

func workerFor(partition, workers int) int {
	if partition < 0 {
		partition = -partition
	}
	return partition % workers
}

// handle retries m until h succeeds or ctx ends, and commits only on success.
// A worker never moves past a failed message, so a later commit on the same
// partition cannot skip it.
func (c *Consumer) handle(ctx context.Context, worker int, h Handler, m kafka.Message) {
	attempt := 0
	op := func() error {
		attempt++
		return h(ctx, m)
	}
	notify := func(err error, wait time.Duration) {
		c.log.Error("handler failed, retrying",
			zap.Int("worker", worker),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(c.newBackOff(), ctx), notify); err != nil {
		c.log.Warn("stopped retrying message",
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Error(err),
		)
		return
	}
	if err := c.commits.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.log.Error("commit offset", zap.Int64("offset", m.Offset), zap.Error(err))
	}
}
