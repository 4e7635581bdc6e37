// Package worker consumes queued import jobs and runs them through the
// import pipeline.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"takziv/internal/amqp"
	applog "takziv/internal/log"
	"takziv/internal/services"
)

// Consumer is the queue side the worker needs; satisfied by amqp.Client.
type Consumer interface {
	ConsumeImportJobs(ctx context.Context, handler func(*amqp.ImportJobMessage) error) error
}

// ImportWorker drains the import-job queue until its context ends.
type ImportWorker struct {
	consumer Consumer
	service  *services.ImportService
	sleep    func(ctx context.Context, d time.Duration) error
	log      *slog.Logger

	// ReconnectDelay floors the backoff between reconnect attempts.
	// Zero means no floor; delays then start at one second.
	ReconnectDelay time.Duration
}

// Option configures an ImportWorker.
type Option func(*ImportWorker)

// WithSleep replaces the wait between reconnect attempts, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(w *ImportWorker) { w.sleep = sleep }
}

func New(consumer Consumer, service *services.ImportService, opts ...Option) *ImportWorker {
	w := &ImportWorker{
		consumer: consumer,
		service:  service,
		sleep:    sleepCtx,
		log:      applog.ForComponent(applog.ComponentWorker),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// steadyStateAfter is how long a consume session must stay up before a
// subsequent drop counts as a fresh outage rather than a flapping broker.
const steadyStateAfter = time.Minute

// Run blocks consuming jobs until the context ends. Connection-class
// drops are retried with exponential backoff; any other consume failure
// is permanent and returned to the caller.
func (w *ImportWorker) Run(ctx context.Context) error {
	attempt := 0
	for {
		started := time.Now()
		err := w.consumer.ConsumeImportJobs(ctx, func(msg *amqp.ImportJobMessage) error {
			return w.service.RunImportJob(ctx, msg)
		})
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return ctx.Err()
		}
		if !amqp.IsConnectionError(err) {
			return fmt.Errorf("consume import jobs: %w", err)
		}

		if time.Since(started) >= steadyStateAfter {
			attempt = 0
		}
		delay := amqp.ExponentialBackoff(attempt)
		if delay < w.ReconnectDelay {
			delay = w.ReconnectDelay
		}
		attempt++

		w.log.WarnContext(ctx, "Import consume loop dropped, reconnecting",
			applog.FieldError, err, "delay", delay, "attempt", attempt)
		if err := w.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
