// Package gojob runs the pending-request polling sweep on a go-job queue:
// a scheduler enqueues one sweep per interval, a worker consumes and executes
// them with bounded retries.
package gojob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-custody/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const JobIDPollRequests = "custody.requests.poll"

// PollService is the slice of the keyring the worker drives.
type PollService interface {
	PollPendingRequests(ctx context.Context) (int, error)
}

// RetryPolicy bounds requeue behavior so a failing sweep cannot loop forever.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces the retry bounds for one nack operation.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// NewPollMessage builds the execution message for one sweep. The idempotency
// key collapses overlapping sweeps scheduled for the same tick.
func NewPollMessage(tick time.Time) *job.ExecutionMessage {
	return &job.ExecutionMessage{
		JobID:          JobIDPollRequests,
		Parameters:     map[string]any{},
		IdempotencyKey: fmt.Sprintf("%s:%d", JobIDPollRequests, tick.Unix()),
		DedupPolicy:    job.DeduplicationPolicy("drop"),
	}
}

// Scheduler enqueues one poll sweep per interval until the context ends.
type Scheduler struct {
	enqueuer queue.Enqueuer
	interval time.Duration
	now      func() time.Time
	logger   core.Logger
}

func NewScheduler(enqueuer queue.Enqueuer, interval time.Duration, logger core.Logger) (*Scheduler, error) {
	if enqueuer == nil {
		return nil, fmt.Errorf("gojob: enqueuer is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("gojob: polling interval must be positive")
	}
	return &Scheduler{
		enqueuer: enqueuer,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   glog.Ensure(logger),
	}, nil
}

func (s *Scheduler) Run(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gojob: scheduler is nil")
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.enqueuer.Enqueue(ctx, NewPollMessage(s.now())); err != nil {
				s.logger.Error("failed to enqueue poll sweep", "error", err.Error())
			}
		}
	}
}

// Worker consumes poll deliveries and runs the sweep, acking on success and
// nacking with bounded retries on failure.
type Worker struct {
	dequeuer queue.Dequeuer
	service  PollService
	policy   RetryPolicy
	logger   core.Logger
}

func NewWorker(dequeuer queue.Dequeuer, service PollService, policy RetryPolicy, logger core.Logger) (*Worker, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	if service == nil {
		return nil, fmt.Errorf("gojob: poll service is required")
	}
	return &Worker{
		dequeuer: dequeuer,
		service:  service,
		policy:   policy,
		logger:   glog.Ensure(logger),
	}, nil
}

func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return fmt.Errorf("gojob: worker is nil")
	}
	attempts := map[string]int{}
	for {
		delivery, err := w.dequeuer.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			w.logger.Error("poll dequeue failed", "error", err.Error())
			continue
		}
		w.handle(ctx, delivery, attempts)
	}
}

func (w *Worker) handle(ctx context.Context, delivery queue.Delivery, attempts map[string]int) {
	message := delivery.Message()
	if message == nil || message.JobID != JobIDPollRequests {
		_ = delivery.Nack(ctx, queue.NackOptions{DeadLetter: true, Reason: "unexpected job"})
		return
	}

	resolved, err := w.service.PollPendingRequests(ctx)
	if err == nil {
		delete(attempts, message.IdempotencyKey)
		if ackErr := delivery.Ack(ctx); ackErr != nil {
			w.logger.Error("poll ack failed", "error", ackErr.Error())
		}
		w.logger.Info("poll sweep completed", "resolved", resolved)
		return
	}

	attempts[message.IdempotencyKey]++
	attempt := attempts[message.IdempotencyKey]
	nack := w.policy.NormalizeAttempt(queue.NackOptions{
		Requeue: true,
		Reason:  err.Error(),
	}, attempt)
	if nackErr := delivery.Nack(ctx, nack); nackErr != nil {
		w.logger.Error("poll nack failed", "error", nackErr.Error())
	}
	w.logger.Error("poll sweep failed", "attempt", attempt, "error", err.Error())
}

// LoggingHook surfaces worker lifecycle events through the service logger.
type LoggingHook struct {
	logger core.Logger
}

func NewLoggingHook(logger core.Logger) *LoggingHook {
	return &LoggingHook{logger: glog.Ensure(logger)}
}

func (h *LoggingHook) OnStart(_ context.Context, event worker.Event) {
	h.logger.Debug("poll job started", "attempt", event.Attempt)
}

func (h *LoggingHook) OnSuccess(_ context.Context, event worker.Event) {
	h.logger.Info("poll job succeeded", "duration_ms", event.Duration.Milliseconds())
}

func (h *LoggingHook) OnFailure(_ context.Context, event worker.Event) {
	if event.Err != nil {
		h.logger.Error("poll job failed", "error", event.Err.Error())
		return
	}
	h.logger.Error("poll job failed")
}

func (h *LoggingHook) OnRetry(_ context.Context, event worker.Event) {
	h.logger.Warn("poll job retrying", "attempt", event.Attempt, "delay_ms", event.Delay.Milliseconds())
}

var _ worker.Hook = (*LoggingHook)(nil)
