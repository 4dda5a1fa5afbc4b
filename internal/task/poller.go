package task

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/jbweber/pvforge/internal/metrics"
	"github.com/jbweber/pvforge/internal/proxmox"
)

// ExitStatus is the terminal exit string of a task. "OK" is success;
// anything else is the failure message reported by the remote task.
type ExitStatus string

// ExitOK is the exit status of a successful task.
const ExitOK ExitStatus = "OK"

// Succeeded reports whether the task finished successfully.
func (s ExitStatus) Succeeded() bool {
	return s == ExitOK
}

// apiClient is the subset of *proxmox.Client the poller needs.
//
// In production, this is satisfied by *proxmox.Client.
// In tests, this is satisfied by mock implementations.
type apiClient interface {
	Get(ctx context.Context, path string) (*proxmox.Document, error)
}

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

// Poller waits for asynchronous Proxmox tasks to reach a terminal state.
type Poller struct {
	client apiClient
	policy Policy
	sleep  sleepFunc
	logger zerolog.Logger
}

// NewPoller creates a poller querying task status through client.
func NewPoller(client apiClient, policy Policy, logger zerolog.Logger) (*Poller, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid poll policy: %w", err)
	}
	return &Poller{
		client: client,
		policy: policy,
		sleep:  sleepContext,
		logger: logger.With().Str("component", "task").Logger(),
	}, nil
}

// Policy returns the polling budget.
func (p *Poller) Policy() Policy {
	return p.policy
}

// WaitForCompletion polls the task identified by upid until it reports an
// exit status, and returns that status as soon as it appears.
//
// The number of status queries is bounded by the policy timeout for the
// task type. When the budget is exhausted a timeout error carrying
// timeoutKey is returned. Errors from the status query propagate unchanged.
// A upid that cannot be parsed is a malformed-response error.
func (p *Poller) WaitForCompletion(ctx context.Context, upid, timeoutKey string) (ExitStatus, error) {
	handle, err := ParseHandle(upid)
	if err != nil {
		return "", err
	}

	timeout := p.policy.TimeoutFor(handle.Type)
	attempts := p.policy.MaxAttempts(timeout)
	path := fmt.Sprintf("/nodes/%s/tasks/%s/status", url.PathEscape(handle.Node), url.PathEscape(handle.Raw))

	logger := p.logger.With().
		Str("upid", handle.Raw).
		Str("node", handle.Node).
		Str("type", handle.Type).
		Logger()
	logger.Debug().Dur("timeout", timeout).Int("attempts", attempts).Msg("Waiting for task")

	start := time.Now()
	observe := func(result string) {
		metrics.TaskWaitDuration.WithLabelValues(handle.Type, result).Observe(time.Since(start).Seconds())
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, p.policy.PollInterval); err != nil {
				observe(metrics.ResultError)
				return "", fmt.Errorf("waiting for task %s: %w", handle.Raw, err)
			}
		}

		metrics.TaskPollsTotal.WithLabelValues(handle.Type).Inc()

		doc, err := p.client.Get(ctx, path)
		if err != nil {
			observe(metrics.ResultError)
			return "", err
		}

		var status proxmox.TaskStatus
		if err := doc.Decode(&status); err != nil {
			observe(metrics.ResultError)
			return "", err
		}

		if status.ExitStatus == "" {
			logger.Debug().Int("attempt", attempt).Str("status", status.Status).Msg("Task still running")
			continue
		}

		exit := ExitStatus(status.ExitStatus)
		if exit.Succeeded() {
			observe(metrics.ResultOK)
			logger.Debug().Int("attempt", attempt).Msg("Task finished")
		} else {
			observe(metrics.ResultFailed)
			logger.Warn().Int("attempt", attempt).Str("exitstatus", status.ExitStatus).Msg("Task failed")
		}
		return exit, nil
	}

	observe(metrics.ResultTimeout)
	metrics.TaskTimeoutsTotal.WithLabelValues(handle.Type).Inc()
	logger.Warn().Dur("timeout", timeout).Msg("Task did not finish in time")

	return "", proxmox.NewTimeoutError(timeoutKey)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
