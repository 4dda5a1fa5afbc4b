package task

import (
	"fmt"
	"time"
)

// Default timeouts, matching what a stock Proxmox VE node needs for
// ordinary VM operations and for image uploads.
const (
	DefaultTaskTimeout    = 60 * time.Second
	DefaultImgCopyTimeout = 120 * time.Second
	DefaultPollInterval   = 2 * time.Second
)

// Policy holds the polling budget for tasks.
type Policy struct {
	// TaskTimeout applies to every task type except imgcopy.
	TaskTimeout time.Duration
	// ImgCopyTimeout applies to imgcopy tasks.
	ImgCopyTimeout time.Duration
	// PollInterval is the fixed sleep between two status queries.
	PollInterval time.Duration
}

// DefaultPolicy returns the default polling budget.
func DefaultPolicy() Policy {
	return Policy{
		TaskTimeout:    DefaultTaskTimeout,
		ImgCopyTimeout: DefaultImgCopyTimeout,
		PollInterval:   DefaultPollInterval,
	}
}

// Validate checks the policy for values the poller cannot work with.
func (p Policy) Validate() error {
	if p.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be > 0, got %v", p.PollInterval)
	}
	if p.TaskTimeout < 0 {
		return fmt.Errorf("task timeout must be >= 0, got %v", p.TaskTimeout)
	}
	if p.ImgCopyTimeout < 0 {
		return fmt.Errorf("imgcopy timeout must be >= 0, got %v", p.ImgCopyTimeout)
	}
	return nil
}

// TimeoutFor returns the timeout for a task type.
func (p Policy) TimeoutFor(taskType string) time.Duration {
	if taskType == TypeImgCopy {
		return p.ImgCopyTimeout
	}
	return p.TaskTimeout
}

// MaxAttempts returns how many status queries fit in timeout:
// floor(timeout / PollInterval) + 1.
func (p Policy) MaxAttempts(timeout time.Duration) int {
	if p.PollInterval <= 0 {
		return 1
	}
	return int(timeout/p.PollInterval) + 1
}
