package vm

import (
	"context"
	"fmt"

	"github.com/jbweber/pvforge/internal/task"
)

// StartVM starts a VM and waits for the start task.
func (m *Manager) StartVM(ctx context.Context, id int) (task.ExitStatus, error) {
	return m.changePower(ctx, id, "start", StartTimeoutKey)
}

// StopVM hard-stops a VM and waits for the stop task.
func (m *Manager) StopVM(ctx context.Context, id int) (task.ExitStatus, error) {
	return m.changePower(ctx, id, "stop", StopTimeoutKey)
}

// ShutdownVM asks the guest OS to shut down and waits for the shutdown task.
func (m *Manager) ShutdownVM(ctx context.Context, id int) (task.ExitStatus, error) {
	return m.changePower(ctx, id, "shutdown", ShutdownTimeoutKey)
}

func (m *Manager) changePower(ctx context.Context, id int, action, timeoutKey string) (task.ExitStatus, error) {
	info, err := m.GetVMInfo(ctx, id)
	if err != nil {
		return "", err
	}

	logger := m.logger.With().Int("vmid", id).Str("node", info.Node).Str("action", action).Logger()
	logger.Info().Msg("Changing VM power state")

	doc, err := m.client.Post(ctx, guestPath(info)+"/status/"+action, nil)
	if err != nil {
		return "", fmt.Errorf("failed to %s vm %d: %w", action, id, err)
	}

	return m.wait(ctx, doc, timeoutKey, logger)
}
