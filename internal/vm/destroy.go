package vm

import (
	"context"
	"fmt"

	"github.com/jbweber/pvforge/internal/task"
)

// DeleteVM destroys a VM and its disks and waits for the destroy task.
//
// The VM must not be running; the server rejects destroying a running
// guest and the task reports that as its exit status.
func (m *Manager) DeleteVM(ctx context.Context, id int) (task.ExitStatus, error) {
	info, err := m.GetVMInfo(ctx, id)
	if err != nil {
		return "", err
	}

	logger := m.logger.With().Int("vmid", id).Str("node", info.Node).Logger()
	logger.Info().Msg("Destroying VM")

	doc, err := m.client.Delete(ctx, guestPath(info))
	if err != nil {
		return "", fmt.Errorf("failed to destroy vm %d: %w", id, err)
	}
	m.forgetInfo(id)

	return m.wait(ctx, doc, DestroyTimeoutKey, logger)
}
