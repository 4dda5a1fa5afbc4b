package vm

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/jbweber/pvforge/internal/proxmox"
)

const clusterResourcesPath = "/cluster/resources?type=vm"

func resourceID(vmType string, id int) string {
	return fmt.Sprintf("%s/%d", vmType, id)
}

func guestPath(info Info) string {
	return fmt.Sprintf("/nodes/%s/%s/%d", url.PathEscape(info.Node), info.Type, info.ID)
}

func (m *Manager) clusterResources(ctx context.Context) ([]proxmox.ClusterResource, error) {
	doc, err := m.client.Get(ctx, clusterResourcesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list cluster resources: %w", err)
	}

	var resources []proxmox.ClusterResource
	if err := doc.Decode(&resources); err != nil {
		return nil, fmt.Errorf("failed to decode cluster resources: %w", err)
	}
	return resources, nil
}

// GetVMInfo finds the node and type of a VM by scanning the cluster
// resources for "qemu/<id>" or "lxc/<id>". It returns ErrVMNotFound when
// neither exists.
func (m *Manager) GetVMInfo(ctx context.Context, id int) (Info, error) {
	if info, ok := m.cachedInfo(id); ok {
		return info, nil
	}

	resources, err := m.clusterResources(ctx)
	if err != nil {
		return Info{}, err
	}

	qemuID, lxcID := resourceID(proxmox.VMTypeQemu, id), resourceID(proxmox.VMTypeLXC, id)
	for _, r := range resources {
		var vmType string
		switch r.ID {
		case qemuID:
			vmType = proxmox.VMTypeQemu
		case lxcID:
			vmType = proxmox.VMTypeLXC
		default:
			continue
		}
		info := Info{ID: id, Type: vmType, Node: r.Node, Name: r.Name}
		m.storeInfo(info)
		return info, nil
	}

	return Info{}, fmt.Errorf("vm %d: %w", id, ErrVMNotFound)
}

// GetVMState reports whether a VM is running, stopped or not created.
//
// A VM absent from the cluster resources is not created. A server error
// from the status query is also read as not created; errors from the
// cluster resource lookup are returned.
func (m *Manager) GetVMState(ctx context.Context, id int) (State, error) {
	info, err := m.GetVMInfo(ctx, id)
	switch {
	case errors.Is(err, ErrVMNotFound):
		return StateNotCreated, nil
	case err != nil:
		return "", err
	}

	doc, err := m.client.Get(ctx, guestPath(info)+"/status/current")
	if errors.Is(err, proxmox.ErrServer) {
		m.forgetInfo(id)
		return StateNotCreated, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query status of vm %d: %w", id, err)
	}

	var status proxmox.VMStatus
	if err := doc.Decode(&status); err != nil {
		return "", fmt.Errorf("failed to decode status of vm %d: %w", id, err)
	}

	switch State(status.Status) {
	case StateRunning:
		return StateRunning, nil
	case StateStopped:
		return StateStopped, nil
	default:
		m.logger.Debug().Int("vmid", id).Str("status", status.Status).Msg("Unrecognized VM status")
		return StateUnknown, nil
	}
}

// GetFreeVMID returns the lowest id of the configured range that no VM
// in the cluster uses.
func (m *Manager) GetFreeVMID(ctx context.Context) (int, error) {
	resources, err := m.clusterResources(ctx)
	if err != nil {
		return 0, err
	}

	used := make(map[int]struct{}, len(resources))
	for _, r := range resources {
		used[r.VMID] = struct{}{}
	}

	for id := m.opts.IDRange.Min; id <= m.opts.IDRange.Max; id++ {
		if _, ok := used[id]; !ok {
			return id, nil
		}
	}

	return 0, &proxmox.Error{
		Kind:    proxmox.KindNoVMIDAvailable,
		Message: fmt.Sprintf("all ids in %d-%d are in use", m.opts.IDRange.Min, m.opts.IDRange.Max),
	}
}
