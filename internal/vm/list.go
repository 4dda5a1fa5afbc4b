package vm

import (
	"context"
	"fmt"
	"sort"

	"github.com/jbweber/pvforge/internal/proxmox"
)

// ListVMs lists all VMs and containers of the cluster, sorted by id.
func (m *Manager) ListVMs(ctx context.Context) ([]proxmox.ClusterResource, error) {
	resources, err := m.clusterResources(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(resources, func(i, j int) bool { return resources[i].VMID < resources[j].VMID })
	return resources, nil
}

// ListNodes lists the cluster nodes.
func (m *Manager) ListNodes(ctx context.Context) ([]proxmox.Node, error) {
	doc, err := m.client.Get(ctx, "/nodes")
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	var nodes []proxmox.Node
	if err := doc.Decode(&nodes); err != nil {
		return nil, fmt.Errorf("failed to decode nodes: %w", err)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Node < nodes[j].Node })
	return nodes, nil
}
