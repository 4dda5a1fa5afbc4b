package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/pvforge/internal/proxmox"
)

// JSONFormatter formats resources as indented JSON arrays.
type JSONFormatter struct{}

// FormatVMList formats a list of VMs as a JSON array.
func (f *JSONFormatter) FormatVMList(rs []proxmox.ClusterResource) (string, error) {
	return marshalJSON(newVMs(rs), "VMs")
}

// FormatNodeList formats a list of nodes as a JSON array.
func (f *JSONFormatter) FormatNodeList(ns []proxmox.Node) (string, error) {
	return marshalJSON(newNodes(ns), "nodes")
}

func marshalJSON(v any, what string) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s to JSON: %w", what, err)
	}
	return string(data) + "\n", nil
}
