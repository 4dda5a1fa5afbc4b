package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/pvforge/internal/proxmox"
)

// YAMLFormatter formats resources as YAML.
type YAMLFormatter struct{}

// FormatVMList formats a list of VMs as a YAML stream (one document per VM,
// separated by ---).
func (f *YAMLFormatter) FormatVMList(rs []proxmox.ClusterResource) (string, error) {
	var buf bytes.Buffer

	for i, vm := range newVMs(rs) {
		data, err := yaml.Marshal(vm)
		if err != nil {
			return "", fmt.Errorf("failed to marshal VM %d to YAML: %w", vm.VMID, err)
		}

		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(data)
	}

	return buf.String(), nil
}

// FormatNodeList formats a list of nodes as a YAML sequence.
func (f *YAMLFormatter) FormatNodeList(ns []proxmox.Node) (string, error) {
	if len(ns) == 0 {
		return "", nil
	}

	data, err := yaml.Marshal(newNodes(ns))
	if err != nil {
		return "", fmt.Errorf("failed to marshal nodes to YAML: %w", err)
	}
	return string(data), nil
}
