// Package output provides formatters for displaying cluster VMs and nodes
// in various formats (table, YAML, JSON).
package output

import (
	"fmt"
	"strings"

	"github.com/jbweber/pvforge/internal/proxmox"
)

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatYAML is a YAML format.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON format for machine consumption.
	FormatJSON Format = "json"
)

// Formatter formats cluster listings for output.
type Formatter interface {
	// FormatVMList formats the VMs and containers of a cluster.
	FormatVMList(vms []proxmox.ClusterResource) (string, error)

	// FormatNodeList formats the nodes of a cluster.
	FormatNodeList(nodes []proxmox.Node) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	// Format specifies the output format.
	Format Format
	// NoHeaders omits headers in table format.
	NoHeaders bool
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, yaml, json)", opts.Format)
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	f := Format(format)
	switch f {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid formats: table, yaml, json)", format)
	}
}

// VM is the printed form of a cluster resource.
type VM struct {
	VMID          int      `json:"vmid" yaml:"vmid"`
	Name          string   `json:"name" yaml:"name"`
	Type          string   `json:"type" yaml:"type"`
	Node          string   `json:"node" yaml:"node"`
	Status        string   `json:"status" yaml:"status"`
	CPUs          float64  `json:"cpus" yaml:"cpus"`
	MemoryMiB     int64    `json:"memory_mib" yaml:"memory_mib"`
	DiskGiB       int64    `json:"disk_gib" yaml:"disk_gib"`
	UptimeSeconds int64    `json:"uptime_seconds" yaml:"uptime_seconds"`
	Template      bool     `json:"template,omitempty" yaml:"template,omitempty"`
	Pool          string   `json:"pool,omitempty" yaml:"pool,omitempty"`
	Tags          []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Node is the printed form of a cluster node.
type Node struct {
	Name          string  `json:"name" yaml:"name"`
	Status        string  `json:"status" yaml:"status"`
	CPUUsage      float64 `json:"cpu_usage" yaml:"cpu_usage"`
	CPUs          int     `json:"cpus" yaml:"cpus"`
	MemoryMiB     int64   `json:"memory_mib" yaml:"memory_mib"`
	MaxMemoryMiB  int64   `json:"max_memory_mib" yaml:"max_memory_mib"`
	UptimeSeconds int64   `json:"uptime_seconds" yaml:"uptime_seconds"`
}

const (
	mib = 1 << 20
	gib = 1 << 30
)

// NewVM converts a cluster resource for printing.
func NewVM(r proxmox.ClusterResource) VM {
	vm := VM{
		VMID:          r.VMID,
		Name:          r.Name,
		Type:          r.Type,
		Node:          r.Node,
		Status:        r.Status,
		CPUs:          r.MaxCPU,
		MemoryMiB:     r.MaxMem / mib,
		DiskGiB:       r.MaxDisk / gib,
		UptimeSeconds: r.Uptime,
		Template:      bool(r.Template),
		Pool:          r.Pool,
	}
	// The API joins tags with ";".
	for _, tag := range strings.Split(r.Tags, ";") {
		if tag = strings.TrimSpace(tag); tag != "" {
			vm.Tags = append(vm.Tags, tag)
		}
	}
	return vm
}

// NewNode converts a cluster node for printing.
func NewNode(n proxmox.Node) Node {
	return Node{
		Name:          n.Node,
		Status:        n.Status,
		CPUUsage:      n.CPU,
		CPUs:          n.MaxCPU,
		MemoryMiB:     n.Mem / mib,
		MaxMemoryMiB:  n.MaxMem / mib,
		UptimeSeconds: n.Uptime,
	}
}

func newVMs(rs []proxmox.ClusterResource) []VM {
	vms := make([]VM, 0, len(rs))
	for _, r := range rs {
		vms = append(vms, NewVM(r))
	}
	return vms
}

func newNodes(ns []proxmox.Node) []Node {
	nodes := make([]Node, 0, len(ns))
	for _, n := range ns {
		nodes = append(nodes, NewNode(n))
	}
	return nodes
}
