package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jbweber/pvforge/internal/proxmox"
)

// TableFormatter formats resources as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatVMList formats a list of VMs as a table.
func (f *TableFormatter) FormatVMList(rs []proxmox.ClusterResource) (string, error) {
	if len(rs) == 0 {
		return "No VMs found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "VMID\tNAME\tTYPE\tNODE\tSTATUS\tCPUS\tMEMORY\tUPTIME\tTAGS")
	}

	for _, vm := range newVMs(rs) {
		status := vm.Status
		if vm.Template {
			status = "template"
		}

		uptime := "-"
		if vm.UptimeSeconds > 0 {
			uptime = formatAge(time.Duration(vm.UptimeSeconds) * time.Second)
		}

		tags := "-"
		if len(vm.Tags) > 0 {
			tags = strings.Join(vm.Tags, ",")
		}

		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%g\t%d MiB\t%s\t%s\n",
			vm.VMID, dash(vm.Name), vm.Type, vm.Node, dash(status), vm.CPUs, vm.MemoryMiB, uptime, tags)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatNodeList formats a list of nodes as a table.
func (f *TableFormatter) FormatNodeList(ns []proxmox.Node) (string, error) {
	if len(ns) == 0 {
		return "No nodes found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NODE\tSTATUS\tCPU\tMEMORY\tUPTIME")
	}

	for _, n := range newNodes(ns) {
		uptime := "-"
		if n.UptimeSeconds > 0 {
			uptime = formatAge(time.Duration(n.UptimeSeconds) * time.Second)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.0f%% of %d\t%d/%d MiB\t%s\n",
			n.Name, dash(n.Status), n.CPUUsage*100, n.CPUs, n.MemoryMiB, n.MaxMemoryMiB, uptime)
	}

	_ = w.Flush()
	return buf.String(), nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatAge formats a duration as a human-readable age string.
// Examples: "5s", "2m", "3h", "4d", "2w", "1y"
func formatAge(d time.Duration) string {
	if d < 0 {
		return "unknown"
	}

	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}

	days := hours / 24
	if days < 7 {
		return fmt.Sprintf("%dd", days)
	}

	// Weeks up to ~2 months
	weeks := days / 7
	if weeks < 8 {
		return fmt.Sprintf("%dw", weeks)
	}

	if years := days / 365; years > 0 {
		return fmt.Sprintf("%dy", years)
	}
	return fmt.Sprintf("%dd", days)
}
