package proxmox

import "strings"

// VM types as they appear in API paths and cluster resource ids.
const (
	VMTypeQemu = "qemu"
	VMTypeLXC  = "lxc"
)

// Ticket is the payload of POST /access/ticket.
type Ticket struct {
	Ticket              string `json:"ticket"`
	CSRFPreventionToken string `json:"CSRFPreventionToken"`
	Username            string `json:"username"`
}

// Node is one entry of GET /nodes.
type Node struct {
	Node   string  `json:"node"`
	Status string  `json:"status"`
	CPU    float64 `json:"cpu"`
	MaxCPU int     `json:"maxcpu"`
	Mem    int64   `json:"mem"`
	MaxMem int64   `json:"maxmem"`
	Uptime int64   `json:"uptime"`
}

// ClusterResource is one entry of GET /cluster/resources?type=vm.
//
// ID has the form "<type>/<vmid>", e.g. "qemu/100" or "lxc/901".
type ClusterResource struct {
	ID       string  `json:"id"`
	VMID     int     `json:"vmid"`
	Name     string  `json:"name"`
	Node     string  `json:"node"`
	Type     string  `json:"type"`
	Status   string  `json:"status"`
	MaxMem   int64   `json:"maxmem"`
	MaxCPU   float64 `json:"maxcpu"`
	MaxDisk  int64   `json:"maxdisk"`
	Uptime   int64   `json:"uptime"`
	Template Flag    `json:"template"`
	Pool     string  `json:"pool,omitempty"`
	Tags     string  `json:"tags,omitempty"`
}

// VMStatus is the payload of GET /nodes/{node}/{type}/{id}/status/current.
type VMStatus struct {
	Status string `json:"status"`
	Name   string `json:"name"`
	Uptime int64  `json:"uptime"`
}

// TaskStatus is the payload of GET /nodes/{node}/tasks/{upid}/status.
//
// ExitStatus is empty until the task has finished.
type TaskStatus struct {
	UPID       string `json:"upid"`
	Node       string `json:"node"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	ExitStatus string `json:"exitstatus,omitempty"`
}

// StorageContent is one entry of GET /nodes/{node}/storage/{storage}/content.
//
// VolID has the form "<storage>:<content>/<file>", e.g. "local:iso/debian.iso".
type StorageContent struct {
	VolID   string `json:"volid"`
	Content string `json:"content"`
	Format  string `json:"format"`
	Size    int64  `json:"size"`
}

// Flag decodes Proxmox 0/1 flags, which arrive as numbers, strings or
// booleans depending on the endpoint and server version.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "", "0", "false", "null":
		*f = false
	default:
		*f = true
	}
	return nil
}
