package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"

	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/pvforge/internal/naming"
	"github.com/jbweber/pvforge/internal/proxmox"
)

// Proxmox VE accepts guest ids from 100 up to 999999999.
const (
	MinVMID = 100
	MaxVMID = 999999999
)

// VMConfig is a VM definition file.
type VMConfig struct {
	Name string `yaml:"name"`
	// Type is "qemu" (default) or "lxc".
	Type string `yaml:"type,omitempty"`
	// Node is the cluster node to create the VM on. Empty means the
	// default node from the settings file.
	Node string `yaml:"node,omitempty"`
	// VMID pins the id. Zero means the lowest free id in the configured range.
	VMID      int                `yaml:"vmid,omitempty"`
	Cores     int                `yaml:"cores"`
	Sockets   int                `yaml:"sockets,omitempty"`
	MemoryMiB int                `yaml:"memory_mib"`
	Disk      DiskConfig         `yaml:"disk"`
	ISO       string             `yaml:"iso,omitempty"`        // qemu: install media volume id, e.g. local:iso/fedora.iso
	Template  string             `yaml:"ostemplate,omitempty"` // lxc: template volume id, e.g. local:vztmpl/debian-12.tar.zst
	Network   []NetworkInterface `yaml:"network_interfaces"`
	CloudInit *CloudInitConfig   `yaml:"cloud_init,omitempty"`
	Tags      []string           `yaml:"tags,omitempty"`
	Start     bool               `yaml:"start,omitempty"` // start after create
}

// DiskConfig defines the root disk.
type DiskConfig struct {
	Storage string `yaml:"storage"`
	SizeGB  int    `yaml:"size_gb"`
}

// NetworkInterface defines a network interface configuration.
type NetworkInterface struct {
	IP           string   `yaml:"ip"` // IP with CIDR, e.g., "10.20.30.40/24"
	Gateway      string   `yaml:"gateway"`
	DNSServers   []string `yaml:"dns_servers"`
	Bridge       string   `yaml:"bridge"`
	DefaultRoute bool     `yaml:"default_route,omitempty"`

	// Derived from IP, never read from YAML.
	MACAddress string `yaml:"-"`
}

// CloudInitConfig contains cloud-init configuration.
// Hostname is derived from FQDN (everything before the first dot).
type CloudInitConfig struct {
	FQDN             string   `yaml:"fqdn,omitempty"`
	SSHKeys          []string `yaml:"ssh_keys,omitempty"`
	RootPasswordHash string   `yaml:"root_password_hash,omitempty"`
	SSHPwAuth        *bool    `yaml:"ssh_pwauth,omitempty"` // Pointer to distinguish unset vs false
	// Storage receives the seed ISO. Empty means the iso_storage setting.
	Storage string `yaml:"storage,omitempty"`
}

// IsLXC reports whether the definition describes a container.
func (c *VMConfig) IsLXC() bool {
	return c.Type == proxmox.VMTypeLXC
}

// Validate checks the configuration for errors.
// Does not validate cluster resources (nodes, storages, bridges), only structure.
func (c *VMConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}

	// Proxmox VM names are DNS labels.
	namePattern := `^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`
	matched, err := regexp.MatchString(namePattern, c.Name)
	if err != nil {
		return fmt.Errorf("name validation error: %w", err)
	}
	if !matched {
		return fmt.Errorf("name must start and end with alphanumeric characters and contain only alphanumeric or hyphens, got %q", c.Name)
	}

	if c.Type != proxmox.VMTypeQemu && c.Type != proxmox.VMTypeLXC {
		return fmt.Errorf("type must be %q or %q, got %q", proxmox.VMTypeQemu, proxmox.VMTypeLXC, c.Type)
	}
	if c.VMID != 0 && (c.VMID < MinVMID || c.VMID > MaxVMID) {
		return fmt.Errorf("vmid must be between %d and %d, got %d", MinVMID, MaxVMID, c.VMID)
	}
	if c.Cores <= 0 {
		return fmt.Errorf("cores must be > 0, got %d", c.Cores)
	}
	if c.Sockets <= 0 {
		return fmt.Errorf("sockets must be > 0, got %d", c.Sockets)
	}
	if c.MemoryMiB <= 0 {
		return fmt.Errorf("memory_mib must be > 0, got %d", c.MemoryMiB)
	}

	if err := c.Disk.Validate(); err != nil {
		return fmt.Errorf("disk: %w", err)
	}

	if c.IsLXC() {
		if c.Template == "" {
			return fmt.Errorf("ostemplate is required for lxc containers")
		}
		if c.ISO != "" {
			return fmt.Errorf("iso is not supported for lxc containers")
		}
	} else if c.Template != "" {
		return fmt.Errorf("ostemplate is only supported for lxc containers")
	}

	if len(c.Network) == 0 {
		return fmt.Errorf("at least one network_interfaces entry is required")
	}
	ipsSeen := make(map[string]bool)
	for i, iface := range c.Network {
		if err := iface.Validate(); err != nil {
			return fmt.Errorf("network_interfaces[%d]: %w", i, err)
		}
		if ipsSeen[iface.IP] {
			return fmt.Errorf("network_interfaces[%d]: duplicate IP %q", i, iface.IP)
		}
		ipsSeen[iface.IP] = true
	}

	if c.CloudInit != nil {
		if err := c.CloudInit.Validate(); err != nil {
			return fmt.Errorf("cloud_init: %w", err)
		}
	}

	return nil
}

// Validate checks disk configuration.
func (d *DiskConfig) Validate() error {
	if d.Storage == "" {
		return fmt.Errorf("storage is required")
	}
	if d.SizeGB <= 0 {
		return fmt.Errorf("size_gb must be > 0, got %d", d.SizeGB)
	}
	return nil
}

// Validate checks network interface configuration.
func (n *NetworkInterface) Validate() error {
	if n.IP == "" {
		return fmt.Errorf("ip is required")
	}
	if n.Gateway == "" {
		return fmt.Errorf("gateway is required")
	}
	if n.Bridge == "" {
		return fmt.Errorf("bridge is required")
	}

	if _, _, err := net.ParseCIDR(n.IP); err != nil {
		return fmt.Errorf("invalid ip/cidr format %q: %w", n.IP, err)
	}
	if net.ParseIP(n.Gateway) == nil {
		return fmt.Errorf("invalid gateway IP address %q", n.Gateway)
	}
	for i, dns := range n.DNSServers {
		if net.ParseIP(dns) == nil {
			return fmt.Errorf("dns_servers[%d] is not a valid IP address: %q", i, dns)
		}
	}

	return nil
}

// Validate checks cloud-init configuration.
func (c *CloudInitConfig) Validate() error {
	if c.FQDN != "" {
		// RFC 952/1123 labels separated by dots, at least one dot.
		fqdnPattern := `^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`
		matched, err := regexp.MatchString(fqdnPattern, c.FQDN)
		if err != nil {
			return fmt.Errorf("fqdn validation error: %w", err)
		}
		if !matched {
			return fmt.Errorf("fqdn must be a valid hostname with domain (e.g., host.example.com), got %q", c.FQDN)
		}
	}

	for i, key := range c.SSHKeys {
		if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
			return fmt.Errorf("ssh_keys[%d] is not a valid SSH public key: %w", i, err)
		}
	}

	if c.RootPasswordHash != "" {
		if len(c.RootPasswordHash) < 10 || c.RootPasswordHash[0] != '$' {
			return fmt.Errorf("root_password_hash must be a valid crypt hash (should start with $)")
		}
	}

	return nil
}

// Hostname returns the short host name: the first FQDN label when cloud-init
// sets one, the VM name otherwise.
func (c *VMConfig) Hostname() string {
	if c.CloudInit != nil && c.CloudInit.FQDN != "" {
		return strings.SplitN(c.CloudInit.FQDN, ".", 2)[0]
	}
	return c.Name
}

// Normalize sanitizes user input and fills defaults.
// Called by LoadFromFile before validation.
func (c *VMConfig) Normalize() {
	c.Name = naming.NormalizeVMName(c.Name)
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	if c.Type == "" {
		c.Type = proxmox.VMTypeQemu
	}
	if c.Sockets == 0 {
		c.Sockets = 1
	}

	if c.CloudInit != nil {
		c.CloudInit.FQDN = strings.ToLower(strings.TrimSpace(c.CloudInit.FQDN))
	}

	// Bridge and storage names are NOT normalized; they must match the cluster exactly.
}

// LoadFromFile loads a VM definition from a YAML file.
func LoadFromFile(path string) (*VMConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, normalizes and validates a VM definition.
func Parse(data []byte) (*VMConfig, error) {
	var config VMConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.Normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := config.CalculateMACs(); err != nil {
		return nil, fmt.Errorf("failed to calculate MAC addresses: %w", err)
	}

	return &config, nil
}

// CalculateMACs sets MAC addresses for all network interfaces from their
// IP addresses. Must be called after validation.
func (c *VMConfig) CalculateMACs() error {
	for i := range c.Network {
		mac, err := naming.MACFromIP(c.Network[i].IP)
		if err != nil {
			return fmt.Errorf("network_interfaces[%d]: %w", i, err)
		}
		c.Network[i].MACAddress = mac
	}
	return nil
}
