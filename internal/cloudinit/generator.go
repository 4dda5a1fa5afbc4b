// Package cloudinit generates cloud-init NoCloud seeds for new VMs.
//
// A seed is three documents (user-data, meta-data, network-config) packed
// into an ISO9660 image labelled CIDATA. pvforge uploads the image to an
// ISO storage and attaches it to the VM as a CD-ROM.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
package cloudinit

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/pvforge/internal/config"
)

// UserData represents the cloud-config user-data structure.
// This is marshaled to YAML and prefixed with "#cloud-config" header.
type UserData struct {
	Hostname          string    `yaml:"hostname"`
	FQDN              string    `yaml:"fqdn"`
	SSHAuthorizedKeys []string  `yaml:"ssh_authorized_keys,omitempty"`
	Chpasswd          *Chpasswd `yaml:"chpasswd,omitempty"`
	SSHPasswordAuth   bool      `yaml:"ssh_pwauth"`
	Output            *Output   `yaml:"output,omitempty"`
}

// Chpasswd configures user password settings.
type Chpasswd struct {
	Expire bool   `yaml:"expire"`
	List   string `yaml:"list"` // Format: "username:hash"
}

// Output configures cloud-init output logging.
type Output struct {
	All string `yaml:"all"`
}

// MetaData represents the cloud-init meta-data structure.
type MetaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}

// NetworkConfig represents the netplan v2 network configuration.
type NetworkConfig struct {
	Version   int                       `yaml:"version"`
	Ethernets map[string]EthernetConfig `yaml:"ethernets"`
}

// EthernetConfig represents a single ethernet interface configuration.
type EthernetConfig struct {
	Match       MatchConfig   `yaml:"match"`
	SetName     string        `yaml:"set-name,omitempty"`
	Addresses   []string      `yaml:"addresses"`
	Routes      []RouteConfig `yaml:"routes,omitempty"`
	Nameservers *Nameservers  `yaml:"nameservers,omitempty"`
}

// MatchConfig matches an interface by MAC address.
type MatchConfig struct {
	MACAddress string `yaml:"macaddress"`
}

// RouteConfig represents a static route.
type RouteConfig struct {
	To  string `yaml:"to"`
	Via string `yaml:"via"`
}

// Nameservers represents DNS server configuration.
type Nameservers struct {
	Addresses []string `yaml:"addresses"`
}

// GenerateUserData generates the user-data content, including the
// "#cloud-config" header.
func GenerateUserData(cfg *config.VMConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("VM configuration cannot be nil")
	}

	fqdn := cfg.Name
	if cfg.CloudInit != nil && cfg.CloudInit.FQDN != "" {
		fqdn = cfg.CloudInit.FQDN
	}

	userData := UserData{
		Hostname: cfg.Hostname(),
		FQDN:     fqdn,
		Output: &Output{
			All: "| tee -a /var/log/cloud-init-output.log",
		},
	}

	if ci := cfg.CloudInit; ci != nil {
		userData.SSHAuthorizedKeys = ci.SSHKeys
		if ci.RootPasswordHash != "" {
			userData.Chpasswd = &Chpasswd{
				Expire: false,
				List:   fmt.Sprintf("root:%s", ci.RootPasswordHash),
			}
		}
		if ci.SSHPwAuth != nil {
			userData.SSHPasswordAuth = *ci.SSHPwAuth
		}
	}

	yamlBytes, err := yaml.Marshal(&userData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user-data to YAML: %w", err)
	}

	return "#cloud-config\n" + string(yamlBytes), nil
}

// GenerateMetaData generates the meta-data content.
//
// The instance-id combines the VM name and id, so cloud-init re-runs when a
// VM is recreated under a new id but not on a plain reboot.
func GenerateMetaData(cfg *config.VMConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("VM configuration cannot be nil")
	}

	instanceID := cfg.Name
	if cfg.VMID != 0 {
		instanceID = fmt.Sprintf("%s-%d", cfg.Name, cfg.VMID)
	}

	metaData := MetaData{
		InstanceID:    instanceID,
		LocalHostname: cfg.Hostname(),
	}

	yamlBytes, err := yaml.Marshal(&metaData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal meta-data to YAML: %w", err)
	}

	return string(yamlBytes), nil
}

// GenerateNetworkConfig generates netplan v2 network-config content.
// Interfaces are matched by the MAC address pvforge assigns to net{i}.
func GenerateNetworkConfig(cfg *config.VMConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("VM configuration cannot be nil")
	}
	if len(cfg.Network) == 0 {
		return "", fmt.Errorf("at least one network interface is required")
	}

	networkConfig := NetworkConfig{
		Version:   2,
		Ethernets: make(map[string]EthernetConfig),
	}

	for i, iface := range cfg.Network {
		if iface.MACAddress == "" {
			return "", fmt.Errorf("network interface %d has no MAC address", i)
		}
		ethName := fmt.Sprintf("eth%d", i)

		ethConfig := EthernetConfig{
			Match:     MatchConfig{MACAddress: iface.MACAddress},
			SetName:   ethName,
			Addresses: []string{iface.IP},
		}
		if iface.DefaultRoute {
			ethConfig.Routes = []RouteConfig{{To: "0.0.0.0/0", Via: iface.Gateway}}
		}
		if len(iface.DNSServers) > 0 {
			ethConfig.Nameservers = &Nameservers{Addresses: iface.DNSServers}
		}

		networkConfig.Ethernets[ethName] = ethConfig
	}

	yamlBytes, err := yaml.Marshal(&networkConfig)
	if err != nil {
		return "", fmt.Errorf("failed to marshal network-config to YAML: %w", err)
	}

	return string(yamlBytes), nil
}
