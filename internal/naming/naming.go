// Package naming provides the naming conventions pvforge applies to
// Proxmox objects: MAC addresses derived from IPs, VM name normalization,
// network device keys and cloud-init seed file names.
package naming

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

// MACFromIP calculates a deterministic MAC address from an IP address.
// Uses the locally administered prefix be:ef:.
//
// Example: IP 10.55.22.22 → MAC be:ef:0a:37:16:16
func MACFromIP(ip string) (string, error) {
	ipv4, err := parseIPv4(ip)
	if err != nil {
		return "", err
	}

	// Format: be:ef:XX:XX:XX:XX where XX are IP octets in hex
	return fmt.Sprintf("be:ef:%02x:%02x:%02x:%02x",
		ipv4[0], ipv4[1], ipv4[2], ipv4[3]), nil
}

// parseIPv4 handles both "10.1.2.3" and "10.1.2.3/24".
func parseIPv4(ip string) (net.IP, error) {
	ipStr := ip
	if strings.Contains(ip, "/") {
		ipAddr, _, err := net.ParseCIDR(ip)
		if err != nil {
			return nil, fmt.Errorf("invalid IP/CIDR: %w", err)
		}
		ipStr = ipAddr.String()
	}

	parsedIP := net.ParseIP(ipStr)
	if parsedIP == nil {
		return nil, fmt.Errorf("invalid IP address: %s", ipStr)
	}

	ipv4 := parsedIP.To4()
	if ipv4 == nil {
		return nil, fmt.Errorf("not an IPv4 address: %s", ipStr)
	}
	return ipv4, nil
}

var invalidNameChars = regexp.MustCompile(`[^a-z0-9-]+`)

// NormalizeVMName turns a free-form name into a valid Proxmox VM name:
// lowercase DNS label characters, runs of anything else collapsed to a
// single hyphen, no leading or trailing hyphen.
//
// Example: "Web Server_01" → "web-server-01"
func NormalizeVMName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = invalidNameChars.ReplaceAllString(n, "-")
	return strings.Trim(n, "-")
}

// NetDevice returns the Proxmox config key of the i-th network device.
// Format: net{i}
func NetDevice(i int) string {
	return fmt.Sprintf("net%d", i)
}

// CloudInitISOName returns the storage file name of a VM's cloud-init seed.
// The fingerprint identifies the seed content, so a changed configuration
// never reuses a stale seed already present in storage.
// Format: pvforge-{vmid}-{fingerprint}-cidata.iso
func CloudInitISOName(vmid int, fingerprint string) string {
	return fmt.Sprintf("pvforge-%d-%s-cidata.iso", vmid, fingerprint)
}

// ISOVolumeID returns the volume id of an ISO file in a storage.
// Format: {storage}:iso/{file}
func ISOVolumeID(storage, file string) string {
	return fmt.Sprintf("%s:iso/%s", storage, file)
}
