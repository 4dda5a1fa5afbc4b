package vm

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jbweber/pvforge/internal/config"
	"github.com/jbweber/pvforge/internal/naming"
)

// seedDevice is the qemu drive slot of the cloud-init seed ISO. ide2 is
// left to installation media.
const seedDevice = "ide3"

// QemuParams builds the create parameters of a qemu VM. seedVolID is the
// volume id of the cloud-init seed ISO, or empty for none.
func QemuParams(cfg *config.VMConfig, id int, seedVolID string) url.Values {
	params := url.Values{}
	params.Set("vmid", strconv.Itoa(id))
	params.Set("name", cfg.Name)
	params.Set("cores", strconv.Itoa(cfg.Cores))
	params.Set("sockets", strconv.Itoa(cfg.Sockets))
	params.Set("memory", strconv.Itoa(cfg.MemoryMiB))
	params.Set("ostype", "l26")
	params.Set("scsihw", "virtio-scsi-pci")
	params.Set("scsi0", fmt.Sprintf("%s:%d", cfg.Disk.Storage, cfg.Disk.SizeGB))
	params.Set("smbios1", "uuid="+uuid.NewString())

	boot := []string{"scsi0"}
	if cfg.ISO != "" {
		params.Set("ide2", cfg.ISO+",media=cdrom")
		boot = append(boot, "ide2")
	}
	params.Set("boot", "order="+strings.Join(boot, ";"))

	if seedVolID != "" {
		params.Set(seedDevice, seedVolID+",media=cdrom")
	}

	for i, nic := range cfg.Network {
		params.Set(naming.NetDevice(i), fmt.Sprintf("virtio=%s,bridge=%s", nic.MACAddress, nic.Bridge))
	}

	setTags(params, cfg.Tags)
	return params
}

// LXCParams builds the create parameters of a container. Containers have
// no seed ISO; addressing and SSH keys are part of the container config.
func LXCParams(cfg *config.VMConfig, id int) url.Values {
	params := url.Values{}
	params.Set("vmid", strconv.Itoa(id))
	params.Set("hostname", cfg.Hostname())
	params.Set("ostemplate", cfg.Template)
	params.Set("cores", strconv.Itoa(cfg.Cores))
	params.Set("memory", strconv.Itoa(cfg.MemoryMiB))
	params.Set("rootfs", fmt.Sprintf("%s:%d", cfg.Disk.Storage, cfg.Disk.SizeGB))
	params.Set("unprivileged", "1")

	var nameservers []string
	for i, nic := range cfg.Network {
		opts := []string{
			fmt.Sprintf("name=eth%d", i),
			"bridge=" + nic.Bridge,
			"hwaddr=" + nic.MACAddress,
			"ip=" + nic.IP,
		}
		if nic.DefaultRoute {
			opts = append(opts, "gw="+nic.Gateway)
		}
		params.Set(naming.NetDevice(i), strings.Join(opts, ","))
		nameservers = append(nameservers, nic.DNSServers...)
	}
	if len(nameservers) > 0 {
		params.Set("nameserver", strings.Join(nameservers, " "))
	}

	if ci := cfg.CloudInit; ci != nil {
		if len(ci.SSHKeys) > 0 {
			params.Set("ssh-public-keys", strings.Join(ci.SSHKeys, "\n"))
		}
		if ci.FQDN != "" {
			if _, domain, ok := strings.Cut(ci.FQDN, "."); ok {
				params.Set("searchdomain", domain)
			}
		}
	}

	setTags(params, cfg.Tags)
	return params
}

func setTags(params url.Values, tags []string) {
	if len(tags) > 0 {
		params.Set("tags", strings.Join(tags, ";"))
	}
}
