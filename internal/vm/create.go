package vm

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/jbweber/pvforge/internal/cloudinit"
	"github.com/jbweber/pvforge/internal/config"
	"github.com/jbweber/pvforge/internal/naming"
	"github.com/jbweber/pvforge/internal/proxmox"
	"github.com/jbweber/pvforge/internal/storage"
	"github.com/jbweber/pvforge/internal/task"
)

// CreateVM creates a VM of vmType ("qemu" or "lxc") on node and waits for
// the create task. params are passed to the API as they are and must
// carry the vmid.
func (m *Manager) CreateVM(ctx context.Context, node, vmType string, params url.Values) (task.ExitStatus, error) {
	if vmType != proxmox.VMTypeQemu && vmType != proxmox.VMTypeLXC {
		return "", fmt.Errorf("unsupported vm type %q", vmType)
	}

	logger := m.logger.With().Str("node", node).Str("type", vmType).Str("vmid", params.Get("vmid")).Logger()
	logger.Info().Msg("Creating VM")

	doc, err := m.client.Post(ctx, fmt.Sprintf("/nodes/%s/%s", url.PathEscape(node), vmType), params)
	if err != nil {
		return "", fmt.Errorf("failed to create vm: %w", err)
	}

	exit, err := m.wait(ctx, doc, CreateTimeoutKey, logger)
	if m.cache != nil {
		m.cache.Purge()
	}
	return exit, err
}

// wait hands the UPID in doc to the task poller unmodified.
func (m *Manager) wait(ctx context.Context, doc *proxmox.Document, timeoutKey string, logger zerolog.Logger) (task.ExitStatus, error) {
	upid, err := doc.String()
	if err != nil {
		return "", fmt.Errorf("failed to read task id: %w", err)
	}

	logger.Debug().Str("upid", upid).Msg("Waiting for task")
	exit, err := m.tasks.WaitForCompletion(ctx, upid, timeoutKey)
	if err != nil {
		return "", err
	}

	if exit.Succeeded() {
		logger.Info().Msg("Task finished")
	} else {
		logger.Warn().Str("exitstatus", string(exit)).Msg("Task failed")
	}
	return exit, nil
}

// ProvisionResult describes a provisioned VM.
type ProvisionResult struct {
	Info      Info
	SeedVolID string // empty when no seed ISO was attached
	Started   bool
}

// Provision creates a VM from a definition.
//
// This orchestrates the entire VM creation process:
//  1. Pick the node and allocate an id unless the definition pins one
//  2. Render the cloud-init seed ISO and upload it (qemu only)
//  3. Build the create parameters and create the VM
//  4. Start the VM when the definition asks for it
//
// If the start fails, the new VM and its seed ISO are removed on a best-effort
// basis; cleanup failures are logged, not returned.
func (m *Manager) Provision(ctx context.Context, cfg *config.VMConfig) (ProvisionResult, error) {
	if cfg == nil {
		return ProvisionResult{}, fmt.Errorf("VM configuration cannot be nil")
	}

	node := cfg.Node
	if node == "" {
		node = m.opts.Node
	}
	if node == "" {
		return ProvisionResult{}, fmt.Errorf("no node given for vm %s and no default node configured", cfg.Name)
	}

	id := cfg.VMID
	if id == 0 {
		free, err := m.GetFreeVMID(ctx)
		if err != nil {
			return ProvisionResult{}, err
		}
		id = free
	}

	// Work on a copy so the caller's definition keeps its zero vmid.
	def := *cfg
	def.VMID = id

	logger := m.logger.With().Str("name", def.Name).Int("vmid", id).Str("node", node).Logger()
	logger.Info().Str("type", def.Type).Msg("Provisioning VM")

	result := ProvisionResult{Info: Info{ID: id, Type: def.Type, Node: node, Name: def.Name}}

	var seed *seedUpload
	var params url.Values
	if def.IsLXC() {
		params = LXCParams(&def, id)
	} else {
		if def.CloudInit != nil {
			var err error
			seed, err = m.uploadSeed(ctx, &def, node)
			if err != nil {
				return ProvisionResult{}, err
			}
			result.SeedVolID = seed.volID
		}
		params = QemuParams(&def, id, result.SeedVolID)
	}

	exit, err := m.CreateVM(ctx, node, def.Type, params)
	if err == nil && !exit.Succeeded() {
		err = fmt.Errorf("%w: create vm %d: %s", ErrTaskFailed, id, exit)
	}
	if err != nil {
		m.cleanupSeed(ctx, seed, logger)
		return ProvisionResult{}, err
	}

	if !def.Start {
		logger.Info().Msg("VM created")
		return result, nil
	}

	exit, err = m.StartVM(ctx, id)
	if err == nil && !exit.Succeeded() {
		err = fmt.Errorf("%w: start vm %d: %s", ErrTaskFailed, id, exit)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("Start failed, removing VM")
		if exit, derr := m.DeleteVM(ctx, id); derr != nil {
			logger.Warn().Err(derr).Msg("Failed to delete VM after failed start")
		} else if !exit.Succeeded() {
			logger.Warn().Str("exitstatus", string(exit)).Msg("Failed to delete VM after failed start")
		}
		m.cleanupSeed(ctx, seed, logger)
		return ProvisionResult{}, err
	}

	result.Started = true
	logger.Info().Msg("VM created and started")
	return result, nil
}

type seedUpload struct {
	node     string
	storage  string
	volID    string
	uploaded bool // false when an existing file was reused
}

func (m *Manager) uploadSeed(ctx context.Context, cfg *config.VMConfig, node string) (*seedUpload, error) {
	seed, err := cloudinit.NewSeed(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to render cloud-init seed: %w", err)
	}
	data, err := seed.ISO()
	if err != nil {
		return nil, fmt.Errorf("failed to build cloud-init ISO: %w", err)
	}

	store := cfg.CloudInit.Storage
	if store == "" {
		store = m.opts.ISOStorage
	}
	name := naming.CloudInitISOName(cfg.VMID, seed.Fingerprint())

	res, err := m.seeds.UploadData(ctx, name, data, storage.ContentISO, node, store)
	if err != nil {
		return nil, fmt.Errorf("failed to upload cloud-init seed: %w", err)
	}
	if !res.Skipped && !res.ExitStatus.Succeeded() {
		return nil, fmt.Errorf("%w: upload %s: %s", ErrTaskFailed, name, res.ExitStatus)
	}

	return &seedUpload{node: node, storage: store, volID: res.VolID, uploaded: !res.Skipped}, nil
}

func (m *Manager) cleanupSeed(ctx context.Context, seed *seedUpload, logger zerolog.Logger) {
	if seed == nil || !seed.uploaded {
		return
	}
	exit, err := m.seeds.DeleteFile(ctx, seed.node, seed.storage, seed.volID)
	if err != nil {
		logger.Warn().Err(err).Str("volid", seed.volID).Msg("Failed to delete cloud-init seed")
		return
	}
	if !exit.Succeeded() {
		logger.Warn().Str("volid", seed.volID).Str("exitstatus", string(exit)).Msg("Failed to delete cloud-init seed")
	}
}
