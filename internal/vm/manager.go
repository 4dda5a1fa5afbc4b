package vm

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

// Timeout message keys of the lifecycle tasks.
const (
	CreateTimeoutKey   = "create_vm_timeout"
	StartTimeoutKey    = "start_vm_timeout"
	StopTimeoutKey     = "stop_vm_timeout"
	ShutdownTimeoutKey = "shutdown_vm_timeout"
	DestroyTimeoutKey  = "destroy_vm_timeout"
)

// Default VM id range handed out by GetFreeVMID.
const (
	DefaultMinID = 900
	DefaultMaxID = 999
)

// infoCacheSize bounds the number of cached VM lookups.
const infoCacheSize = 1024

var (
	// ErrVMNotFound is returned when no VM with the requested id exists in the cluster.
	ErrVMNotFound = errors.New("vm not found")

	// ErrTaskFailed is returned by Provision when a task finished with a
	// non-OK exit status.
	ErrTaskFailed = errors.New("task failed")
)

// State is the coarse power state of a VM.
type State string

const (
	StateRunning    State = "running"
	StateStopped    State = "stopped"
	StateNotCreated State = "not_created"
	StateUnknown    State = "unknown"
)

// Info locates a VM in the cluster.
type Info struct {
	ID   int
	Type string // "qemu" or "lxc"
	Node string
	Name string
}

// IDRange is the inclusive range of VM ids GetFreeVMID picks from.
type IDRange struct {
	Min int
	Max int
}

// Options configures a Manager.
type Options struct {
	IDRange IDRange

	// InfoCacheTTL keeps VM lookups for this long. Zero disables caching,
	// so every operation re-scans the cluster resources.
	InfoCacheTTL time.Duration

	// Node and ISOStorage are the defaults Provision uses when a VM
	// definition names neither.
	Node       string
	ISOStorage string
}

// DefaultOptions returns options with the default id range and no cache.
func DefaultOptions() Options {
	return Options{
		IDRange:    IDRange{Min: DefaultMinID, Max: DefaultMaxID},
		ISOStorage: "local",
	}
}

// Manager runs VM lifecycle operations against a Proxmox cluster.
type Manager struct {
	client apiClient
	tasks  taskWaiter
	seeds  seedStore
	opts   Options
	cache  *expirable.LRU[int, Info]
	logger zerolog.Logger
}

// NewManager creates a VM manager.
func NewManager(client apiClient, tasks taskWaiter, seeds seedStore, opts Options, logger zerolog.Logger) (*Manager, error) {
	if opts.IDRange.Min <= 0 || opts.IDRange.Min > opts.IDRange.Max {
		return nil, fmt.Errorf("invalid vm id range %d-%d", opts.IDRange.Min, opts.IDRange.Max)
	}
	if opts.InfoCacheTTL < 0 {
		return nil, fmt.Errorf("info cache ttl must not be negative, got %v", opts.InfoCacheTTL)
	}

	m := &Manager{
		client: client,
		tasks:  tasks,
		seeds:  seeds,
		opts:   opts,
		logger: logger.With().Str("component", "vm").Logger(),
	}
	if opts.InfoCacheTTL > 0 {
		m.cache = expirable.NewLRU[int, Info](infoCacheSize, nil, opts.InfoCacheTTL)
	}
	return m, nil
}

func (m *Manager) cachedInfo(id int) (Info, bool) {
	if m.cache == nil {
		return Info{}, false
	}
	return m.cache.Get(id)
}

func (m *Manager) storeInfo(info Info) {
	if m.cache != nil {
		m.cache.Add(info.ID, info)
	}
}

func (m *Manager) forgetInfo(id int) {
	if m.cache != nil {
		m.cache.Remove(id)
	}
}
