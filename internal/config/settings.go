package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/jbweber/pvforge/internal/task"
)

// EnvPrefix prefixes environment overrides: PVFORGE_ENDPOINT, PVFORGE_PASSWORD, ...
const EnvPrefix = "PVFORGE"

// Settings is the pvforge client configuration.
type Settings struct {
	// Endpoint is the API root, e.g. https://pve.example.com:8006/api2/json
	Endpoint           string        `mapstructure:"endpoint"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`

	// VM id range searched by GetFreeVMID, inclusive.
	VMIDMin int `mapstructure:"vmid_min"`
	VMIDMax int `mapstructure:"vmid_max"`

	TaskTimeout    time.Duration `mapstructure:"task_timeout"`
	ImgCopyTimeout time.Duration `mapstructure:"imgcopy_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`

	// VMInfoCacheTTL caches VM lookups. Zero disables the cache.
	VMInfoCacheTTL time.Duration `mapstructure:"vm_info_cache_ttl"`

	// Node is the default node for new VMs and uploads.
	Node string `mapstructure:"node"`
	// ISOStorage receives uploaded ISO images and cloud-init seeds.
	ISOStorage string `mapstructure:"iso_storage"`
}

// ConfigDir returns the pvforge configuration directory path.
func ConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pvforge"), nil
}

// LoadSettings reads settings from path, or from ~/.pvforge/config.yaml when
// path is empty, then applies PVFORGE_* environment overrides.
//
// A missing default settings file is not an error. A missing explicit file is.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("failed to expand settings path: %w", err)
		}
		v.SetConfigFile(expanded)
	} else {
		configDir, err := ConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine config directory: %w", err)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", "")
	v.SetDefault("username", "root@pam")
	v.SetDefault("password", "")
	v.SetDefault("insecure_skip_verify", false)
	v.SetDefault("request_timeout", "30s")

	v.SetDefault("vmid_min", 900)
	v.SetDefault("vmid_max", 999)

	v.SetDefault("task_timeout", task.DefaultTaskTimeout.String())
	v.SetDefault("imgcopy_timeout", task.DefaultImgCopyTimeout.String())
	v.SetDefault("poll_interval", task.DefaultPollInterval.String())

	v.SetDefault("vm_info_cache_ttl", "0s")

	v.SetDefault("node", "")
	v.SetDefault("iso_storage", "local")
}

// Validate checks settings for values no component can work with.
func (s *Settings) Validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if s.Username == "" {
		return fmt.Errorf("username is required")
	}
	if s.VMIDMin < MinVMID || s.VMIDMax > MaxVMID {
		return fmt.Errorf("vmid range must be within %d-%d, got %d-%d", MinVMID, MaxVMID, s.VMIDMin, s.VMIDMax)
	}
	if s.VMIDMin > s.VMIDMax {
		return fmt.Errorf("vmid_min (%d) must not exceed vmid_max (%d)", s.VMIDMin, s.VMIDMax)
	}
	if s.VMInfoCacheTTL < 0 {
		return fmt.Errorf("vm_info_cache_ttl must be >= 0, got %v", s.VMInfoCacheTTL)
	}
	if err := s.TaskPolicy().Validate(); err != nil {
		return err
	}
	return nil
}

// TaskPolicy returns the task polling budget.
func (s *Settings) TaskPolicy() task.Policy {
	return task.Policy{
		TaskTimeout:    s.TaskTimeout,
		ImgCopyTimeout: s.ImgCopyTimeout,
		PollInterval:   s.PollInterval,
	}
}
