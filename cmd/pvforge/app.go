package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/jbweber/pvforge/internal/config"
	"github.com/jbweber/pvforge/internal/metrics"
	"github.com/jbweber/pvforge/internal/output"
	"github.com/jbweber/pvforge/internal/proxmox"
	"github.com/jbweber/pvforge/internal/storage"
	"github.com/jbweber/pvforge/internal/task"
	"github.com/jbweber/pvforge/internal/vm"
)

// app holds the logged-in client and the managers built on it.
type app struct {
	settings *config.Settings
	client   *proxmox.Client
	storage  *storage.Manager
	vms      *vm.Manager
	logger   zerolog.Logger
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// connect loads the settings, logs in and wires the managers.
func connect(ctx context.Context) (*app, error) {
	logger := newLogger()

	settings, err := config.LoadSettings(configPath)
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	client, err := proxmox.NewClient(settings.Endpoint, proxmox.Options{
		InsecureSkipVerify: settings.InsecureSkipVerify,
		Timeout:            settings.RequestTimeout,
		Logger:             logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("endpoint", client.Endpoint()).Str("user", settings.Username).Msg("Logging in")
	if _, err := client.Login(ctx, settings.Username, settings.Password); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	poller, err := task.NewPoller(client, settings.TaskPolicy(), logger)
	if err != nil {
		return nil, err
	}
	storageMgr := storage.NewManager(client, poller, logger)

	vmMgr, err := vm.NewManager(client, poller, storageMgr, vm.Options{
		IDRange:      vm.IDRange{Min: settings.VMIDMin, Max: settings.VMIDMax},
		InfoCacheTTL: settings.VMInfoCacheTTL,
		Node:         settings.Node,
		ISOStorage:   settings.ISOStorage,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		settings: settings,
		client:   client,
		storage:  storageMgr,
		vms:      vmMgr,
		logger:   logger,
	}, nil
}

func newFormatter() (output.Formatter, error) {
	if err := output.ValidateFormat(outputFormat); err != nil {
		return nil, err
	}
	return output.NewFormatter(output.Options{
		Format:    output.Format(outputFormat),
		NoHeaders: noHeaders,
	})
}

// checkExit turns a failed task into an error for the command line.
func checkExit(what string, exit task.ExitStatus, err error) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if !exit.Succeeded() {
		return fmt.Errorf("failed to %s: %w: %s", what, vm.ErrTaskFailed, exit)
	}
	return nil
}

// writeMetrics writes the collected metrics when a metrics file is set.
func writeMetrics(path string) error {
	if path == "" {
		return nil
	}
	if err := metrics.WriteTextfile(path); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
