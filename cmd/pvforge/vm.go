package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jbweber/pvforge/internal/config"
	"github.com/jbweber/pvforge/internal/task"
	"github.com/jbweber/pvforge/internal/vm"
)

func parseVMID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < config.MinVMID || id > config.MaxVMID {
		return 0, fmt.Errorf("invalid vm id %q (must be %d-%d)", arg, config.MinVMID, config.MaxVMID)
	}
	return id, nil
}

var createCmd = &cobra.Command{
	Use:   "create <vm.yaml>",
	Short: "Create a VM from a definition file",
	Long: `Create a new VM or container from a YAML definition file.

The definition sets the guest's resources (cores, memory, disk), network
interfaces and cloud-init settings. For qemu guests with a cloud_init
section a NoCloud seed ISO is built and uploaded to the ISO storage.

When the definition has no vmid, the lowest free id of the configured
range is used. With start: true the guest is started after creation; if
the start fails the new guest is destroyed again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromFile(args[0])
		if err != nil {
			return err
		}

		a, err := connect(cmd.Context())
		if err != nil {
			return err
		}

		res, err := a.vms.Provision(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to create VM: %w", err)
		}

		fmt.Printf("✓ VM %s created as %d on %s\n", res.Info.Name, res.Info.ID, res.Info.Node)
		if res.SeedVolID != "" {
			fmt.Printf("  cloud-init seed: %s\n", res.SeedVolID)
		}
		if res.Started {
			fmt.Println("  started")
		}
		return nil
	},
}

// powerCommand builds a command that runs one lifecycle operation on a VM id.
func powerCommand(use, short, verb string, op func(*vm.Manager, context.Context, int) (task.ExitStatus, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <vmid>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVMID(args[0])
			if err != nil {
				return err
			}

			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}

			exit, err := op(a.vms, cmd.Context(), id)
			if err := checkExit(fmt.Sprintf("%s VM %d", use, id), exit, err); err != nil {
				return err
			}

			fmt.Printf("✓ VM %d %s\n", id, verb)
			return nil
		},
	}
}

var (
	startCmd    = powerCommand("start", "Start a VM", "started", (*vm.Manager).StartVM)
	stopCmd     = powerCommand("stop", "Stop a VM immediately", "stopped", (*vm.Manager).StopVM)
	shutdownCmd = powerCommand("shutdown", "Shut down a VM through its guest OS", "shut down", (*vm.Manager).ShutdownVM)
	destroyCmd  = powerCommand("destroy", "Destroy a stopped VM and its disks", "destroyed", (*vm.Manager).DeleteVM)
)

var stateCmd = &cobra.Command{
	Use:   "state <vmid>",
	Short: "Show the power state of a VM",
	Long: `Show whether a VM is running, stopped or not created.

Ids that no VM in the cluster uses report not_created.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseVMID(args[0])
		if err != nil {
			return err
		}

		a, err := connect(cmd.Context())
		if err != nil {
			return err
		}

		state, err := a.vms.GetVMState(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to get state of VM %d: %w", id, err)
		}

		fmt.Println(state)
		return nil
	},
}

var freeIDCmd = &cobra.Command{
	Use:   "free-id",
	Short: "Print the lowest unused VM id of the configured range",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := connect(cmd.Context())
		if err != nil {
			return err
		}

		id, err := a.vms.GetFreeVMID(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println(id)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List VMs",
	Long: `List all VMs and containers of the cluster.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   One YAML document per VM
  -o json   JSON array`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		a, err := connect(cmd.Context())
		if err != nil {
			return err
		}

		vms, err := a.vms.ListVMs(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list VMs: %w", err)
		}

		result, err := formatter.FormatVMList(vms)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}
