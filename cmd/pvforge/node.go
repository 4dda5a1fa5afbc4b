package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Test the API connection and credentials",
	Long: `Log in to the Proxmox VE API with the configured credentials and
show the cluster nodes the account can see.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("✓ Logged in to %s as %s\n", a.client.Endpoint(), a.settings.Username)

		nodes, err := a.vms.ListNodes(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list nodes: %w", err)
		}
		fmt.Printf("✓ %d node(s) visible\n", len(nodes))
		return nil
	},
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List cluster nodes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		a, err := connect(cmd.Context())
		if err != nil {
			return err
		}

		nodes, err := a.vms.ListNodes(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list nodes: %w", err)
		}

		result, err := formatter.FormatNodeList(nodes)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}
