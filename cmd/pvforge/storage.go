package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jbweber/pvforge/internal/storage"
)

// Storage flags
var (
	storageNode    string
	storageName    string
	storageContent string
)

// Storage management commands
var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Manage files in cluster storage",
	Long: `List, upload and delete ISO images, container templates and disk
images in a Proxmox storage.

The node and storage default to the node and iso_storage settings.`,
}

func init() {
	storageCmd.PersistentFlags().StringVar(&storageNode, "node", "", "node the storage is attached to (default: node setting)")
	storageCmd.PersistentFlags().StringVar(&storageName, "storage", "", "storage name (default: iso_storage setting)")
	storageUploadCmd.Flags().StringVar(&storageContent, "content", "", "content type: iso, vztmpl, import (default: detected)")

	storageCmd.AddCommand(storageListCmd)
	storageCmd.AddCommand(storageUploadCmd)
	storageCmd.AddCommand(storageDeleteCmd)
}

// target returns the node and storage from the flags or the settings.
func (a *app) target() (string, string, error) {
	node, store := storageNode, storageName
	if node == "" {
		node = a.settings.Node
	}
	if store == "" {
		store = a.settings.ISOStorage
	}
	if node == "" {
		return "", "", fmt.Errorf("no node given: use --node or set node in the settings file")
	}
	return node, store, nil
}

var storageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List files in a storage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		node, store, err := a.target()
		if err != nil {
			return err
		}

		files, err := a.storage.ListFiles(cmd.Context(), node, store)
		if err != nil {
			return err
		}

		if len(files) == 0 {
			fmt.Printf("No files found in %s on %s\n", store, node)
			return nil
		}

		fmt.Printf("%-50s %-8s %-8s %10s\n", "VOLID", "CONTENT", "FORMAT", "SIZE")
		fmt.Println(strings.Repeat("-", 80))
		for _, f := range files {
			fmt.Printf("%-50s %-8s %-8s %8.1fGB\n", f.VolID, f.Content, f.Format, float64(f.Size)/(1<<30))
		}
		fmt.Printf("\nTotal: %d file(s)\n", len(files))
		return nil
	},
}

var storageUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a file to a storage",
	Long: `Upload an ISO image, container template or disk image to a storage
and wait for the upload task.

The file type is detected from its content. The upload is skipped when the
storage already holds a file whose name contains the file's name.

Example:
  pvforge storage upload --node pve1 --storage local ./fedora-42.iso`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		node, store, err := a.target()
		if err != nil {
			return err
		}

		res, err := a.storage.UploadFile(cmd.Context(), args[0], storage.Content(storageContent), node, store)
		if err != nil {
			return err
		}
		if res.Skipped {
			fmt.Printf("✓ %s already present as %s, upload skipped\n", res.File, res.VolID)
			return nil
		}
		if err := checkExit("upload "+args[0], res.ExitStatus, nil); err != nil {
			return err
		}

		fmt.Printf("✓ Uploaded %s as %s\n", res.File, res.VolID)
		return nil
	},
}

var storageDeleteCmd = &cobra.Command{
	Use:   "delete <volid>",
	Short: "Delete a file from a storage",
	Long: `Delete a volume from a storage.

Example:
  pvforge storage delete --node pve1 local:iso/fedora-42.iso`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		node, store, err := a.target()
		if err != nil {
			return err
		}
		// A volume id names its storage.
		if prefix, _, ok := strings.Cut(args[0], ":"); ok && storageName == "" {
			store = prefix
		}

		exit, err := a.storage.DeleteFile(cmd.Context(), node, store, args[0])
		if err := checkExit("delete "+args[0], exit, err); err != nil {
			return err
		}

		fmt.Printf("✓ Deleted %s\n", args[0])
		return nil
	},
}
