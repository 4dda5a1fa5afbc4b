// Package storage manages files in Proxmox VE storages.
//
// It covers the two storage operations VM provisioning needs:
//   - Listing the volumes of a storage (GET /nodes/{node}/storage/{storage}/content)
//   - Uploading ISO images, container templates and disk images
//     (POST /nodes/{node}/storage/{storage}/upload)
//
// Idempotent Uploads:
//
// Before uploading, the manager lists the target storage. When a volume
// whose file name contains the upload's base name already exists, the
// upload is skipped. The check is by name only; content is never compared.
// Callers that need a fresh upload for changed content encode the content
// in the name (see naming.CloudInitISOName).
//
// Uploads are asynchronous on the server side: the upload request returns
// an "imgcopy" task, which is waited for with the task poller under the
// "upload_timeout" message key.
//
// Format Validation:
//
// Files are identified by content, not by extension:
//   - ISO: ISO9660 volume descriptors (via github.com/kdomanski/iso9660)
//   - QCOW2: magic bytes "QFI\xfb" at offset 0
//   - Archive: gzip, zstd or xz magic (container templates)
//   - RAW: MBR signature 0x55aa at offset 510
//
// When no content type is given the detected format picks one; a declared
// "iso" content type must match an ISO9660 image.
//
// Example usage:
//
//	mgr := storage.NewManager(client, poller, logger)
//
//	res, err := mgr.UploadFile(ctx, "/srv/images/fedora-42.iso", storage.ContentISO, "pve1", "local")
//	if err != nil {
//	    return err
//	}
//	if res.Skipped {
//	    // already present as res.VolID
//	}
package storage
