package storage

import (
	"strings"

	"github.com/jbweber/pvforge/internal/task"
)

// Content is a Proxmox storage content type.
type Content string

const (
	ContentISO    Content = "iso"    // installation media and cloud-init seeds
	ContentVZTmpl Content = "vztmpl" // container templates
	ContentImport Content = "import" // disk images for import (qcow2, raw)
)

// Valid reports whether the content type can be uploaded.
func (c Content) Valid() bool {
	switch c {
	case ContentISO, ContentVZTmpl, ContentImport:
		return true
	}
	return false
}

// ImageFormat is the on-disk format of an uploaded file.
type ImageFormat string

const (
	FormatISO     ImageFormat = "iso"
	FormatQCOW2   ImageFormat = "qcow2"
	FormatRaw     ImageFormat = "raw"
	FormatArchive ImageFormat = "archive" // compressed tarball
)

// Entry is one volume in a storage content listing.
type Entry struct {
	VolID   string
	Name    string // file name: the part of VolID after the last '/' (or ':')
	Content string
	Format  string
	Size    int64
}

// UploadResult describes the outcome of UploadFile.
type UploadResult struct {
	// File is the file name in the target storage.
	File string
	// VolID is the volume id of File, e.g. local:iso/seed.iso.
	VolID string
	// Skipped is true when a file with the same name already existed and
	// nothing was uploaded.
	Skipped bool
	// ExitStatus is the exit status of the upload task. Empty when skipped.
	ExitStatus task.ExitStatus
}

// fileName extracts the file name from a volume id.
//
//	local:iso/fedora.iso       → fedora.iso
//	local-lvm:vm-900-disk-0    → vm-900-disk-0
func fileName(volID string) string {
	if i := strings.LastIndex(volID, "/"); i >= 0 {
		return volID[i+1:]
	}
	if i := strings.Index(volID, ":"); i >= 0 {
		return volID[i+1:]
	}
	return volID
}

// volumeID builds a volume id for a file of the given content type.
func volumeID(storage string, content Content, file string) string {
	return storage + ":" + string(content) + "/" + file
}
