package storage

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/kdomanski/iso9660"
)

// Magic bytes and signatures for image format detection
var (
	// qcow2Magic is "QFI" followed by 0xfb at offset 0.
	// Reference: https://www.qemu.org/docs/master/interop/qcow2.html
	qcow2Magic = []byte{0x51, 0x46, 0x49, 0xfb}

	// mbrSignature is the boot sector signature at offset 510. GPT disks
	// carry it too, in their protective MBR.
	mbrSignature = []byte{0x55, 0xaa}

	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// DetectFormat detects the format of an image by its content.
//
// Detection order matters: hybrid ISO images also carry an MBR signature,
// so ISO9660 is checked before raw.
//
//   - ISO: a valid ISO9660 volume descriptor set
//   - QCOW2: magic "QFI\xfb" at offset 0
//   - Archive: gzip, zstd or xz magic at offset 0 (container templates)
//   - RAW: MBR signature 0x55 0xaa at offset 510
func DetectFormat(r io.ReaderAt) (ImageFormat, error) {
	head := make([]byte, 512)
	n, err := r.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read image header: %w", err)
	}
	head = head[:n]
	if n < len(qcow2Magic) {
		return "", fmt.Errorf("file too small to be a valid image (%d bytes)", n)
	}

	if isISO9660(r) {
		return FormatISO, nil
	}
	if bytes.HasPrefix(head, qcow2Magic) {
		return FormatQCOW2, nil
	}
	if bytes.HasPrefix(head, gzipMagic) || bytes.HasPrefix(head, zstdMagic) || bytes.HasPrefix(head, xzMagic) {
		return FormatArchive, nil
	}
	if n == 512 && bytes.Equal(head[510:512], mbrSignature) {
		return FormatRaw, nil
	}

	return "", fmt.Errorf("unsupported image: not iso9660, qcow2 or a compressed archive, and missing boot sector signature")
}

func isISO9660(r io.ReaderAt) bool {
	img, err := iso9660.OpenImage(r)
	if err != nil {
		return false
	}
	_, err = img.RootDir()
	return err == nil
}

// ContentFor returns the storage content type an image format is uploaded as.
func ContentFor(format ImageFormat) (Content, error) {
	switch format {
	case FormatISO:
		return ContentISO, nil
	case FormatArchive:
		return ContentVZTmpl, nil
	case FormatQCOW2, FormatRaw:
		return ContentImport, nil
	default:
		return "", fmt.Errorf("no storage content type for format %q", format)
	}
}

// checkFileName rejects names the content type cannot hold. Proxmox only
// lists iso content ending in .iso or .img, and templates ending in a
// tar archive extension.
func checkFileName(name string, content Content) error {
	lower := strings.ToLower(name)
	switch content {
	case ContentISO:
		if !strings.HasSuffix(lower, ".iso") && !strings.HasSuffix(lower, ".img") {
			return fmt.Errorf("iso content requires a .iso or .img file name, got %q", name)
		}
	case ContentVZTmpl:
		for _, ext := range []string{".tar.gz", ".tar.zst", ".tar.xz", ".tgz"} {
			if strings.HasSuffix(lower, ext) {
				return nil
			}
		}
		return fmt.Errorf("vztmpl content requires a tar archive file name, got %q", name)
	case ContentImport:
		for _, ext := range []string{".qcow2", ".raw", ".img", ".vmdk"} {
			if strings.HasSuffix(lower, ext) {
				return nil
			}
		}
		return fmt.Errorf("import content requires a disk image file name, got %q", name)
	}
	return nil
}
