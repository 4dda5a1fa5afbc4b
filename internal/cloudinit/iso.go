package cloudinit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/kdomanski/iso9660"

	"github.com/jbweber/pvforge/internal/config"
)

// VolumeLabel is the ISO volume identifier the NoCloud datasource looks for.
const VolumeLabel = "CIDATA"

// Seed holds the rendered NoCloud documents of one VM.
type Seed struct {
	UserData      string
	MetaData      string
	NetworkConfig string
}

// NewSeed renders the three NoCloud documents for cfg.
func NewSeed(cfg *config.VMConfig) (*Seed, error) {
	if cfg == nil {
		return nil, fmt.Errorf("VM configuration cannot be nil")
	}

	userData, err := GenerateUserData(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate user-data: %w", err)
	}
	metaData, err := GenerateMetaData(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate meta-data: %w", err)
	}
	networkConfig, err := GenerateNetworkConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate network-config: %w", err)
	}

	return &Seed{UserData: userData, MetaData: metaData, NetworkConfig: networkConfig}, nil
}

// Fingerprint returns 8 hex characters identifying the seed content.
// Equal documents give equal fingerprints.
func (s *Seed) Fingerprint() string {
	h := sha256.New()
	for _, doc := range []string{s.UserData, s.MetaData, s.NetworkConfig} {
		h.Write([]byte(doc))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:8]
}

// ISO packs the seed into an ISO9660 image labelled CIDATA with the files
// user-data, meta-data and network-config in its root directory.
func (s *Seed) ISO() ([]byte, error) {
	writer, err := iso9660.NewWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to create ISO writer: %w", err)
	}
	defer func() {
		// The image is already in memory at this point.
		_ = writer.Cleanup()
	}()

	files := []struct {
		name    string
		content string
	}{
		{"user-data", s.UserData},
		{"meta-data", s.MetaData},
		{"network-config", s.NetworkConfig},
	}
	for _, f := range files {
		if err := writer.AddFile(strings.NewReader(f.content), f.name); err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", f.name, err)
		}
	}

	var buf bytes.Buffer
	if err := writer.WriteTo(&buf, VolumeLabel); err != nil {
		return nil, fmt.Errorf("failed to write ISO image: %w", err)
	}

	return buf.Bytes(), nil
}

// GenerateISO renders the seed for cfg and packs it into an ISO image.
func GenerateISO(cfg *config.VMConfig) ([]byte, error) {
	seed, err := NewSeed(cfg)
	if err != nil {
		return nil, err
	}
	return seed.ISO()
}
