// Package linkconfig loads the YAML link script that drives a link: the
// target architecture, the output address width, the objects to merge,
// and where to write the result.
package linkconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zboralski/ldcore/internal/arch"
	"github.com/zboralski/ldcore/internal/linker"
)

// Config is the parsed form of a link script.
type Config struct {
	Arch       string   `yaml:"arch"`
	AddressLen int      `yaml:"address_len"`
	Output     string   `yaml:"output"`
	Objects    []string `yaml:"objects"`
}

// InvalidAddressLenError is returned when a link script's address_len is
// not one of the widths the driver accepts, or is wider than the selected
// architecture's pointer width.
type InvalidAddressLenError struct {
	AddressLen int
	Arch       string
	Max        int
}

func (e *InvalidAddressLenError) Error() string {
	return fmt.Sprintf("link script: address_len %d invalid for %s (max %d)", e.AddressLen, e.Arch, e.Max)
}

// UnknownArchError is returned when a link script names an architecture
// this linker doesn't recognize.
type UnknownArchError struct {
	Arch string
}

func (e *UnknownArchError) Error() string {
	return fmt.Sprintf("link script: unknown arch %q", e.Arch)
}

// Load reads and validates the link script at path.
func Load(path string) (*Config, *arch.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("linkconfig: reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("linkconfig: parsing %s: %w", path, err)
	}

	descriptor, ok := arch.ByGoArch(cfg.Arch)
	if !ok {
		return nil, nil, &UnknownArchError{Arch: cfg.Arch}
	}

	if !linker.AddressLen(cfg.AddressLen).Valid() || cfg.AddressLen > descriptor.MaxAddressLen() {
		return nil, nil, &InvalidAddressLenError{AddressLen: cfg.AddressLen, Arch: cfg.Arch, Max: descriptor.MaxAddressLen()}
	}

	if len(cfg.Objects) == 0 {
		return nil, nil, fmt.Errorf("linkconfig: %s: no objects listed", path)
	}

	return &cfg, descriptor, nil
}
