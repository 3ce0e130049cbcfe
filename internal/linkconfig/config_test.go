package linkconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "link.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidScript(t *testing.T) {
	path := writeScript(t, `
arch: amd64
address_len: 4
output: a.out
objects:
  - main.o
  - sum.o
`)
	cfg, descriptor, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output != "a.out" || len(cfg.Objects) != 2 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if descriptor.GoArch != "amd64" {
		t.Fatalf("descriptor = %v", descriptor)
	}
}

func TestLoadUnknownArch(t *testing.T) {
	path := writeScript(t, `
arch: mips
address_len: 4
output: a.out
objects: [main.o]
`)
	_, _, err := Load(path)
	if err == nil {
		t.Fatal("want error for unknown arch")
	}
}

func TestLoadOversizedAddressLen(t *testing.T) { // S8
	path := writeScript(t, `
arch: 386
address_len: 8
output: a.out
objects: [main.o]
`)
	_, _, err := Load(path)
	var invalid *InvalidAddressLenError
	if err == nil {
		t.Fatal("want error for address_len wider than arch pointer")
	}
	if ae, ok := err.(*InvalidAddressLenError); ok {
		invalid = ae
	}
	if invalid == nil {
		t.Fatalf("err = %v, want *InvalidAddressLenError", err)
	}
}

func TestLoadNoObjects(t *testing.T) {
	path := writeScript(t, `
arch: amd64
address_len: 4
output: a.out
objects: []
`)
	if _, _, err := Load(path); err == nil {
		t.Fatal("want error for empty objects list")
	}
}

func TestLoadInvalidAddressLenValue(t *testing.T) {
	path := writeScript(t, `
arch: amd64
address_len: 3
output: a.out
objects: [main.o]
`)
	_, _, err := Load(path)
	if err == nil {
		t.Fatal("want error for address_len not in {1,2,4,8}")
	}
}
