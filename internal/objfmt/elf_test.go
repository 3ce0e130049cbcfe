package objfmt

import (
	"debug/elf"
	"errors"
	"testing"

	"github.com/zboralski/ldcore/internal/reloc"
	"github.com/zboralski/ldcore/internal/section"
	"github.com/zboralski/ldcore/internal/symtab"
)

func TestRelocKindX86_64(t *testing.T) {
	cases := []struct {
		in       elf.R_X86_64
		wantKind reloc.Kind
		wantSize int
		wantOK   bool
	}{
		{elf.R_X86_64_64, reloc.Absolute, 8, true},
		{elf.R_X86_64_32, reloc.Absolute, 4, true},
		{elf.R_X86_64_PC32, reloc.PCRelative, 4, true},
		{elf.R_X86_64_GOTPCREL, 0, 0, false},
	}
	for _, c := range cases {
		kind, size, ok := relocKindX86_64(c.in)
		if ok != c.wantOK || (ok && (kind != c.wantKind || size != c.wantSize)) {
			t.Errorf("relocKindX86_64(%v) = %v, %d, %v; want %v, %d, %v", c.in, kind, size, ok, c.wantKind, c.wantSize, c.wantOK)
		}
	}
}

func TestRelocKind386(t *testing.T) {
	kind, size, ok := relocKind386(elf.R_386_PC32)
	if !ok || kind != reloc.PCRelative || size != 4 {
		t.Errorf("relocKind386(PC32) = %v, %d, %v", kind, size, ok)
	}
	if _, _, ok := relocKind386(elf.R_386_TLS_GD); ok {
		t.Errorf("relocKind386(TLS_GD) ok = true, want false")
	}
}

func TestRelocKindARM64(t *testing.T) {
	kind, size, ok := relocKindARM64(elf.R_AARCH64_CALL26)
	if !ok || kind != reloc.PCRelative || size != 4 {
		t.Errorf("relocKindARM64(CALL26) = %v, %d, %v", kind, size, ok)
	}
	kind, size, ok = relocKindARM64(elf.R_AARCH64_ABS64)
	if !ok || kind != reloc.Absolute || size != 8 {
		t.Errorf("relocKindARM64(ABS64) = %v, %d, %v", kind, size, ok)
	}
	if _, _, ok := relocKindARM64(elf.R_AARCH64_TLSLE_ADD_TPREL_HI12); ok {
		t.Errorf("relocKindARM64(TLSLE_ADD_TPREL_HI12) ok = true, want false")
	}
}

func TestDescriptorFor(t *testing.T) {
	d, err := descriptorFor(elf.EM_X86_64)
	if err != nil || d.GoArch != "amd64" {
		t.Fatalf("descriptorFor(EM_X86_64) = %v, %v", d, err)
	}
	if _, err := descriptorFor(elf.EM_SPARC); err == nil {
		t.Fatalf("descriptorFor(EM_SPARC) err = nil, want error")
	}
}

func TestSlotDataNoBits(t *testing.T) {
	s := &elf.Section{SectionHeader: elf.SectionHeader{Type: elf.SHT_NOBITS, Size: 16}}
	data, err := slotData(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 16 {
		t.Fatalf("len(data) = %d, want 16", len(data))
	}
	for _, b := range data {
		if b != 0 {
			t.Fatalf("SHT_NOBITS slot not zero-filled")
		}
	}
}

func TestRelocEntrySize(t *testing.T) {
	cases := []struct {
		is64, rela bool
		want       int
	}{
		{true, true, 24},
		{true, false, 16},
		{false, true, 12},
		{false, false, 8},
	}
	for _, c := range cases {
		if got := relocEntrySize(c.is64, c.rela); got != c.want {
			t.Errorf("relocEntrySize(%v, %v) = %d, want %d", c.is64, c.rela, got, c.want)
		}
	}
}

func TestDecodeOneRelocAmd64Rela(t *testing.T) {
	f := &elf.File{FileHeader: elf.FileHeader{Class: elf.ELFCLASS64, Machine: elf.EM_X86_64}}
	target := section.Index(0)
	symIndex := map[int]symtab.Index{3: symtab.Index(1)}

	// Elf64_Rela: r_offset=0x10, r_info packs sym=3/type=R_X86_64_PC32(2),
	// r_addend=-4, all little-endian.
	entry := make([]byte, 24)
	entry[0] = 0x10 // r_offset low byte
	// r_info = (sym << 32) | type
	info := uint64(3)<<32 | uint64(elf.R_X86_64_PC32)
	for i := 0; i < 8; i++ {
		entry[8+i] = byte(info >> (8 * i))
	}
	signedAddend := int64(-4)
	addend := uint64(signedAddend)
	for i := 0; i < 8; i++ {
		entry[16+i] = byte(addend >> (8 * i))
	}

	r, err := decodeOneReloc(f, entry, true, true, target, symIndex)
	if err != nil {
		t.Fatal(err)
	}
	if r.Offset != 0x10 || r.Kind != reloc.PCRelative || r.Addend != -4 || r.Symbol != symtab.Index(1) {
		t.Fatalf("decoded = %+v", r)
	}
}

func TestDecodeOneRelocARM64Rela(t *testing.T) {
	f := &elf.File{FileHeader: elf.FileHeader{Class: elf.ELFCLASS64, Machine: elf.EM_AARCH64}}
	target := section.Index(0)
	symIndex := map[int]symtab.Index{5: symtab.Index(2)}

	// Elf64_Rela: r_offset=0x20, r_info packs sym=5/type=R_AARCH64_CALL26,
	// r_addend=0.
	entry := make([]byte, 24)
	entry[0] = 0x20
	info := uint64(5)<<32 | uint64(elf.R_AARCH64_CALL26)
	for i := 0; i < 8; i++ {
		entry[8+i] = byte(info >> (8 * i))
	}

	r, err := decodeOneReloc(f, entry, true, true, target, symIndex)
	if err != nil {
		t.Fatal(err)
	}
	if r.Offset != 0x20 || r.Kind != reloc.PCRelative || r.Symbol != symtab.Index(2) {
		t.Fatalf("decoded = %+v", r)
	}
}

func TestDecodeOneRelocUnsupportedType(t *testing.T) {
	f := &elf.File{FileHeader: elf.FileHeader{Class: elf.ELFCLASS64, Machine: elf.EM_X86_64}}
	entry := make([]byte, 24)
	info := uint64(1)<<32 | uint64(elf.R_X86_64_GOTPCREL)
	for i := 0; i < 8; i++ {
		entry[8+i] = byte(info >> (8 * i))
	}

	_, err := decodeOneReloc(f, entry, true, true, section.Index(0), map[int]symtab.Index{1: 0})
	var unsupported *UnsupportedRelocationError
	if !errors.As(err, &unsupported) {
		t.Fatalf("err = %v, want *UnsupportedRelocationError", err)
	}
}
