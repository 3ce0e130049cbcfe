// Package objfmt adapts object file formats the linker core doesn't know
// about into linker.Object: a section table, a symbol table, and a
// relocation list expressed purely in terms of the core's abstract
// Absolute/PCRelative forms.
package objfmt

import (
	"context"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/zboralski/ldcore/internal/arch"
	"github.com/zboralski/ldcore/internal/linker"
	"github.com/zboralski/ldcore/internal/reloc"
	"github.com/zboralski/ldcore/internal/section"
	"github.com/zboralski/ldcore/internal/symtab"
)

// relocKindX86_64, relocKind386 and relocKindARM64 classify an ELF
// relocation type into the core's two abstract forms and report the byte
// width it patches. Only the
// subset of x86-64, 386, and ARM64 relocation types that a relocatable
// object produced by a plain compile (no PIC, no TLS) actually uses is
// recognized; anything else is an error rather than a silent guess.
func relocKindX86_64(t elf.R_X86_64) (reloc.Kind, int, bool) {
	switch t {
	case elf.R_X86_64_64:
		return reloc.Absolute, 8, true
	case elf.R_X86_64_32, elf.R_X86_64_32S:
		return reloc.Absolute, 4, true
	case elf.R_X86_64_16:
		return reloc.Absolute, 2, true
	case elf.R_X86_64_8:
		return reloc.Absolute, 1, true
	case elf.R_X86_64_PC32, elf.R_X86_64_PLT32:
		return reloc.PCRelative, 4, true
	case elf.R_X86_64_PC16:
		return reloc.PCRelative, 2, true
	case elf.R_X86_64_PC8:
		return reloc.PCRelative, 1, true
	default:
		return 0, 0, false
	}
}

func relocKind386(t elf.R_386) (reloc.Kind, int, bool) {
	switch t {
	case elf.R_386_32:
		return reloc.Absolute, 4, true
	case elf.R_386_16:
		return reloc.Absolute, 2, true
	case elf.R_386_8:
		return reloc.Absolute, 1, true
	case elf.R_386_PC32:
		return reloc.PCRelative, 4, true
	case elf.R_386_PC16:
		return reloc.PCRelative, 2, true
	case elf.R_386_PC8:
		return reloc.PCRelative, 1, true
	default:
		return 0, 0, false
	}
}

func relocKindARM64(t elf.R_AARCH64) (reloc.Kind, int, bool) {
	switch t {
	case elf.R_AARCH64_ABS64:
		return reloc.Absolute, 8, true
	case elf.R_AARCH64_ABS32:
		return reloc.Absolute, 4, true
	case elf.R_AARCH64_ABS16:
		return reloc.Absolute, 2, true
	case elf.R_AARCH64_CALL26, elf.R_AARCH64_JUMP26:
		return reloc.PCRelative, 4, true
	case elf.R_AARCH64_PREL64:
		return reloc.PCRelative, 8, true
	case elf.R_AARCH64_PREL32:
		return reloc.PCRelative, 4, true
	case elf.R_AARCH64_PREL16:
		return reloc.PCRelative, 2, true
	default:
		return 0, 0, false
	}
}

// UnsupportedRelocationError is returned when an ELF object uses a
// relocation type this adapter doesn't classify — most commonly a
// PIC/TLS/GOT-relative form, none of which the classification tables
// above cover.
type UnsupportedRelocationError struct {
	Machine elf.Machine
	Type    uint32
}

func (e *UnsupportedRelocationError) Error() string {
	return fmt.Sprintf("objfmt: unsupported relocation type %d for %v", e.Type, e.Machine)
}

// ReadELF parses a relocatable ELF object file (ET_REL) into a
// linker.Object. Each SHT_PROGBITS or SHT_NOBITS section becomes one
// loadable slot, in section index order (other section types are not
// slots); SHT_NOBITS (.bss) sections are materialized as zero-filled
// slots of their declared size, since the core has no notion of
// uninitialized storage. RELA-style relocation sections (the x86-64
// ABI) carry an explicit addend field; REL-style sections (the 386 ABI)
// store the addend embedded in the referenced bytes instead, which this
// adapter does not read back out — 386 objects with a nonzero implicit
// addend are not supported.
//
// ctx is checked once at entry so a caller walking several objects can
// abandon the remaining ones without parsing a file it no longer needs;
// parsing itself is synchronous CPU/IO work and isn't further interruptible.
func ReadELF(ctx context.Context, f *elf.File) (linker.Object, *arch.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return linker.Object{}, nil, err
	}

	descriptor, err := descriptorFor(f.Machine)
	if err != nil {
		return linker.Object{}, nil, err
	}

	sections := section.New()
	sectionIndex := make(map[int]section.Index, len(f.Sections))
	for i, s := range f.Sections {
		if s.Type != elf.SHT_PROGBITS && s.Type != elf.SHT_NOBITS {
			continue
		}
		data, err := slotData(s)
		if err != nil {
			return linker.Object{}, nil, fmt.Errorf("objfmt: section %s: %w", s.Name, err)
		}
		sectionIndex[i] = sections.AddSlot(data)
	}

	elfSyms, err := f.Symbols()
	if err != nil {
		return linker.Object{}, nil, fmt.Errorf("objfmt: reading symbols: %w", err)
	}

	symbols := symtab.NewTable()
	symIndex := make(map[int]symtab.Index, len(elfSyms))
	for i, s := range elfSyms {
		if s.Name == "" {
			continue
		}
		value := symtab.Undefined
		if s.Section < elf.SectionIndex(len(f.Sections)) {
			if idx, ok := sectionIndex[int(s.Section)]; ok {
				value = symtab.Defined(idx, int(s.Value), int(s.Size))
			}
		}
		symIndex[i+1] = symbols.Add(symtab.Symbol{Name: s.Name, Value: value})
	}

	var relocs []reloc.Relocation
	for _, s := range f.Sections {
		if s.Type != elf.SHT_RELA && s.Type != elf.SHT_REL {
			continue
		}
		// sh_info of a relocation section is the index of the section it patches.
		targetIdx, ok := sectionIndex[int(s.Info)]
		if !ok {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return linker.Object{}, nil, fmt.Errorf("objfmt: relocation section %s: %w", s.Name, err)
		}
		decoded, err := decodeRelocs(f, data, s.Type == elf.SHT_RELA, targetIdx, symIndex)
		if err != nil {
			return linker.Object{}, nil, err
		}
		relocs = append(relocs, decoded...)
	}

	return linker.Object{Sections: sections, Symbols: symbols, Relocations: relocs}, descriptor, nil
}

func descriptorFor(m elf.Machine) (*arch.Descriptor, error) {
	switch m {
	case elf.EM_X86_64:
		return arch.AMD64, nil
	case elf.EM_AARCH64:
		return arch.ARM64, nil
	case elf.EM_386:
		return arch.I386, nil
	default:
		return nil, fmt.Errorf("objfmt: unsupported machine %v", m)
	}
}

func slotData(s *elf.Section) ([]byte, error) {
	if s.Type == elf.SHT_NOBITS {
		return make([]byte, s.Size), nil
	}
	return s.Data()
}

func decodeRelocs(f *elf.File, data []byte, rela bool, target section.Index, symIndex map[int]symtab.Index) ([]reloc.Relocation, error) {
	is64 := f.Class == elf.ELFCLASS64
	entrySize := relocEntrySize(is64, rela)

	var out []reloc.Relocation
	for off := 0; off+entrySize <= len(data); off += entrySize {
		entry := data[off : off+entrySize]
		r, err := decodeOneReloc(f, entry, is64, rela, target, symIndex)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func relocEntrySize(is64, rela bool) int {
	switch {
	case is64 && rela:
		return 24
	case is64 && !rela:
		return 16
	case !is64 && rela:
		return 12
	default:
		return 8
	}
}

func decodeOneReloc(f *elf.File, entry []byte, is64, rela bool, target section.Index, symIndex map[int]symtab.Index) (reloc.Relocation, error) {
	var offset uint64
	var symNum int
	var typ uint32
	var addend int64

	if is64 {
		offset = binary.LittleEndian.Uint64(entry[0:8])
		info := binary.LittleEndian.Uint64(entry[8:16])
		symNum = int(elf.R_SYM64(info))
		typ = uint32(elf.R_TYPE64(info))
		if rela {
			addend = int64(binary.LittleEndian.Uint64(entry[16:24]))
		}
	} else {
		offset = uint64(binary.LittleEndian.Uint32(entry[0:4]))
		info := binary.LittleEndian.Uint32(entry[4:8])
		symNum = int(elf.R_SYM32(info))
		typ = uint32(elf.R_TYPE32(info))
		if rela {
			addend = int64(int32(binary.LittleEndian.Uint32(entry[8:12])))
		}
	}

	var kind reloc.Kind
	var ok bool
	switch f.Machine {
	case elf.EM_X86_64:
		kind, _, ok = relocKindX86_64(elf.R_X86_64(typ))
	case elf.EM_386:
		kind, _, ok = relocKind386(elf.R_386(typ))
	case elf.EM_AARCH64:
		kind, _, ok = relocKindARM64(elf.R_AARCH64(typ))
	}
	if !ok {
		return reloc.Relocation{}, &UnsupportedRelocationError{Machine: f.Machine, Type: typ}
	}

	sym, ok := symIndex[symNum]
	if !ok {
		return reloc.Relocation{}, fmt.Errorf("objfmt: relocation references unnamed or out-of-range symbol %d", symNum)
	}

	return reloc.Relocation{
		Section: target,
		Offset:  int(offset),
		Kind:    kind,
		Symbol:  sym,
		Addend:  addend,
	}, nil
}
