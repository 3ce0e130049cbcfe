// Package linker implements the linker core: symbol resolution,
// relocation, and the driver that ties both to the section table while
// merging a sequence of relocatable objects into one image.
package linker

import (
	"errors"

	"github.com/zboralski/ldcore/internal/reloc"
	"github.com/zboralski/ldcore/internal/section"
	"github.com/zboralski/ldcore/internal/symtab"
)

// Object is one relocatable input: its own section table, symbol table,
// and relocations. Every relocation's Symbol must index into Symbols;
// every relocation's Section, and every defined symbol's Section, must
// index into Sections.
type Object struct {
	Sections    *section.Table
	Symbols     *symtab.Table
	Relocations []reloc.Relocation
}

// AddressLen is the byte width of a patched reference field: 1, 2, 4, or
// 8. The relocator always computes at the architecture's host pointer
// width; AddressLen only controls how many of the result's low bytes are
// written.
type AddressLen int

// Valid reports whether n is one of the widths the driver accepts.
func (n AddressLen) Valid() bool {
	switch n {
	case 1, 2, 4, 8:
		return true
	default:
		return false
	}
}

// Link merges objects, in order, into a single section table with every
// relocation patched to its final value. ptrSize is the host pointer
// width, in bytes, used by the relocator's wraparound arithmetic (see
// internal/arch.Descriptor.PtrSize); addressLen is how many of the
// relocator's result bytes are actually written at each site.
//
// Object order is significant: slot-wise concatenation happens in object
// order, so final addresses — and therefore PC-relative results — depend
// on it. The link is otherwise deterministic.
//
// On success, the returned table's slot i is the concatenation of slot i
// from every object, in order. On error, nothing is returned; the link as
// a whole is aborted and no partial image exists.
func Link(objects []Object, addressLen AddressLen, ptrSize int) (*section.Table, error) {
	sections := section.New()
	symbols := symtab.NewResolvingTable()
	var relocs []reloc.Resolved

	for _, obj := range objects {
		if err := ResolveObject(sections, symbols, obj.Symbols, &relocs, obj.Relocations); err != nil {
			return nil, err
		}
		sections.Merge(obj.Sections)
	}

	for _, r := range relocs {
		v, err := reloc.Relocate(r, symbols, sections, ptrSize)
		if err != nil {
			if errors.Is(err, reloc.ErrSymbolNotDefined) {
				return nil, &SymbolNotDefinedError{}
			}
			return nil, err
		}
		reloc.WriteLE(sections.BytesMut(r.Section), r.Offset, int(addressLen), v)
	}

	return sections, nil
}
