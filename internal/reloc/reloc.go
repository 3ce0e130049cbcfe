// Package reloc implements the relocation types and the relocator: the
// computation of the final value to patch at a reference site once both
// the site and its target symbol have a final address.
package reloc

import (
	"fmt"

	"github.com/zboralski/ldcore/internal/section"
	"github.com/zboralski/ldcore/internal/symtab"
)

// Kind is the abstract relocation form. The core only knows these two;
// architecture-specific relocation types are classified into one of them
// by a front-end (see internal/objfmt) before reaching the core.
type Kind int

const (
	// Absolute relocations write the target symbol's final address.
	Absolute Kind = iota
	// PCRelative relocations write the displacement from the reference
	// site to the target symbol's final address.
	PCRelative
)

func (k Kind) String() string {
	switch k {
	case Absolute:
		return "absolute"
	case PCRelative:
		return "pc-relative"
	default:
		return fmt.Sprintf("reloc.Kind(%d)", int(k))
	}
}

// Relocation is an unresolved reference: a reference site (Section,
// Offset) awaiting the final value of Symbol plus Addend, using Kind's
// arithmetic.
type Relocation struct {
	Section section.Index
	Offset  int
	Kind    Kind
	Symbol  symtab.Index
	Addend  int64
}

// Resolved is a Relocation whose Symbol has been rewritten to index the
// running resolving symbol table and whose Offset has been shifted to
// account for content already present in Section at the moment it was
// resolved. The driver appends these to a buffer consumed, at the very
// end of a link, by Relocate.
type Resolved struct {
	Relocation
}

// Relocate computes the final value to write at r's reference site, given
// the fully merged symbol table and section table (i.e., after every
// object has been resolved and merged). ptrSize is the host pointer
// width, in bytes (see internal/arch.Descriptor.PtrSize), used for
// PC-relative wraparound arithmetic.
func Relocate(r Resolved, symbols *symtab.ResolvingTable, sections *section.Table, ptrSize int) (uint64, error) {
	sym := symbols.Get(r.Symbol)
	if !sym.Value.Defined {
		return 0, ErrSymbolNotDefined
	}

	symAddr := uint64(sections.Address(sym.Value.Section) + sym.Value.Offset)
	refAddr := uint64(sections.Address(r.Section) + r.Offset)

	ptrWidth := ptrSize * 8
	mask := wrapMask(ptrWidth)

	var v uint64
	switch r.Kind {
	case PCRelative:
		v = (symAddr - refAddr) & mask
	case Absolute:
		v = symAddr & mask
	default:
		return 0, fmt.Errorf("reloc: unknown kind %v", r.Kind)
	}

	result := (int64(signExtend(v, ptrWidth)) + r.Addend)
	return uint64(result) & mask, nil
}

// wrapMask returns a mask with the low ptrWidth bits set, used to emulate
// fixed-width wraparound arithmetic (mod 2^W) regardless of Go's native
// uint64 width.
func wrapMask(ptrWidth int) uint64 {
	if ptrWidth >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(ptrWidth)) - 1
}

// signExtend reinterprets the low ptrWidth bits of v as a two's-complement
// signed value of that width, widened to int64.
func signExtend(v uint64, ptrWidth int) int64 {
	if ptrWidth >= 64 {
		return int64(v)
	}
	signBit := uint64(1) << uint(ptrWidth-1)
	if v&signBit != 0 {
		return int64(v) - int64(uint64(1)<<uint(ptrWidth))
	}
	return int64(v)
}

// ErrSymbolNotDefined is returned by Relocate when the relocation's
// symbol is still Undefined in the merged symbol table: an unresolved
// external reference.
var ErrSymbolNotDefined = symbolNotDefinedError{}

type symbolNotDefinedError struct{}

func (symbolNotDefinedError) Error() string { return "symbol not defined" }

// WriteLE writes the low n bytes of v, little-endian, into buf[off:off+n].
// n is the link's address_len parameter (1, 2, 4, or 8); truncation simply
// drops v's high bits.
func WriteLE(buf []byte, off, n int, v uint64) {
	for i := 0; i < n; i++ {
		buf[off+i] = byte(v >> (8 * uint(i)))
	}
}
