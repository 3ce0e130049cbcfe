package linker

import (
	"github.com/zboralski/ldcore/internal/reloc"
	"github.com/zboralski/ldcore/internal/section"
	"github.com/zboralski/ldcore/internal/symtab"
)

// ResolveObject merges one object's symbols and relocations into the
// running resolving tables.
//
// sections is the running section table *before* this object's own
// sections have been merged into it — the driver merges them only after
// this call returns, so the slot lengths observed here are exactly the
// shift this object's offsets need (§4.3 of the design doc). symbols and
// relocs are the running resolving symbol table and resolved-relocation
// buffer, both extended in place. objSymbols and objRelocs are this
// object's own tables, consumed.
//
// On success, relocs has gained one Resolved entry per entry in
// objRelocs, and symbols has gained or updated entries for every name in
// objSymbols. On error, the running tables may have been partially
// mutated and must be discarded by the caller.
func ResolveObject(
	sections *section.Table,
	symbols *symtab.ResolvingTable,
	objSymbols *symtab.Table,
	relocs *[]reloc.Resolved,
	objRelocs []reloc.Relocation,
) error {
	// Phase 1: resolve symbols, building old-index -> new-index.
	remap := make(map[symtab.Index]symtab.Index, objSymbols.Len())
	for _, entry := range objSymbols.All() {
		newIdx, err := resolveSymbol(sections, symbols, entry.Symbol)
		if err != nil {
			return err
		}
		remap[entry.Index] = newIdx
	}

	// Phase 2: resolve relocations against the remap built in phase 1.
	for _, r := range objRelocs {
		newSym, ok := remap[r.Symbol]
		if !ok {
			return &InvalidRelocationError{Relocation: r}
		}
		*relocs = append(*relocs, reloc.Resolved{Relocation: reloc.Relocation{
			Section: r.Section,
			Offset:  sections.Len(r.Section) + r.Offset,
			Kind:    r.Kind,
			Symbol:  newSym,
			Addend:  r.Addend,
		}})
	}

	// Phase 3 (section merge) is the driver's responsibility: it must run
	// only after phases 1 and 2 above have captured the pre-merge slot
	// lengths, or every offset computed here would be wrong.
	return nil
}

// resolveSymbol resolves a single symbol from an object's symbol table
// against the running resolving table, per the 2x2 rule on
// (existing.Value, sym.Value):
//
//	(Undefined, Undefined) -> keep the existing entry
//	(Undefined, Defined)   -> replace the existing entry with sym's definition
//	(Defined, Undefined)   -> keep the existing entry
//	(Defined, Defined)     -> ConflictSymbolsError
func resolveSymbol(sections *section.Table, symbols *symtab.ResolvingTable, sym symtab.Symbol) (symtab.Index, error) {
	existingIdx, ok := symbols.IndexByName(sym.Name)
	if !ok {
		return symbols.Add(shiftOffset(sections, sym)), nil
	}

	existing := symbols.Get(existingIdx)
	switch {
	case !existing.Value.Defined && !sym.Value.Defined:
		return existingIdx, nil
	case !existing.Value.Defined && sym.Value.Defined:
		symbols.Replace(existingIdx, shiftOffset(sections, sym))
		return existingIdx, nil
	case existing.Value.Defined && !sym.Value.Defined:
		return existingIdx, nil
	default:
		return 0, &ConflictSymbolsError{Name: sym.Name}
	}
}

// shiftOffset applies the offset-update rule: a Defined symbol's offset
// is biased by the pre-merge length of its section, since that's exactly
// the increment the later Merge will add to every byte already in that
// slot.
func shiftOffset(sections *section.Table, sym symtab.Symbol) symtab.Symbol {
	if !sym.Value.Defined {
		return sym
	}
	return symtab.Symbol{
		Name: sym.Name,
		Value: symtab.Defined(
			sym.Value.Section,
			sections.Len(sym.Value.Section)+sym.Value.Offset,
			sym.Value.Size,
		),
	}
}
