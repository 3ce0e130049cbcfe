// Package symtab implements the symbol table and the resolving symbol
// table the linker accumulates while merging objects together.
package symtab

import "github.com/zboralski/ldcore/internal/section"

// Index is a stable position into a Table. Indices are never reused and
// stay valid across Replace.
type Index int

// Value is a symbol's value: either Undefined, or Defined at a section and
// offset with a given size. This is the idiomatic Go rendering of the
// abstract model's tagged SymbolValue union — Defined gates whether
// Section/Offset/Size are meaningful.
type Value struct {
	Defined bool
	Section section.Index
	Offset  int
	Size    int
}

// Undefined is the zero Value for an unresolved external reference.
var Undefined = Value{}

// Defined returns a Value for a symbol defined at section:offset with the
// given size.
func Defined(sec section.Index, offset, size int) Value {
	return Value{Defined: true, Section: sec, Offset: offset, Size: size}
}

// Symbol is a named value: a location (Defined) or a placeholder
// (Undefined) a relocation can point at.
type Symbol struct {
	Name  string
	Value Value
}

// Table is an append-only, ordered list of symbols, as contributed by a
// single object.
type Table struct {
	syms []Symbol
}

// NewTable returns an empty symbol table.
func NewTable() *Table {
	return &Table{}
}

// Add appends sym and returns its index.
func (t *Table) Add(sym Symbol) Index {
	idx := Index(len(t.syms))
	t.syms = append(t.syms, sym)
	return idx
}

// Get returns the symbol at idx.
func (t *Table) Get(idx Index) Symbol {
	return t.syms[idx]
}

// Replace overwrites the symbol at idx.
func (t *Table) Replace(idx Index, sym Symbol) {
	t.syms[idx] = sym
}

// Len returns the number of symbols in the table.
func (t *Table) Len() int {
	return len(t.syms)
}

// All returns every (index, symbol) pair in insertion order.
func (t *Table) All() []struct {
	Index  Index
	Symbol Symbol
} {
	out := make([]struct {
		Index  Index
		Symbol Symbol
	}, len(t.syms))
	for i, s := range t.syms {
		out[i].Index = Index(i)
		out[i].Symbol = s
	}
	return out
}

// ResolvingTable is a Table augmented with a name -> Index lookup, used by
// the resolver to find a prior definition or reference of a name while
// merging objects in. At most one entry exists per name (R2); every
// mapped index refers to a symbol whose current name equals the key (R1).
type ResolvingTable struct {
	inner  Table
	byName map[string]Index
}

// NewResolvingTable returns an empty resolving symbol table.
func NewResolvingTable() *ResolvingTable {
	return &ResolvingTable{byName: make(map[string]Index)}
}

// Add inserts sym and records name -> index. The caller must ensure name
// isn't already present (the resolver uses Replace for that case instead).
func (r *ResolvingTable) Add(sym Symbol) Index {
	idx := r.inner.Add(sym)
	r.byName[sym.Name] = idx
	return idx
}

// Get returns the symbol at idx.
func (r *ResolvingTable) Get(idx Index) Symbol {
	return r.inner.Get(idx)
}

// GetByName returns the symbol named name, if any.
func (r *ResolvingTable) GetByName(name string) (Symbol, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return Symbol{}, false
	}
	return r.inner.Get(idx), true
}

// IndexByName returns the index of the symbol named name, if any.
func (r *ResolvingTable) IndexByName(name string) (Index, bool) {
	idx, ok := r.byName[name]
	return idx, ok
}

// Replace overwrites the symbol at idx, keeping the name index consistent:
// if the replacement's name differs from the old one, the old key is
// dropped and the new key is inserted (R1/R2).
func (r *ResolvingTable) Replace(idx Index, sym Symbol) {
	old := r.inner.Get(idx)
	if old.Name != sym.Name {
		delete(r.byName, old.Name)
		r.byName[sym.Name] = idx
	}
	r.inner.Replace(idx, sym)
}

// Len returns the number of symbols in the table.
func (r *ResolvingTable) Len() int {
	return r.inner.Len()
}
