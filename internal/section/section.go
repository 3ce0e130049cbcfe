// Package section implements the loadable section table: an ordered
// collection of byte slots that objects contribute to and that the linker
// concatenates slot-by-slot as it merges objects together.
package section

// Index identifies a slot within a Table. It is a monomorphized stand-in
// for the opaque, equatable section-index capability of the abstract
// model; a format-specific front-end (see internal/objfmt) is free to
// assign indices however it likes as long as they're stable within one
// object's lifetime.
type Index int

// Table is an ordered sequence of byte slots. Slot i's address is the sum
// of the lengths of slots 0..i-1; addresses are therefore non-decreasing
// in slot index and slot 0 always starts at address 0.
type Table struct {
	slots [][]byte
}

// New returns an empty section table.
func New() *Table {
	return &Table{}
}

// AddSlot appends a new slot initialized with the given bytes (which may
// be nil/empty) and returns its index.
func (t *Table) AddSlot(data []byte) Index {
	idx := Index(len(t.slots))
	buf := make([]byte, len(data))
	copy(buf, data)
	t.slots = append(t.slots, buf)
	return idx
}

// NumSlots returns the number of slots currently in the table.
func (t *Table) NumSlots() int {
	return len(t.slots)
}

// Len returns the current length of slot idx, or 0 if idx is out of range.
// The resolver relies on the zero-for-out-of-range behavior: it may ask
// for the length of a slot that a later Merge hasn't created yet.
func (t *Table) Len(idx Index) int {
	if idx < 0 || int(idx) >= len(t.slots) {
		return 0
	}
	return len(t.slots[idx])
}

// Address returns the base address of slot idx: the sum of the lengths of
// every preceding slot. All slots 0..idx-1 must already exist.
func (t *Table) Address(idx Index) int {
	sum := 0
	for i := Index(0); i < idx; i++ {
		sum += len(t.slots[i])
	}
	return sum
}

// BytesMut returns a mutable view of slot idx's bytes, for the relocator
// to patch in place.
func (t *Table) BytesMut(idx Index) []byte {
	return t.slots[idx]
}

// Merge appends other's slots onto this table slot-by-slot: for slot i,
// if this table already has a slot i, other's bytes are appended to it;
// otherwise other's slot i is pushed as a brand new slot. Slot i in the
// result is therefore the concatenation of slot i across every object
// merged so far, in merge order, and slots of the same index from
// different objects are contiguous. other is consumed.
func (t *Table) Merge(other *Table) {
	for i, data := range other.slots {
		if i < len(t.slots) {
			t.slots[i] = append(t.slots[i], data...)
		} else {
			t.slots = append(t.slots, data)
		}
	}
}
