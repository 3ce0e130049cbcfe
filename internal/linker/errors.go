package linker

import (
	"fmt"

	"github.com/zboralski/ldcore/internal/reloc"
)

// ConflictSymbolsError is returned when two objects both provide a
// Defined definition for the same symbol name.
type ConflictSymbolsError struct {
	Name string
}

func (e *ConflictSymbolsError) Error() string {
	return fmt.Sprintf("conflicting definitions of symbol %q", e.Name)
}

// InvalidRelocationError is returned when a relocation references a
// symbol index that isn't present in its own object's symbol table —
// a malformed input object.
type InvalidRelocationError struct {
	Relocation reloc.Relocation
}

func (e *InvalidRelocationError) Error() string {
	return fmt.Sprintf("invalid relocation: %+v", e.Relocation)
}

// SymbolNotDefinedError is returned by the relocator when a relocation's
// symbol is still Undefined in the fully merged symbol table: an
// unresolved external reference.
type SymbolNotDefinedError struct{}

func (e *SymbolNotDefinedError) Error() string {
	return "symbol not defined"
}
