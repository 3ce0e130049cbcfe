package reloc

import (
	"errors"
	"testing"

	"github.com/zboralski/ldcore/internal/section"
	"github.com/zboralski/ldcore/internal/symtab"
)

func buildTables(t *testing.T) (*section.Table, *symtab.ResolvingTable, symtab.Index, section.Index) {
	t.Helper()
	sec := section.New()
	textIdx := sec.AddSlot(make([]byte, 0x20))
	symTab := symtab.NewResolvingTable()
	symIdx := symTab.Add(symtab.Symbol{
		Name:  "target",
		Value: symtab.Defined(textIdx, 0x10, 0),
	})
	return sec, symTab, symIdx, textIdx
}

func TestRelocateAbsolute(t *testing.T) {
	sec, symTab, symIdx, textIdx := buildTables(t)

	r := Resolved{Relocation{Section: textIdx, Offset: 0x4, Kind: Absolute, Symbol: symIdx, Addend: 0}}
	got, err := Relocate(r, symTab, sec, 8)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0x10 {
		t.Fatalf("got %#x, want 0x10", got)
	}
}

func TestRelocatePCRelative(t *testing.T) {
	sec, symTab, symIdx, textIdx := buildTables(t)

	// reference at 0xc, target at 0x10: displacement 4
	r := Resolved{Relocation{Section: textIdx, Offset: 0xc, Kind: PCRelative, Symbol: symIdx, Addend: 0}}
	got, err := Relocate(r, symTab, sec, 8)
	if err != nil {
		t.Fatal(err)
	}
	if got != 4 {
		t.Fatalf("got %#x, want 4", got)
	}
}

func TestRelocatePCRelativeBackwardsWraps(t *testing.T) {
	sec, symTab, symIdx, textIdx := buildTables(t)

	// reference at 0x18, target at 0x10: displacement -8, two's complement at 32-bit width
	r := Resolved{Relocation{Section: textIdx, Offset: 0x18, Kind: PCRelative, Symbol: symIdx, Addend: 0}}
	got, err := Relocate(r, symTab, sec, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := uint64(0xFFFFFFF8)
	if got != want {
		t.Fatalf("got %#x, want %#x", got, want)
	}
}

func TestRelocateWithAddend(t *testing.T) {
	sec, symTab, symIdx, textIdx := buildTables(t)

	r := Resolved{Relocation{Section: textIdx, Offset: 0x0, Kind: PCRelative, Symbol: symIdx, Addend: -4}}
	got, err := Relocate(r, symTab, sec, 4)
	if err != nil {
		t.Fatal(err)
	}
	// displacement 0x10, addend -4 => 0xc
	if got != 0xc {
		t.Fatalf("got %#x, want 0xc", got)
	}
}

func TestRelocateSymbolNotDefined(t *testing.T) {
	sec := section.New()
	textIdx := sec.AddSlot(make([]byte, 4))
	symTab := symtab.NewResolvingTable()
	symIdx := symTab.Add(symtab.Symbol{Name: "undef", Value: symtab.Undefined})

	r := Resolved{Relocation{Section: textIdx, Offset: 0, Kind: Absolute, Symbol: symIdx}}
	_, err := Relocate(r, symTab, sec, 8)
	if !errors.Is(err, ErrSymbolNotDefined) {
		t.Fatalf("err = %v, want ErrSymbolNotDefined", err)
	}
}

func TestWriteLETruncatesHighBits(t *testing.T) {
	buf := make([]byte, 8)
	WriteLE(buf, 0, 4, 0x1122334455667788)
	want := []byte{0x88, 0x77, 0x66, 0x55, 0, 0, 0, 0}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf = %x, want %x", buf, want)
		}
	}
}
