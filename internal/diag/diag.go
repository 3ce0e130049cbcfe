// Package diag attaches best-effort disassembly to link errors so a
// failure at a relocation site can be read next to the instruction it
// broke, instead of just an offset.
package diag

import (
	"fmt"

	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"

	"github.com/zboralski/ldcore/internal/arch"
	"github.com/zboralski/ldcore/internal/ui/colorize"
)

// Disassemble decodes one instruction starting at code using the
// conventions of descriptor's architecture, returning a human-readable
// mnemonic. It never returns an error: undecodable bytes fall back to a
// raw byte dump, since a diagnostic is strictly best-effort and must
// never be the reason a real error goes unreported.
func Disassemble(descriptor *arch.Descriptor, code []byte) string {
	if descriptor == nil || len(code) == 0 {
		return rawBytes(code)
	}

	switch descriptor.GoArch {
	case "amd64":
		inst, err := x86asm.Decode(code, 64)
		if err != nil {
			return rawBytes(code)
		}
		return x86asm.GoSyntax(inst, 0, nil)
	case "386":
		inst, err := x86asm.Decode(code, 32)
		if err != nil {
			return rawBytes(code)
		}
		return x86asm.GoSyntax(inst, 0, nil)
	case "arm64":
		if len(code) < 4 {
			return rawBytes(code)
		}
		inst, err := arm64asm.Decode(code)
		if err != nil {
			return rawBytes(code)
		}
		return inst.String()
	default:
		return rawBytes(code)
	}
}

func rawBytes(code []byte) string {
	if len(code) == 0 {
		return "???"
	}
	n := len(code)
	if n > 8 {
		n = 8
	}
	return fmt.Sprintf(".byte %x", code[:n])
}

// SiteError wraps a link error with the disassembly of the reference
// site it occurred at. Error always includes the wrapped error's text
// first, so a diagnostic never masks the underlying failure; Unwrap lets
// callers still errors.As/errors.Is through to it.
type SiteError struct {
	Err        error
	Offset     int
	Disasm     string
	Descriptor *arch.Descriptor
}

func (e *SiteError) Error() string {
	disasm := e.Disasm
	if !colorize.IsDisabled() {
		disasm = colorize.Instruction(disasm)
	}
	return fmt.Sprintf("%s at offset %s: %s", e.Err, colorize.Address(uint64(e.Offset)), disasm)
}

func (e *SiteError) Unwrap() error { return e.Err }

// AtSite builds a SiteError by disassembling code (the bytes at and
// after the failing relocation's reference site) under descriptor. If
// err is nil, AtSite returns nil.
func AtSite(err error, descriptor *arch.Descriptor, offset int, code []byte) error {
	if err == nil {
		return nil
	}
	return &SiteError{
		Err:        err,
		Offset:     offset,
		Disasm:     Disassemble(descriptor, code),
		Descriptor: descriptor,
	}
}
