package main

import (
	"context"
	"debug/elf"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zboralski/ldcore/internal/arch"
	"github.com/zboralski/ldcore/internal/diag"
	"github.com/zboralski/ldcore/internal/linker"
	"github.com/zboralski/ldcore/internal/linkconfig"
	glog "github.com/zboralski/ldcore/internal/log"
	"github.com/zboralski/ldcore/internal/objfmt"
	"github.com/zboralski/ldcore/internal/section"
)

func newLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <script.yaml>",
		Short: "Merge the objects named in a link script into one image",
		Args:  cobra.ExactArgs(1),
		RunE:  runLink,
	}
}

func runLink(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	scriptPath := args[0]

	cfg, descriptor, err := linkconfig.Load(scriptPath)
	if err != nil {
		return err
	}
	glog.L.Phase("load-script", len(cfg.Objects))

	objects := make([]linker.Object, 0, len(cfg.Objects))
	for _, path := range cfg.Objects {
		if err := ctx.Err(); err != nil {
			return err
		}
		obj, err := adaptObject(ctx, path)
		if err != nil {
			return fmt.Errorf("ldcore: %s: %w", path, err)
		}
		objects = append(objects, obj)
	}
	glog.L.Phase("adapt", len(objects))

	result, err := linker.Link(objects, linker.AddressLen(cfg.AddressLen), descriptor.PtrSize)
	if err != nil {
		return diagnose(err, descriptor)
	}
	glog.L.Phase("relocate", result.NumSlots())

	if err := writeImage(cfg.Output, result); err != nil {
		return fmt.Errorf("ldcore: writing %s: %w", cfg.Output, err)
	}
	glog.L.Phase("write", result.NumSlots())
	glog.L.Summary(result.NumSlots(), len(objects))

	return nil
}

func adaptObject(ctx context.Context, path string) (linker.Object, error) {
	f, err := elf.Open(path)
	if err != nil {
		return linker.Object{}, fmt.Errorf("opening: %w", err)
	}
	defer f.Close()

	obj, _, err := objfmt.ReadELF(ctx, f)
	if err != nil {
		return linker.Object{}, err
	}
	return obj, nil
}

func writeImage(path string, result *section.Table) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	for i := 0; i < result.NumSlots(); i++ {
		if _, err := out.Write(result.BytesMut(section.Index(i))); err != nil {
			return err
		}
	}
	return nil
}

// diagnose wraps a core link error in a diag.SiteError. The core's error
// types carry only what the resolver and relocator knew at the point of
// failure — an InvalidRelocationError names its offending offset, a
// SymbolNotDefinedError does not — so the former is reported at its
// recorded offset and the latter at offset 0. Link returns no section
// table on failure, so no code bytes are passed in either case and the
// disassembly reads "???". Other errors are returned unwrapped. The
// original error's text is always the diagnostic's prefix; the diagnostic
// never replaces it.
func diagnose(err error, descriptor *arch.Descriptor) error {
	var invalid *linker.InvalidRelocationError
	if errors.As(err, &invalid) {
		return diag.AtSite(err, descriptor, invalid.Relocation.Offset, nil)
	}
	var notDefined *linker.SymbolNotDefinedError
	if errors.As(err, &notDefined) {
		return diag.AtSite(err, descriptor, 0, nil)
	}
	return err
}
