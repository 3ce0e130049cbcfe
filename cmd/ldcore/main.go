package main

import (
	"os"

	"github.com/spf13/cobra"

	glog "github.com/zboralski/ldcore/internal/log"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "ldcore",
		Short: "A toy static linker for relocatable ELF objects",
		Long: `ldcore merges relocatable ELF object files into a single image.

It resolves symbols across objects, applies absolute and PC-relative
relocations, and writes the merged sections to disk. Inputs and output
are described by a YAML link script.

Examples:
  ldcore link script.yaml
  ldcore link -v script.yaml`,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose debug output")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		glog.Init(verbose)
	}

	rootCmd.AddCommand(newLinkCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
