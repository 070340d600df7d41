package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rvcore/mem/vm"
	"github.com/sarchlab/rvcore/mem/vm/walker"
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate one virtual address through a page table.",
	Long: "`translate --image mem.bin --root 0x1000 --mode sv32 --priv u " +
		"--kind load --vaddr 0x400` walks the page table held in the image " +
		"and prints the physical address.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		mem, regs, err := loadPageTables(cmd)
		if err != nil {
			return err
		}

		vAddr, err := addrFlag(cmd, "vaddr")
		if err != nil {
			return err
		}

		privName, _ := cmd.Flags().GetString("priv")
		priv, err := parsePrivilege(privName)
		if err != nil {
			return err
		}

		kindName, _ := cmd.Flags().GetString("kind")
		kind, err := parseKind(kindName)
		if err != nil {
			return err
		}

		w := walker.MakeBuilder().
			WithMemory(mem).
			WithRegisters(regs).
			Build("Walker")

		base, err := w.Translate(vAddr, priv, kind)
		if err != nil {
			return fmt.Errorf("%s 0x%x %s: %w", kind, vAddr, priv, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s 0x%x %s -> 0x%x\n",
			kind, vAddr, priv, base|vm.PageOffset(vAddr))

		return nil
	},
}

var ptdumpCmd = &cobra.Command{
	Use:   "ptdump",
	Short: "Print every valid entry of a page table.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		mem, regs, err := loadPageTables(cmd)
		if err != nil {
			return err
		}

		w := walker.MakeBuilder().
			WithMemory(mem).
			WithRegisters(regs).
			Build("Walker")

		return w.Dump(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)
	addPageTableFlags(translateCmd)
	translateCmd.Flags().String("vaddr", "0", "Virtual address to translate")
	translateCmd.Flags().String("priv", "u", "Privilege of the access (u, s, h, m)")
	translateCmd.Flags().String("kind", "load", "Access kind (load, store, fetch)")

	rootCmd.AddCommand(ptdumpCmd)
	addPageTableFlags(ptdumpCmd)
}
