package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rvcore/mem/guestmem"
	"github.com/sarchlab/rvcore/mem/vm"
)

// Addresses are taken as strings so that they can be given in hex.
func addrFlag(cmd *cobra.Command, name string) (uint64, error) {
	s, _ := cmd.Flags().GetString(name)

	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}

	return v, nil
}

func parsePrivilege(s string) (vm.Privilege, error) {
	switch strings.ToLower(s) {
	case "u":
		return vm.PrivUser, nil
	case "s":
		return vm.PrivSupervisor, nil
	case "h":
		return vm.PrivHypervisor, nil
	case "m":
		return vm.PrivMachine, nil
	}

	return 0, fmt.Errorf("unknown privilege %q", s)
}

func parseKind(s string) (vm.AccessKind, error) {
	for _, k := range []vm.AccessKind{vm.Load, vm.Store, vm.Fetch} {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}

	return 0, fmt.Errorf("unknown access kind %q", s)
}

func parseTypeCode(s string) (vm.TypeCode, error) {
	for t := vm.TypeCode(0); t <= vm.TypeGSRWX; t++ {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}

	return 0, fmt.Errorf("unknown page type %q", s)
}

// fixedRegs feeds the walker a page-table root and mode given on the
// command line.
type fixedRegs struct {
	root uint64
	mode vm.Mode
	xlen int
}

func (r fixedRegs) PageTableRoot() uint64 { return r.root }
func (r fixedRegs) VMMode() vm.Mode       { return r.mode }
func (r fixedRegs) XLen() int             { return r.xlen }

func addPageTableFlags(cmd *cobra.Command) {
	cmd.Flags().String("image", "", "Memory image holding the page tables")
	cmd.Flags().String("image-addr", "0", "Physical address the image is loaded at")
	cmd.Flags().String("mem-size", "0x1000000", "Guest memory size in bytes")
	cmd.Flags().String("root", "0", "Physical address of the root page table")
	cmd.Flags().String("mode", "sv32", "Virtual memory mode")
	cmd.MarkFlagRequired("image")
}

func loadPageTables(cmd *cobra.Command) (*guestmem.Memory, fixedRegs, error) {
	var regs fixedRegs

	size, err := addrFlag(cmd, "mem-size")
	if err != nil {
		return nil, regs, err
	}

	base, err := addrFlag(cmd, "image-addr")
	if err != nil {
		return nil, regs, err
	}

	regs.root, err = addrFlag(cmd, "root")
	if err != nil {
		return nil, regs, err
	}

	modeName, _ := cmd.Flags().GetString("mode")
	regs.mode, err = vm.ParseMode(modeName)
	if err != nil {
		return nil, regs, err
	}

	regs.xlen = 64
	if regs.mode == vm.ModeSv32 {
		regs.xlen = 32
	}

	if size == 0 {
		return nil, regs, fmt.Errorf("--mem-size must not be 0")
	}

	mem := guestmem.New(size)

	path, _ := cmd.Flags().GetString("image")
	f, err := os.Open(path)
	if err != nil {
		return nil, regs, err
	}
	defer f.Close()

	if _, err := mem.LoadImage(f, base); err != nil {
		return nil, regs, err
	}

	return mem, regs, nil
}
