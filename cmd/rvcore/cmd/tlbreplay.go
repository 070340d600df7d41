package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/rvcore/config"
	"github.com/sarchlab/rvcore/mem/vm"
	"github.com/sarchlab/rvcore/mem/vm/tlb"
)

// A replayScript lists the installs to apply to an empty TLB, and the
// translations to try afterwards.
type replayScript struct {
	TLB      config.TLBConfig `yaml:"tlb"`
	Installs []replayInstall  `yaml:"installs"`
	Probes   []replayProbe    `yaml:"probes"`
}

// A replayInstall either gives the raw attribute word or its fields.
type replayInstall struct {
	Side     string  `yaml:"side"`
	VAddr    uint64  `yaml:"vaddr"`
	PAttr    *uint32 `yaml:"pattr"`
	PPN      uint64  `yaml:"ppn"`
	Type     string  `yaml:"type"`
	Megapage bool    `yaml:"megapage"`
	Invalid  bool    `yaml:"invalid"`
}

type replayProbe struct {
	VAddr uint64 `yaml:"vaddr"`
	Kind  string `yaml:"kind"`
	Priv  string `yaml:"priv"`
}

func parseSide(s string) (tlb.Side, error) {
	switch strings.ToLower(s) {
	case "i":
		return tlb.SideInsn, nil
	case "d":
		return tlb.SideData, nil
	}

	return 0, fmt.Errorf("unknown TLB side %q", s)
}

func (in replayInstall) attr() (vm.PageAttr, error) {
	if in.PAttr != nil {
		return vm.PageAttr(*in.PAttr), nil
	}

	t, err := parseTypeCode(in.Type)
	if err != nil {
		return 0, err
	}

	return vm.PageAttrBuilder{}.
		WithValid(!in.Invalid).
		WithType(t).
		WithPPN(in.PPN).
		WithMegapage(in.Megapage).
		Build(), nil
}

func parseReplayScript(data []byte) (replayScript, error) {
	s := replayScript{TLB: config.Default().TLB}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing script: %w", err)
	}

	c := config.Default()
	c.Backend = config.BackendTLB
	c.TLB = s.TLB

	return s, c.Validate()
}

func replay(s replayScript, out io.Writer) error {
	t := tlb.MakeBuilder().
		WithNumSets(tlb.SideInsn, s.TLB.ISets).
		WithNumWays(tlb.SideInsn, s.TLB.IWays).
		WithNumSets(tlb.SideData, s.TLB.DSets).
		WithNumWays(tlb.SideData, s.TLB.DWays).
		Build("TLB")

	for i, in := range s.Installs {
		side, err := parseSide(in.Side)
		if err != nil {
			return fmt.Errorf("install %d: %w", i, err)
		}

		attr, err := in.attr()
		if err != nil {
			return fmt.Errorf("install %d: %w", i, err)
		}

		t.SetVAddr(side, in.VAddr)
		t.Install(side, attr)
	}

	for _, side := range []tlb.Side{tlb.SideInsn, tlb.SideData} {
		if err := t.Dump(out, side); err != nil {
			return err
		}
	}

	for i, p := range s.Probes {
		kind, err := parseKind(p.Kind)
		if err != nil {
			return fmt.Errorf("probe %d: %w", i, err)
		}

		priv, err := parsePrivilege(p.Priv)
		if err != nil {
			return fmt.Errorf("probe %d: %w", i, err)
		}

		base, err := t.Translate(p.VAddr, priv, kind)

		switch {
		case err == nil:
			fmt.Fprintf(out, "%s 0x%x %s -> 0x%x\n",
				kind, p.VAddr, priv, base|vm.PageOffset(p.VAddr))
		case errors.Is(err, vm.ErrTranslationMiss),
			errors.Is(err, vm.ErrTranslationDenied):
			fmt.Fprintf(out, "%s 0x%x %s: %v\n", kind, p.VAddr, priv, err)
		default:
			return err
		}
	}

	return nil
}

var tlbReplayCmd = &cobra.Command{
	Use:   "tlbreplay",
	Short: "Replay TLB installs from a script and probe the result.",
	Long: "`tlbreplay --script s.yaml` installs the listed mappings into an " +
		"empty software TLB, dumps both sides and prints the result of every " +
		"probe translation.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("script")

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		s, err := parseReplayScript(data)
		if err != nil {
			return err
		}

		return replay(s, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(tlbReplayCmd)
	tlbReplayCmd.Flags().String("script", "", "YAML replay script")
	tlbReplayCmd.MarkFlagRequired("script")
}
