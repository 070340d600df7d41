package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/rvcore/config"
	"github.com/sarchlab/rvcore/datarecording"
	"github.com/sarchlab/rvcore/machine"
	"github.com/sarchlab/rvcore/mem/trace"
	"github.com/sarchlab/rvcore/mem/vm"
	"github.com/sarchlab/rvcore/monitoring"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a machine built from a configuration file.",
	Long: "`run --config machine.yaml --image boot.bin` builds a machine, " +
		"loads the image at the start PC and runs until the guest reaches " +
		"the exit address, the step limit is hit or the run is interrupted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadRunConfig(cmd)
		if err != nil {
			return err
		}

		m := machine.MakeBuilder().WithConfig(cfg).Build("Machine")
		if err := m.LoadImages(); err != nil {
			return err
		}

		if err := attachTracers(m, cfg.Trace); err != nil {
			return err
		}

		steps, _ := cmd.Flags().GetUint64("steps")
		startMonitor(cmd, m, steps)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		err = m.Run(ctx, steps)

		switch {
		case err == nil, errors.Is(err, machine.ErrExited):
		case errors.Is(err, context.Canceled):
			log.Printf("%s: interrupted", m.Name())
		default:
			return err
		}

		return reportCores(m, cmd.OutOrStdout())
	},
}

func loadRunConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env")

	cfg, err := config.Load(path, envFile)
	if err != nil {
		return cfg, err
	}

	if image, _ := cmd.Flags().GetString("image"); image != "" {
		cfg.Images = append(cfg.Images, config.Image{
			Path: image,
			Addr: cfg.StartPC,
		})
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}

	return cfg, nil
}

func traceRange(c config.TraceConfig) trace.Range {
	if c.Begin == 0 && c.End == 0 {
		return trace.All
	}

	return trace.Range{Begin: c.Begin, End: c.End}
}

func attachTracers(m *machine.Machine, c config.TraceConfig) error {
	rng := traceRange(c)

	if c.LogFile != "" {
		f, err := os.Create(c.LogFile)
		if err != nil {
			return err
		}

		atexit.Register(func() { f.Close() })

		m.RegisterTracer(trace.NewTracer(log.New(f, "", 0), m.Clock(), rng))
	}

	if c.DBFile != "" {
		recorder := datarecording.New(c.DBFile)
		m.RegisterTracer(trace.NewDBTracer(recorder, m.Clock(), m.Name(), rng))
	}

	if c.TLBLogFile != "" {
		f, err := os.Create(c.TLBLogFile)
		if err != nil {
			return err
		}

		atexit.Register(func() { f.Close() })

		m.AcceptHook(vm.NewTLBTracer(f, m.Clock()))
	}

	return nil
}

func startMonitor(cmd *cobra.Command, m *machine.Machine, steps uint64) {
	port := m.Config().MonitorPort
	open, _ := cmd.Flags().GetBool("open-monitor")

	if port == 0 && !open {
		return
	}

	mon := monitoring.NewMonitor(m).WithPortNumber(port)
	mon.StartServer()

	if steps > 0 {
		bar := mon.CreateProgressBar("Instructions", steps)
		m.OnRTCTick(func(uint64) {
			bar.SetFinished(m.Clock().CurrentTime())
		})
	}

	if open {
		if err := mon.OpenBrowser(); err != nil {
			log.Printf("cannot open browser: %v", err)
		}
	}
}

func reportCores(m *machine.Machine, out io.Writer) error {
	var err error

	m.Inspect(func() {
		for i := 0; i < m.NumCores() && err == nil; i++ {
			c := m.Core(i)
			s := c.Stats()
			ms := c.MMU().Stats()

			_, err = fmt.Fprintf(out,
				"%s: retired %d, traps %d, interrupts %d, "+
					"fast hits %d, fast misses %d, icache hits %d, icache misses %d\n",
				c.Name(), s.Retired, s.Traps, s.Interrupts,
				ms.FastHits, ms.FastMisses, ms.ICacheHits, ms.ICacheMisses)
			if err == nil {
				err = c.DumpRegs(out)
			}
		}
	})

	return err
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("config", "", "YAML machine configuration")
	runCmd.Flags().String("env", ".env", "File with RVCORE_* overrides")
	runCmd.Flags().String("image", "", "Memory image loaded at the start PC")
	runCmd.Flags().Uint64("steps", 0, "Instructions to run, 0 for no limit")
	runCmd.Flags().Bool("debug", false, "Log every instruction")
	runCmd.Flags().Bool("open-monitor", false, "Open the monitor in a browser")
}
