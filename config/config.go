// Package config holds the settings of an emulation session. Settings come
// from a YAML file and can be overridden by RVCORE_* environment variables,
// which may themselves be set in a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Translation backends.
const (
	BackendWalker = "walker"
	BackendTLB    = "tlb"
)

// EnvPrefix starts the name of every environment override.
const EnvPrefix = "RVCORE_"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// An Image is a file loaded into the machine before it runs. ROM images are
// placed on the device bus instead of in guest memory.
type Image struct {
	Path string `yaml:"path"`
	Addr uint64 `yaml:"addr"`
	ROM  bool   `yaml:"rom"`
}

// TLBConfig sizes the two sides of the associative TLB.
type TLBConfig struct {
	ISets int `yaml:"i_sets"`
	IWays int `yaml:"i_ways"`
	DSets int `yaml:"d_sets"`
	DWays int `yaml:"d_ways"`
}

// TraceConfig selects the memory tracers. Only accesses in [Begin, End) are
// traced; an empty range traces everything.
type TraceConfig struct {
	LogFile    string `yaml:"log_file"`
	DBFile     string `yaml:"db_file"`
	TLBLogFile string `yaml:"tlb_log_file"`
	Begin      uint64 `yaml:"begin"`
	End        uint64 `yaml:"end"`
}

// Config is the full session configuration.
type Config struct {
	MemorySize       uint64      `yaml:"memory_size"`
	NumCores         int         `yaml:"num_cores"`
	Backend          string      `yaml:"backend"`
	XLen             int         `yaml:"xlen"`
	Interleave       uint64      `yaml:"interleave"`
	InsnsPerRTCTick  uint64      `yaml:"insns_per_rtc_tick"`
	FastCacheEntries int         `yaml:"fast_cache_entries"`
	ICacheEntries    int         `yaml:"icache_entries"`
	TLB              TLBConfig   `yaml:"tlb"`
	StartPC          uint64      `yaml:"start_pc"`
	TrapVector       uint64      `yaml:"trap_vector"`
	ExitPC           uint64      `yaml:"exit_pc"`
	MTimerBase       uint64      `yaml:"mtimer_base"`
	Debug            bool        `yaml:"debug"`
	Images           []Image     `yaml:"images"`
	Trace            TraceConfig `yaml:"trace"`
	MonitorPort      int         `yaml:"monitor_port"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		MemorySize:       16 << 20,
		NumCores:         1,
		Backend:          BackendWalker,
		XLen:             64,
		Interleave:       5000,
		InsnsPerRTCTick:  100,
		FastCacheEntries: 256,
		ICacheEntries:    1024,
		TLB: TLBConfig{
			ISets: 8,
			IWays: 4,
			DSets: 8,
			DWays: 4,
		},
		StartPC:    0x200,
		TrapVector: 0x100,
	}
}

// Parse reads a YAML configuration on top of the defaults.
func Parse(data []byte) (Config, error) {
	c := Default()

	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parsing config: %w", err)
	}

	return c, nil
}

// Load reads the YAML file at path, applies the environment overrides and
// validates the result. An empty path only uses the defaults and the
// environment.
func Load(path, envFile string) (Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}

		c, err = Parse(data)
		if err != nil {
			return c, err
		}
	}

	if err := c.ApplyEnv(envFile); err != nil {
		return c, err
	}

	return c, c.Validate()
}

// ApplyEnv overrides settings with RVCORE_* environment variables. Variables
// in envFile are loaded first without replacing those already set. A
// missing envFile is ignored.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	uints := map[string]*uint64{
		"MEMORY_SIZE":        &c.MemorySize,
		"INTERLEAVE":         &c.Interleave,
		"INSNS_PER_RTC_TICK": &c.InsnsPerRTCTick,
		"START_PC":           &c.StartPC,
		"TRAP_VECTOR":        &c.TrapVector,
		"EXIT_PC":            &c.ExitPC,
		"MTIMER_BASE":        &c.MTimerBase,
	}
	for name, dst := range uints {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			continue
		}

		n, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, name, err)
		}

		*dst = n
	}

	ints := map[string]*int{
		"NUM_CORES":    &c.NumCores,
		"XLEN":         &c.XLen,
		"MONITOR_PORT": &c.MonitorPort,
	}
	for name, dst := range ints {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			continue
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, name, err)
		}

		*dst = n
	}

	if v, ok := os.LookupEnv(EnvPrefix + "BACKEND"); ok {
		c.Backend = v
	}

	if v, ok := os.LookupEnv(EnvPrefix + "DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sDEBUG: %v", ErrInvalid, EnvPrefix, err)
		}

		c.Debug = b
	}

	if v, ok := os.LookupEnv(EnvPrefix + "TRACE_LOG"); ok {
		c.Trace.LogFile = v
	}

	if v, ok := os.LookupEnv(EnvPrefix + "TRACE_DB"); ok {
		c.Trace.DBFile = v
	}

	if v, ok := os.LookupEnv(EnvPrefix + "TRACE_TLB"); ok {
		c.Trace.TLBLogFile = v
	}

	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalid}, args...)...)
}

// Validate checks that a machine can be built from the configuration.
func (c Config) Validate() error {
	switch {
	case c.MemorySize == 0:
		return invalid("memory size must not be zero")
	case c.NumCores < 1:
		return invalid("need at least one core, got %d", c.NumCores)
	case c.XLen != 32 && c.XLen != 64:
		return invalid("xlen must be 32 or 64, got %d", c.XLen)
	case c.Interleave == 0:
		return invalid("interleave must not be zero")
	case c.InsnsPerRTCTick == 0:
		return invalid("insns_per_rtc_tick must not be zero")
	case c.FastCacheEntries <= 0:
		return invalid("fast_cache_entries must be positive")
	case c.ICacheEntries <= 0:
		return invalid("icache_entries must be positive")
	case c.MonitorPort < 0 || c.MonitorPort > 65535:
		return invalid("monitor port %d out of range", c.MonitorPort)
	}

	switch c.Backend {
	case BackendWalker:
	case BackendTLB:
		if !isPowerOfTwo(c.TLB.ISets) || !isPowerOfTwo(c.TLB.DSets) {
			return invalid("tlb set counts must be powers of two")
		}

		if c.TLB.IWays <= 0 || c.TLB.DWays <= 0 {
			return invalid("tlb way counts must be positive")
		}
	default:
		return invalid("unknown backend %q", c.Backend)
	}

	for _, img := range c.Images {
		if img.Path == "" {
			return invalid("image without a path")
		}
	}

	return nil
}
