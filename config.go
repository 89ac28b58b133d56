package kissev

import (
	"fmt"
	"os"
	"sync"

	"git.fractalqb.de/fractalqb/kissev/evkore"
	"git.fractalqb.de/fractalqb/kissev/hive"
	"github.com/caarlos0/env/v11"
)

// Config controls systems created with [NewSystem].
type Config struct {
	// Bees is the number of goroutines that deliver deferred events. Values
	// < 1 are relative to the number of CPUs, see [hive.New].
	Bees int `env:"KISSEV_BEES" envDefault:"0"`
	// Queue is the number of deferred events that can be queued before Defer
	// blocks.
	Queue int `env:"KISSEV_QUEUE" envDefault:"64"`
	// Trace sets the log flag of a [WriteTracer] writing to stderr. See
	// [WriteTracer.ParseLogFlag]. With "" or "off" tracing is disabled.
	Trace string `env:"KISSEV_TRACE" envDefault:"off"`
}

func DefaultConfig() Config {
	return Config{Queue: evkore.DefaultDeferQueue, Trace: "off"}
}

// ConfigFromEnv loads the configuration from environment variables. On error
// the DefaultConfig is returned together with the error.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func NewSystem(synchronised bool, cfg Config) (*System, error) {
	var tracer *WriteTracer
	switch cfg.Trace {
	case "", "off":
	default:
		tracer = DefaultTracer()
		if err := tracer.ParseLogFlag(cfg.Trace); err != nil {
			return nil, err
		}
	}
	sys := evkore.NewSystem(synchronised)
	if tracer != nil {
		sys.Tracer = tracer
	}
	if synchronised {
		sys.Hive = hive.New(cfg.Bees, cfg.Queue)
	}
	return sys, nil
}

var (
	defaultSync = sync.OnceValue(func() *System {
		return defaultSystem(true)
	})
	defaultUnsync = sync.OnceValue(func() *System {
		return defaultSystem(false)
	})
)

// Synchronised returns the default synchronised system. It is configured from
// the environment on first use.
func Synchronised() *System { return defaultSync() }

// Unsynchronised returns the default unsynchronised system. It is configured
// from the environment on first use.
func Unsynchronised() *System { return defaultUnsync() }

func defaultSystem(synchronised bool) *System {
	cfg, err := ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "kissev: %s, using defaults\n", err)
	}
	sys, err := NewSystem(synchronised, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kissev: %s, using defaults\n", err)
		sys, _ = NewSystem(synchronised, DefaultConfig())
	}
	return sys
}
