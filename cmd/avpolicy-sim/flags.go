package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// Options holds the command-line flags of the simulator.
type Options struct {
	// ConfigPath is the YAML policy configuration.
	// If empty, config.Default is used.
	ConfigPath string

	// EnvFile is loaded into the environment before overrides are read.
	EnvFile string

	// Frames is the number of frames the simulated source produces.
	Frames int

	// FrameSize is the encoded size of a full-quality frame in bytes.
	FrameSize int

	// Interval is the frame cadence.
	Interval time.Duration

	// MTU is the link MTU the simulated transport reports (48-65535).
	MTU uint16

	// MetricsAddr overrides the metrics listen address and enables the
	// endpoint.
	MetricsAddr string
}

// DefaultOptions returns Options with the defaults of a short SBC session.
func DefaultOptions() Options {
	return Options{
		EnvFile:   ".env",
		Frames:    500,
		FrameSize: 119, // SBC joint stereo, bitpool 53
		Interval:  10 * time.Millisecond,
		MTU:       672, // L2CAP default
	}
}

// ParseFlags parses the command-line flags:
//
//	-config    Policy configuration file (default: built-in)
//	-env       Environment file (default: .env)
//	-frames    Frames to stream (default: 500)
//	-size      Full-quality frame size (default: 119)
//	-interval  Frame cadence (default: 10ms)
//	-mtu       Link MTU (default: 672)
//	-metrics   Metrics listen address (default: from config)
func ParseFlags() Options {
	defaults := DefaultOptions()
	o := defaults

	flag.StringVar(&o.ConfigPath, "config", "", "Policy configuration file (empty = built-in defaults)")
	flag.StringVar(&o.EnvFile, "env", defaults.EnvFile, "Environment file with AVPOLICY_* overrides")
	flag.IntVar(&o.Frames, "frames", defaults.Frames, "Frames to stream")
	flag.IntVar(&o.FrameSize, "size", defaults.FrameSize, "Full-quality frame size in bytes")
	flag.DurationVar(&o.Interval, "interval", defaults.Interval, "Frame cadence")
	flag.Func("mtu", fmt.Sprintf("Link MTU (default: %d)", defaults.MTU), func(s string) error {
		v, err := parseMTU(s)
		if err != nil {
			return err
		}
		o.MTU = v
		return nil
	})
	flag.StringVar(&o.MetricsAddr, "metrics", "", "Metrics listen address (enables the endpoint)")

	flag.Parse()
	return o
}

func parseMTU(s string) (uint16, error) {
	var v uint32
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, err
	}
	if v < 48 || v > 65535 {
		return 0, fmt.Errorf("mtu must be 48-65535, got %d", v)
	}
	return uint16(v), nil
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// applyEnv fills options that were not given on the command line from
// AVPOLICY_* environment variables.
func (o *Options) applyEnv(set func(string) bool) error {
	if v := os.Getenv("AVPOLICY_CONFIG"); v != "" && !set("config") {
		o.ConfigPath = v
	}
	if v := os.Getenv("AVPOLICY_METRICS_ADDR"); v != "" && !set("metrics") {
		o.MetricsAddr = v
	}
	if v := os.Getenv("AVPOLICY_MTU"); v != "" && !set("mtu") {
		mtu, err := parseMTU(v)
		if err != nil {
			return fmt.Errorf("AVPOLICY_MTU: %w", err)
		}
		o.MTU = mtu
	}
	if v := os.Getenv("AVPOLICY_INTERVAL"); v != "" && !set("interval") {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AVPOLICY_INTERVAL: %w", err)
		}
		o.Interval = d
	}
	return nil
}
