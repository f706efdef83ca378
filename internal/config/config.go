// Package config parses and validates the server's command-line flags
// (spec §7). Grounded on cmd/vfs/main.go's flag-then-isFlagPassed shape,
// generalized with explicit range validation since this spec's flags (unlike
// the teacher's free-form addr/root strings) carry numeric bounds.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	minPort = 1024
	maxPort = 65535
	defaultPort = 31337

	minTimeoutSeconds = 1
	maxTimeoutSeconds = 60
	defaultTimeoutSeconds = 10
)

// Config holds the validated server configuration (spec §7).
type Config struct {
	Port           int
	TimeoutSeconds int
	HomeDir        string
}

// Load parses os.Args[1:] and validates every flag. It calls flag.Parse on
// the default CommandLine flag set, so it must be called at most once.
func Load() (*Config, error) {
	port := flag.Int("p", defaultPort, "TCP port to listen on (1024-65535)")
	timeout := flag.Int("t", defaultTimeoutSeconds, "per-connection idle timeout in seconds (1-60)")
	home := flag.String("d", "", "home directory to serve (required)")
	flag.Parse()

	cfg := &Config{Port: *port, TimeoutSeconds: *timeout, HomeDir: *home}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < minPort || c.Port > maxPort {
		return fmt.Errorf("config: -p must be between %d and %d, got %d", minPort, maxPort, c.Port)
	}
	if c.TimeoutSeconds < minTimeoutSeconds || c.TimeoutSeconds > maxTimeoutSeconds {
		return fmt.Errorf("config: -t must be between %d and %d, got %d", minTimeoutSeconds, maxTimeoutSeconds, c.TimeoutSeconds)
	}
	if c.HomeDir == "" {
		return errors.New("config: -d is required")
	}
	info, err := os.Stat(c.HomeDir)
	if err != nil {
		return fmt.Errorf("config: -d: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("config: -d %q is not a directory", c.HomeDir)
	}
	if err := unix.Access(c.HomeDir, unix.R_OK|unix.W_OK); err != nil {
		return fmt.Errorf("config: -d %q must be readable and writable: %w", c.HomeDir, err)
	}
	return nil
}

