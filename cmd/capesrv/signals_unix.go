//go:build !windows

package main

import (
	"os/signal"
	"syscall"
)

func init() {
	// SIGTERM is the standard graceful-shutdown signal on Linux/macOS.
	shutdownSignals = append(shutdownSignals, syscall.SIGTERM)

	// A client that closes its read side mid-write would otherwise raise
	// SIGPIPE and kill the process outright (spec §4.5); writes already
	// surface the failure through the normal error return.
	signal.Ignore(syscall.SIGPIPE)
}
