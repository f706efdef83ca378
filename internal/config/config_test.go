package config

import (
	"os"
	"testing"
)

func TestValidate_RejectsPortOutOfRange(t *testing.T) {
	c := &Config{Port: 80, TimeoutSeconds: defaultTimeoutSeconds, HomeDir: t.TempDir()}
	if err := c.validate(); err == nil {
		t.Fatal("expected error for port below 1024")
	}
}

func TestValidate_RejectsTimeoutOutOfRange(t *testing.T) {
	c := &Config{Port: defaultPort, TimeoutSeconds: 0, HomeDir: t.TempDir()}
	if err := c.validate(); err == nil {
		t.Fatal("expected error for zero timeout")
	}
}

func TestValidate_RejectsMissingHomeDir(t *testing.T) {
	c := &Config{Port: defaultPort, TimeoutSeconds: defaultTimeoutSeconds, HomeDir: ""}
	if err := c.validate(); err == nil {
		t.Fatal("expected error for empty home directory")
	}
}

func TestValidate_RejectsNonexistentHomeDir(t *testing.T) {
	c := &Config{Port: defaultPort, TimeoutSeconds: defaultTimeoutSeconds, HomeDir: "/nonexistent/path/for/test"}
	if err := c.validate(); err == nil {
		t.Fatal("expected error for nonexistent home directory")
	}
}

func TestValidate_AcceptsGoodConfig(t *testing.T) {
	c := &Config{Port: defaultPort, TimeoutSeconds: defaultTimeoutSeconds, HomeDir: t.TempDir()}
	if err := c.validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_RejectsUnwritableHomeDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o500); err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0o700) })

	c := &Config{Port: defaultPort, TimeoutSeconds: defaultTimeoutSeconds, HomeDir: dir}
	if err := c.validate(); err == nil {
		t.Fatal("expected error for unwritable home directory")
	}
}
