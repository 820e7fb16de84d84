//go:build mage

// Package main contains Mage build targets for kbsync developer tooling.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const (
	binDir   = "bin"
	binName  = "kbsync"
	cmdPkg   = "./cmd/kbsync"
	stateDir = "state"
)

// Init creates the working directories a sync run expects.
func Init() error {
	for _, dir := range []string{stateDir, ".secrets"} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	cmd := exec.Command("go", "build", "-o", out, cmdPkg)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Clean removes build output and a stale run lock left by a crashed sync.
func Clean() error {
	if err := os.RemoveAll(binDir); err != nil {
		return fmt.Errorf("removing %s: %w", binDir, err)
	}
	lock := filepath.Join(stateDir, "kbsync.lock")
	if err := os.Remove(lock); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", lock, err)
	}
	fmt.Println("Cleaned.")
	return nil
}
