// Package config holds the defaults shared by the z-orders binaries.
package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultHost is the address the API listens on.
	DefaultHost = "0.0.0.0"
	// DefaultPort is the API port.
	DefaultPort = 9090
	// DefaultLogLevel and DefaultLogOutput configure the log package.
	DefaultLogLevel  = "info"
	DefaultLogOutput = "stdout"
	// DefaultSetupTimeout bounds loading or generating the proving keys.
	DefaultSetupTimeout = 30 * time.Minute
)

// DefaultDataDir returns the directory where the order database is kept,
// ~/.z-orders or a relative .z-orders if the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".z-orders"
	}
	return filepath.Join(home, ".z-orders")
}
