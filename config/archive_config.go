package config

import (
	"fmt"
	"net"
	"time"
)

// Fixed defaults for the public dbGaP archive.
const (
	DefaultAddress    = "ftp.ncbi.nlm.nih.gov:21"
	DefaultTimeout    = 10 * time.Second
	DefaultAttempts   = 5
	DefaultBufferSize = 32 * 1024 * 1024 // 32MB transfer buffer
)

// ArchiveConfig holds the settings for an anonymous archive session.
type ArchiveConfig struct {
	Address    string        // Example: "ftp.ncbi.nlm.nih.gov:21"
	Timeout    time.Duration // connect and per-operation timeout
	Attempts   int           // transfer attempts per file, including the first
	BufferSize int           // transfer buffer size in bytes
}

// DefaultArchiveConfig returns the configuration used when nothing is overridden.
func DefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Address:    DefaultAddress,
		Timeout:    DefaultTimeout,
		Attempts:   DefaultAttempts,
		BufferSize: DefaultBufferSize,
	}
}

// WithDefaults fills zero fields from DefaultArchiveConfig.
func (c ArchiveConfig) WithDefaults() ArchiveConfig {
	d := DefaultArchiveConfig()
	if c.Address == "" {
		c.Address = d.Address
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.Attempts == 0 {
		c.Attempts = d.Attempts
	}
	if c.BufferSize == 0 {
		c.BufferSize = d.BufferSize
	}
	return c
}

// Validate checks that the configuration can be used to open a session.
func (c ArchiveConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("server address must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %v (must be > 0)", c.Timeout)
	}
	if c.Attempts <= 0 {
		return fmt.Errorf("invalid attempts: %d (must be > 0)", c.Attempts)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid buffer size: %d (must be > 0)", c.BufferSize)
	}
	return nil
}

// DialAddress returns Address with the default FTP port appended when none is given.
func (c ArchiveConfig) DialAddress() string {
	if _, _, err := net.SplitHostPort(c.Address); err == nil {
		return c.Address
	}
	return net.JoinHostPort(c.Address, "21")
}
