package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds configuration for the dbgapftp command.
type CLIConfig struct {
	Archive     ArchiveConfig
	LogLevel    string
	MetricsFile string // CSV transfer log, empty disables it
	LocalDir    string // destination for downloads
	Silent      bool   // suppress the batch summary
	NoColor     bool
}

// ParseCLI parses command configuration from flags and environment variables.
// Flags take precedence over environment variables. The remaining positional
// arguments (the subcommand and its operands) are returned alongside.
func ParseCLI(fs *flag.FlagSet, args []string) (*CLIConfig, []string, error) {
	cfg := &CLIConfig{
		Archive:  DefaultArchiveConfig(),
		LogLevel: "warn",
		LocalDir: ".",
	}

	// Read from environment first
	if server := os.Getenv("DBGAP_FTP_SERVER"); server != "" {
		cfg.Archive.Address = server
	}
	if timeout := os.Getenv("DBGAP_FTP_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid DBGAP_FTP_TIMEOUT %q: %w", timeout, err)
		}
		cfg.Archive.Timeout = d
	}
	if attempts := os.Getenv("DBGAP_FTP_ATTEMPTS"); attempts != "" {
		n, err := strconv.Atoi(attempts)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid DBGAP_FTP_ATTEMPTS %q: %w", attempts, err)
		}
		cfg.Archive.Attempts = n
	}
	if logLevel := os.Getenv("DBGAP_FTP_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if metrics := os.Getenv("DBGAP_FTP_METRICS_CSV"); metrics != "" {
		cfg.MetricsFile = metrics
	}

	// Flags override environment
	fs.StringVar(&cfg.Archive.Address, "server", cfg.Archive.Address, "archive FTP server (host or host:port)")
	fs.DurationVar(&cfg.Archive.Timeout, "timeout", cfg.Archive.Timeout, "connect and transfer timeout")
	fs.IntVar(&cfg.Archive.Attempts, "attempts", cfg.Archive.Attempts, "transfer attempts per file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.MetricsFile, "metrics-csv", cfg.MetricsFile, "append per-file transfer metrics to this CSV file")
	fs.StringVar(&cfg.LocalDir, "dir", cfg.LocalDir, "local directory for downloaded files")
	fs.BoolVar(&cfg.Silent, "silent", false, "do not print the download summary")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "disable coloured output")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	return cfg, fs.Args(), nil
}

// Validate validates the parsed configuration.
func (c *CLIConfig) Validate() error {
	if err := c.Archive.Validate(); err != nil {
		return err
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn or error)", c.LogLevel)
	}
	info, err := os.Stat(c.LocalDir)
	if err != nil {
		return fmt.Errorf("local directory %s: %w", c.LocalDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("local directory %s is not a directory", c.LocalDir)
	}
	return nil
}
