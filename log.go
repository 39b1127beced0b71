package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/daydrill/internal/config"
)

// logEnv holds process-level logging overrides.
type logEnv struct {
	Debug bool   `env:"DAYDRILL_DEBUG"`
	File  string `env:"DAYDRILL_LOG_FILE"`
}

var (
	logOverrides logEnv
	logFile      *os.File
)

func setupLog() (func() error, error) {
	cfg, err := env.ParseAs[logEnv]()
	if err != nil {
		return nil, fmt.Errorf("error parsing environment: %v", err)
	}
	logOverrides = cfg

	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(false)
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.File != "" {
		if err := openLogFile(cfg.File); err != nil {
			return nil, err
		}
	}
	return closeLog, nil
}

// configureLog applies the settings once they are loaded. Environment
// overrides win.
func configureLog(s config.LogSettings, debugFlag bool) error {
	level, err := log.ParseLevel(s.Level)
	if err != nil {
		return err
	}
	if debugFlag || logOverrides.Debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	if logFile == nil && s.File != "" {
		return openLogFile(s.File)
	}
	return nil
}

func openLogFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("unable to open log file: %w", err)
	}
	logFile = f
	log.SetOutput(f)
	log.SetReportTimestamp(true)
	return nil
}

func closeLog() error {
	if logFile == nil {
		return nil
	}
	return logFile.Close()
}
