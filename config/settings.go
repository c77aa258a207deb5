// Package config loads the settings of the emulator and the descriptions of
// the machines it runs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadSettings.
const (
	EnvLogVerbosity = "MULTIEMU_LOG_VERBOSITY"
	EnvMonitorPort  = "MULTIEMU_MONITOR_PORT"
	EnvRecordDB     = "MULTIEMU_RECORD_DB"
	EnvQuantum      = "MULTIEMU_QUANTUM"
	EnvOpenBrowser  = "MULTIEMU_OPEN_BROWSER"
)

// DefaultQuantum is the number of master cycles a machine advances per step
// when nothing else is configured.
const DefaultQuantum = 1024

// Settings are the process wide options of the emulator.
type Settings struct {
	// LogVerbosity is the most verbose level that is logged.
	LogVerbosity int

	// MonitorPort is the port of the monitoring server. 0 disables it.
	MonitorPort int

	// RecordDB is the SQLite file that task runs and faults are recorded
	// to. Empty disables recording.
	RecordDB string

	// Quantum is the number of master cycles advanced per step.
	Quantum uint64

	// OpenBrowser opens the monitoring page once the server is up.
	OpenBrowser bool
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{Quantum: DefaultQuantum}
}

// LoadSettings reads the settings from the environment. The given env files
// are loaded first, without overriding variables that are already set. If no
// file is given, a .env file in the working directory is used when present.
func LoadSettings(envFiles ...string) (Settings, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("config: loading .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Settings{}, fmt.Errorf("config: loading %v: %w", envFiles, err)
	}

	return settingsFromEnv(os.LookupEnv)
}

func settingsFromEnv(lookup func(string) (string, bool)) (Settings, error) {
	s := DefaultSettings()

	var errs []error

	if v, ok := lookup(EnvLogVerbosity); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, invalid(EnvLogVerbosity, v))
		}

		s.LogVerbosity = n
	}

	if v, ok := lookup(EnvMonitorPort); ok {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			errs = append(errs, invalid(EnvMonitorPort, v))
		}

		s.MonitorPort = int(n)
	}

	if v, ok := lookup(EnvRecordDB); ok {
		s.RecordDB = v
	}

	if v, ok := lookup(EnvQuantum); ok {
		n, err := strconv.ParseUint(v, 0, 64)
		if err != nil || n == 0 {
			errs = append(errs, invalid(EnvQuantum, v))
		}

		s.Quantum = n
	}

	if v, ok := lookup(EnvOpenBrowser); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, invalid(EnvOpenBrowser, v))
		}

		s.OpenBrowser = b
	}

	if err := errors.Join(errs...); err != nil {
		return Settings{}, err
	}

	return s, nil
}

func invalid(name, value string) error {
	return fmt.Errorf("config: invalid %s %q", name, value)
}
