// Package commands implements the jobsd subcommands
package commands

import (
	"github.com/vrooli/jobs/config"
	"github.com/vrooli/jobs/errors"
	"github.com/vrooli/jobs/logger"
)

// ConfigPath is the --config flag. Empty means the merged system, user and project files.
var ConfigPath string

// JSONLogs is the --json-logs flag
var JSONLogs bool

var loaded *config.Config

// Setup loads configuration and initializes the global logger.
// Each -v raises the level over the configured one; with no -v the config's log.level applies.
func Setup(verbosity int) error {
	cfg, err := config.Load(ConfigPath)
	if err != nil {
		return err
	}
	loaded = cfg

	level := logger.ParseLevel(cfg.Log.Level)
	if verbosity > 0 {
		level = logger.VerbosityToLevel(verbosity)
	}
	if err := logger.Initialize(JSONLogs || cfg.Log.JSON, level); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	return nil
}

func currentConfig() (*config.Config, error) {
	if loaded == nil {
		return nil, errors.New("configuration not loaded")
	}
	return loaded, nil
}

// watchedPath is the file hot reload follows: the explicit --config, else the
// highest precedence file that exists.
func watchedPath() string {
	if ConfigPath != "" {
		return ConfigPath
	}
	sources := config.Sources()
	if len(sources) == 0 {
		return ""
	}
	return sources[len(sources)-1]
}
