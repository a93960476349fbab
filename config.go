package dispatch

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"github.com/arlohoss/dispatch/internal/logging"
)

// FileConfig is the TOML representation of dispatcher defaults, for
// embedders that configure the library from a file.
//
//	separator = ":"
//
//	[history]
//	enabled      = true
//	cap          = 1000
//	journal_path = "/var/lib/app/events.db"
//
//	[log]
//	level  = "warn"
//	file   = "/var/log/app/dispatch.log"
//	pretty = false
type FileConfig struct {
	Separator string        `toml:"separator"`
	History   HistoryConfig `toml:"history"`
	Log       LogConfig     `toml:"log"`
}

type HistoryConfig struct {
	Enabled     bool   `toml:"enabled"`
	Cap         int    `toml:"cap"`
	JournalPath string `toml:"journal_path"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	Pretty     bool   `toml:"pretty"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// defaultHistoryCap bounds history when enabled without an explicit cap.
const defaultHistoryCap = 1000

// LoadConfig reads a TOML config file and fills in defaults.
func LoadConfig(path string) (FileConfig, error) {
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("dispatch: load config %s: %w", path, err)
	}
	if cfg.Separator == "" {
		cfg.Separator = DefaultSeparator
	}
	if cfg.History.Enabled && cfg.History.Cap <= 0 {
		cfg.History.Cap = defaultHistoryCap
	}
	return cfg, nil
}

// ApplyLogConfig re-initializes the logging layer from a config's log
// section. It touches no dispatcher state, so reloads can adjust the level
// or destination while registrations stay live; component loggers (the
// default error sink included) pick up the change on their next write.
func ApplyLogConfig(cfg LogConfig) {
	logging.Init(logging.Config{
		Level:      logging.ParseLevel(cfg.Level),
		Pretty:     cfg.Pretty,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	})
}

// NewFromConfig initializes logging per the config and returns a dispatcher
// built from it.
func NewFromConfig(cfg FileConfig) *Dispatcher {
	ApplyLogConfig(cfg.Log)
	opts := Options{Separator: cfg.Separator}
	if cfg.History.Enabled {
		opts.HistoryCap = cfg.History.Cap
		opts.JournalPath = cfg.History.JournalPath
	}
	return New(opts)
}

// WatchConfig re-reads the config file whenever it changes and passes the
// result to apply, so embedders can hot-adjust the default separator or log
// level. The watch covers the file's directory, since editors and config
// managers typically replace the file rather than write in place. Returns a
// stop function.
func WatchConfig(path string, apply func(FileConfig)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("dispatch: watch config: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("dispatch: watch %s: %w", dir, err)
	}

	log := logging.ForComponent(logging.CompConfig)
	base := filepath.Base(path)
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
					continue
				}
				cfg, err := LoadConfig(path)
				if err != nil {
					log.Error().Err(err).Msg("config reload failed")
					continue
				}
				ApplyLogConfig(cfg.Log)
				apply(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("config watcher error")
			}
		}
	}()

	return func() { _ = watcher.Close() }, nil
}
