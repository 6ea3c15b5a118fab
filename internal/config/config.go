package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// EnvConfigFile names the variable pointing at a configuration file.
// Unset means the well-known locations are searched; set but empty means
// no file is read at all.
const EnvConfigFile = "DAVSYNC_CONFIG"

// EnvPrefix prefixes every environment variable that overrides an option.
const EnvPrefix = "DAVSYNC"

// Storage kinds understood by the server.
const (
	StorageFilesystem = "filesystem"
	StorageSQLite     = "sqlite"
)

// Rights policies understood by the server.
const (
	RightsNone      = "none"
	RightsOwnerOnly = "owner_only"
	RightsReadOnly  = "read_only"
)

var searchPaths = []string{"/etc/davsync", "$HOME/.config/davsync"}

type HTTPConfig struct {
	Addr         string
	BasePath     string
	MaxItemBytes int64
}

type StorageConfig struct {
	Type             string
	FilesystemFolder string
	SQLitePath       string
	CacheTTL         time.Duration
}

type RightsConfig struct {
	Type string
}

type Config struct {
	HTTP     HTTPConfig
	Storage  StorageConfig
	Rights   RightsConfig
	LogLevel string
}

var (
	mu       sync.Mutex
	settings *viper.Viper
)

// Init builds the process-wide settings store from defaults, the
// environment and the configuration file. It replaces any previous store.
func Init() error {
	v, err := newSettings()
	if err != nil {
		return err
	}
	mu.Lock()
	settings = v
	mu.Unlock()
	return nil
}

// Reset discards the process-wide settings store. The next access builds a
// fresh one.
func Reset() {
	mu.Lock()
	settings = nil
	mu.Unlock()
}

// Set overrides a single option in the process-wide settings store.
func Set(key string, value any) error {
	v, err := current()
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	v.Set(key, value)
	return nil
}

// Current materialises the process-wide settings into a Config.
func Current() (*Config, error) {
	v, err := current()
	if err != nil {
		return nil, err
	}
	mu.Lock()
	defer mu.Unlock()
	return fromSettings(v)
}

// Load reinitialises the settings store and returns the resulting Config.
func Load() (*Config, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return Current()
}

func current() (*viper.Viper, error) {
	mu.Lock()
	v := settings
	mu.Unlock()
	if v != nil {
		return v, nil
	}
	if err := Init(); err != nil {
		return nil, err
	}
	mu.Lock()
	defer mu.Unlock()
	return settings, nil
}

func newSettings() (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("http.addr", ":5232")
	v.SetDefault("http.base_path", "/")
	v.SetDefault("http.max_item_bytes", int64(1<<20))
	v.SetDefault("storage.type", StorageFilesystem)
	v.SetDefault("storage.filesystem_folder", "./collections")
	v.SetDefault("storage.sqlite_path", "")
	v.SetDefault("storage.cache_ttl", 30*time.Second)
	v.SetDefault("rights.type", RightsNone)
	v.SetDefault("log.level", "info")

	// DAVSYNC_STORAGE_TYPE sets storage.type, and so on.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v); err != nil {
		return nil, err
	}
	return v, nil
}

func readConfigFile(v *viper.Viper) error {
	path, set := os.LookupEnv(EnvConfigFile)
	if set {
		if path == "" {
			return nil
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("config")
	for _, p := range searchPaths {
		v.AddConfigPath(os.ExpandEnv(p))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

func fromSettings(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{
			Addr:         v.GetString("http.addr"),
			BasePath:     v.GetString("http.base_path"),
			MaxItemBytes: v.GetInt64("http.max_item_bytes"),
		},
		Storage: StorageConfig{
			Type:             strings.ToLower(v.GetString("storage.type")),
			FilesystemFolder: v.GetString("storage.filesystem_folder"),
			SQLitePath:       v.GetString("storage.sqlite_path"),
			CacheTTL:         v.GetDuration("storage.cache_ttl"),
		},
		Rights: RightsConfig{
			Type: strings.ToLower(v.GetString("rights.type")),
		},
		LogLevel: v.GetString("log.level"),
	}

	switch cfg.Storage.Type {
	case StorageFilesystem, "filestore":
		cfg.Storage.Type = StorageFilesystem
		if cfg.Storage.FilesystemFolder == "" {
			return nil, errors.New("storage.filesystem_folder required")
		}
	case StorageSQLite:
		if cfg.Storage.SQLitePath == "" {
			if cfg.Storage.FilesystemFolder == "" {
				return nil, errors.New("storage.sqlite_path required")
			}
			cfg.Storage.SQLitePath = cfg.Storage.FilesystemFolder + string(os.PathSeparator) + "davsync.db"
		}
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}

	switch cfg.Rights.Type {
	case RightsNone, RightsOwnerOnly, RightsReadOnly:
	default:
		return nil, fmt.Errorf("unknown rights type: %s", cfg.Rights.Type)
	}

	if cfg.HTTP.BasePath == "" || cfg.HTTP.BasePath[0] != '/' {
		cfg.HTTP.BasePath = "/" + cfg.HTTP.BasePath
	}
	return cfg, nil
}
