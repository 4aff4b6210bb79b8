package config

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/stemyke/node-backend-sub000/concurrency/worker"
	dc "github.com/stemyke/node-backend-sub000/data/config"
	"github.com/stemyke/node-backend-sub000/logging/logger"
	lc "github.com/stemyke/node-backend-sub000/logging/logger/config"
)

// EnvPrefix prefixes environment overrides, e.g. ASSETD_SERVER_PORT.
const EnvPrefix = "ASSETD"

var (
	config *Config
	path   string
	once   sync.Once
	mu     sync.Mutex
	v      *viper.Viper
)

// Config represents the configuration implementation.
type Config struct {
	AppName    string           `validate:"required"`
	AppVersion string           `validate:"-"`
	Server     *Server          `validate:"required"`
	Logger     *lc.Config       `validate:"required"`
	Data       *dc.Config       `validate:"required"`
	Storage    *Storage         `validate:"required"`
	Asset      *Asset           `validate:"required"`
	Worker     *worker.Config   `validate:"required"`
	Scheduler  []*ScheduleEntry `validate:"omitempty,dive"`
	Viper      *viper.Viper     `validate:"-"`
}

func init() {
	flag.StringVar(&path, "conf", "", "e.g: bin ./config.yaml")
	v = viper.New()
}

// Init initializes and loads the configuration.
func Init() (cfg *Config, err error) {
	once.Do(func() {
		cfg, err = loadConfiguration()
	})
	return cfg, err
}

// GetConfig returns the configuration.
func GetConfig() (*Config, error) {
	if config == nil {
		var err error
		config, err = Init()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize config: %w", err)
		}
	}
	return config, nil
}

// SetPath overrides the -conf flag, e.g. from a cobra flag.
func SetPath(p string) {
	mu.Lock()
	defer mu.Unlock()
	path = p
}

func loadConfiguration() (*Config, error) {
	if !flag.Parsed() {
		flag.Parse()
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	config = cfg
	return cfg, nil
}

// LoadConfig loads the configuration from configPath, or from config.* in
// the search paths when configPath is empty. A missing file in the search
// paths is not an error: defaults and ASSETD_ environment overrides apply.
func LoadConfig(configPath string) (*Config, error) {
	nv := viper.New()
	nv.SetEnvPrefix(EnvPrefix)
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()

	if configPath != "" {
		nv.SetConfigFile(configPath)
	} else {
		nv.SetConfigName("config")
		nv.AddConfigPath("/etc/assetd")
		nv.AddConfigPath("$HOME/.assetd")
		nv.AddConfigPath(".")
		if ex, err := os.Executable(); err == nil {
			nv.AddConfigPath(filepath.Dir(ex))
		}
	}

	if err := nv.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := fromViper(nv)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	v = nv
	mu.Unlock()
	return cfg, nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	scheduler, err := getSchedulerConfig(v)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		AppName:    getStringOrDefault(v, "app_name", "assetd"),
		AppVersion: v.GetString("app_version"),
		Server:     getServerConfig(v),
		Logger:     lc.GetConfig(v),
		Data:       dc.GetConfig(v),
		Storage:    getStorageConfig(v),
		Asset:      getAssetConfig(v),
		Worker:     getWorkerConfig(v),
		Scheduler:  scheduler,
		Viper:      v,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints and the storage settings.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Reload reloads the configuration from the file.
func Reload() error {
	mu.Lock()
	p := path
	mu.Unlock()

	newConfig, err := LoadConfig(p)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	mu.Lock()
	config = newConfig
	mu.Unlock()
	return nil
}

// Watch watches the configuration file and reloads it when it changes.
func Watch(callback func(*Config)) {
	mu.Lock()
	wv := v
	mu.Unlock()

	wv.OnConfigChange(func(e fsnotify.Event) {
		ctx := context.Background()
		if err := Reload(); err != nil {
			logger.Error(ctx, "error reloading config", "file", e.Name, "error", err)
			return
		}
		logger.Info(ctx, "config reloaded", "file", e.Name, "op", e.Op.String())
		mu.Lock()
		c := config
		mu.Unlock()
		callback(c)
	})
	wv.WatchConfig()
}
