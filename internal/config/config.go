package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultHost              = "0.0.0.0"
	DefaultPort              = 18790
	DefaultRetries           = 3
	DefaultPhoneCacheSize    = 1024
	DefaultSchedulerInterval = "30s"
	DefaultLogLevel          = "info"

	envPrefix = "REMINDME"
)

type Config struct {
	Skill     SkillConfig     `json:"skill" mapstructure:"skill"`
	Notify    NotifyConfig    `json:"notify" mapstructure:"notify"`
	Store     StoreConfig     `json:"store" mapstructure:"store"`
	Scheduler SchedulerConfig `json:"scheduler" mapstructure:"scheduler"`
	Gateway   GatewayConfig   `json:"gateway" mapstructure:"gateway"`
	Log       LogConfig       `json:"log" mapstructure:"log"`
}

type SkillConfig struct {
	// AppID is the expected caller application id; empty disables the check.
	AppID string `json:"appId" mapstructure:"appId"`
}

type NotifyConfig struct {
	// Target is a fixed destination for every notification. When empty the
	// user's stored phone number is used, which only the log notifier accepts.
	// Telegram requires a chat id here.
	Target   string         `json:"target" mapstructure:"target"`
	Retries  int            `json:"retries" mapstructure:"retries"`
	Telegram TelegramConfig `json:"telegram" mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Token   string `json:"token" mapstructure:"token"`
	Proxy   string `json:"proxy,omitempty" mapstructure:"proxy"`
}

type StoreConfig struct {
	DBPath         string `json:"dbPath" mapstructure:"dbPath"`
	PhoneCacheSize int    `json:"phoneCacheSize" mapstructure:"phoneCacheSize"`
}

type SchedulerConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Interval string `json:"interval" mapstructure:"interval"`
}

type GatewayConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

type LogConfig struct {
	Level string `json:"level" mapstructure:"level"`
}

// SweepInterval parses Scheduler.Interval, falling back to the default.
func (c SchedulerConfig) SweepInterval() time.Duration {
	if d, err := time.ParseDuration(c.Interval); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(DefaultSchedulerInterval)
	return d
}

func (c GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func DefaultConfig() *Config {
	return &Config{
		Notify: NotifyConfig{
			Retries: DefaultRetries,
		},
		Store: StoreConfig{
			DBPath:         filepath.Join(ConfigDir(), "data", "remindme.db"),
			PhoneCacheSize: DefaultPhoneCacheSize,
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Interval: DefaultSchedulerInterval,
		},
		Gateway: GatewayConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".remindme")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	return LoadConfigFrom(ConfigPath())
}

// LoadConfigFrom reads the JSON config at path (a missing file is fine) and
// applies REMINDME_* environment overrides on top of the defaults.
func LoadConfigFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	aliases := map[string]string{
		"skill.appId":             "REMINDME_APP_ID",
		"notify.target":           "REMINDME_NOTIFY_TARGET",
		"notify.telegram.token":   "REMINDME_TELEGRAM_TOKEN",
		"notify.telegram.enabled": "REMINDME_TELEGRAM_ENABLED",
		"store.dbPath":            "REMINDME_DB_PATH",
		"log.level":               "REMINDME_LOG_LEVEL",
	}
	for key, env := range aliases {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Store.DBPath == "" {
		cfg.Store.DBPath = DefaultConfig().Store.DBPath
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = DefaultPort
	}
	if cfg.Scheduler.Interval == "" {
		cfg.Scheduler.Interval = DefaultSchedulerInterval
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}

	return cfg, nil
}

// setDefaults registers every leaf of cfg so viper knows all keys, which
// AutomaticEnv needs to pick up overrides during Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("skill.appId", cfg.Skill.AppID)
	v.SetDefault("notify.target", cfg.Notify.Target)
	v.SetDefault("notify.retries", cfg.Notify.Retries)
	v.SetDefault("notify.telegram.enabled", cfg.Notify.Telegram.Enabled)
	v.SetDefault("notify.telegram.token", cfg.Notify.Telegram.Token)
	v.SetDefault("notify.telegram.proxy", cfg.Notify.Telegram.Proxy)
	v.SetDefault("store.dbPath", cfg.Store.DBPath)
	v.SetDefault("store.phoneCacheSize", cfg.Store.PhoneCacheSize)
	v.SetDefault("scheduler.enabled", cfg.Scheduler.Enabled)
	v.SetDefault("scheduler.interval", cfg.Scheduler.Interval)
	v.SetDefault("gateway.host", cfg.Gateway.Host)
	v.SetDefault("gateway.port", cfg.Gateway.Port)
	v.SetDefault("log.level", cfg.Log.Level)
}

func SaveConfig(cfg *Config) error {
	return SaveConfigTo(ConfigPath(), cfg)
}

func SaveConfigTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
