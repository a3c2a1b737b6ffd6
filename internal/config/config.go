// Package config loads the engine configuration from an optional TOML file
// and QG_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".config/quotaguard"
	dataDir    = ".local/share/quotaguard"
	envPrefix  = "QG"
)

const (
	StoreDriverTOML     = "toml"
	StoreDriverPostgres = "postgres"
	PolicyDriverFile    = "file"
	PolicyDriverRedis   = "redis"
	LockDriverLocal     = "local"
	LockDriverRedis     = "redis"
)

type Config struct {
	Timezone string
	Location *time.Location
	Limits   LimitsConfig
	Store    StoreConfig
	Policy   PolicyConfig
	Lock     LockConfig
	Redis    RedisConfig
	Timeouts TimeoutsConfig
	Notify   NotifyConfig
	SMTP     SMTPConfig
	HTTP     HTTPConfig
	Kafka    KafkaConfig
	Sweep    SweepConfig
	Usage    UsageConfig
	Log      LogConfig
}

type LimitsConfig struct {
	Daily        int
	Monthly      int
	WarningRatio float64
}

type StoreConfig struct {
	Driver string
	Path   string
	DSN    string
}

type PolicyConfig struct {
	Driver    string
	Path      string
	KeyPrefix string
	AllowSID  string
	Actions   []string
}

type LockConfig struct {
	Driver    string
	KeyPrefix string
	TTL       time.Duration
	Wait      time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type TimeoutsConfig struct {
	Store time.Duration
	Sync  time.Duration
}

type NotifyConfig struct {
	Enabled    bool
	ServiceURL string
	Timeout    time.Duration
	QueueSize  int
	Workers    int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

type HTTPConfig struct {
	Listen string
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topic   string
}

type SweepConfig struct {
	Schedule string
}

type UsageConfig struct {
	RecordEvents bool
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load reads configuration into v. An explicit path must exist; the default
// location is optional.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}

	setDefaults(v, homeDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", path, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(filepath.Join(homeDir, configDir))
		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := Config{
		Timezone: v.GetString("timezone"),
		Limits: LimitsConfig{
			Daily:        v.GetInt("limits.daily"),
			Monthly:      v.GetInt("limits.monthly"),
			WarningRatio: v.GetFloat64("limits.warning_ratio"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("store.driver")),
			Path:   v.GetString("store.path"),
			DSN:    v.GetString("store.dsn"),
		},
		Policy: PolicyConfig{
			Driver:    strings.ToLower(v.GetString("policy.driver")),
			Path:      v.GetString("policy.path"),
			KeyPrefix: v.GetString("policy.key_prefix"),
			AllowSID:  v.GetString("policy.allow_sid"),
			Actions:   v.GetStringSlice("policy.actions"),
		},
		Lock: LockConfig{
			Driver:    strings.ToLower(v.GetString("lock.driver")),
			KeyPrefix: v.GetString("lock.key_prefix"),
			TTL:       v.GetDuration("lock.ttl"),
			Wait:      v.GetDuration("lock.wait"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Timeouts: TimeoutsConfig{
			Store: v.GetDuration("timeouts.store"),
			Sync:  v.GetDuration("timeouts.sync"),
		},
		Notify: NotifyConfig{
			Enabled:    v.GetBool("notify.enabled"),
			ServiceURL: v.GetString("notify.service_url"),
			Timeout:    v.GetDuration("notify.timeout"),
			QueueSize:  v.GetInt("notify.queue_size"),
			Workers:    v.GetInt("notify.workers"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
			From:     v.GetString("smtp.from"),
		},
		HTTP:  HTTPConfig{Listen: v.GetString("http.listen")},
		Kafka: KafkaConfig{Brokers: v.GetStringSlice("kafka.brokers"), GroupID: v.GetString("kafka.group_id"), Topic: v.GetString("kafka.topic")},
		Sweep: SweepConfig{Schedule: v.GetString("sweep.schedule")},
		Usage: UsageConfig{RecordEvents: v.GetBool("usage.record_events")},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
	}

	if err := cfg.finalize(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, homeDir string) {
	base := filepath.Join(homeDir, dataDir)

	v.SetDefault("timezone", "Europe/Madrid")
	v.SetDefault("limits.daily", domain.DefaultDailyLimit)
	v.SetDefault("limits.monthly", domain.DefaultMonthlyLimit)
	v.SetDefault("limits.warning_ratio", domain.DefaultWarningRatio)
	v.SetDefault("store.driver", StoreDriverTOML)
	v.SetDefault("store.path", filepath.Join(base, "state.toml"))
	v.SetDefault("store.dsn", "")
	v.SetDefault("policy.driver", PolicyDriverFile)
	v.SetDefault("policy.path", filepath.Join(base, "policies"))
	v.SetDefault("policy.key_prefix", "quotaguard:policy:")
	v.SetDefault("policy.allow_sid", domain.DefaultAllowSID)
	v.SetDefault("policy.actions", domain.DefaultMeteredActions)
	v.SetDefault("lock.driver", LockDriverLocal)
	v.SetDefault("lock.key_prefix", "quotaguard:lock:")
	v.SetDefault("lock.ttl", 30*time.Second)
	v.SetDefault("lock.wait", 10*time.Second)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("timeouts.store", 5*time.Second)
	v.SetDefault("timeouts.sync", 10*time.Second)
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.service_url", "")
	v.SetDefault("notify.timeout", 5*time.Second)
	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("notify.workers", 2)
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("http.listen", ":8080")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.group_id", "quotaguard")
	v.SetDefault("kafka.topic", "usage-events")
	v.SetDefault("sweep.schedule", "0 0 * * *")
	v.SetDefault("usage.record_events", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
}

func (c *Config) finalize() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc

	if c.Limits.Daily <= 0 || c.Limits.Monthly <= 0 {
		return fmt.Errorf("limits must be positive (daily %d, monthly %d)", c.Limits.Daily, c.Limits.Monthly)
	}
	if c.Limits.WarningRatio <= 0 || c.Limits.WarningRatio >= 1 {
		return fmt.Errorf("limits.warning_ratio must be in (0, 1), got %v", c.Limits.WarningRatio)
	}

	switch c.Store.Driver {
	case StoreDriverTOML:
		if c.Store.Path == "" {
			return errors.New("store.path is empty")
		}
		absPath, err := filepath.Abs(c.Store.Path)
		if err != nil {
			return fmt.Errorf("resolve store path: %w", err)
		}
		c.Store.Path = filepath.Clean(absPath)
	case StoreDriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported store.driver %q", c.Store.Driver)
	}

	switch c.Policy.Driver {
	case PolicyDriverFile:
		if c.Policy.Path == "" {
			return errors.New("policy.path is empty")
		}
	case PolicyDriverRedis:
	default:
		return fmt.Errorf("unsupported policy.driver %q", c.Policy.Driver)
	}

	switch c.Lock.Driver {
	case LockDriverLocal, LockDriverRedis:
	default:
		return fmt.Errorf("unsupported lock.driver %q", c.Lock.Driver)
	}

	if c.Notify.Enabled && c.Notify.ServiceURL == "" && !c.SMTP.Enabled() {
		return errors.New("notify.enabled requires notify.service_url or smtp.host and smtp.from")
	}

	return nil
}

// DefaultLimits returns the operational defaults for unconfigured accounts.
func (c Config) DefaultLimits() domain.Limits {
	return domain.Limits{Daily: c.Limits.Daily, Monthly: c.Limits.Monthly}
}
