package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Mission and vote timeout policies. The engine has no defaults of its own;
// these decide what a silent player is assumed to have submitted.
const (
	POLICY_NONE    = "none"
	POLICY_APPROVE = "approve"
	POLICY_REJECT  = "reject"
	POLICY_SUCCESS = "success"
	POLICY_FAIL    = "fail"
)

const (
	STORAGE_MEMORY = "memory"
	STORAGE_SQLITE = "sqlite"
)

type AppConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	StorageDriver string `mapstructure:"storage_driver"`
	StoragePath   string `mapstructure:"storage_path"`

	VoteTimeoutSeconds    int    `mapstructure:"vote_timeout_seconds"`
	VoteTimeoutPolicy     string `mapstructure:"vote_timeout_policy"`
	MissionTimeoutSeconds int    `mapstructure:"mission_timeout_seconds"`
	MissionTimeoutPolicy  string `mapstructure:"mission_timeout_policy"`

	RoomIdleMinutes int `mapstructure:"room_idle_minutes"`
}

func (c *AppConfig) VoteTimeout() time.Duration {
	return time.Duration(c.VoteTimeoutSeconds) * time.Second
}

func (c *AppConfig) MissionTimeout() time.Duration {
	return time.Duration(c.MissionTimeoutSeconds) * time.Second
}

func (c *AppConfig) RoomIdle() time.Duration {
	return time.Duration(c.RoomIdleMinutes) * time.Minute
}

var cfg *AppConfig

func GetConfig() *AppConfig {
	if cfg == nil {
		cfg = InitConfig()
	}

	return cfg
}

func InitConfig() *AppConfig {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("app_config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	config, err := loadConfig(v)
	if err != nil {
		panic(err)
	}

	return config
}

func loadConfig(v *viper.Viper) (*AppConfig, error) {
	setDefaults(v)

	v.SetEnvPrefix("AVALON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("storage_driver", STORAGE_MEMORY)
	v.SetDefault("storage_path", "avalon.db")
	v.SetDefault("vote_timeout_seconds", 0)
	v.SetDefault("vote_timeout_policy", POLICY_NONE)
	v.SetDefault("mission_timeout_seconds", 0)
	v.SetDefault("mission_timeout_policy", POLICY_NONE)
	v.SetDefault("room_idle_minutes", 30)
}

func (c *AppConfig) validate() error {
	switch c.StorageDriver {
	case STORAGE_MEMORY, STORAGE_SQLITE:
	default:
		return fmt.Errorf("invalid storage_driver %q", c.StorageDriver)
	}

	switch c.VoteTimeoutPolicy {
	case POLICY_NONE, POLICY_APPROVE, POLICY_REJECT:
	default:
		return fmt.Errorf("invalid vote_timeout_policy %q", c.VoteTimeoutPolicy)
	}

	switch c.MissionTimeoutPolicy {
	case POLICY_NONE, POLICY_SUCCESS, POLICY_FAIL:
	default:
		return fmt.Errorf("invalid mission_timeout_policy %q", c.MissionTimeoutPolicy)
	}

	if c.VoteTimeoutSeconds < 0 || c.MissionTimeoutSeconds < 0 {
		return errors.New("timeouts cannot be negative")
	}

	return nil
}
