package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Session   SessionConfig   `mapstructure:"session"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	MetricsPort int    `mapstructure:"metrics_port"`
	// PublicURL is the externally reachable base URL encoded into join links.
	PublicURL string `mapstructure:"public_url"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

type SessionConfig struct {
	// TTL and SweepInterval are duration strings ("15m", "60s").
	TTL           string `mapstructure:"ttl"`
	SweepInterval string `mapstructure:"sweep_interval"`
	IDLength      int    `mapstructure:"id_length"`
}

type WebSocketConfig struct {
	PongWait       string `mapstructure:"pong_wait"`
	PingPeriod     string `mapstructure:"ping_period"`
	MaxConnections int    `mapstructure:"max_connections"`
}

var globalConfig Config

func Load(configPath string) error {
	if err := loadConfigFile(configPath, "config", &globalConfig); err != nil {
		return fmt.Errorf("could not load main config file: %v", err)
	}

	setDefaultValues()

	return nil
}

func loadConfigFile(configPath, fileName string, out interface{}) error {
	viper.SetConfigName(fileName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file %s.yaml not found, using only environment variables", fileName)
		}
		return fmt.Errorf("error reading config file %s.yaml: %w", fileName, err)
	}

	if err := viper.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", fileName, err)
	}

	return nil
}

func setDefaultValues() {
	if globalConfig.Server.Port == 0 {
		globalConfig.Server.Port = 8080
	}
	if globalConfig.Server.MetricsPort == 0 {
		globalConfig.Server.MetricsPort = 9090
	}
	if globalConfig.Session.TTL == "" {
		globalConfig.Session.TTL = "15m"
	}
	if globalConfig.Session.SweepInterval == "" {
		globalConfig.Session.SweepInterval = "60s"
	}
	if globalConfig.Session.IDLength == 0 {
		globalConfig.Session.IDLength = 6
	}
	if globalConfig.WebSocket.PongWait == "" {
		globalConfig.WebSocket.PongWait = "45s"
	}
	if globalConfig.WebSocket.PingPeriod == "" {
		globalConfig.WebSocket.PingPeriod = "30s"
	}
	if globalConfig.WebSocket.MaxConnections == 0 {
		globalConfig.WebSocket.MaxConnections = 1024
	}
}

func GetConfig() *Config {
	return &globalConfig
}
