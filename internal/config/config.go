// Package config loads service configuration from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ukydev/fleet-maintenance/internal/fleet"
)

// Config represents the overall application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Policy PolicyConfig `yaml:"policy"`
	Mongo  MongoConfig  `yaml:"mongo"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Auth   AuthConfig   `yaml:"auth"`
	Seed   SeedConfig   `yaml:"seed"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            string  `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// PolicyConfig holds the business rules of the fleet store.
type PolicyConfig struct {
	fleet.Policy       `yaml:",inline"`
	ExpiringWindowDays int `yaml:"expiring_window_days"`
}

// MongoConfig holds the event journal connection.
type MongoConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// MQTTConfig holds the event broker connection.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// AuthConfig holds the actor token settings.
type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenExpiry time.Duration `yaml:"token_expiry"`
}

// SeedConfig points at the fixture file loaded at startup.
type SeedConfig struct {
	Path string `yaml:"path"`
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			RateLimitPerSec: 20,
			RateLimitBurst:  40,
			CacheTTLSeconds: 30,
		},
		Policy: PolicyConfig{
			Policy:             fleet.DefaultPolicy(),
			ExpiringWindowDays: 30,
		},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "fleet",
			Collection: "events",
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "fleetd",
			TopicPrefix: "fleet",
			QoS:         1,
		},
		Auth: AuthConfig{
			JWTSecret:   "default-secret-key-change-in-production",
			TokenExpiry: 24 * time.Hour,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the configuration from path, then loads .env and applies
// environment overrides. A missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.WithField("path", path).Debug("No config file, using defaults")
	case err != nil:
		return nil, err
	default:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"PORT":           &c.Server.Port,
		"MONGO_URI":      &c.Mongo.URI,
		"MONGO_DATABASE": &c.Mongo.Database,
		"MQTT_BROKER":    &c.MQTT.Broker,
		"JWT_SECRET":     &c.Auth.JWTSecret,
		"LOG_LEVEL":      &c.Log.Level,
		"SEED_PATH":      &c.Seed.Path,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("MONGO_URI"); ok && v != "" {
		c.Mongo.Enabled = true
	}
	if v, ok := lookup("MQTT_BROKER"); ok && v != "" {
		c.MQTT.Enabled = true
	}
	if v, ok := lookup("JWT_EXPIRY"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("JWT_EXPIRY: %w", err)
		}
		c.Auth.TokenExpiry = d
	}
	if v, ok := lookup("STRICT_STOCK"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STRICT_STOCK: %w", err)
		}
		c.Policy.StrictStock = b
	}
	return nil
}

func (c *Config) normalize() {
	d := Default()
	if c.Server.Port == "" {
		c.Server.Port = d.Server.Port
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = d.Server.RateLimitBurst
	}
	if c.Server.CacheTTLSeconds <= 0 {
		c.Server.CacheTTLSeconds = d.Server.CacheTTLSeconds
	}
	if c.Policy.LowStockThreshold <= 0 {
		c.Policy.LowStockThreshold = d.Policy.LowStockThreshold
	}
	if c.Policy.ExpiringWindowDays <= 0 {
		c.Policy.ExpiringWindowDays = d.Policy.ExpiringWindowDays
	}
	if c.Auth.TokenExpiry <= 0 {
		c.Auth.TokenExpiry = d.Auth.TokenExpiry
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = d.Mongo.Collection
	}
}

// CacheTTL is the notification cache lifetime.
func (s ServerConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// ExpiringWindow is how far ahead a document counts as expiring soon.
func (p PolicyConfig) ExpiringWindow() time.Duration {
	return time.Duration(p.ExpiringWindowDays) * 24 * time.Hour
}

// Apply configures logger from the settings.
func (l LogConfig) Apply(logger *log.Logger) error {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)
	switch l.Format {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("log format %q: want text or json", l.Format)
	}
	return nil
}
