package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Engine   EngineConfig   `json:"engine"`
	Currency CurrencyConfig `json:"currency"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// EngineConfig tunes pool and waterfall behavior.
type EngineConfig struct {
	FeeBps           int64  `json:"fee_bps"`
	GracePeriodDays  int    `json:"grace_period_days"`
	MinInvestmentBps int64  `json:"min_investment_bps"`
	MaxInvestmentBps int64  `json:"max_investment_bps"`
	Currency         string `json:"currency"`
	PlatformAccount  string `json:"platform_account"`
}

// CurrencyConfig tunes FX quoting and rate locks. Rates are minor units
// of the quote currency per whole unit of the base, keyed "BASE/QUOTE".
type CurrencyConfig struct {
	BufferBps      int64            `json:"buffer_bps"`
	LockTTLMinutes int              `json:"lock_ttl_minutes"`
	Rates          map[string]int64 `json:"rates"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret     string `json:"jwt_secret"`
	TokenTTLHours int    `json:"token_ttl_hours"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "funding_portal",
			SSLMode: "disable",
		},
		Engine: EngineConfig{
			FeeBps:          250,
			GracePeriodDays: 30,
			Currency:        "IDR",
		},
		Currency: CurrencyConfig{
			BufferBps:      50,
			LockTTLMinutes: 30,
			Rates: map[string]int64{
				"USD/IDR": 1550000,
			},
		},
		Security: SecurityConfig{
			TokenTTLHours: 24,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	if config.Security.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required (set JWT_SECRET or security.jwt_secret)")
	}

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			config.Database.Port = p
		}
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if fee := os.Getenv("ENGINE_FEE_BPS"); fee != "" {
		if f, err := strconv.ParseInt(fee, 10, 64); err == nil {
			config.Engine.FeeBps = f
		}
	}
	if grace := os.Getenv("ENGINE_GRACE_PERIOD_DAYS"); grace != "" {
		if g, err := strconv.Atoi(grace); err == nil {
			config.Engine.GracePeriodDays = g
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// GracePeriod returns the default-grace window as a duration.
func (c *EngineConfig) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodDays) * 24 * time.Hour
}

// LockTTL returns the rate-lock lifetime as a duration.
func (c *CurrencyConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMinutes) * time.Minute
}

// TokenTTL returns the session-token lifetime as a duration.
func (c *SecurityConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
