package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Engine   EngineConfig
	Custody  CustodyConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret string
}

// EngineConfig holds settlement engine settings
type EngineConfig struct {
	FeeRateBps             int64 // fee on profit, basis points
	ResolveIntervalSeconds int64 // auto-resolver poll interval
}

// CustodyConfig holds on-chain custody settings
type CustodyConfig struct {
	Backend          string // "database" or "solana"
	Network          string // "devnet", "testnet", "mainnet-beta"
	TreasuryWallet   string
	TreasuryKey      string
	MinConfirmations int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "options_market"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Engine: EngineConfig{
			FeeRateBps:             getEnvInt64("FEE_RATE_BPS", 200),
			ResolveIntervalSeconds: getEnvInt64("RESOLVE_INTERVAL_SECONDS", 30),
		},
		Custody: CustodyConfig{
			Backend:          getEnv("CUSTODY_BACKEND", "database"),
			Network:          getEnv("SOLANA_NETWORK", "devnet"),
			TreasuryWallet:   getEnv("TREASURY_WALLET", ""),
			TreasuryKey:      getEnv("TREASURY_PRIVATE_KEY", ""),
			MinConfirmations: int(getEnvInt64("MIN_CONFIRMATIONS", 1)),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.Engine.FeeRateBps < 0 || config.Engine.FeeRateBps > 10000 {
		return nil, fmt.Errorf("FEE_RATE_BPS must be between 0 and 10000")
	}

	if config.Custody.Backend == "solana" && config.Custody.TreasuryKey == "" {
		return nil, fmt.Errorf("TREASURY_PRIVATE_KEY is required for solana custody")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt64 gets an integer environment variable with a fallback default
func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}
