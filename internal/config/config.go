package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	Database  DatabaseConfig
	SAP       SAPConfig
	Gemini    GeminiConfig
	Matching  MatchingConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Alter    bool
}

// SAPConfig holds the S/4HANA gateway connection settings
type SAPConfig struct {
	BaseURL     string
	Username    string
	Password    string
	CompanyCode string
	Currency    string
}

// GeminiConfig holds the AI fallback settings
type GeminiConfig struct {
	APIKey string
	Model  string
}

// MatchingConfig holds the resolution and reconciliation thresholds
type MatchingConfig struct {
	FuzzyThreshold       float64
	AIConfidenceFloor    float64
	DescriptionThreshold float64
	PriceTolerance       float64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	sapURL := os.Getenv("SAP_BASE_URL")
	if sapURL == "" {
		return nil, fmt.Errorf("SAP_BASE_URL is required")
	}

	return &Config{
		NodeEnv:   getEnv("NODE_ENV", "development"),
		Port:      getEnv("PORT", "3001"),
		JWTSecret: jwtSecret,
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "facturaflow"),
			Alter:    getEnv("DB_ALTER", "false") == "true",
		},
		SAP: SAPConfig{
			BaseURL:     sapURL,
			Username:    os.Getenv("SAP_USERNAME"),
			Password:    os.Getenv("SAP_PASSWORD"),
			CompanyCode: getEnv("SAP_COMPANY_CODE", "1000"),
			Currency:    getEnv("SAP_CURRENCY", "BOB"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
		},
		Matching: MatchingConfig{
			FuzzyThreshold:       getEnvFloat("MATCH_FUZZY_THRESHOLD", 0.60),
			AIConfidenceFloor:    getEnvFloat("MATCH_AI_CONFIDENCE_FLOOR", 0.70),
			DescriptionThreshold: getEnvFloat("MATCH_DESCRIPTION_THRESHOLD", 0.75),
			PriceTolerance:       getEnvFloat("MATCH_PRICE_TOLERANCE", 0.02),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
