package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/jalad-shrimali/cdr-rollup/calendar"
)

// DateLayout is the format of every date value in env and rule files.
const DateLayout = "2006-01-02"

// Config holds all configuration for the application
type Config struct {
	Port           string
	LogLevel       string
	LogFormat      string // console or json
	AllowedOrigins []string

	UploadDir string
	OutputDir string
	RulesFile string
	LookupDB  string

	Location          *time.Location
	DeploymentCutover time.Time
	MaxUploadBytes    int64

	S3Bucket  string
	S3Prefix  string
	AWSRegion string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "console")),
		UploadDir: getEnv("UPLOAD_DIR", "uploads"),
		OutputDir: getEnv("OUTPUT_DIR", "filtered"),
		RulesFile: os.Getenv("RULES_FILE"),
		LookupDB:  os.Getenv("LOOKUP_DB"),
		S3Bucket:  os.Getenv("S3_BUCKET"),
		S3Prefix:  strings.Trim(os.Getenv("S3_PREFIX"), "/"),
		AWSRegion: os.Getenv("AWS_REGION"),
	}

	for _, origin := range strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	switch cfg.LogFormat {
	case "console", "json":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want console or json", cfg.LogFormat)
	}

	loc, err := time.LoadLocation(getEnv("CDR_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid CDR_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	cutover := getEnv("DEPLOYMENT_CUTOVER", calendar.DefaultCutover.Format(DateLayout))
	cfg.DeploymentCutover, err = time.Parse(DateLayout, cutover)
	if err != nil {
		return nil, fmt.Errorf("invalid DEPLOYMENT_CUTOVER: %w", err)
	}

	mb, err := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "32"))
	if err != nil || mb <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB %q", os.Getenv("MAX_UPLOAD_MB"))
	}
	cfg.MaxUploadBytes = int64(mb) << 20

	return cfg, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
