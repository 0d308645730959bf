package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

type Config struct {
	Database  DatabaseConfig
	Embedding EmbeddingConfig
	Matching  MatchingConfig
	Schedule  ScheduleConfig
	Log       LogConfig
	Web       WebConfig
}

const (
	DriverPostgres = "postgres"
	DriverMariaDB  = "mariadb"
)

type DatabaseConfig struct {
	Driver       string // postgres (default) or mariadb
	URL          string // PostgreSQL connection URL
	MariaDBDSN   string // MariaDB DSN (e.g., attendance:attendance@tcp(mariadb:3306)/attendance)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// Configured reports whether the selected driver has a connection string.
func (c *DatabaseConfig) Configured() bool {
	if c.Driver == DriverMariaDB {
		return c.MariaDBDSN != ""
	}
	return c.URL != ""
}

type EmbeddingConfig struct {
	URL          string // defaults to http://localhost:8000
	Dim          int    // defaults to 512 (buffalo_l)
	MaxImageSize int    // frames are downscaled to fit this many pixels per side before detection
}

type MatchingConfig struct {
	Threshold float64 // cosine similarity a match must strictly exceed (default 0.4)
}

type ScheduleConfig struct {
	File string // YAML timetable; empty disables automatic session close
}

type LogConfig struct {
	Level  string
	Format string // console or json
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       strings.ToLower(envString("DATABASE_DRIVER", DriverPostgres)),
			URL:          os.Getenv("DATABASE_URL"),
			MariaDBDSN:   os.Getenv("MARIADB_DSN"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Embedding: EmbeddingConfig{
			URL:          os.Getenv("EMBEDDING_URL"),
			Dim:          envInt("EMBEDDING_DIM", 512),
			MaxImageSize: envInt("EMBEDDING_MAX_IMAGE_SIZE", constants.MaxImageSize),
		},
		Matching: MatchingConfig{
			Threshold: envFloat("MATCH_THRESHOLD", 0.4),
		},
		Schedule: ScheduleConfig{
			File: os.Getenv("SCHEDULE_FILE"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(envString("LOG_LEVEL", "info")),
			Format: strings.ToLower(envString("LOG_FORMAT", "console")),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}
