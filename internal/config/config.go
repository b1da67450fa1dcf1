package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	API       APIConfig
	Pipeline  PipelineConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
	Log       LogConfig
}

type APIConfig struct {
	Addr               string
	MaxUploadBytes     int64
	RequestTimeout     time.Duration
	CORSAllowedOrigins []string
}

type PipelineConfig struct {
	MaxOperations int
	MaxPixels     int
}

type RateLimitConfig struct {
	Enabled       bool
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Capacity      int
	Window        time.Duration
	UserIDHeader  string
}

type TracingConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
	ServiceName  string
}

type LogConfig struct {
	Level       string
	Development bool
}

// LoadDotEnv reads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func Load() Config {
	return Config{
		API: APIConfig{
			Addr:               env("PIXELPIPE_API_ADDR", ":8080"),
			MaxUploadBytes:     int64(envInt("API_MAX_UPLOAD_BYTES", 32<<20)),
			RequestTimeout:     envDuration("API_REQUEST_TIMEOUT", 60*time.Second),
			CORSAllowedOrigins: envList("API_CORS_ORIGINS", []string{"*"}),
		},
		Pipeline: PipelineConfig{
			MaxOperations: envInt("PIPELINE_MAX_OPERATIONS", 64),
			MaxPixels:     envInt("PIPELINE_MAX_PIXELS", 64*1024*1024),
		},
		RateLimit: RateLimitConfig{
			Enabled:       envBool("RATE_LIMIT_ENABLED", false),
			Backend:       env("RATE_LIMIT_BACKEND", "redis"),
			RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
			RedisPassword: env("REDIS_PASSWORD", ""),
			RedisDB:       envInt("REDIS_DB", 0),
			Capacity:      envInt("RATE_LIMIT_CAPACITY", 30),
			Window:        envDuration("RATE_LIMIT_WINDOW", time.Minute),
			UserIDHeader:  env("RATE_LIMIT_USER_HEADER", "X-User-ID"),
		},
		Tracing: TracingConfig{
			Exporter:     env("TRACING_EXPORTER", "none"),
			OTLPEndpoint: env("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			OTLPInsecure: envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName:  env("OTEL_SERVICE_NAME", "pixelpipe"),
		},
		Log: LogConfig{
			Level:       env("LOG_LEVEL", "info"),
			Development: envBool("LOG_DEVELOPMENT", false),
		},
	}
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envList(key string, fallback []string) []string {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
