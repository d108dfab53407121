package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eleven-am/wastelens/internal/detection"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr  string
	LogLevel    string
	CORSOrigins []string

	DetectAPIURL     string
	DetectTimeout    time.Duration
	DetectConfidence float64
	DetectModel      string
	DetectFallback   string

	MaxBody string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
}

// LoadConfig reads the environment, after loading a .env file if present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddr:  getEnv("SERVER_ADDR", ":8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),

		DetectAPIURL:     getEnv("DETECT_API_URL", "http://127.0.0.1:5000"),
		DetectTimeout:    getEnvDuration("DETECT_TIMEOUT", 30*time.Second),
		DetectConfidence: getEnvFloat("DETECT_CONFIDENCE", detection.DefaultConfidenceThreshold),
		DetectModel:      getEnv("DETECT_MODEL", "yolov8"),
		DetectFallback:   getEnv("DETECT_FALLBACK", "none"),

		MaxBody: getEnv("MAX_BODY", "10M"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 10*time.Minute),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
