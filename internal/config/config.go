// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port           string
	Environment    string
	DatabaseURL    string
	JWTSecret      string
	AllowedOrigins []string
	MinIO          MinIOConfig
}

type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Bucket          string
}

// Load reads configuration from the environment, loading a .env file
// first when one is present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("APP_ENV", "development"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: allowedOrigins(),
		MinIO: MinIOConfig{
			Endpoint:        getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     os.Getenv("MINIO_ACCESS_KEY"),
			SecretAccessKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:          getEnvBool("MINIO_USE_SSL", false),
			Bucket:          getEnv("MINIO_BUCKET", "flare-trials"),
		},
	}

	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET is not set in the environment")
	}
	if cfg.DatabaseURL == "" {
		logrus.Fatal("DATABASE_URL is not set in the environment")
	}

	return cfg
}

func (c *Config) Production() bool {
	return c.Environment == "production"
}

// allowedOrigins is the CORS allow-list: the known frontend origins plus
// anything supplied through ALLOWED_ORIGINS (comma separated) and
// FRONTEND_URL.
func allowedOrigins() []string {
	origins := []string{
		"http://localhost:3000",
		"http://localhost:3001",
		"http://127.0.0.1:3000",
		"https://my-flare.com",
		"https://www.my-flare.com",
		"http://my-flare.com",
		"http://www.my-flare.com",
	}
	for _, extra := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if extra = strings.TrimSpace(extra); extra != "" {
			origins = append(origins, extra)
		}
	}
	if frontend := os.Getenv("FRONTEND_URL"); frontend != "" {
		origins = append(origins, frontend)
	}
	return origins
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
