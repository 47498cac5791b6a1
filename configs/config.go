package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Publisher struct {
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	PublishTimeout time.Duration
	RefreshMargin  time.Duration
}

type Config struct {
	GoogleClientID       string
	GoogleClientSecret   string
	GoogleRedirectURI    string
	LinkedinClientID     string
	LinkedinClientSecret string
	LinkedinRedirectURI  string
	LinkedinScopes       string
	PostgresURI          string
	MigrationsPath       string
	RedisURI             string
	FrontendURL          string
	R2                   R2
	Publisher            Publisher
	SecretKey            string
	CookieName           string
}

func LoadConfig() *Config {
	return &Config{
		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:    getEnv("GOOGLE_REDIRECT_URI", "http://localhost:3000/login/callback"),
		LinkedinClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
		LinkedinClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
		LinkedinRedirectURI:  getEnv("LINKEDIN_REDIRECT_URI", ""),
		LinkedinScopes:       getEnv("LINKEDIN_SCOPES", "openid profile email w_member_social"),
		PostgresURI:          getEnv("POSTGRES_URI", ""),
		MigrationsPath:       getEnv("MIGRATIONS_PATH", "file://migrations"),
		RedisURI:             getEnv("REDIS_URI", ""),
		FrontendURL:          getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
		},
		Publisher: Publisher{
			MaxRetries:     getEnvInt("PUBLISHER_MAX_RETRIES", 3),
			BackoffBase:    getEnvDuration("PUBLISHER_BACKOFF_BASE", 2*time.Minute),
			BackoffMax:     getEnvDuration("PUBLISHER_BACKOFF_MAX", 30*time.Minute),
			PublishTimeout: getEnvDuration("PUBLISHER_TIMEOUT", 30*time.Second),
			RefreshMargin:  getEnvDuration("TOKEN_REFRESH_MARGIN", 5*time.Minute),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "pq_session"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
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
