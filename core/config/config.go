package config

import (
	"fmt"
	"sync"

	"meetsync/core/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret           string
	AccessTTLMinutes int
	RefreshTTLHours  int
}

type GoogleAPIConfig struct {
	ClientID         string
	ClientSecret     string
	MeetRefreshToken string
}

type ZoomConfig struct {
	AccountID    string
	ClientID     string
	ClientSecret string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	GoogleAPI GoogleAPIConfig
	Zoom      ZoomConfig
	S3        S3Config
}

var (
	instance *Config
	mu       sync.RWMutex
)

// Load reads configuration from environment variables (a local .env file is
// loaded first when present) and stores the singleton.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info("config: no .env file found, using environment")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", 7070)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "meetsync")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_ACCESS_TTL_MINUTES", 60)
	v.SetDefault("JWT_REFRESH_TTL_HOURS", 720)
	v.SetDefault("S3_REGION", "ap-southeast-1")

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("SERVER_PORT"),
			Env:  v.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:           v.GetString("JWT_SECRET"),
			AccessTTLMinutes: v.GetInt("JWT_ACCESS_TTL_MINUTES"),
			RefreshTTLHours:  v.GetInt("JWT_REFRESH_TTL_HOURS"),
		},
		GoogleAPI: GoogleAPIConfig{
			ClientID:         v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret:     v.GetString("GOOGLE_CLIENT_SECRET"),
			MeetRefreshToken: v.GetString("GOOGLE_MEET_REFRESH_TOKEN"),
		},
		Zoom: ZoomConfig{
			AccountID:    v.GetString("ZOOM_ACCOUNT_ID"),
			ClientID:     v.GetString("ZOOM_CLIENT_ID"),
			ClientSecret: v.GetString("ZOOM_CLIENT_SECRET"),
		},
		S3: S3Config{
			Region:          v.GetString("S3_REGION"),
			Bucket:          v.GetString("S3_BUCKET"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			PublicBaseURL:   v.GetString("S3_PUBLIC_BASE_URL"),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	mu.Lock()
	instance = cfg
	mu.Unlock()

	return cfg, nil
}

// Get returns the loaded configuration, panicking if Load was never called.
func Get() *Config {
	cfg, ok := GetSafe()
	if !ok {
		panic("config: Get called before Load")
	}
	return cfg
}

// GetSafe returns the loaded configuration and whether it is available.
func GetSafe() (*Config, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return instance, instance != nil
}

// SetForTesting installs a config instance for tests.
func SetForTesting(cfg *Config) {
	mu.Lock()
	instance = cfg
	mu.Unlock()
}
