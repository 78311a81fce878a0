package config

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPPort       string `envconfig:"HTTP_PORT"       default:":5000"`
	LogLevel       string `envconfig:"LOG_LEVEL"       default:"info"`
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"memory"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	DBMaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	SnapshotFile   string `envconfig:"SNAPSHOT_FILE"`
	ImageDir       string `envconfig:"IMAGE_DIR"       default:"data/images"`
}

var (
	config Config
	once   sync.Once
)

func LoadConfig(logger *logrus.Logger) *Config {
	once.Do(func() {
		err := godotenv.Load()
		if err != nil && !os.IsNotExist(err) {
			logger.Warnf("Error loading .env file (but continuing): %v", err)
		} else if err == nil {
			logger.Info("Loaded configuration from .env file")
		}

		if err := envconfig.Process("", &config); err != nil {
			logger.Fatalf("Failed to process configuration from environment variables: %v", err)
		}

		if config.StorageBackend == "postgres" && config.DatabaseURL == "" {
			logger.Fatal("Configuration error: STORAGE_BACKEND=postgres requires DATABASE_URL")
		}
		logger.Infof("Configuration loaded: Port=%s, LogLevel=%s, Storage=%s",
			config.HTTPPort, config.LogLevel, config.StorageBackend)
	})
	return &config
}
