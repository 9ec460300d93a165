package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const DEV_ENV_FILENAME = ".env.development"
const PROD_ENV_FILENAME = ".env.production"

// InitEnvironmentVariables loads the .env file for GO_ENV from dir. A missing
// file is not an error; variables already set in the process win.
func InitEnvironmentVariables(dir string) error {
	if os.Getenv("ENV") == "production" {
		log.Info("Running in production environment")
		return nil
	}

	envFile := filepath.Join(dir, DEV_ENV_FILENAME)
	if os.Getenv("GO_ENV") == "production" {
		envFile = filepath.Join(dir, PROD_ENV_FILENAME)
	}

	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("no env file at %s", envFile)
			return nil
		}

		return fmt.Errorf("failed to load %s file: %v", envFile, err)
	}

	log.Debugf("loaded env file %s", envFile)
	return nil
}

func GetEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s environment variable not set", key)
	}

	return value, nil
}

func GetEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}
