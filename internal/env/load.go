// Package env loads process environment from an optional .env file.
package env

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// LoadEnv loads the given .env files, or ./.env when none are given.
// Missing files are not an error; variables already set win.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logrus.Debug("No .env file found, assuming environment variables are set directly.")
			return
		}
		logrus.Warnf("Failed to load .env file: %v", err)
	}
}

// Lookup returns the variable or fallback when unset.
func Lookup(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
