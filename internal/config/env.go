package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// LoadEnv loads .env files from dir into the process environment. Variables
// already set in the environment win.
func LoadEnv(dir string, logger *logrus.Logger) []string {
	var loaded []string
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if logger != nil {
				logger.WithError(err).Warnf("failed to load %s", path)
			}
			continue
		}
		loaded = append(loaded, path)
	}
	if logger != nil && len(loaded) > 0 {
		logger.Debugf("loaded env files: %s", strings.Join(loaded, ", "))
	}
	return loaded
}
