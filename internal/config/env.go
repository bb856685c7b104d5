package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DefaultEnvPaths returns the env files read at startup, lowest precedence
// first: global (~/.config/gitnl/env), then project (.env).
func DefaultEnvPaths() []string {
	return []string{GlobalEnvPath(), ".env"}
}

// LoadEnvFiles loads KEY=VALUE files into the process environment.
// Later files win among themselves. Actual environment variables always win:
// keys already set before loading are never overwritten.
func LoadEnvFiles(paths ...string) {
	merged := make(map[string]string)
	for _, p := range paths {
		mergeEnvFile(merged, p)
	}

	for k, v := range merged {
		if _, set := os.LookupEnv(k); !set {
			_ = os.Setenv(k, v)
		}
	}
}

// mergeEnvFile reads path into dst. Missing or unparsable files are skipped.
func mergeEnvFile(dst map[string]string, path string) {
	envs, err := godotenv.Read(path)
	if err != nil {
		return
	}
	for k, v := range envs {
		dst[k] = v
	}
}

// GlobalEnvPath returns the path to the global gitnl env file.
func GlobalEnvPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "gitnl", "env")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "gitnl", "env")
}
