package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appDir = "autoreply"

	EnvConfig      = "AUTOREPLY_CONFIG"
	EnvCredentials = "AUTOREPLY_CREDENTIALS"
	EnvToken       = "AUTOREPLY_TOKEN"
)

// DefaultConfigDir returns ~/.config/autoreply
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appDir)
}

// DefaultConfigPath returns the default configuration file path. An existing
// config.yaml or config.yml is preferred over the json default.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	for _, name := range []string{"config.yaml", "config.yml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dir, "config.json")
}

// DefaultCredentialPaths returns the default paths for credentials and token
func DefaultCredentialPaths() (string, string) {
	dir := DefaultConfigDir()
	if dir == "" {
		return "", ""
	}
	return filepath.Join(dir, "credentials.json"), filepath.Join(dir, "token.json")
}

// DefaultJournalPath returns where the reply journal lives unless configured
func DefaultJournalPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "replies.db")
}

// ResolveConfigPath returns the config file path using the following priority:
// 1. CLI flag
// 2. Environment variable AUTOREPLY_CONFIG
// 3. Default path ~/.config/autoreply/config.json
func ResolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return ExpandPath(flagValue)
	}
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		return ExpandPath(envPath)
	}
	return DefaultConfigPath()
}

// ResolveCredentialsPath returns the client secret path: flag, AUTOREPLY_CREDENTIALS, config, default
func ResolveCredentialsPath(flagValue, configValue string) string {
	credPath, _ := DefaultCredentialPaths()
	return resolve(flagValue, EnvCredentials, configValue, credPath)
}

// ResolveTokenPath returns the token path: flag, AUTOREPLY_TOKEN, config, default
func ResolveTokenPath(flagValue, configValue string) string {
	_, tokenPath := DefaultCredentialPaths()
	return resolve(flagValue, EnvToken, configValue, tokenPath)
}

func resolve(flagValue, env, configValue, fallback string) string {
	if flagValue != "" {
		return ExpandPath(flagValue)
	}
	if envPath := os.Getenv(env); envPath != "" {
		return ExpandPath(envPath)
	}
	if configValue != "" {
		return ExpandPath(configValue)
	}
	return fallback
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
