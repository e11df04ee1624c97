package config

import (
	"os"
	"path/filepath"
	"strconv"
)

const (
	appNameVar      = "APP_NAME"
	folderEnvVar    = "FOLDER"
	callbackPortVar = "CALLBACK_PORT"

	defaultCallbackPort = 3000
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Intra Companion")
}

// GetDataFolder returns the folder used for persisted session data.
// Defaults to ~/.config/intra-companion, falling back to ./data when the
// home directory cannot be resolved.
func (EnvVars) GetDataFolder() string {
	if folder := os.Getenv(folderEnvVar); folder != "" {
		return folder
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(homeDir, ".config", "intra-companion")
}

// GetCallbackPort returns the local port used to capture the OAuth redirect.
func (EnvVars) GetCallbackPort() int {
	port, err := strconv.Atoi(GetEnv(callbackPortVar, ""))
	if err != nil || port <= 0 {
		return defaultCallbackPort
	}
	return port
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
