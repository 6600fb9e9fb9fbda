package config

import (
	"os"
	"path/filepath"
)

const defaultFolderName = "ghauth"

type EnvVars struct {
	appName    string
	env        string
	logLevel   string
	dataFolder string
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.appName
}

func (e EnvVars) GetEnv() string {
	if e.env == "" {
		return "DEV"
	}
	return e.env
}

func (e EnvVars) GetLogLevel() string {
	return e.logLevel
}

// GetDataFolder returns the folder holding persisted sessions, by default
// ghauth under the user's configuration directory.
func (e EnvVars) GetDataFolder() string {
	if e.dataFolder != "" {
		return e.dataFolder
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "data")
	}
	return filepath.Join(dir, defaultFolderName)
}
