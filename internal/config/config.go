package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	apperrors "github.com/jrsteele09/github-authentication/internal/errors"
)

type Config interface {
	EnvConfig
	OAuthConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetDataFolder() string
}

type mainConfig struct {
	EnvVars
	OAuth
	Storage
}

var _ Config = mainConfig{}

// rawEnv holds the raw environment values.
type rawEnv struct {
	AppName    string `env:"GHAUTH_APP_NAME"    envDefault:"ghauth"`
	Env        string `env:"GHAUTH_ENV"         envDefault:"DEV"`
	LogLevel   string `env:"GHAUTH_LOG_LEVEL"   envDefault:"info"`
	DataFolder string `env:"GHAUTH_DATA_FOLDER"`

	OAuth   oauthEnv
	Storage storageEnv
}

// New loads the configuration from the environment.
func New() (Config, error) {
	var raw rawEnv
	if err := ParseEnv(&raw); err != nil {
		return nil, err
	}

	kind := StorageKind(raw.Storage.Kind)
	switch kind {
	case StorageFile, StorageSQLite, StorageMemory:
	default:
		return nil, fmt.Errorf("%w: GHAUTH_STORAGE=%q", apperrors.ErrUnsupportedStore, raw.Storage.Kind)
	}

	vars := EnvVars{
		appName:    raw.AppName,
		env:        raw.Env,
		logLevel:   raw.LogLevel,
		dataFolder: raw.DataFolder,
	}
	return mainConfig{
		EnvVars: vars,
		OAuth:   OAuth{raw: raw.OAuth},
		Storage: Storage{kind: kind, passphrase: raw.Storage.Passphrase, folder: vars.GetDataFolder()},
	}, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
