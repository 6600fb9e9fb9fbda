package config

type StorageKind string

const (
	StorageFile   StorageKind = "file"
	StorageSQLite StorageKind = "sqlite"
	StorageMemory StorageKind = "memory"
)

type StorageConfig interface {
	GetStorageKind() StorageKind
	GetPassphrase() string
	GetStorageFolder() string
}

type storageEnv struct {
	Kind       string `env:"GHAUTH_STORAGE"    envDefault:"file"`
	Passphrase string `env:"GHAUTH_PASSPHRASE"`
}

type Storage struct {
	kind       StorageKind
	passphrase string
	folder     string
}

var _ StorageConfig = Storage{}

func (s Storage) GetStorageKind() StorageKind {
	return s.kind
}

// GetPassphrase returns the passphrase sealing the sessions file. Empty
// stores it unencrypted.
func (s Storage) GetPassphrase() string {
	return s.passphrase
}

func (s Storage) GetStorageFolder() string {
	return s.folder
}
