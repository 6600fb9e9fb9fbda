// Package filestore persists sessions as a single JSON file, optionally
// sealed with a passphrase.
//
// SECURITY: the file holds access tokens.
//   - The file is written with 0600 permissions inside a 0700 directory
//   - Writes go to a temporary file that is renamed into place
//   - With a passphrase the payload is sealed with XChaCha20-Poly1305 under a
//     key derived by Argon2id from the passphrase and a fresh random salt
package filestore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	apperrors "github.com/jrsteele09/github-authentication/internal/errors"
	"github.com/jrsteele09/github-authentication/sessions"
)

const (
	FileName      = "sessions.json"
	formatVersion = 1
	kdfArgon2id   = "argon2id"
	saltLength    = 16
)

// KDFParams tune Argon2id. MemoryKiB is in KiB as required by argon2.IDKey.
type KDFParams struct {
	MemoryKiB   uint32 `json:"memory_kib"`
	Iterations  uint32 `json:"iterations"`
	Parallelism uint8  `json:"parallelism"`
}

// DefaultKDF suits interactive use on a workstation.
var DefaultKDF = KDFParams{
	MemoryKiB:   64 * 1024, // 64 MiB
	Iterations:  3,
	Parallelism: 2,
}

type Options struct {
	Dir        string    // Directory holding the sessions file, created if missing
	Passphrase string    // Empty stores plain JSON
	KDF        KDFParams // Zero value means DefaultKDF
}

// Store is a sessions.Repo backed by one file.
type Store struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
	kdf        KDFParams
}

var _ sessions.Repo = (*Store)(nil)

type kdfHeader struct {
	Algorithm string `json:"alg"`
	Salt      []byte `json:"salt"`
	KDFParams
}

// envelope is the on-disk format. Exactly one of Sessions and Ciphertext is set.
type envelope struct {
	Version    int                `json:"version"`
	Encrypted  bool               `json:"encrypted"`
	KDF        *kdfHeader         `json:"kdf,omitempty"`
	Nonce      []byte             `json:"nonce,omitempty"`
	Ciphertext []byte             `json:"ciphertext,omitempty"`
	Sessions   []sessions.Session `json:"sessions,omitempty"`
}

func New(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("filestore: directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session storage directory: %w", err)
	}

	kdf := opts.KDF
	if kdf == (KDFParams{}) {
		kdf = DefaultKDF
	}
	return &Store{
		path:       filepath.Join(opts.Dir, FileName),
		passphrase: []byte(opts.Passphrase),
		kdf:        kdf,
	}, nil
}

// Path returns the sessions file location.
func (s *Store) Path() string {
	return s.path
}

// Encrypted reports whether saves seal the payload.
func (s *Store) Encrypted() bool {
	return len(s.passphrase) > 0
}

// Load reads the persisted sessions. A missing file is an empty list.
func (s *Store) Load(_ context.Context) ([]sessions.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// #nosec G304 -- path is built from configuration, not request input
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrCorruptData, "sessions file %s: %v", s.path, err)
	}
	if env.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported sessions file version %d", apperrors.ErrCorruptData, env.Version)
	}
	if !env.Encrypted {
		return env.Sessions, nil
	}

	if !s.Encrypted() {
		return nil, fmt.Errorf("%w: sessions file is encrypted and no passphrase is configured", apperrors.ErrWrongPassphrase)
	}
	plaintext, err := s.open(env)
	if err != nil {
		log.Warn().Str("event", "session_file_unseal_failed").Str("path", s.path).Msg("SECURITY_AUDIT: could not decrypt sessions file")
		return nil, err
	}

	var list []sessions.Session
	if err := json.Unmarshal(plaintext, &list); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrCorruptData, "decrypted sessions: %v", err)
	}
	return list, nil
}

// Save replaces the file contents with list.
func (s *Store) Save(_ context.Context, list []sessions.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if list == nil {
		list = []sessions.Session{}
	}

	env := envelope{Version: formatVersion}
	if s.Encrypted() {
		plaintext, err := json.Marshal(list)
		if err != nil {
			return fmt.Errorf("failed to marshal sessions: %w", err)
		}
		if err := s.seal(&env, plaintext); err != nil {
			return err
		}
	} else {
		env.Sessions = list
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions file: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}

	log.Debug().
		Str("event", "sessions_persisted").
		Int("count", len(list)).
		Bool("encrypted", env.Encrypted).
		Msg("SECURITY_AUDIT: sessions written")
	return nil
}

func (s *Store) seal(env *envelope, plaintext []byte) error {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.deriveKey(salt, s.kdf))
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	env.Encrypted = true
	env.KDF = &kdfHeader{Algorithm: kdfArgon2id, Salt: salt, KDFParams: s.kdf}
	env.Nonce = nonce
	env.Ciphertext = aead.Seal(nil, nonce, plaintext, additionalData(env.Version))
	return nil
}

func (s *Store) open(env envelope) ([]byte, error) {
	if env.KDF == nil || env.KDF.Algorithm != kdfArgon2id || len(env.KDF.Salt) == 0 {
		return nil, fmt.Errorf("%w: missing or unknown key derivation header", apperrors.ErrCorruptData)
	}
	aead, err := chacha20poly1305.NewX(s.deriveKey(env.KDF.Salt, env.KDF.KDFParams))
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce length", apperrors.ErrCorruptData)
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, additionalData(env.Version))
	if err != nil {
		return nil, apperrors.ErrWrongPassphrase
	}
	return plaintext, nil
}

func (s *Store) deriveKey(salt []byte, p KDFParams) []byte {
	return argon2.IDKey(s.passphrase, salt, p.Iterations, p.MemoryKiB, p.Parallelism, chacha20poly1305.KeySize)
}

func additionalData(version int) []byte {
	return []byte(fmt.Sprintf("ghauth-sessions-v%d", version))
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+FileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary sessions file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to restrict sessions file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write sessions file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync sessions file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close sessions file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace sessions file: %w", err)
	}
	return nil
}
