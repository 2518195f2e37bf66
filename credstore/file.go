package credstore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	fileSaltLen  = 16
	fileNonceLen = 24
	fileKeyLen   = 32
)

var errCorruptCredentialFile = errors.New("corrupt credential file")

// FileStore persists credential records as a JSON document on disk,
// optionally encrypted at rest with a passphrase-derived key.
// Intended for single-user deployments (desktop shells, kiosks) where
// neither Redis nor Postgres is around.
type FileStore struct {
	path       string
	passphrase string

	mu     sync.Mutex
	values map[string]string
}

// NewFileStore loads (or creates) the store at path. An empty passphrase
// stores the document in plaintext.
func NewFileStore(path, passphrase string) (*FileStore, error) {
	s := &FileStore{
		path:       path,
		passphrase: passphrase,
		values:     make(map[string]string),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

var _ Store = (*FileStore)(nil)

func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *FileStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.persist()
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return s.persist()
}

func (s *FileStore) DeleteAll(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			delete(s.values, k)
		}
	}
	return s.persist()
}

func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if s.passphrase != "" {
		raw, err = s.decrypt(raw)
		if err != nil {
			return err
		}
	}
	if err := json.Unmarshal(raw, &s.values); err != nil {
		return fmt.Errorf("%w: %v", errCorruptCredentialFile, err)
	}
	return nil
}

func (s *FileStore) persist() error {
	raw, err := json.Marshal(s.values)
	if err != nil {
		return err
	}
	if s.passphrase != "" {
		raw, err = s.encrypt(raw)
		if err != nil {
			return err
		}
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// encrypt produces salt || nonce || secretbox(payload).
func (s *FileStore) encrypt(plain []byte) ([]byte, error) {
	salt := make([]byte, fileSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key, err := s.deriveKey(salt)
	if err != nil {
		return nil, err
	}
	var nonce [fileNonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	out := make([]byte, 0, fileSaltLen+fileNonceLen+len(plain)+secretbox.Overhead)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plain, &nonce, key), nil
}

func (s *FileStore) decrypt(raw []byte) ([]byte, error) {
	if len(raw) < fileSaltLen+fileNonceLen+secretbox.Overhead {
		return nil, errCorruptCredentialFile
	}
	key, err := s.deriveKey(raw[:fileSaltLen])
	if err != nil {
		return nil, err
	}
	var nonce [fileNonceLen]byte
	copy(nonce[:], raw[fileSaltLen:fileSaltLen+fileNonceLen])
	plain, ok := secretbox.Open(nil, raw[fileSaltLen+fileNonceLen:], &nonce, key)
	if !ok {
		return nil, fmt.Errorf("%w: bad passphrase or tampered data", errCorruptCredentialFile)
	}
	return plain, nil
}

func (s *FileStore) deriveKey(salt []byte) (*[fileKeyLen]byte, error) {
	raw, err := scrypt.Key([]byte(s.passphrase), salt, 1<<15, 8, 1, fileKeyLen)
	if err != nil {
		return nil, err
	}
	var key [fileKeyLen]byte
	copy(key[:], raw)
	return &key, nil
}
