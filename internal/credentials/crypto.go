package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// encPrefix marks encrypted values. Values without it are plaintext.
	encPrefix = "enc:v1:"

	saltSize = 16
	keySize  = 32

	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 2
)

type sealer struct {
	aead cipher.AEAD
}

func newSealer(passphrase string, salt []byte) (*sealer, error) {
	key := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, keySize)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &sealer{aead: aead}, nil
}

func (sl *sealer) encrypt(plaintext string) (string, error) {
	nonce := make([]byte, sl.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := sl.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return encPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (sl *sealer) decrypt(value string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	ns := sl.aead.NonceSize()
	if len(data) < ns {
		return "", errors.New("ciphertext too short")
	}
	plain, err := sl.aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}
	return string(plain), nil
}

func (s *Store) seal(value string) (string, error) {
	if s.sealer == nil {
		return value, nil
	}
	return s.sealer.encrypt(value)
}

func (s *Store) open(value string) (string, error) {
	if !strings.HasPrefix(value, encPrefix) {
		return value, nil
	}
	if s.sealer == nil {
		return "", errors.New("credential is encrypted but no passphrase was configured")
	}
	return s.sealer.decrypt(value)
}

func (s *Store) loadOrCreateSalt() ([]byte, error) {
	var encoded string
	err := s.db.QueryRow(`SELECT value FROM store_meta WHERE name = 'kdf_salt'`).Scan(&encoded)
	switch {
	case err == nil:
		salt, err := hex.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode salt: %w", err)
		}
		return salt, nil
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("failed to read salt: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if _, err := s.db.Exec(`INSERT INTO store_meta (name, value) VALUES ('kdf_salt', ?)`, hex.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("failed to store salt: %w", err)
	}
	return salt, nil
}
