// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package credentials

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"telly/internal/logger"
)

// Namespaces hold one kind of secret each, keyed by Profile.CredentialKey
const (
	NamespaceSamsungTokens   = "samsung.tokens"
	NamespaceSamsungPins     = "samsung.pins"
	NamespaceLGClientKeys    = "lg.client_keys"
	NamespaceSonyPSK         = "sony.psk"
	NamespaceSonyCodes       = "sony.codes"
	NamespaceVizioAuth       = "vizio.auth"
	NamespacePairingSessions = "pairing.sessions"
)

// Namespaces lists every namespace a profile can own records in
func Namespaces() []string {
	return []string{
		NamespaceSamsungTokens,
		NamespaceSamsungPins,
		NamespaceLGClientKeys,
		NamespaceSonyPSK,
		NamespaceSonyCodes,
		NamespaceVizioAuth,
		NamespacePairingSessions,
	}
}

// Cache is the view adapters have of the credential store
type Cache interface {
	Get(namespace, key string) (string, bool)
	Set(namespace, key, value string) error
	Delete(namespace, key string) error
}

// Store is an in-memory credential map mirrored to sqlite on every change.
// A Store without a database keeps records for the process lifetime only.
type Store struct {
	mu      sync.RWMutex
	records map[string]map[string]string
	db      *sql.DB
	sealer  *sealer
	logger  zerolog.Logger
}

// Option configures a Store
type Option func(*Store) error

// WithPassphrase encrypts values at rest with a key derived from passphrase
func WithPassphrase(passphrase string) Option {
	return func(s *Store) error {
		if passphrase == "" {
			return nil
		}
		if s.db == nil {
			return fmt.Errorf("encryption requires a database-backed store")
		}
		salt, err := s.loadOrCreateSalt()
		if err != nil {
			return err
		}
		sl, err := newSealer(passphrase, salt)
		if err != nil {
			return err
		}
		s.sealer = sl
		return nil
	}
}

// NewMemoryStore returns a Store that never touches disk
func NewMemoryStore() *Store {
	return &Store{
		records: make(map[string]map[string]string),
		logger:  logger.GetLogger("credentials"),
	}
}

// Open opens or creates the sqlite database at dbPath and loads every record
func Open(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	s := NewMemoryStore()
	s.db = db

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			db.Close()
			return nil, err
		}
	}

	if err := s.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	return s, nil
}

// Close closes the underlying database, if any
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS credentials (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (namespace, key)
		)`,
		`CREATE TABLE IF NOT EXISTS store_meta (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT namespace, key, value FROM credentials`)
	if err != nil {
		return err
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	for rows.Next() {
		var ns, key, value string
		if err := rows.Scan(&ns, &key, &value); err != nil {
			return err
		}
		plain, err := s.open(value)
		if err != nil {
			// Unreadable records count as absent; the next write replaces them.
			s.logger.Warn().Err(err).Str("namespace", ns).Msg("Skipping unreadable credential")
			continue
		}
		s.put(ns, key, plain)
	}
	return rows.Err()
}

// Get returns the value stored under namespace/key
func (s *Store) Get(namespace, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[namespace][key]
	return v, ok
}

// Set stores value and mirrors it to the database
func (s *Store) Set(namespace, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		sealed, err := s.seal(value)
		if err != nil {
			return err
		}
		_, err = s.db.Exec(`
			INSERT INTO credentials (namespace, key, value, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(namespace, key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, namespace, key, sealed, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to store credential: %w", err)
		}
	}

	s.put(namespace, key, value)
	s.logger.Debug().Str("namespace", namespace).Str("key", key).Msg("Credential stored")
	return nil
}

// Delete removes namespace/key; deleting an absent record is not an error
func (s *Store) Delete(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if _, err := s.db.Exec(`DELETE FROM credentials WHERE namespace = ? AND key = ?`, namespace, key); err != nil {
			return fmt.Errorf("failed to delete credential: %w", err)
		}
	}

	if m, ok := s.records[namespace]; ok {
		delete(m, key)
		if len(m) == 0 {
			delete(s.records, namespace)
		}
	}
	return nil
}

// DeleteKey removes the records for key from every namespace
func (s *Store) DeleteKey(key string) error {
	for _, ns := range Namespaces() {
		if err := s.Delete(ns, key); err != nil {
			return err
		}
	}
	return nil
}

// Keys lists the keys present in namespace, sorted
func (s *Store) Keys(namespace string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.records[namespace]))
	for k := range s.records[namespace] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) put(namespace, key, value string) {
	m, ok := s.records[namespace]
	if !ok {
		m = make(map[string]string)
		s.records[namespace] = m
	}
	m[key] = value
}

// GetJSON decodes a structured record into v. A missing record returns false.
func GetJSON(c Cache, namespace, key string, v interface{}) (bool, error) {
	raw, ok := c.Get(namespace, key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode %s record: %w", namespace, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it as a structured record
func SetJSON(c Cache, namespace, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", namespace, err)
	}
	return c.Set(namespace, key, string(data))
}
