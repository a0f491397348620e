package pairing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"telly/internal/credentials"
	"telly/internal/device"
	"telly/internal/logger"
)

const (
	DefaultTTL      = 10 * time.Minute
	DefaultCapacity = 128
)

// Session is a command suspended on a pairing challenge
type Session struct {
	Profile   device.Profile        `json:"profile"`
	Command   device.Command        `json:"command"`
	Request   device.PairingRequest `json:"request"`
	CreatedAt time.Time             `json:"created_at"`
}

// Store is the persistence the manager mirrors into
type Store interface {
	credentials.Cache
	Keys(namespace string) []string
}

// Manager holds in-flight challenges keyed by credential key
type Manager struct {
	sessions *expirable.LRU[string, Session]
	store    Store
	ttl      time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// NewManager builds the session table and reloads unexpired sessions from store
func NewManager(store Store, ttl time.Duration, capacity int) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	m := &Manager{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.GetLogger("pairing"),
	}
	m.sessions = expirable.NewLRU[string, Session](capacity, m.onEvict, ttl)
	m.reload()
	return m
}

func (m *Manager) onEvict(key string, _ Session) {
	if m.store == nil {
		return
	}
	if err := m.store.Delete(credentials.NamespacePairingSessions, key); err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("Failed to drop pairing session record")
	}
}

func (m *Manager) reload() {
	if m.store == nil {
		return
	}
	for _, key := range m.store.Keys(credentials.NamespacePairingSessions) {
		raw, ok := m.store.Get(credentials.NamespacePairingSessions, key)
		if !ok {
			continue
		}
		var s Session
		if err := json.Unmarshal([]byte(raw), &s); err != nil || m.expired(s) {
			m.store.Delete(credentials.NamespacePairingSessions, key)
			continue
		}
		m.sessions.Add(key, s)
	}
	m.logger.Debug().Int("sessions", m.sessions.Len()).Msg("Pairing sessions reloaded")
}

func (m *Manager) expired(s Session) bool {
	return m.now().Sub(s.CreatedAt) >= m.ttl
}

// Hold records that cmd on p is waiting for the user to answer req
func (m *Manager) Hold(p device.Profile, cmd device.Command, req *device.PairingRequest) error {
	if req == nil {
		return fmt.Errorf("pairing request is required")
	}

	s := Session{
		Profile:   p,
		Command:   cmd,
		Request:   *req,
		CreatedAt: m.now(),
	}
	key := p.CredentialKey()
	m.sessions.Add(key, s)

	if m.store == nil {
		return nil
	}
	return credentials.SetJSON(m.store, credentials.NamespacePairingSessions, key, s)
}

// Lookup returns the unexpired session held for key
func (m *Manager) Lookup(key string) (Session, bool) {
	s, ok := m.sessions.Get(key)
	if !ok {
		return Session{}, false
	}
	if m.expired(s) {
		m.sessions.Remove(key)
		return Session{}, false
	}
	return s, true
}

// Clear drops the session held for key
func (m *Manager) Clear(key string) {
	if !m.sessions.Remove(key) {
		m.onEvict(key, Session{})
	}
}

// Len reports the number of held sessions
func (m *Manager) Len() int {
	return m.sessions.Len()
}
