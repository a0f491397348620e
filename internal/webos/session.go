package webos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	errRejected = errors.New("registration rejected")
	errTimeout  = errors.New("timed out waiting for the TV")
)

type envelope struct {
	Type    string      `json:"type"`
	ID      string      `json:"id"`
	URI     string      `json:"uri,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

type message struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type responsePayload struct {
	ReturnValue *bool  `json:"returnValue"`
	PairingType string `json:"pairingType"`
	ClientKey   string `json:"client-key"`
	SocketPath  string `json:"socketPath"`
	ErrorText   string `json:"errorText"`
}

func (m message) payload() responsePayload {
	var p responsePayload
	if len(m.Payload) > 0 {
		json.Unmarshal(m.Payload, &p)
	}
	return p
}

type manifest struct {
	ManifestVersion int      `json:"manifestVersion"`
	AppVersion      string   `json:"appVersion"`
	Permissions     []string `json:"permissions"`
}

type registerPayload struct {
	ForcePairing bool     `json:"forcePairing"`
	PairingType  string   `json:"pairingType"`
	ClientKey    string   `json:"client-key,omitempty"`
	Manifest     manifest `json:"manifest"`
}

type inbound struct {
	msg message
	err error
}

// session owns one socket and a single reader goroutine feeding typed messages
type session struct {
	conn   *websocket.Conn
	events chan inbound
	done   chan struct{}
}

func newSession(conn *websocket.Conn) *session {
	s := &session{
		conn:   conn,
		events: make(chan inbound, 8),
		done:   make(chan struct{}),
	}
	go s.read()
	return s
}

func (s *session) read() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case s.events <- inbound{err: err}:
			case <-s.done:
			}
			return
		}
		var m message
		if json.Unmarshal(data, &m) != nil {
			continue
		}
		select {
		case s.events <- inbound{msg: m}:
		case <-s.done:
			return
		}
	}
}

func (s *session) close() {
	close(s.done)
	s.conn.Close()
}

func (s *session) send(env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", env.Type, err)
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) nextID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// await returns the first message with the given id, or errTimeout
func (s *session) await(ctx context.Context, id string, timer *time.Timer) (message, error) {
	for {
		select {
		case <-ctx.Done():
			return message{}, ctx.Err()
		case <-timer.C:
			return message{}, errTimeout
		case in := <-s.events:
			if in.err != nil {
				return message{}, fmt.Errorf("connection closed by TV: %w", in.err)
			}
			if in.msg.ID == id {
				return in.msg, nil
			}
		}
	}
}

// register runs the pairing handshake and returns the client key the TV granted
func (s *session) register(ctx context.Context, clientKey string, timeout time.Duration) (string, error) {
	const id = "register_0"
	err := s.send(envelope{
		Type: "register",
		ID:   id,
		Payload: registerPayload{
			PairingType: "PROMPT",
			ClientKey:   clientKey,
			Manifest: manifest{
				ManifestVersion: 1,
				AppVersion:      "1.0",
				Permissions:     permissions,
			},
		},
	})
	if err != nil {
		return "", err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		m, err := s.await(ctx, id, timer)
		if err != nil {
			return "", err
		}

		p := m.payload()
		switch m.Type {
		case "registered":
			if p.ClientKey != "" {
				return p.ClientKey, nil
			}
			return clientKey, nil
		case "error":
			return "", fmt.Errorf("%w: %s", errRejected, m.Error)
		case "response":
			if p.PairingType == "PROMPT" {
				continue
			}
			if p.ReturnValue != nil && !*p.ReturnValue {
				return "", fmt.Errorf("%w: %s", errRejected, p.ErrorText)
			}
		}
	}
}

// request issues an ssap call and waits for its response
func (s *session) request(ctx context.Context, uri string, payload interface{}, timeout time.Duration) (responsePayload, error) {
	id := s.nextID("req")
	if err := s.send(envelope{Type: "request", ID: id, URI: uri, Payload: payload}); err != nil {
		return responsePayload{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	m, err := s.await(ctx, id, timer)
	if err != nil {
		return responsePayload{}, err
	}

	p := m.payload()
	if m.Type == "error" {
		return p, fmt.Errorf("%s failed: %s", uri, m.Error)
	}
	if p.ReturnValue != nil && !*p.ReturnValue {
		return p, fmt.Errorf("%s failed: %s", uri, p.ErrorText)
	}
	return p, nil
}
