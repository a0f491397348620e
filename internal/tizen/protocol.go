// Package tizen implements the Samsung remote-control websocket exchange
// shared by the plain and the certificate-pinned transports.
package tizen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"telly/internal/transport"
)

const (
	ChannelPath = "/api/v2/channels/samsung.remote.control"

	eventConnect      = "ms.channel.connect"
	eventUnauthorized = "ms.channel.unauthorized"
	eventTimeout      = "ms.channel.timeOut"
)

var (
	// ErrUnauthorized means the TV refused the presented token or the user denied the prompt
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTimeout means neither a connect nor an unauthorized event arrived in time
	ErrTimeout = errors.New("timed out waiting for the TV")
	// ErrClosed means the TV closed the socket before answering
	ErrClosed = errors.New("connection closed by TV")
)

// URL builds the remote-control channel address
func URL(scheme, hostport, appName, token string) string {
	q := url.Values{}
	q.Set("name", transport.Base64(appName))
	if token != "" {
		q.Set("token", token)
	}
	u := url.URL{Scheme: scheme, Host: hostport, Path: ChannelPath, RawQuery: q.Encode()}
	return u.String()
}

type keyParams struct {
	Cmd          string `json:"Cmd"`
	DataOfCmd    string `json:"DataOfCmd"`
	Option       string `json:"Option"`
	TypeOfRemote string `json:"TypeOfRemote"`
}

type keyFrame struct {
	Method string    `json:"method"`
	Params keyParams `json:"params"`
}

// KeyFrame encodes a single key click
func KeyFrame(key string) ([]byte, error) {
	return json.Marshal(keyFrame{
		Method: "ms.remote.control",
		Params: keyParams{
			Cmd:          "Click",
			DataOfCmd:    key,
			Option:       "false",
			TypeOfRemote: "SendRemoteKey",
		},
	})
}

// Event is a decoded channel message
type Event struct {
	Event string `json:"event"`
	Data  struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Outcome is the successful result of an exchange
type Outcome struct {
	Token string
}

type readResult struct {
	ev  Event
	err error
}

// Exchange sends key on conn and waits for the TV's verdict.
// The caller owns conn and must close it; closing it ends the reader.
func Exchange(ctx context.Context, conn *websocket.Conn, key string, timeout time.Duration) (Outcome, error) {
	frame, err := KeyFrame(key)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to encode key frame: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return Outcome{}, fmt.Errorf("failed to send key frame: %w", err)
	}

	done := make(chan struct{})
	defer close(done)

	events := make(chan readResult, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				select {
				case events <- readResult{err: err}:
				case <-done:
				}
				return
			}
			var ev Event
			if json.Unmarshal(data, &ev) != nil {
				continue
			}
			select {
			case events <- readResult{ev: ev}:
			case <-done:
				return
			}
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case <-timer.C:
			return Outcome{}, ErrTimeout
		case r := <-events:
			if r.err != nil {
				return Outcome{}, fmt.Errorf("%w: %v", ErrClosed, r.err)
			}
			switch r.ev.Event {
			case eventConnect:
				return Outcome{Token: r.ev.Data.Token}, nil
			case eventUnauthorized, eventTimeout:
				return Outcome{}, ErrUnauthorized
			}
		}
	}
}
