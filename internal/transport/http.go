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

package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

const (
	// DefaultRequestTimeout bounds a single command request
	DefaultRequestTimeout = 5 * time.Second
	// DefaultProbeTimeout bounds a fingerprint probe
	DefaultProbeTimeout = 1200 * time.Millisecond

	maxBodyBytes = 1 << 20
)

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Unauthorized reports a 401 or 403 status
func (r *Response) Unauthorized() bool {
	return r.StatusCode == http.StatusUnauthorized || r.StatusCode == http.StatusForbidden
}

// NewClient returns a pooled client with a hard timeout
func NewClient(timeout time.Duration) *http.Client {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = timeout
	return client
}

// NewInsecureClient returns a pooled client that accepts self-signed TV certificates
func NewInsecureClient(timeout time.Duration) *http.Client {
	tr := cleanhttp.DefaultPooledTransport()
	tr.TLSClientConfig = InsecureTLSConfig()
	return &http.Client{Transport: tr, Timeout: timeout}
}

// InsecureTLSConfig skips verification and emits the process-wide warning once
func InsecureTLSConfig() *tls.Config {
	WarnInsecure()
	return &tls.Config{InsecureSkipVerify: true} //nolint:gosec // TVs ship self-signed certificates
}

// NewRetryingClient retries transport failures and 5xx responses up to retries times
func NewRetryingClient(timeout time.Duration, retries int, log zerolog.Logger) *http.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = NewClient(timeout)
	rc.RetryMax = retries
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 500 * time.Millisecond
	rc.Logger = leveledLogger{log: log}
	// hand the last response back once retries run out
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc.StandardClient()
}

// Do sends a request bounded by timeout and reads the whole body
func Do(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body []byte, timeout time.Duration) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// PortOpen reports whether a TCP connection to host:port succeeds within timeout
func PortOpen(ctx context.Context, host string, port int, timeout time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// AnyPortOpen checks ports in order and stops at the first open one
func AnyPortOpen(ctx context.Context, host string, ports []int, timeout time.Duration) bool {
	for _, port := range ports {
		if PortOpen(ctx, host, port, timeout) {
			return true
		}
	}
	return false
}

// HostPort formats an address, preferring the profile port over the default
func HostPort(host string, port, fallback int) string {
	if port <= 0 {
		port = fallback
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Base64 encodes s with the standard alphabet
func Base64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.Error().Fields(kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.Warn().Fields(kv).Msg(msg) }
