package bravia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"telly/internal/logger"
	"telly/internal/transport"
)

// errUnauthorized is returned when the TV rejects the pre-shared key
var errUnauthorized = errors.New("pre-shared key rejected")

// BraviaClient represents a client for Sony Bravia TV control
type BraviaClient struct {
	httpClient *http.Client
	host       string
	credential string
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewBraviaClient creates a new Bravia client for host (host:port) authenticated by credential
func NewBraviaClient(httpClient *http.Client, host string, credential string, timeout time.Duration) *BraviaClient {
	return &BraviaClient{
		httpClient: httpClient,
		host:       host,
		credential: credential,
		timeout:    timeout,
		logger:     logger.GetLogger("bravia"),
	}
}

// RemoteRequest sends an IRCC SOAP request for remote control commands
func (c *BraviaClient) RemoteRequest(ctx context.Context, code BraviaRemoteCode) error {
	// SOAP envelope for IRCC command
	soapBody := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
  <s:Body>
    <u:X_SendIRCC xmlns:u="urn:schemas-sony-com:service:IRCC:1">
      <IRCCCode>%s</IRCCCode>
    </u:X_SendIRCC>
  </s:Body>
</s:Envelope>`, string(code))

	url := fmt.Sprintf("http://%s%s", c.host, IRCCEndpoint)
	headers := map[string]string{
		"Content-Type": "text/xml; charset=utf-8",
		"SOAPACTION":   `"urn:schemas-sony-com:service:IRCC:1#X_SendIRCC"`,
		"X-Auth-PSK":   c.credential,
	}

	c.logger.Debug().
		Str("url", url).
		Str("code", string(code)).
		Msg("Sending IRCC remote request")

	resp, err := transport.Do(ctx, c.httpClient, http.MethodPost, url, headers, []byte(soapBody), c.timeout)
	if err != nil {
		return fmt.Errorf("failed to send IRCC request: %w", err)
	}

	if resp.Unauthorized() {
		return errUnauthorized
	}
	if !resp.OK() {
		c.logger.Debug().
			Int("status", resp.StatusCode).
			Str("body", string(resp.Body)).
			Msg("IRCC request failed")
		return fmt.Errorf("IRCC request failed with status %d", resp.StatusCode)
	}

	c.logger.Debug().Int("status", resp.StatusCode).Msg("IRCC request successful")
	return nil
}

// ControlRequest sends a JSON API control request and decodes the reply
func (c *BraviaClient) ControlRequest(ctx context.Context, endpoint BraviaEndpoint, payload BraviaPayload) (*BraviaResponse, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("http://%s%s", c.host, string(endpoint))
	headers := map[string]string{"Content-Type": "application/json"}
	if c.credential != "" {
		headers["X-Auth-PSK"] = c.credential
	}

	c.logger.Debug().
		Str("url", url).
		Str("method", payload.Method).
		Msg("Sending control API request")

	resp, err := transport.Do(ctx, c.httpClient, http.MethodPost, url, headers, jsonData, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to send control request: %w", err)
	}
	if resp.Unauthorized() {
		return nil, errUnauthorized
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%s failed with status %d", payload.Method, resp.StatusCode)
	}

	var out BraviaResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", payload.Method, err)
	}
	if len(out.Error) > 0 {
		if code, ok := out.Error[0].(float64); ok && (code == 401 || code == 403) {
			return nil, errUnauthorized
		}
		return nil, fmt.Errorf("%s failed: %v", payload.Method, out.Error)
	}
	return &out, nil
}

// RemoteControllerInfo fetches the TV's name to IRCC code table
func (c *BraviaClient) RemoteControllerInfo(ctx context.Context) ([]RemoteCode, error) {
	resp, err := c.ControlRequest(ctx, SystemEndpoint, CreatePayload(10, GetRemoteControllerInfo, nil))
	if err != nil {
		return nil, err
	}
	// result is [ {bundled info}, [ {name, value}, ... ] ]
	if len(resp.Result) < 2 {
		return nil, errors.New("remote controller info has no code list")
	}
	var codes []RemoteCode
	if err := json.Unmarshal(resp.Result[1], &codes); err != nil {
		return nil, fmt.Errorf("failed to decode code list: %w", err)
	}
	return codes, nil
}

// CreatePayload creates a basic payload with default values
func CreatePayload(id int, method BraviaMethod, params []interface{}) BraviaPayload {
	if params == nil {
		params = []interface{}{}
	}

	return BraviaPayload{
		ID:      id,
		Version: "1.0",
		Method:  string(method),
		Params:  params,
	}
}
