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

package bravia_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telly/internal/bravia"
	"telly/internal/transport"
)

// Test helper to create test client
func createTestClient(serverURL string) *bravia.BraviaClient {
	address := strings.TrimPrefix(serverURL, "http://")
	return bravia.NewBraviaClient(transport.NewClient(time.Second), address, "test-credential", time.Second)
}

func TestCreatePayload(t *testing.T) {
	t.Run("creates payload with params", func(t *testing.T) {
		params := []interface{}{map[string]string{"key1": "value1"}}

		payload := bravia.CreatePayload(123, bravia.GetRemoteControllerInfo, params)

		assert.Equal(t, 123, payload.ID)
		assert.Equal(t, "1.0", payload.Version)
		assert.Equal(t, "getRemoteControllerInfo", payload.Method)
		assert.Equal(t, params, payload.Params)
	})

	t.Run("creates payload without params", func(t *testing.T) {
		payload := bravia.CreatePayload(456, bravia.GetInterfaceInformation, nil)

		data, err := json.Marshal(payload)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":456,"version":"1.0","method":"getInterfaceInformation","params":[]}`, string(data))
	})
}

func TestRemoteRequest(t *testing.T) {
	t.Run("successful IRCC request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "/sony/IRCC", r.URL.Path)

			assert.Equal(t, "text/xml; charset=utf-8", r.Header.Get("Content-Type"))
			assert.Equal(t, "\"urn:schemas-sony-com:service:IRCC:1#X_SendIRCC\"", r.Header.Get("Soapaction"))
			assert.Equal(t, "test-credential", r.Header.Get("X-Auth-Psk"))

			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), "<IRCCCode>AAAAAQAAAAEAAAASAw==</IRCCCode>")
			assert.Contains(t, string(body), `xmlns:u="urn:schemas-sony-com:service:IRCC:1"`)

			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		err := createTestClient(server.URL).RemoteRequest(context.Background(), bravia.VolumeUp)
		assert.NoError(t, err)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))
		}))
		defer server.Close()

		err := createTestClient(server.URL).RemoteRequest(context.Background(), bravia.PowerButton)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})

	t.Run("network error", func(t *testing.T) {
		client := bravia.NewBraviaClient(transport.NewClient(time.Second), "127.0.0.1:1", "x", 200*time.Millisecond)
		err := client.RemoteRequest(context.Background(), bravia.PowerButton)
		assert.Error(t, err)
	})
}

func TestRemoteControllerInfo(t *testing.T) {
	t.Run("decodes code list", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/sony/system", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var payload bravia.BraviaPayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "getRemoteControllerInfo", payload.Method)
			assert.Equal(t, 10, payload.ID)

			w.Write([]byte(`{"id":10,"result":[{"bundled":true,"type":"RM-J1100"},[{"name":"PowerOff","value":"AAAAAQAAAAEAAAAvAw=="},{"name":"VolumeUp","value":"AAAAAQAAAAEAAAASAw=="}]]}`))
		}))
		defer server.Close()

		codes, err := createTestClient(server.URL).RemoteControllerInfo(context.Background())
		require.NoError(t, err)
		require.Len(t, codes, 2)
		assert.Equal(t, "VolumeUp", codes[1].Name)
		assert.Equal(t, bravia.VolumeUp, codes[1].Value)
	})

	t.Run("json-rpc error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":10,"error":[12,"getRemoteControllerInfo"]}`))
		}))
		defer server.Close()

		_, err := createTestClient(server.URL).RemoteControllerInfo(context.Background())
		assert.Error(t, err)
	})

	t.Run("missing code list", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":10,"result":[{}]}`))
		}))
		defer server.Close()

		_, err := createTestClient(server.URL).RemoteControllerInfo(context.Background())
		assert.Error(t, err)
	})
}
