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

// Package api exposes dispatch, pairing and discovery over a local HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"telly/internal/device"
	"telly/internal/discovery"
	"telly/internal/logger"
)

// Dispatcher is the command and pairing surface the API drives
type Dispatcher interface {
	Dispatch(ctx context.Context, p device.Profile, cmd device.Command) device.Result
	CompletePairing(ctx context.Context, p device.Profile, secret string, challenge *device.PairingRequest) device.Result
	ClearCredentials(p device.Profile) error
}

// Scanner streams discovery results
type Scanner interface {
	Scan(ctx context.Context, opts discovery.Options) <-chan device.DiscoveredDevice
}

// Options configures the API server
type Options struct {
	// JWT guards /api/v1 when non-nil
	JWT          *JWTService
	ScanDefaults discovery.Options
	Timeout      time.Duration
}

// Server handles REST API requests
type Server struct {
	dispatcher Dispatcher
	scanner    Scanner
	profiles   []device.Profile
	opts       Options
	router     *mux.Router
	server     *http.Server
	logger     zerolog.Logger
}

type dispatchRequest struct {
	ProfileID string          `json:"profile_id,omitempty"`
	Profile   *device.Profile `json:"profile,omitempty"`
	Command   string          `json:"command"`
}

type pairingRequest struct {
	ProfileID string                 `json:"profile_id,omitempty"`
	Profile   *device.Profile        `json:"profile,omitempty"`
	Secret    string                 `json:"secret"`
	Challenge *device.PairingRequest `json:"challenge,omitempty"`
}

// NewServer wires the routes
func NewServer(dispatcher Dispatcher, scanner Scanner, profiles []device.Profile, opts Options) *Server {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	s := &Server{
		dispatcher: dispatcher,
		scanner:    scanner,
		profiles:   profiles,
		opts:       opts,
		logger:     logger.GetLogger("api"),
	}

	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)
	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	if opts.JWT != nil {
		apiRouter.Use(opts.JWT.RequireAuth)
	}
	apiRouter.HandleFunc("/tvs", s.handleListTVs).Methods("GET")
	apiRouter.HandleFunc("/tvs/{id}/credentials", s.handleClearCredentials).Methods("DELETE")
	apiRouter.HandleFunc("/dispatch", s.handleDispatch).Methods("POST")
	apiRouter.HandleFunc("/pairing/complete", s.handleCompletePairing).Methods("POST")
	apiRouter.HandleFunc("/scan", s.handleScan).Methods("GET")

	s.router = router
	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	s.server = &http.Server{
		Addr:        address,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", address).Msg("Starting API server")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("Shutting down API server")
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("API request")
	})
}

// Response helpers
func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) findProfile(id string) (device.Profile, bool) {
	for _, p := range s.profiles {
		if p.ID == id {
			return p, true
		}
	}
	return device.Profile{}, false
}

// resolveProfile prefers a saved profile id over an inline profile
func (s *Server) resolveProfile(id string, inline *device.Profile) (device.Profile, int, string) {
	if id != "" {
		p, ok := s.findProfile(id)
		if !ok {
			return device.Profile{}, http.StatusNotFound, "tv not found: " + id
		}
		return p, 0, ""
	}
	if inline != nil && inline.ID != "" {
		return *inline, 0, ""
	}
	return device.Profile{}, http.StatusBadRequest, "profile_id or profile is required"
}

// caller names the token subject, or "anonymous" when auth is off
func caller(r *http.Request) string {
	if claims, ok := ClaimsFromContext(r); ok && claims.Subject != "" {
		return claims.Subject
	}
	return "anonymous"
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListTVs(w http.ResponseWriter, r *http.Request) {
	profiles := s.profiles
	if profiles == nil {
		profiles = []device.Profile{}
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"tvs": profiles})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cmd, err := device.ParseCommand(req.Command)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	profile, status, msg := s.resolveProfile(req.ProfileID, req.Profile)
	if status != 0 {
		sendError(w, status, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.Timeout)
	defer cancel()

	result := s.dispatcher.Dispatch(ctx, profile, cmd)
	s.logger.Debug().
		Str("caller", caller(r)).
		Str("profile", profile.ID).
		Str("command", cmd.String()).
		Bool("ok", result.OK).
		Msg("Dispatched command")
	sendJSON(w, http.StatusOK, result)
}

func (s *Server) handleCompletePairing(w http.ResponseWriter, r *http.Request) {
	var req pairingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Secret) == "" {
		sendError(w, http.StatusBadRequest, "secret is required")
		return
	}
	profile, status, msg := s.resolveProfile(req.ProfileID, req.Profile)
	if status != 0 {
		sendError(w, status, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.Timeout)
	defer cancel()

	result := s.dispatcher.CompletePairing(ctx, profile, req.Secret, req.Challenge)
	s.logger.Info().
		Str("caller", caller(r)).
		Str("profile", profile.ID).
		Bool("ok", result.OK).
		Msg("Pairing completed")
	sendJSON(w, http.StatusOK, result)
}

func (s *Server) handleClearCredentials(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	profile, ok := s.findProfile(id)
	if !ok {
		sendError(w, http.StatusNotFound, "tv not found: "+id)
		return
	}

	if err := s.dispatcher.ClearCredentials(profile); err != nil {
		s.logger.Error().Err(err).Str("profile", id).Msg("Failed to clear credentials")
		sendError(w, http.StatusInternalServerError, "failed to clear credentials")
		return
	}
	s.logger.Info().Str("caller", caller(r)).Str("profile", id).Msg("Credentials cleared")
	w.WriteHeader(http.StatusNoContent)
}

// handleScan streams one JSON object per discovered device
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	opts, err := scanOptions(r, s.opts.ScanDefaults)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	enc := json.NewEncoder(w)
	count := 0
	for d := range s.scanner.Scan(r.Context(), opts) {
		if err := enc.Encode(d); err != nil {
			s.logger.Debug().Err(err).Msg("Scan client went away")
			break
		}
		count++
		if flusher != nil {
			flusher.Flush()
		}
	}
	s.logger.Debug().Int("devices", count).Msg("Scan stream finished")
}

func scanOptions(r *http.Request, defaults discovery.Options) (discovery.Options, error) {
	q := r.URL.Query()
	opts := defaults

	if prefixes := splitList(q["prefix"]); len(prefixes) > 0 {
		for _, p := range prefixes {
			if !discovery.ValidPrefix(p) {
				return opts, errors.New("invalid prefix: " + p)
			}
		}
		opts.Prefixes = prefixes
	}
	if hosts := splitList(q["host"]); len(hosts) > 0 {
		for _, h := range hosts {
			if !discovery.ValidHost(h) {
				return opts, errors.New("invalid host: " + h)
			}
		}
		opts.Hosts = hosts
		if len(q["prefix"]) == 0 {
			opts.Prefixes = nil
		}
	}

	ints := map[string]*int{
		"start":   &opts.HostRangeStart,
		"end":     &opts.HostRangeEnd,
		"workers": &opts.MaxConcurrency,
	}
	for name, dst := range ints {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, errors.New("invalid " + name + ": " + v)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{"mdns": &opts.MDNS, "ssdp": &opts.SSDP}
	for name, dst := range bools {
		if v := q.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return opts, errors.New("invalid " + name + ": " + v)
			}
			*dst = b
		}
	}
	return opts, nil
}

// splitList accepts both repeated parameters and comma-separated values
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
