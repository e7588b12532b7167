package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"carbonsink/internal/api"
	"carbonsink/internal/logger"
	"carbonsink/internal/mocks"
)

// backend picks the data source of a request: mock data in mockup mode,
// else the caller's bearer token, else the service session.
func (s *Server) backend(r *http.Request) (Backend, error) {
	if s.MockService != nil {
		return s.MockService, nil
	}
	if token := bearerToken(r); token != "" {
		return s.API.Bind(api.NewSession(token)), nil
	}
	if s.Session == nil {
		return nil, api.ErrUnauthorized
	}
	if !s.serviceSessionValid() {
		if err := s.serviceLogin(r.Context()); err != nil {
			return nil, err
		}
	}
	return s.API.Bind(s.Session), nil
}

func (s *Server) serviceSessionValid() bool {
	return s.Session.Authenticated() && !s.Session.Expired(time.Now())
}

// serviceLogin restores a cleared or expired service session from the
// configured credentials. Concurrent callers share one login.
func (s *Server) serviceLogin(ctx context.Context) error {
	if s.Config == nil || s.Config.APIUsername == "" {
		return api.ErrUnauthorized
	}
	s.loginMu.Lock()
	defer s.loginMu.Unlock()
	if s.serviceSessionValid() {
		return nil
	}
	if _, err := s.API.Login(ctx, s.Session, s.Config.APIUsername, s.Config.APIPassword); err != nil {
		log.Warn("Service login failed", logger.Fields{"error": err.Error()})
		return err
	}
	return nil
}

// backendError maps a backend failure to a response. A 401 always sends
// the caller back to the login page.
func (s *Server) backendError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, api.ErrUnauthorized) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":    "unauthorized",
			"redirect": "/login",
		})
		return
	}

	var apiErr *api.APIError
	if errors.Is(err, mocks.ErrZoneNotFound) || (errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound) {
		writeError(w, http.StatusNotFound, "Zone not found", "not_found")
		return
	}

	log.Error(message, err)
	writeError(w, http.StatusBadGateway, message, "error")
}

// isNotVisible reports whether err means the zone does not exist for the caller
func isNotVisible(err error) bool {
	if errors.Is(err, mocks.ErrZoneNotFound) {
		return true
	}
	var apiErr *api.APIError
	return errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusForbidden)
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
}

// parseZoneID reads the {id} route parameter, answering 400 when it is not a positive integer
func parseZoneID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid zone id", "bad_request")
		return 0, false
	}
	return id, true
}

// parseLimit parses a limit query value; invalid or non-positive values give def, large ones are capped
func parseLimit(raw string, def, ceiling int) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("Failed to write response", logger.Fields{"error": err.Error()})
	}
}

func writeError(w http.ResponseWriter, status int, message, kind string) {
	writeJSON(w, status, map[string]string{
		"error":  message,
		"status": kind,
	})
}
