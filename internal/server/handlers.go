package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"

	"carbonsink/internal/api"
	"carbonsink/internal/charts"
	"carbonsink/internal/config"
	"carbonsink/internal/logger"
	"carbonsink/internal/models"
	"carbonsink/internal/storage"
)

// HandleHealth provides health check endpoint
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	backend := "api"
	if s.MockService != nil {
		backend = "mock"
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"version":   config.GetVersion(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": map[string]string{
			"storage": string(s.DeploymentMode),
			"backend": backend,
			"config":  "ok",
		},
	}
	writeJSON(w, http.StatusOK, health)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin exchanges credentials for a backend bearer token
func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required", "bad_request")
		return
	}

	if s.MockService != nil {
		writeJSON(w, http.StatusOK, models.Token{AccessToken: "mock-token", TokenType: "bearer"})
		return
	}

	token, err := s.API.Login(r.Context(), api.NewSession(""), req.Username, req.Password)
	if err != nil {
		s.backendError(w, err, "Login failed")
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// HandleListZones lists the caller's monitoring zones
func (s *Server) HandleListZones(w http.ResponseWriter, r *http.Request) {
	backend, err := s.backend(r)
	if err != nil {
		s.backendError(w, err, "")
		return
	}

	zones, err := backend.ListZones(r.Context())
	if err != nil {
		s.backendError(w, err, "Failed to list zones")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"zones": zones,
		"count": len(zones),
	})
}

// HandleGetZone returns one zone
func (s *Server) HandleGetZone(w http.ResponseWriter, r *http.Request) {
	zoneID, ok := parseZoneID(w, r)
	if !ok {
		return
	}
	backend, err := s.backend(r)
	if err != nil {
		s.backendError(w, err, "")
		return
	}

	zone, err := backend.GetZone(r.Context(), zoneID)
	if err != nil {
		s.backendError(w, err, "Failed to load zone")
		return
	}
	writeJSON(w, http.StatusOK, zone)
}

// HandleDashboard serves the interactive chart page of a zone
func (s *Server) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	zoneID, ok := parseZoneID(w, r)
	if !ok {
		return
	}
	backend, err := s.backend(r)
	if err != nil {
		s.backendError(w, err, "")
		return
	}

	zone, data, err := s.loadZone(r, backend, zoneID)
	if err != nil {
		s.backendError(w, err, "Failed to load zone")
		return
	}

	var page bytes.Buffer
	if err := charts.RenderDashboard(&page, zone, charts.NDVIConfig(data), charts.CarbonConfig(data)); err != nil {
		log.Error("Dashboard rendering failed", err, logger.Fields{"zone_id": zoneID})
		writeError(w, http.StatusInternalServerError, "Failed to render dashboard", "error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page.Bytes())
}

// HandleGenerate exports the PDF report of a zone
func (s *Server) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	zoneID, ok := parseZoneID(w, r)
	if !ok {
		return
	}
	backend, err := s.backend(r)
	if err != nil {
		s.backendError(w, err, "")
		return
	}

	// Try to acquire the zone lock - if already locked, return error immediately
	lock := s.zoneLock(zoneID)
	if !lock.TryLock() {
		log.Warn("Report export already in progress, rejecting new request", logger.Fields{"zone_id": zoneID})
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":   "Report generation already in progress",
			"message": "An export for this zone is currently running. Please wait for it to complete before starting a new one.",
			"status":  "conflict",
		})
		return
	}
	defer lock.Unlock()

	zone, data, err := s.loadZone(r, backend, zoneID)
	if err != nil {
		s.backendError(w, err, "Failed to load zone")
		return
	}

	s.Notifications.Info("Generating PDF report, please wait...")
	// a client that disconnects mid-export must not abandon staged files or a half-written upload
	result, err := s.NewExporter(backend).Export(context.WithoutCancel(r.Context()), zone, data)
	if err != nil {
		log.Error("Report export failed", err, logger.Fields{"zone_id": zoneID})
		s.Notifications.Error("Failed to export PDF report")
		if errors.Is(err, api.ErrUnauthorized) {
			s.backendError(w, err, "")
			return
		}
		writeError(w, http.StatusInternalServerError, "Report generation failed", "error")
		return
	}

	s.Notifications.Success(fmt.Sprintf("PDF report exported: %s", result.Filename))
	writeJSON(w, http.StatusOK, result)
}

// HandleListReports lists recent reports of the zones the caller can see
func (s *Server) HandleListReports(w http.ResponseWriter, r *http.Request) {
	backend, err := s.backend(r)
	if err != nil {
		s.backendError(w, err, "")
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"), 10, 100)

	zones, err := backend.ListZones(r.Context())
	if err != nil {
		s.backendError(w, err, "Failed to list zones")
		return
	}
	visible := make(map[int64]bool, len(zones))
	for _, z := range zones {
		visible[z.ID] = true
	}

	stored, err := s.Storage.ListReports(r.Context(), 0)
	if err != nil {
		log.Error("Failed to list reports", err)
		writeError(w, http.StatusInternalServerError, "Failed to list reports", "error")
		return
	}
	reports := make([]storage.ReportInfo, 0, min(limit, len(stored)))
	for _, info := range stored {
		if !visible[info.ZoneID] {
			continue
		}
		reports = append(reports, info)
		if len(reports) == limit {
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports":   reports,
		"count":     len(reports),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleFileProxy serves a stored report file of a zone the caller can see
func (s *Server) HandleFileProxy(w http.ResponseWriter, r *http.Request) {
	backend, err := s.backend(r)
	if err != nil {
		s.backendError(w, err, "")
		return
	}
	filePath, err := storage.CleanObjectPath(chi.URLParam(r, "*"))
	if err != nil {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	// files outside zones/<id>/ belong to no one; hidden zones look like missing files
	zoneID := storage.ZoneIDFromPath(filePath)
	if zoneID <= 0 {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	if _, err := backend.GetZone(r.Context(), zoneID); err != nil {
		if !isNotVisible(err) {
			s.backendError(w, err, "Failed to check zone access")
			return
		}
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	fileData, err := s.Storage.GetFile(r.Context(), filePath)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Error("Failed to get file from storage", err, logger.Fields{"path": filePath})
		}
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	contentType := storage.GetContentType(filePath)
	w.Header().Set("Content-Type", contentType)
	if contentType == "application/pdf" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", path.Base(filePath)))
	}
	w.Write(fileData)
}

// HandleNotifications returns the most recent user notifications
func (s *Server) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	if _, err := s.backend(r); err != nil {
		s.backendError(w, err, "")
		return
	}
	messages := s.Notifications.Last(parseLimit(r.URL.Query().Get("limit"), 20, 100))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": messages,
		"count":         len(messages),
	})
}

// loadZone fetches a zone with its chart data. A chart data failure other
// than an authorization error leaves the zone with empty series.
func (s *Server) loadZone(r *http.Request, backend Backend, zoneID int64) (*models.Zone, *models.ChartData, error) {
	zone, err := backend.GetZone(r.Context(), zoneID)
	if err != nil {
		return nil, nil, err
	}

	data, err := backend.GetChartData(r.Context(), zoneID)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return nil, nil, err
		}
		log.Warn("Chart data unavailable, continuing without measurements", logger.Fields{
			"zone_id": zoneID,
			"error":   err.Error(),
		})
		data = &models.ChartData{}
	}
	return zone, data, nil
}
