// Package server exposes zone dashboards, report exports and stored reports over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"carbonsink/internal/api"
	"carbonsink/internal/config"
	"carbonsink/internal/logger"
	"carbonsink/internal/mocks"
	"carbonsink/internal/models"
	"carbonsink/internal/notify"
	"carbonsink/internal/reports"
	"carbonsink/internal/storage"
)

var log = logger.Component("server")

// Backend is the monitoring data one request works against
type Backend interface {
	ListZones(ctx context.Context) ([]models.Zone, error)
	GetZone(ctx context.Context, id int64) (*models.Zone, error)
	GetChartData(ctx context.Context, zoneID int64) (*models.ChartData, error)
	GetCurrentPrice(ctx context.Context) (*models.CarbonPrice, error)
}

// ReportExporter runs the PDF export for one zone
type ReportExporter interface {
	Export(ctx context.Context, zone *models.Zone, data *models.ChartData) (*reports.ExportResult, error)
}

// Server represents the main application server
type Server struct {
	Config         *config.Config
	API            *api.Client
	Session        *api.Session // service session, used when a request carries no bearer token
	Storage        storage.StorageClient
	MockService    *mocks.Service
	Notifications  *notify.Recorder
	NewExporter    func(prices reports.PriceSource) ReportExporter
	DeploymentMode storage.DeploymentMode

	// one *sync.Mutex per zone id; an export holds its zone's lock
	zoneLocks sync.Map
	loginMu   sync.Mutex
}

// NewServer creates a new server instance
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	mode := storage.ModeFor(cfg)
	storageClient, err := storage.NewStorageClient(ctx, mode, cfg)
	if err != nil {
		return nil, err
	}

	server := &Server{
		Config:         cfg,
		API:            api.NewClient(cfg.APIBaseURL),
		Session:        api.NewSession(cfg.APIToken),
		Storage:        storageClient,
		Notifications:  notify.NewRecorder(0, notify.NewLogNotifier()),
		DeploymentMode: mode,
	}
	server.NewExporter = func(prices reports.PriceSource) ReportExporter {
		return reports.NewExporterFromConfig(cfg, prices, storageClient)
	}

	// Initialize mock service if mockup mode is enabled
	if cfg.MockupMode {
		server.MockService, err = mocks.NewService()
		if err != nil {
			storageClient.Close()
			return nil, fmt.Errorf("failed to load mock data: %w", err)
		}
		log.Info("Mockup mode enabled - using embedded mock data")
	} else if cfg.APIUsername != "" {
		// failures are retried on the first request without a bearer token
		server.serviceLogin(ctx)
	}

	log.Info("Server initialized", logger.Fields{
		"deployment_mode": string(mode),
		"api_base_url":    cfg.APIBaseURL,
		"mockup_mode":     cfg.MockupMode,
	})
	return server, nil
}

// SetupRoutes configures HTTP routes for the server
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.HandleHealth)
	r.Get("/notifications", s.HandleNotifications)

	r.Route("/api", func(ar chi.Router) {
		ar.Post("/login", s.HandleLogin)
		ar.Get("/zones", s.HandleListZones)
		ar.Get("/zones/{id}", s.HandleGetZone)
	})

	r.Route("/zones/{id}", func(zr chi.Router) {
		zr.Get("/dashboard", s.HandleDashboard)
		zr.Post("/report", s.HandleGenerate)
	})

	r.Get("/reports", s.HandleListReports)
	r.Get("/reports/*", s.HandleFileProxy)

	return r
}

// Close cleans up server resources
func (s *Server) Close() error {
	if s.Storage != nil {
		return s.Storage.Close()
	}
	return nil
}

// zoneLock returns the export lock of a zone
func (s *Server) zoneLock(zoneID int64) *sync.Mutex {
	lock, _ := s.zoneLocks.LoadOrStore(zoneID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
