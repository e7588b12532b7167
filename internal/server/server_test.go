package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonsink/internal/api"
	"carbonsink/internal/config"
	"carbonsink/internal/mocks"
	"carbonsink/internal/models"
	"carbonsink/internal/notify"
	"carbonsink/internal/reports"
	"carbonsink/internal/storage"
)

type fakeExporter struct {
	mu      sync.Mutex
	err     error
	zones   []int64
	samples int
	ctxErr  error
	started chan struct{}
	release chan struct{}
}

func (f *fakeExporter) Export(ctx context.Context, zone *models.Zone, data *models.ChartData) (*reports.ExportResult, error) {
	f.mu.Lock()
	f.zones = append(f.zones, zone.ID)
	f.samples = data.Len()
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	f.ctxErr = ctx.Err()
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	filename := storage.ReportFilename(zone.Name, data.Timestamps[0])
	return &reports.ExportResult{
		ReportID: "RPT-test",
		Filename: filename,
		Path:     storage.ReportPath(zone.ID, filename),
		Pages:    2,
	}, nil
}

type fixture struct {
	server   *Server
	exporter *fakeExporter
	store    *storage.LocalStorageClient
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewLocalStorageClient(t.TempDir())
	require.NoError(t, err)
	mockService, err := mocks.NewService()
	require.NoError(t, err)

	f := &fixture{exporter: &fakeExporter{}, store: store}
	f.server = &Server{
		Config:         &config.Config{CORSOrigins: []string{"http://localhost:5173"}},
		Storage:        store,
		MockService:    mockService,
		Notifications:  notify.NewRecorder(10, nil),
		DeploymentMode: storage.DeploymentLocal,
		NewExporter: func(reports.PriceSource) ReportExporter {
			return f.exporter
		},
	}
	f.handler = f.server.SetupRoutes()
	return f
}

func (f *fixture) do(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) doAs(t *testing.T, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// zonesBackend serves a backend where "user-token" sees zone 12 only
func zonesBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer user-token" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Could not validate credentials"}`))
			return
		}
		switch r.URL.Path {
		case "/zones/":
			w.Write([]byte(`[{"id":12,"name":"North Ridge","area":100}]`))
		case "/zones/12":
			w.Write([]byte(`{"id":12,"name":"North Ridge","area":100}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"Zone not found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandleHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "mock", checks["backend"])
	assert.Equal(t, "local", checks["storage"])
}

func TestHandleZones(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/zones", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["count"])

	rec = f.do(t, http.MethodGet, "/api/zones/12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "North Ridge", decode(t, rec)["name"])

	rec = f.do(t, http.MethodGet, "/api/zones/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/zones/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLoginMockMode(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/login", `{"username":"demo","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mock-token", decode(t, rec)["access_token"])

	rec = f.do(t, http.MethodPost, "/api/login", `{"username":"demo"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/login", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDashboard(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/zones/12/dashboard", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "echarts")
}

func TestHandleGenerate(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/zones/12/report", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "RPT-test", body["report_id"])
	assert.True(t, strings.HasPrefix(body["filename"].(string), "carbon-sink-report-North_Ridge-"))
	assert.Equal(t, []int64{12}, f.exporter.zones)
	assert.Equal(t, 8, f.exporter.samples)

	msgs := f.server.Notifications.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, notify.LevelInfo, msgs[0].Level)
	assert.Equal(t, notify.LevelSuccess, msgs[1].Level)
	assert.Contains(t, msgs[1].Text, "carbon-sink-report-North_Ridge-")
}

func TestHandleGenerateFailure(t *testing.T) {
	f := newFixture(t)
	f.exporter.err = errors.New("encoder exploded: font table corrupt")

	rec := f.do(t, http.MethodPost, "/zones/12/report", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "font table")

	msgs := f.server.Notifications.Messages()
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.Equal(t, notify.LevelError, last.Level)
	assert.NotContains(t, last.Text, "font table")
}

func TestHandleGenerateConflict(t *testing.T) {
	f := newFixture(t)
	f.exporter.started = make(chan struct{}, 1)
	f.exporter.release = make(chan struct{})

	done := make(chan int)
	go func() {
		done <- f.do(t, http.MethodPost, "/zones/12/report", "").Code
	}()
	<-f.exporter.started

	rec := f.do(t, http.MethodPost, "/zones/12/report", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decode(t, rec)["status"])

	close(f.exporter.release)
	assert.Equal(t, http.StatusOK, <-done)

	// the lock is released once the export finishes
	f.exporter.started = nil
	f.exporter.release = nil
	rec = f.do(t, http.MethodPost, "/zones/12/report", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleGenerateOutlivesClientDisconnect(t *testing.T) {
	f := newFixture(t)
	f.exporter.started = make(chan struct{}, 1)
	f.exporter.release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/zones/12/report", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		f.handler.ServeHTTP(rec, req)
		close(done)
	}()

	<-f.exporter.started
	cancel()
	close(f.exporter.release)
	<-done

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, f.exporter.ctxErr)
}

func TestHandleGenerateUnknownZone(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/zones/99/report", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, f.exporter.zones)
}

func TestHandleListReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.StoreFile(ctx, "zones/12/a.pdf", []byte("%PDF-a")))
	require.NoError(t, f.store.StoreFile(ctx, "zones/15/b.pdf", []byte("%PDF-b")))
	require.NoError(t, f.store.StoreFile(ctx, "zones/15/b.pdf.html", []byte("<html>")))

	rec := f.do(t, http.MethodGet, "/reports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["count"])

	rec = f.do(t, http.MethodGet, "/reports?limit=1", "")
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = f.do(t, http.MethodGet, "/reports?limit=abc", "")
	assert.EqualValues(t, 2, decode(t, rec)["count"])
}

func TestHandleFileProxy(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.StoreFile(context.Background(), "zones/12/report.pdf", []byte("%PDF-1.3")))

	rec := f.do(t, http.MethodGet, "/reports/zones/12/report.pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report.pdf")
	assert.Equal(t, "%PDF-1.3", rec.Body.String())

	rec = f.do(t, http.MethodGet, "/reports/zones/12/missing.pdf", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/reports/zones/../../secret.pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoredReportsRequireAuthentication(t *testing.T) {
	f := newFixture(t)
	f.server.MockService = nil
	f.server.API = api.NewClient(zonesBackend(t).URL)
	require.NoError(t, f.store.StoreFile(context.Background(), "zones/12/a.pdf", []byte("%PDF-a")))
	f.server.Notifications.Success("PDF report exported: a.pdf")

	for _, target := range []string{"/reports", "/reports/zones/12/a.pdf", "/notifications"} {
		rec := f.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.NotContains(t, rec.Body.String(), "a.pdf", target)
		assert.NotContains(t, rec.Body.String(), "%PDF", target)
	}

	// tokens are checked by the backend when the zones are resolved
	for _, target := range []string{"/reports", "/reports/zones/12/a.pdf"} {
		rec := f.doAs(t, http.MethodGet, target, "stale-token")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestHandleListReportsOnlyVisibleZones(t *testing.T) {
	f := newFixture(t)
	f.server.MockService = nil
	f.server.API = api.NewClient(zonesBackend(t).URL)
	ctx := context.Background()
	require.NoError(t, f.store.StoreFile(ctx, "zones/12/a.pdf", []byte("%PDF-a")))
	require.NoError(t, f.store.StoreFile(ctx, "zones/15/b.pdf", []byte("%PDF-b")))
	require.NoError(t, f.store.StoreFile(ctx, "zones/12/c.pdf", []byte("%PDF-c")))

	rec := f.doAs(t, http.MethodGet, "/reports", "user-token")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 2, body["count"])
	for _, item := range body["reports"].([]interface{}) {
		assert.EqualValues(t, 12, item.(map[string]interface{})["zone_id"])
	}

	rec = f.doAs(t, http.MethodGet, "/reports?limit=1", "user-token")
	assert.EqualValues(t, 1, decode(t, rec)["count"])
}

func TestHandleFileProxyHiddenZone(t *testing.T) {
	f := newFixture(t)
	f.server.MockService = nil
	f.server.API = api.NewClient(zonesBackend(t).URL)
	ctx := context.Background()
	require.NoError(t, f.store.StoreFile(ctx, "zones/12/a.pdf", []byte("%PDF-a")))
	require.NoError(t, f.store.StoreFile(ctx, "zones/15/b.pdf", []byte("%PDF-b")))
	require.NoError(t, f.store.StoreFile(ctx, "shared/c.pdf", []byte("%PDF-c")))

	rec := f.doAs(t, http.MethodGet, "/reports/zones/12/a.pdf", "user-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-a", rec.Body.String())

	rec = f.doAs(t, http.MethodGet, "/reports/zones/15/b.pdf", "user-token")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "%PDF")

	rec = f.doAs(t, http.MethodGet, "/reports/shared/c.pdf", "user-token")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleNotifications(t *testing.T) {
	f := newFixture(t)
	f.server.Notifications.Info("one")
	f.server.Notifications.Success("two")

	rec := f.do(t, http.MethodGet, "/notifications?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["count"])
	items := body["notifications"].([]interface{})
	assert.Equal(t, "two", items[0].(map[string]interface{})["text"])
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/zones", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBackendUnauthorized(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	defer backend.Close()

	f := newFixture(t)
	f.server.MockService = nil
	f.server.API = api.NewClient(backend.URL)

	// no bearer token and no service session
	rec := f.do(t, http.MethodGet, "/api/zones", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "unauthorized", body["error"])
	assert.Equal(t, "/login", body["redirect"])

	// the backend rejects the caller's token
	req := httptest.NewRequest(http.MethodPost, "/zones/12/report", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	rec2 := httptest.NewRecorder()
	f.handler.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusUnauthorized, rec2.Code)
	assert.Equal(t, "/login", decode(t, rec2)["redirect"])
	assert.Empty(t, f.exporter.zones)
}

func TestBackendUsesServiceSession(t *testing.T) {
	var gotAuth string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":3,"name":"Hill","area":100}]`))
	}))
	defer backend.Close()

	f := newFixture(t)
	f.server.MockService = nil
	f.server.API = api.NewClient(backend.URL)
	f.server.Session = api.NewSession("service-token")

	rec := f.do(t, http.MethodGet, "/api/zones", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bearer service-token", gotAuth)
	assert.EqualValues(t, 1, decode(t, rec)["count"])
}

func TestBackendRestoresServiceSession(t *testing.T) {
	var logins atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/login":
			logins.Add(1)
			if r.FormValue("username") != "svc" || r.FormValue("password") != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"detail":"Incorrect username or password"}`))
				return
			}
			w.Write([]byte(`{"access_token":"fresh-token","token_type":"bearer"}`))
		case "/zones/":
			if r.Header.Get("Authorization") != "Bearer fresh-token" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"detail":"Token expired"}`))
				return
			}
			w.Write([]byte(`[{"id":3,"name":"Hill","area":100}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer backend.Close()

	f := newFixture(t)
	f.server.MockService = nil
	f.server.API = api.NewClient(backend.URL)
	f.server.Session = api.NewSession("stale-token")
	f.server.Config.APIUsername = "svc"
	f.server.Config.APIPassword = "secret"

	// the backend rejects the stale token, which clears the session
	rec := f.do(t, http.MethodGet, "/api/zones", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, f.server.Session.Authenticated())
	assert.Zero(t, logins.Load())

	rec = f.do(t, http.MethodGet, "/api/zones", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode(t, rec)["count"])
	assert.EqualValues(t, 1, logins.Load())
	assert.Equal(t, "fresh-token", f.server.Session.Token())

	rec = f.do(t, http.MethodGet, "/api/zones", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, logins.Load())
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 10},
		{"abc", 10},
		{"0", 10},
		{"-5", 10},
		{"25", 25},
		{"500", 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLimit(tt.raw, 10, 100), tt.raw)
	}
}
