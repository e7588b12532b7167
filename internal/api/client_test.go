package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carbonsink/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(server.URL + "/api/")
	c.http.SetRetryCount(0)
	return c
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "analyst",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestLoginPostsFormData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "analyst", r.PostForm.Get("username"))
		assert.Equal(t, "pa55", r.PostForm.Get("password"))
		assert.Empty(t, r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123", "token_type": "bearer"})
	})

	s := NewSession("")
	token, err := c.Login(context.Background(), s, "analyst", "pa55")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token.AccessToken)
	assert.Equal(t, "tok-123", s.Token())
	assert.True(t, s.Authenticated())
}

func TestLoginRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Incorrect username or password"}`))
	})

	s := NewSession("")
	_, err := c.Login(context.Background(), s, "analyst", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Incorrect username or password", apiErr.Detail)
	assert.False(t, s.Authenticated())
}

func TestBearerTokenAttached(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/zones/12", r.URL.Path)
		w.Write([]byte(`{"id":12,"name":"North Ridge","area":20000,"status":"active","created_at":"2024-01-15T09:30:00","user_id":1,"measurements_count":3}`))
	})

	zone, err := c.GetZone(context.Background(), NewSession("tok-abc"), 12)
	require.NoError(t, err)
	assert.Equal(t, int64(12), zone.ID)
	assert.Equal(t, "North Ridge", zone.Name)
	assert.Equal(t, 20000.0, zone.Area)
}

func TestUnauthorizedClearsSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	})

	s := NewSession("stale")
	_, err := c.ListZones(context.Background(), s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, s.Token())
}

func TestExpiredTokenNeverSent(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	s := NewSession(signedToken(t, time.Now().Add(-time.Minute)))
	_, err := c.GetChartData(context.Background(), s, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, called, "request should not reach the backend")
	assert.False(t, s.Authenticated())
}

func TestNonAuthErrorKeepsSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Zone not found"}`))
	})

	s := NewSession("tok")
	_, err := c.GetZone(context.Background(), s, 99)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Zone not found", apiErr.Detail)
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "tok", s.Token())
}

func TestChartDataAndMeasurements(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/measurements/zone/7/chart":
			w.Write([]byte(`{"timestamps":["2024-05-01T00:00:00","2024-05-02T00:00:00"],"ndvi_values":[0.4,0.5],"carbon_values":[1.1,1.2]}`))
		case "/api/measurements/zone/7":
			assert.Equal(t, "10", r.URL.Query().Get("skip"))
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			w.Write([]byte(`[{"id":1,"zone_id":7,"ndvi":0.4,"carbon_absorption":1.1,"timestamp":"2024-05-01T00:00:00"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	s := NewSession("tok")
	data, err := c.GetChartData(context.Background(), s, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, data.Len())
	assert.Equal(t, []float64{1.1, 1.2}, data.CarbonValues)

	ms, err := c.ListMeasurements(context.Background(), s, 7, 10, 5)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, int64(7), ms[0].ZoneID)
}

func TestPriceHistoryDefaultLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/prices/history", r.URL.Path)
		assert.Equal(t, "30", r.URL.Query().Get("limit"))
		w.Write([]byte(`[{"id":1,"price":52.3,"source":"exchange","timestamp":"2024-05-01T00:00:00"}]`))
	})

	prices, err := c.GetPriceHistory(context.Background(), NewSession("tok"), 0)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, 52.3, prices[0].Price)
}

func TestCreateZoneSendsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/zones/", r.URL.Path)
		var in models.ZoneCreate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "South Bank", in.Name)
		assert.Len(t, in.Coordinates, 3)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":3,"name":"South Bank","area":5120.5,"status":"active","created_at":"2024-05-01T00:00:00","user_id":1}`))
	})

	zone, err := c.CreateZone(context.Background(), NewSession("tok"), models.ZoneCreate{
		Name:        "South Bank",
		Coordinates: []models.Coordinate{{Lat: 1, Lng: 1}, {Lat: 1, Lng: 2}, {Lat: 2, Lng: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), zone.ID)
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"empty", "", false},
		{"opaque token", "not-a-jwt", false},
		{"future exp", signedToken(t, now.Add(time.Hour)), false},
		{"past exp", signedToken(t, now.Add(-time.Hour)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewSession(tt.token).Expired(now))
		})
	}
}

func TestParseDetail(t *testing.T) {
	assert.Equal(t, "plain", parseDetail([]byte(`{"detail":"plain"}`)))
	assert.Equal(t, `[{"loc":["body","name"]}]`, parseDetail([]byte(`{"detail":[{"loc":["body","name"]}]}`)))
	assert.Equal(t, "Bad Gateway", parseDetail([]byte("Bad Gateway\n")))
}

func TestBoundUsesSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer bound", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":1,"price":48.5,"source":"exchange","timestamp":"2024-05-01T00:00:00"}`))
	})

	b := c.Bind(NewSession("bound"))
	price, err := b.GetCurrentPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 48.5, price.Price)
}
