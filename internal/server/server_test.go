package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"warehouse-askdb/internal/common/config"
	"warehouse-askdb/internal/common/logger"
	"warehouse-askdb/internal/engine"
	"warehouse-askdb/internal/engine/cache"
	"warehouse-askdb/internal/engine/executor"
	"warehouse-askdb/internal/engine/knowledge"
	"warehouse-askdb/internal/engine/templates"
	"warehouse-askdb/internal/engine/timeframe"
	"warehouse-askdb/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, allowedUsers []string) (*Server, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{
		App: config.AppConfig{Name: "warehouse-askdb", Version: "1.0.0", Environment: "test"},
		Server: config.ServerConfig{
			Address:      ":0",
			AllowedUsers: allowedUsers,
		},
		Engine: config.EngineConfig{
			Timezone:          "Europe/London",
			WeekStart:         "monday",
			QueryTimeout:      30000,
			DefaultLimit:      100,
			MaxLimit:          500,
			MaxQuestionLength: 500,
			MinConfidence:     0.3,
		},
	}

	log := logger.NewNoOpLogger()
	resolver, err := timeframe.NewResolver(cfg.Engine.Timezone, cfg.Engine.WeekStart)
	require.NoError(t, err)

	exec := executor.New(db, 5*time.Second, log)
	qcache := cache.New(client, cache.Options{
		TTL:         4 * time.Hour,
		HistoryTTL:  24 * time.Hour,
		HistorySize: 10,
		KeyPrefix:   "askdb",
	}, log)
	eng := engine.New(cfg.Engine, knowledge.NewBase(), templates.NewRegistry(), resolver, exec, qcache, nil, log)

	return New(cfg, eng, exec, qcache, log), mock
}

func postAsk(t *testing.T, router *gin.Engine, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "warehouse-askdb", body["service"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAskEndpoint(t *testing.T) {
	srv, mock := newTestServer(t, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) AS pallet_count`)).
		WillReturnRows(sqlmock.NewRows([]string{"pallet_count", "total_quantity"}).
			AddRow(int64(12), int64(300)))

	w := postAsk(t, srv.Router(),
		`{"question": "how many pallets were generated today"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pallet_count", resp.Intent.MatchedTemplate)
	assert.False(t, resp.Cached)
	assert.Contains(t, resp.Answer, "12 pallets")
	assert.NotEmpty(t, resp.RequestID)
}

func TestAskEndpointRejectsBadBodies(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	router := srv.Router()

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"question": `},
		{"missing question", `{"sessionId": "s1"}`},
		{"empty question", `{"question": ""}`},
		{"wrong type", `{"question": 42}`},
		{"unknown field", `{"question": "pallets today", "extra": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postAsk(t, router, tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "INVALID_REQUEST", resp["code"])
		})
	}
}

func TestPermissionGate(t *testing.T) {
	srv, mock := newTestServer(t, []string{"Alex@Warehouse.example"})
	router := srv.Router()

	t.Run("missing email", func(t *testing.T) {
		w := postAsk(t, router, `{"question": "pallets today"}`, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "PERMISSION_DENIED", resp["code"])
	})

	t.Run("unlisted email", func(t *testing.T) {
		w := postAsk(t, router, `{"question": "pallets today"}`,
			map[string]string{"X-User-Email": "intruder@example.com"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("listed email is case insensitive", func(t *testing.T) {
		mock.ExpectQuery(`SELECT`).
			WillReturnRows(sqlmock.NewRows([]string{"pallet_count", "total_quantity"}).
				AddRow(int64(1), int64(0)))

		w := postAsk(t, router, `{"question": "how many pallets were generated today"}`,
			map[string]string{"X-User-Email": "alex@warehouse.example"})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/ask/status", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var report models.StatusReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "warehouse-askdb", report.Service)
	assert.Equal(t, "ok", report.Checks["redis"])
	assert.Equal(t, srv.engine.Registry().Count(), report.Templates)
}

func TestRequestIDPropagation(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id-123")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, "fixed-id-123", w.Header().Get("X-Request-ID"))
}

func TestHistoryEndpoint(t *testing.T) {
	srv, mock := newTestServer(t, nil)
	router := srv.Router()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 100).
		WillReturnRows(sqlmock.NewRows([]string{"pallet_count", "total_quantity"}).
			AddRow(int64(2), int64(0)))

	w := postAsk(t, router, `{"question":"how many pallets were generated today","sessionId":"session-9"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/ask/history/session-9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		SessionID string            `json:"sessionId"`
		Exchanges []models.Exchange `json:"exchanges"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "session-9", body.SessionID)
	require.Len(t, body.Exchanges, 1)
	assert.Equal(t, "how many pallets were generated today", body.Exchanges[0].Question)
	assert.Equal(t, "pallet_count", body.Exchanges[0].TemplateID)
}
