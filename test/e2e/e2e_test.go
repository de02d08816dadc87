// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse-askdb/internal/common/config"
	"warehouse-askdb/internal/common/database"
	"warehouse-askdb/internal/common/logger"
	"warehouse-askdb/internal/engine"
	"warehouse-askdb/internal/engine/cache"
	"warehouse-askdb/internal/engine/executor"
	"warehouse-askdb/internal/engine/knowledge"
	"warehouse-askdb/internal/engine/templates"
	"warehouse-askdb/internal/engine/timeframe"
	"warehouse-askdb/internal/models"
	"warehouse-askdb/internal/server"
)

// TestFullE2E exercises the whole ask pipeline against real PostgreSQL and
// Redis instances on localhost. Run with ASKDB_E2E=1.
func TestFullE2E(t *testing.T) {
	if os.Getenv("ASKDB_E2E") == "" {
		t.Skip("set ASKDB_E2E=1 to run against real services")
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Force localhost for e2e runs.
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"
	cfg.Server.AllowedUsers = nil

	db, rdb := assertServicesConnectivity(t, cfg)
	defer db.Close()
	defer rdb.Close()

	createWarehouseTables(t, db)
	insertSeedData(t, db)

	router := buildRouter(t, cfg, db, rdb)

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("status", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ask/status", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var report models.StatusReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.Equal(t, "ok", report.Checks["postgres"])
		assert.Equal(t, "ok", report.Checks["redis"])
	})

	questions := []struct {
		name     string
		question string
		template string
	}{
		{"pallet count today", "how many pallets were generated today", "pallet_count"},
		{"grn weight", "what is the grn weight of MEP9090 today", "grn_weight"},
		{"transfer count", "how many transfers were done today", "transfer_count"},
		{"stock ranking", "top 5 products by inventory", "stock_ranking"},
	}

	for _, q := range questions {
		t.Run(q.name, func(t *testing.T) {
			resp := ask(t, router, q.question)
			assert.Equal(t, q.template, resp.Intent.MatchedTemplate)
			assert.NotEmpty(t, resp.Answer)
			assert.False(t, resp.Cached)

			// The identical question must now come from cache.
			again := ask(t, router, q.question)
			assert.True(t, again.Cached)
			assert.Equal(t, resp.Answer, again.Answer)
		})
	}
}

func assertServicesConnectivity(t *testing.T, cfg *config.Config) (*database.PostgresClient, *database.RedisClient) {
	db, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	require.NoError(t, db.Ping(context.Background()), "PostgreSQL ping failed")

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "Redis client creation failed")
	require.NoError(t, rdb.Ping(context.Background()), "Redis ping failed")

	return db, rdb
}

func createWarehouseTables(t *testing.T, client *database.PostgresClient) {
	db := client.GetDB()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS record_palletinfo (
			plt_num VARCHAR(20) PRIMARY KEY,
			product_code VARCHAR(20) NOT NULL,
			product_qty INTEGER NOT NULL DEFAULT 0,
			plt_remark TEXT,
			series VARCHAR(20),
			generate_time TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS record_transfer (
			uuid VARCHAR(64) PRIMARY KEY,
			plt_num VARCHAR(20) NOT NULL,
			operator_id INTEGER,
			f_loc VARCHAR(50),
			t_loc VARCHAR(50),
			tran_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS record_inventory (
			uuid VARCHAR(64) PRIMARY KEY,
			product_code VARCHAR(20) NOT NULL,
			injection INTEGER DEFAULT 0,
			pipeline INTEGER DEFAULT 0,
			prebook INTEGER DEFAULT 0,
			await INTEGER DEFAULT 0,
			fold INTEGER DEFAULT 0,
			bulk INTEGER DEFAULT 0,
			backcarpark INTEGER DEFAULT 0,
			latest_update TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS record_grn (
			grn_ref INTEGER,
			plt_num VARCHAR(20),
			material_code VARCHAR(20),
			sup_code VARCHAR(20),
			net_weight NUMERIC DEFAULT 0,
			gross_weight NUMERIC DEFAULT 0,
			creat_time TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS record_history (
			uuid VARCHAR(64) PRIMARY KEY,
			id INTEGER,
			action VARCHAR(100),
			plt_num VARCHAR(20),
			loc VARCHAR(50),
			remark TEXT,
			time TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS record_aco (
			order_ref INTEGER,
			code VARCHAR(20),
			required_qty INTEGER DEFAULT 0,
			remain_qty INTEGER DEFAULT 0,
			latest_update TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS data_code (
			code VARCHAR(20) PRIMARY KEY,
			description TEXT,
			colour VARCHAR(50),
			standard_qty INTEGER DEFAULT 0,
			type VARCHAR(50)
		)`,
		`CREATE TABLE IF NOT EXISTS data_id (
			id INTEGER PRIMARY KEY,
			name VARCHAR(100),
			department VARCHAR(100),
			email VARCHAR(255)
		)`,
		`CREATE TABLE IF NOT EXISTS query_record (
			uuid VARCHAR(64) PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			query TEXT,
			answer TEXT,
			user_email VARCHAR(255),
			sql_query TEXT
		)`,
	}

	for _, query := range queries {
		_, err := db.ExecContext(context.Background(), query)
		require.NoError(t, err, "failed to create table")
	}
}

func insertSeedData(t *testing.T, client *database.PostgresClient) {
	db := client.GetDB()

	seed := []string{
		`INSERT INTO data_code (code, description, colour, standard_qty, type)
		 VALUES ('MEP9090', 'Envirocrate 90/90', 'Black', 40, 'product')
		 ON CONFLICT (code) DO NOTHING`,
		`INSERT INTO data_id (id, name, department, email)
		 VALUES (1001, 'E2E Operator', 'Warehouse', 'operator@example.com')
		 ON CONFLICT (id) DO NOTHING`,
		`INSERT INTO record_palletinfo (plt_num, product_code, product_qty, plt_remark, generate_time)
		 VALUES ('250829/1', 'MEP9090', 40, 'Material GRN - 810001', NOW())
		 ON CONFLICT (plt_num) DO NOTHING`,
		`INSERT INTO record_palletinfo (plt_num, product_code, product_qty, plt_remark, generate_time)
		 VALUES ('250829/2', 'MEP9090', 40, '', NOW())
		 ON CONFLICT (plt_num) DO NOTHING`,
		`INSERT INTO record_grn (grn_ref, plt_num, material_code, sup_code, net_weight, gross_weight, creat_time)
		 VALUES (810001, '250829/1', 'MEP9090', 'SUP01', 500.5, 520.0, NOW())`,
		`INSERT INTO record_transfer (uuid, plt_num, operator_id, f_loc, t_loc, tran_date)
		 VALUES ('e2e-tr-1', '250829/1', 1001, 'Await', 'Fold Mill', NOW())
		 ON CONFLICT (uuid) DO NOTHING`,
		`INSERT INTO record_inventory (uuid, product_code, fold, bulk)
		 VALUES ('e2e-inv-1', 'MEP9090', 80, 40)
		 ON CONFLICT (uuid) DO NOTHING`,
	}

	for _, query := range seed {
		_, err := db.ExecContext(context.Background(), query)
		if err != nil {
			t.Logf("seed insert skipped: %v", err)
		}
	}
}

func buildRouter(t *testing.T, cfg *config.Config, db *database.PostgresClient, rdb *database.RedisClient) http.Handler {
	log := logger.NewTestLogger(t)

	resolver, err := timeframe.NewResolver(cfg.Engine.Timezone, cfg.Engine.WeekStart)
	require.NoError(t, err)

	exec := executor.New(db.GetDB(), config.GetDuration(cfg.Engine.QueryTimeout), log)
	qcache := cache.New(rdb.GetClient(), cache.Options{
		TTL:         time.Duration(cfg.Engine.Cache.TTL) * time.Second,
		HistoryTTL:  time.Duration(cfg.Engine.Cache.HistoryTTL) * time.Second,
		HistorySize: cfg.Engine.Cache.HistorySize,
		KeyPrefix:   fmt.Sprintf("%s:e2e:%d", cfg.Engine.Cache.KeyPrefix, time.Now().UnixNano()),
	}, log)
	recorder := engine.NewRecorder(db.GetDB(), log)

	eng := engine.New(cfg.Engine, knowledge.NewBase(), templates.NewRegistry(),
		resolver, exec, qcache, recorder, log)

	return server.New(cfg, eng, exec, qcache, log).Router()
}

func ask(t *testing.T, router http.Handler, question string) *models.AskResponse {
	t.Helper()

	body, err := json.Marshal(map[string]string{"question": question, "sessionId": "e2e"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Email", "operator@example.com")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, "ask failed: %s", w.Body.String())

	var resp models.AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp
}
