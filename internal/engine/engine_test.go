package engine

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"warehouse-askdb/internal/common/config"
	apperrors "warehouse-askdb/internal/common/errors"
	"warehouse-askdb/internal/common/logger"
	"warehouse-askdb/internal/common/observability"
	"warehouse-askdb/internal/engine/cache"
	"warehouse-askdb/internal/engine/executor"
	"warehouse-askdb/internal/engine/knowledge"
	"warehouse-askdb/internal/engine/templates"
	"warehouse-askdb/internal/engine/timeframe"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedNow is a Thursday in BST so relative-day resolution is deterministic.
var fixedNow = func() time.Time {
	loc, _ := time.LoadLocation("Europe/London")
	return time.Date(2025, 6, 5, 14, 30, 0, 0, loc)
}

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		Timezone:          "Europe/London",
		WeekStart:         "monday",
		QueryTimeout:      30000,
		DefaultLimit:      100,
		MaxLimit:          500,
		MaxQuestionLength: 500,
		MinConfidence:     0.3,
	}
}

func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := testEngineConfig()
	resolver, err := timeframe.NewResolver(cfg.Timezone, cfg.WeekStart)
	require.NoError(t, err)

	log := logger.NewNoOpLogger()
	exec := executor.New(db, 5*time.Second, log)
	qcache := cache.New(client, cache.Options{
		TTL:         4 * time.Hour,
		HistoryTTL:  24 * time.Hour,
		HistorySize: 10,
		KeyPrefix:   "askdb",
	}, log)

	eng := New(cfg, knowledge.NewBase(), templates.NewRegistry(), resolver, exec, qcache, nil, log).
		WithClock(fixedNow)
	return eng, mock
}

const palletCountSQL = `SELECT COUNT(*) AS pallet_count, COALESCE(SUM(product_qty), 0) AS total_quantity ` +
	`FROM record_palletinfo WHERE generate_time >= $1 AND generate_time < $2 LIMIT $3`

func TestAskPalletCountToday(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery(regexp.QuoteMeta(palletCountSQL)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 100).
		WillReturnRows(sqlmock.NewRows([]string{"pallet_count", "total_quantity"}).
			AddRow(int64(42), int64(1050)))

	resp, err := eng.Ask(context.Background(), Request{
		Question:  "How many pallets were generated today?",
		SessionID: "session-1",
		RequestID: "req-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "pallet_count", resp.Intent.MatchedTemplate)
	assert.Equal(t, string(templates.IntentCount), resp.Intent.Type)
	assert.False(t, resp.Cached)
	assert.Equal(t, palletCountSQL, resp.SQL)
	assert.Equal(t, 1, resp.Result.RowCount)
	assert.Equal(t,
		"Today(05/06/2025), 42 pallets were generated with a total quantity of 1050 units according to records.",
		resp.Answer)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskSecondCallComesFromCache(t *testing.T) {
	eng, mock := newTestEngine(t)

	// Only one database round trip is expected for two identical questions.
	mock.ExpectQuery(regexp.QuoteMeta(palletCountSQL)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 100).
		WillReturnRows(sqlmock.NewRows([]string{"pallet_count", "total_quantity"}).
			AddRow(int64(5), int64(0)))

	req := Request{Question: "how many pallets were generated today", RequestID: "req-1"}

	first, err := eng.Ask(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := eng.Ask(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, first.SQL, second.SQL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskRepeatedInSessionHitsCache(t *testing.T) {
	eng, mock := newTestEngine(t)

	// Session history must not scope the cache key: the identical question
	// within the TTL answers from cache with a single database round trip,
	// even though the first ask appended to the session history.
	mock.ExpectQuery(regexp.QuoteMeta(palletCountSQL)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 100).
		WillReturnRows(sqlmock.NewRows([]string{"pallet_count", "total_quantity"}).
			AddRow(int64(1), int64(0)))

	req := Request{Question: "how many pallets were generated today", SessionID: "session-1"}

	first, err := eng.Ask(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := eng.Ask(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Answer, second.Answer)

	third, err := eng.Ask(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, third.Cached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskGRNExclusion(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery(`NOT LIKE`).
		WillReturnRows(sqlmock.NewRows([]string{"pallet_count", "total_quantity"}).
			AddRow(int64(3), int64(0)))

	resp, err := eng.Ask(context.Background(), Request{
		Question: "how many pallets were generated today excluding grn",
	})
	require.NoError(t, err)

	assert.Contains(t, resp.SQL, "plt_remark NOT LIKE")
	assert.Contains(t, resp.Answer, "3 non-GRN pallets")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskEmptyQuestion(t *testing.T) {
	eng, _ := newTestEngine(t)

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := eng.Ask(context.Background(), Request{Question: q})
		require.Error(t, err)
		stdErr := apperrors.Normalize(err)
		assert.Equal(t, apperrors.ErrCodeEmptyQuestion, stdErr.Code)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(stdErr.Code))
	}
}

func TestAskQuestionTooLong(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Ask(context.Background(), Request{Question: strings.Repeat("a", 501)})
	require.Error(t, err)
	stdErr := apperrors.Normalize(err)
	assert.Equal(t, apperrors.ErrCodeQuestionTooLong, stdErr.Code)
}

func TestAskFallbackWithoutTimeframe(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery(`SELECT`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

	resp, err := eng.Ask(context.Background(), Request{
		Question: "tell me something interesting",
	})
	require.NoError(t, err)
	assert.Equal(t, "generic_fallback", resp.Intent.MatchedTemplate)
	assert.Less(t, resp.Intent.Confidence, 0.3)
}

func TestAskRecordsOTelInstruments(t *testing.T) {
	eng, mock := newTestEngine(t)
	eng.WithObservability(observability.New("askdb-test"))

	mock.ExpectQuery(regexp.QuoteMeta(palletCountSQL)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 100).
		WillReturnRows(sqlmock.NewRows([]string{"pallet_count", "total_quantity"}).
			AddRow(int64(2), int64(0)))

	_, err := eng.Ask(context.Background(), Request{Question: "how many pallets were generated today"})
	require.NoError(t, err)

	// Second ask answers from cache and records under the cache_hit status.
	_, err = eng.Ask(context.Background(), Request{Question: "how many pallets were generated today"})
	require.NoError(t, err)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var processed, duration bool
	for _, f := range families {
		if f.GetName() == "questions_processed_total" {
			processed = true
		}
		if strings.HasPrefix(f.GetName(), "questions_duration") {
			duration = true
		}
	}
	assert.True(t, processed, "processed counter not exported")
	assert.True(t, duration, "duration histogram not exported")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskUnparseableDateProceedsWithoutFilter(t *testing.T) {
	eng, mock := newTestEngine(t)

	// 31/02/2025 is not a real date; the question must still be answered,
	// just without a date predicate.
	noDateSQL := `SELECT COUNT(*) AS pallet_count, COALESCE(SUM(product_qty), 0) AS total_quantity ` +
		`FROM record_palletinfo WHERE 1=1 LIMIT $1`
	mock.ExpectQuery(regexp.QuoteMeta(noDateSQL)).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"pallet_count", "total_quantity"}).
			AddRow(int64(7), int64(350)))

	resp, err := eng.Ask(context.Background(), Request{
		Question: "how many pallets were generated between 31/02/2025 and 05/03/2025",
	})
	require.NoError(t, err)
	assert.Equal(t, "pallet_count", resp.Intent.MatchedTemplate)
	assert.Equal(t, "7 pallets were generated with a total quantity of 350 units according to records.", resp.Answer)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskExecutionErrorSurfaces(t *testing.T) {
	eng, mock := newTestEngine(t)

	mock.ExpectQuery(regexp.QuoteMeta(palletCountSQL)).
		WillReturnError(assert.AnError)

	_, err := eng.Ask(context.Background(), Request{
		Question: "how many pallets were generated today",
	})
	require.Error(t, err)
	stdErr := apperrors.Normalize(err)
	assert.Equal(t, apperrors.ErrCodeQueryExecutionFailed, stdErr.Code)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  How MANY   Pallets\tToday ", "how many pallets today"},
		{"already normal", "already normal"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}
