// Package executor runs validated SQL against PostgreSQL and scans results
// into generic row maps.
package executor

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"warehouse-askdb/internal/common/errors"
	"warehouse-askdb/internal/common/logger"
	"warehouse-askdb/internal/common/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// Result is the scanned output of one query.
type Result struct {
	Columns  []string                 `json:"columns"`
	Rows     []map[string]interface{} `json:"rows"`
	RowCount int                      `json:"rowCount"`
	Duration time.Duration            `json:"-"`
}

// Executor wraps the database handle with a per-query timeout and error
// classification.
type Executor struct {
	db      *sql.DB
	timeout time.Duration
	logger  logger.Logger
}

func New(db *sql.DB, timeout time.Duration, log logger.Logger) *Executor {
	return &Executor{db: db, timeout: timeout, logger: log}
}

// Execute runs the statement with bound args. Timeouts and connection drops
// come back retryable; malformed SQL and permission failures are terminal.
func (e *Executor) Execute(ctx context.Context, templateID, sqlText string, args []interface{}) (*Result, error) {
	queryCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	timer := prometheus.NewTimer(metrics.QueryDuration.WithLabelValues(templateID))
	defer timer.ObserveDuration()

	start := time.Now()
	rows, err := e.db.QueryContext(queryCtx, sqlText, args...)
	if err != nil {
		return nil, e.classify(queryCtx, templateID, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, e.classify(queryCtx, templateID, err)
	}
	result.Duration = time.Since(start)

	e.logger.Debug("Query executed", map[string]interface{}{
		"templateId": templateID,
		"rowCount":   result.RowCount,
		"durationMs": result.Duration.Milliseconds(),
	})

	return result, nil
}

// Ping reports database liveness for the status endpoint.
func (e *Executor) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return e.db.PingContext(pingCtx)
}

func (e *Executor) classify(ctx context.Context, templateID string, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		e.logger.Warn("Query timed out", map[string]interface{}{
			"templateId": templateID,
			"timeoutMs":  e.timeout.Milliseconds(),
		})
		return errors.NewQueryTimeoutError(templateID)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "bad connection") {
		return errors.NewDatabaseConnectionFailedError(err)
	}

	return errors.NewQueryExecutionFailedError(templateID, err)
}

// scanRows reads all rows into column-keyed maps. Byte slices are converted to
// strings so JSON marshaling stays readable.
func scanRows(rows *sql.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := &Result{Columns: columns, Rows: []map[string]interface{}{}}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			case time.Time:
				row[col] = v.Format(time.RFC3339)
			default:
				row[col] = v
			}
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out.RowCount = len(out.Rows)
	return out, nil
}
