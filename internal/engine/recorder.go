package engine

import (
	"context"
	"database/sql"
	"time"

	"warehouse-askdb/internal/common/logger"

	"github.com/google/uuid"
)

// Recorder writes each answered question to the query_record audit table.
// Recording happens off the request path and never fails a request.
type Recorder struct {
	db     *sql.DB
	logger logger.Logger
}

func NewRecorder(db *sql.DB, log logger.Logger) *Recorder {
	return &Recorder{db: db, logger: log}
}

// Record inserts one audit row with its own short deadline.
func (r *Recorder) Record(question, answer, userEmail, sqlQuery string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO query_record (uuid, created_at, query, answer, user_email, sql_query) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), time.Now().UTC(), question, answer, userEmail, sqlQuery,
	)
	if err != nil {
		r.logger.WithError(err).Warn("Query record insert failed", map[string]interface{}{
			"user": userEmail,
		})
	}
}
