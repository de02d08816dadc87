// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuestionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_questions_processed_total",
			Help: "Total number of questions processed by intent type",
		},
		[]string{"intent_type", "cached"},
	)

	QuestionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_questions_failed_total",
			Help: "Total number of failed questions by error code",
		},
		[]string{"intent_type", "error_code"},
	)

	QuestionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "askdb_question_duration_seconds",
			Help: "End-to-end question processing duration in seconds",
		},
		[]string{"intent_type"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "askdb_query_duration_seconds",
			Help: "Database query execution duration in seconds",
		},
		[]string{"template_id"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_cache_hits_total",
			Help: "Result cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	SQLRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_sql_rejected_total",
			Help: "Generated SQL statements rejected by safety validation",
		},
		[]string{"reason"},
	)
)
