// Package engine orchestrates the ask-database pipeline: classify the
// question, resolve its timeframe, build conditions, assemble and validate
// SQL, execute with caching, and compose the answer.
package engine

import (
	"context"
	"regexp"
	"strings"
	"time"

	"warehouse-askdb/internal/common/config"
	"warehouse-askdb/internal/common/errors"
	"warehouse-askdb/internal/common/logger"
	"warehouse-askdb/internal/common/metrics"
	"warehouse-askdb/internal/common/observability"
	"warehouse-askdb/internal/engine/answer"
	"warehouse-askdb/internal/engine/cache"
	"warehouse-askdb/internal/engine/conditions"
	"warehouse-askdb/internal/engine/executor"
	"warehouse-askdb/internal/engine/intent"
	"warehouse-askdb/internal/engine/knowledge"
	"warehouse-askdb/internal/engine/sqlgen"
	"warehouse-askdb/internal/engine/templates"
	"warehouse-askdb/internal/engine/timeframe"
	"warehouse-askdb/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

// Request is one question to answer.
type Request struct {
	Question  string
	SessionID string
	UserEmail string
	RequestID string
}

// Engine wires the pipeline stages together.
type Engine struct {
	cfg        config.EngineConfig
	kb         *knowledge.Base
	registry   *templates.Registry
	classifier *intent.Classifier
	resolver   *timeframe.Resolver
	builder    *conditions.Builder
	executor   *executor.Executor
	cache      *cache.Cache
	composer   *answer.Composer
	recorder   *Recorder
	obs        *observability.Observability
	logger     logger.Logger

	now func() time.Time
}

// New builds an engine from already-constructed stage components.
func New(
	cfg config.EngineConfig,
	kb *knowledge.Base,
	registry *templates.Registry,
	resolver *timeframe.Resolver,
	exec *executor.Executor,
	qcache *cache.Cache,
	recorder *Recorder,
	log logger.Logger,
) *Engine {
	return &Engine{
		cfg:        cfg,
		kb:         kb,
		registry:   registry,
		classifier: intent.NewClassifier(registry, cfg.MinConfidence),
		resolver:   resolver,
		builder:    conditions.NewBuilder(kb, cfg.MaxLimit),
		executor:   exec,
		cache:      qcache,
		composer:   answer.NewComposer(kb),
		recorder:   recorder,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock overrides the engine clock, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// WithObservability attaches the OTel instruments recorded on each answer.
func (e *Engine) WithObservability(obs *observability.Observability) *Engine {
	e.obs = obs
	return e
}

func (e *Engine) observe(ctx context.Context, status string, start time.Time) {
	if e.obs == nil {
		return
	}
	e.obs.RecordQuestionProcessed(ctx, status)
	e.obs.RecordQuestionDuration(ctx, e.now().Sub(start), status)
}

// History returns the recent exchanges recorded for a session, newest first.
func (e *Engine) History(ctx context.Context, sessionID string) []models.Exchange {
	return e.cache.History(ctx, sessionID)
}

// Registry exposes the template registry for the status endpoint.
func (e *Engine) Registry() *templates.Registry {
	return e.registry
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// Normalize lowercases, trims, and collapses whitespace in a question.
func Normalize(question string) string {
	return whitespacePattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(question)), " ")
}

// Ask runs the full pipeline for one question.
func (e *Engine) Ask(ctx context.Context, req Request) (*models.AskResponse, error) {
	start := e.now()

	normalized := Normalize(req.Question)
	if normalized == "" {
		return nil, errors.NewEmptyQuestionError()
	}
	if len(req.Question) > e.cfg.MaxQuestionLength {
		return nil, errors.NewQuestionTooLongError(len(req.Question), e.cfg.MaxQuestionLength)
	}

	mods := e.builder.Detect(normalized)
	cand := e.classifier.Classify(normalized, mods.Present())

	log := e.logger.WithFields(map[string]interface{}{
		"requestId":  req.RequestID,
		"templateId": cand.Template.ID,
		"intentType": string(cand.Type),
	})
	log.Info("Question classified", map[string]interface{}{
		"confidence": cand.Confidence,
		"fallback":   cand.Fallback,
	})

	// A temporal expression that cannot be parsed drops the date predicate
	// rather than failing the question.
	rng, err := e.resolver.Resolve(normalized, start)
	if err != nil {
		log.WithError(err).Warn("Date resolution failed, continuing without date filter", nil)
		rng = nil
	}

	set := e.builder.Build(cand.Template, mods, rng)

	limit := e.cfg.DefaultLimit
	if mods.HasLimit {
		limit = mods.Limit
	}

	sqlText, args, err := sqlgen.Assemble(cand.Template, set, limit)
	if err != nil {
		return nil, err
	}
	if err := sqlgen.Validate(sqlText); err != nil {
		stdErr := errors.Normalize(err)
		metrics.SQLRejected.WithLabelValues(string(stdErr.Code)).Inc()
		log.Error("Generated SQL rejected", map[string]interface{}{
			"errorCode": string(stdErr.Code),
		})
		return nil, err
	}

	key := cache.Key(normalized, rng, set)

	if entry, ok := e.cache.Get(ctx, key); ok {
		metrics.QuestionsProcessed.WithLabelValues(string(cand.Type), "true").Inc()
		e.observe(ctx, "cache_hit", start)
		log.Info("Answered from cache", map[string]interface{}{"cacheKey": key})
		return e.respond(req, cand, entry.SQL, entry.Result, entry.Answer, true, start), nil
	}

	timer := prometheus.NewTimer(metrics.QuestionDuration.WithLabelValues(string(cand.Type)))
	res, err := e.executor.Execute(ctx, cand.Template.ID, sqlText, args)
	timer.ObserveDuration()
	if err != nil {
		stdErr := errors.Normalize(err)
		metrics.QuestionsFailed.WithLabelValues(string(cand.Type), string(stdErr.Code)).Inc()
		e.observe(ctx, "error", start)
		return nil, err
	}

	ans := e.composer.Compose(cand.Template, res, rng, mods)

	e.cache.Set(ctx, key, &cache.Entry{
		TemplateID: cand.Template.ID,
		SQL:        sqlText,
		Result:     res,
		Answer:     ans,
		CreatedAt:  e.now().UTC(),
	})
	e.cache.AppendHistory(ctx, req.SessionID, models.Exchange{
		Question:   normalized,
		TemplateID: cand.Template.ID,
		Answer:     ans,
		Timestamp:  e.now().UTC(),
	})

	if e.recorder != nil {
		go e.recorder.Record(req.Question, ans, req.UserEmail, sqlText)
	}

	metrics.QuestionsProcessed.WithLabelValues(string(cand.Type), "false").Inc()
	e.observe(ctx, "success", start)
	log.Info("Question answered", map[string]interface{}{
		"rowCount":   res.RowCount,
		"durationMs": e.now().Sub(start).Milliseconds(),
	})

	return e.respond(req, cand, sqlText, res, ans, false, start), nil
}

func (e *Engine) respond(req Request, cand intent.Candidate, sqlText string, res *executor.Result, ans string, cached bool, start time.Time) *models.AskResponse {
	return &models.AskResponse{
		Question: req.Question,
		Intent: models.IntentInfo{
			Type:            string(cand.Type),
			Confidence:      cand.Confidence,
			MatchedTemplate: cand.Template.ID,
		},
		SQL: sqlText,
		Result: models.ResultPayload{
			Columns:  res.Columns,
			Rows:     res.Rows,
			RowCount: res.RowCount,
		},
		Answer:          ans,
		ExecutionTimeMs: e.now().Sub(start).Milliseconds(),
		Cached:          cached,
		RequestID:       req.RequestID,
		Timestamp:       e.now().UTC().Format(time.RFC3339),
	}
}
