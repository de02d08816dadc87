package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"warehouse-askdb/internal/common/errors"
	"warehouse-askdb/internal/common/validation"
	"warehouse-askdb/internal/engine"
	"warehouse-askdb/internal/models"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": s.cfg.App.Name,
		"version": s.cfg.App.Version,
	})
}

func (s *Server) handleAsk(c *gin.Context) {
	requestID := c.GetString(requestIDKey)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.fail(c, requestID, errors.NewInvalidRequestError("unreadable request body"))
		return
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		s.fail(c, requestID, errors.NewInvalidRequestError("request body is not valid JSON"))
		return
	}

	result, err := validation.ValidateAskRequest(raw)
	if err != nil {
		s.fail(c, requestID, errors.NewInvalidRequestError(err.Error()))
		return
	}
	if !result.Valid {
		s.fail(c, requestID, errors.NewInvalidRequestError(result.ErrorSummary()))
		return
	}

	var req models.AskRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.fail(c, requestID, errors.NewInvalidRequestError("request body does not match schema"))
		return
	}

	resp, err := s.engine.Ask(c.Request.Context(), engine.Request{
		Question:  req.Question,
		SessionID: req.SessionID,
		UserEmail: c.GetHeader("X-User-Email"),
		RequestID: requestID,
	})
	if err != nil {
		s.fail(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHistory(c *gin.Context) {
	session := c.Param("session")
	c.JSON(http.StatusOK, gin.H{
		"sessionId": session,
		"exchanges": s.engine.History(c.Request.Context(), session),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	checks := map[string]string{
		"postgres": "ok",
		"redis":    "ok",
	}
	if err := s.executor.Ping(c.Request.Context()); err != nil {
		checks["postgres"] = err.Error()
	}
	if err := s.cache.Ping(c.Request.Context()); err != nil {
		checks["redis"] = err.Error()
	}

	c.JSON(http.StatusOK, models.StatusReport{
		Service:   s.cfg.App.Name,
		Version:   s.cfg.App.Version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Checks:    checks,
		Templates: s.engine.Registry().Count(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) fail(c *gin.Context, requestID string, err error) {
	status, resp := s.errHandler.HandleRequestError(requestID, err)
	c.JSON(status, resp)
}
