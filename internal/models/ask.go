// internal/models/ask.go
package models

import "time"

// AskRequest is the POST /api/ask payload.
type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"sessionId,omitempty"`
}

// IntentInfo reports how the question was classified.
type IntentInfo struct {
	Type            string  `json:"type"`
	Confidence      float64 `json:"confidence"`
	MatchedTemplate string  `json:"matchedTemplate"`
}

// ResultPayload carries the raw query result rows.
type ResultPayload struct {
	Columns  []string                 `json:"columns"`
	Rows     []map[string]interface{} `json:"rows"`
	RowCount int                      `json:"rowCount"`
}

// AskResponse is the successful answer envelope.
type AskResponse struct {
	Question        string        `json:"question"`
	Intent          IntentInfo    `json:"intent"`
	SQL             string        `json:"sql"`
	Result          ResultPayload `json:"result"`
	Answer          string        `json:"answer"`
	ExecutionTimeMs int64         `json:"executionTimeMs"`
	Cached          bool          `json:"cached"`
	RequestID       string        `json:"requestId"`
	Timestamp       string        `json:"timestamp"`
}

// Exchange is one question/answer pair kept in the per-session history.
type Exchange struct {
	Question   string    `json:"question"`
	TemplateID string    `json:"templateId"`
	Answer     string    `json:"answer"`
	Timestamp  time.Time `json:"timestamp"`
}

// StatusReport is the GET /api/ask/status payload.
type StatusReport struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks"`
	Templates int               `json:"templates"`
	Timestamp string            `json:"timestamp"`
}
