package dispatch

import (
	"context"
	"encoding/json"
	"time"
)

// Request patterns carried on the private channel.
const (
	PatternSendEmail   = "send_phishing_email"
	PatternHealthCheck = "health_check"
)

// Health statuses reported by the mailer.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// Envelope wraps every request on the channel with its pattern name.
type Envelope struct {
	Pattern string          `json:"pattern"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// SendRequest is the payload of a send_phishing_email call. Created per
// call on the management side, discarded after consumption.
type SendRequest struct {
	RecipientEmail string `json:"recipient_email"`
	Subject        string `json:"subject"`
	EmailContent   string `json:"email_content"`
	AttemptID      string `json:"attempt_id"`
}

func (r *SendRequest) Valid() bool {
	return r.RecipientEmail != "" && r.Subject != "" && r.EmailContent != "" && r.AttemptID != ""
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// SendResult is the structured response to a send request. Every
// outcome is encoded here; the mailer never lets a transport failure
// surface as a broker-level error.
type SendResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	SentAt  *time.Time   `json:"sent_at,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

type HealthResult struct {
	Status            string    `json:"status"`
	Timestamp         time.Time `json:"timestamp"`
	EmailServiceReady bool      `json:"email_service_ready"`
}

// Handler is the mailer-side contract the RPC server dispatches to.
type Handler interface {
	HandleSend(ctx context.Context, req SendRequest) SendResult
	HandleHealthCheck(ctx context.Context) HealthResult
}
