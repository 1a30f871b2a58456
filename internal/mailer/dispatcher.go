package mailer

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/phishsim/backend/internal/apperrors"
	"github.com/phishsim/backend/internal/dispatch"
	"github.com/phishsim/backend/internal/templates"
)

// Dispatcher handles send requests from the private channel: it
// resolves the tracking URL into the template, derives a plain-text
// body, and hands the message to the transport. Every outcome comes
// back as a structured result.
type Dispatcher struct {
	transport       Transport
	trackingBaseURL string
	log             *zap.Logger
}

func NewDispatcher(transport Transport, trackingBaseURL string, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		transport:       transport,
		trackingBaseURL: strings.TrimRight(trackingBaseURL, "/"),
		log:             log,
	}
}

func (d *Dispatcher) HandleSend(ctx context.Context, req dispatch.SendRequest) dispatch.SendResult {
	trackingURL := d.trackingBaseURL + "/" + req.AttemptID

	html := strings.ReplaceAll(req.EmailContent, templates.TrackingLinkPlaceholder, trackingURL)
	html = strings.ReplaceAll(html, templates.TimestampPlaceholder, time.Now().Format("Jan 2, 2006 15:04 MST"))

	msg := &Message{
		To:      req.RecipientEmail,
		Subject: req.Subject,
		HTML:    html,
		Text:    htmlToText(html),
	}

	if err := d.transport.Send(msg); err != nil {
		d.log.Warn("transport send failed",
			zap.String("attempt_id", req.AttemptID),
			zap.Error(err),
		)
		return dispatch.SendResult{
			Success: false,
			Message: "email delivery failed",
			Error:   &dispatch.ErrorDetail{Code: apperrors.CodeSendFailed, Message: err.Error()},
		}
	}

	now := time.Now().UTC()
	return dispatch.SendResult{
		Success: true,
		Message: "email sent",
		SentAt:  &now,
	}
}

func (d *Dispatcher) HandleHealthCheck(ctx context.Context) dispatch.HealthResult {
	ready := d.transport.HealthCheck()
	status := dispatch.HealthHealthy
	if !ready {
		status = dispatch.HealthUnhealthy
	}
	return dispatch.HealthResult{
		Status:            status,
		Timestamp:         time.Now().UTC(),
		EmailServiceReady: ready,
	}
}

// htmlToText strips markup and collapses whitespace to produce the
// text/plain fallback body.
func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
