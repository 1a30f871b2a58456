package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phishsim/backend/internal/services"
)

// TrackHandler serves the public, unauthenticated click path. A click
// always lands on the awareness page; tracking failures are logged but
// never shown to the anonymous clicker.
type TrackHandler struct {
	campaignService *services.CampaignService
	awarenessURL    string
	log             *zap.Logger
}

func NewTrackHandler(campaignService *services.CampaignService, awarenessURL string, log *zap.Logger) *TrackHandler {
	return &TrackHandler{campaignService: campaignService, awarenessURL: awarenessURL, log: log}
}

func (h *TrackHandler) HandleClick(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err == nil {
		if _, err := h.campaignService.RecordClick(c.Context(), id); err != nil {
			h.log.Info("click tracking failed", zap.String("attempt_id", id.String()), zap.Error(err))
		}
	} else {
		h.log.Info("click with malformed attempt id", zap.String("raw", c.Params("id")))
	}

	return c.Redirect(h.awarenessURL, fiber.StatusFound)
}

// AwarenessPage is the educational landing page the tracking redirect
// points at.
func (h *TrackHandler) AwarenessPage(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Security Awareness</title></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 40px auto; color: #333;">
    <h1 style="color: #b03a2e;">This was a phishing simulation</h1>
    <p>The email that brought you here was sent by your organization's
    security team as part of an awareness exercise. No harm was done and
    no data was collected beyond the fact that the link was clicked.</p>
    <h2>How to spot the signs</h2>
    <ul>
        <li>Urgency and threats ("your account expires today")</li>
        <li>Sender addresses that almost match a real one</li>
        <li>Links whose destination does not match the visible text</li>
    </ul>
    <p>When in doubt, report the email to your security team instead of
    clicking.</p>
</body>
</html>`)
}
