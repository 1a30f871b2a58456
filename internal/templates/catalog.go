package templates

import (
	"fmt"
	"strings"

	"github.com/phishsim/backend/internal/apperrors"
)

// Placeholder tokens replaced at send time. TrackingLinkPlaceholder is
// mandatory in every template body; TimestampPlaceholder is optional.
const (
	TrackingLinkPlaceholder = "{{TRACKING_LINK}}"
	TimestampPlaceholder    = "{{TIMESTAMP}}"
)

// MaxContentLength bounds custom template bodies.
const MaxContentLength = 50000

// Template categories
const (
	CategorySecurity = "security"
	CategoryDelivery = "delivery"
	CategoryHR       = "hr"
	CategoryIT       = "it"
)

type EmailTemplate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Subject     string `json:"subject"`
	Content     string `json:"content"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Catalog is an injected, read-only registry of the built-in templates.
type Catalog struct {
	templates []EmailTemplate
	byID      map[string]*EmailTemplate
}

func NewCatalog() *Catalog {
	c := &Catalog{templates: builtin}
	c.byID = make(map[string]*EmailTemplate, len(c.templates))
	for i := range c.templates {
		c.byID[c.templates[i].ID] = &c.templates[i]
	}
	return c
}

func (c *Catalog) List() []EmailTemplate {
	out := make([]EmailTemplate, len(c.templates))
	copy(out, c.templates)
	return out
}

func (c *Catalog) GetByID(id string) (*EmailTemplate, error) {
	t, ok := c.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return t, nil
}

// Default returns the first catalog entry, used when a campaign is
// created without an explicit template or custom content.
func (c *Catalog) Default() *EmailTemplate {
	return &c.templates[0]
}

// Validate checks a custom (caller-supplied) body: it must carry the
// click-link placeholder and stay under the size cap. Runs before any
// campaign is created from custom content.
func (c *Catalog) Validate(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperrors.NewValidation("content", "must not be empty")
	}
	if len(content) > MaxContentLength {
		return apperrors.NewValidation("content", fmt.Sprintf("exceeds maximum length of %d characters", MaxContentLength))
	}
	if !strings.Contains(content, TrackingLinkPlaceholder) {
		return apperrors.NewValidation("content", fmt.Sprintf("missing required placeholder %s", TrackingLinkPlaceholder))
	}
	return nil
}

var builtin = []EmailTemplate{
	{
		ID:          "password-reset",
		Name:        "Password Reset Notice",
		Subject:     "Action required: your password expires today",
		Description: "Urgent password-expiry notice impersonating the IT helpdesk.",
		Category:    CategoryIT,
		Content: `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="border-bottom: 1px solid #eee; padding-bottom: 10px;">
        <h2 style="color: #2c3e50;">IT Helpdesk</h2>
    </div>
    <p>Hello,</p>
    <p>Your network password expires <strong>today</strong>. To avoid losing access to
    email and shared drives, reset it now:</p>
    <p style="text-align: center;">
        <a href="{{TRACKING_LINK}}" style="display: inline-block; padding: 10px 20px; background-color: #3498db; color: white; text-decoration: none; border-radius: 4px;">Reset Password</a>
    </p>
    <p>This request was generated on {{TIMESTAMP}}.</p>
    <div style="margin-top: 30px; font-size: 12px; color: #7f8c8d;">
        <p>IT Helpdesk &middot; Do not reply to this message.</p>
    </div>
</body>
</html>`,
	},
	{
		ID:          "package-delivery",
		Name:        "Missed Package Delivery",
		Subject:     "We could not deliver your package",
		Description: "Courier notice asking the recipient to reschedule a delivery.",
		Category:    CategoryDelivery,
		Content: `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #b03a2e;">Delivery attempt failed</h2>
    <p>Our courier attempted to deliver your package on {{TIMESTAMP}} but no one was
    available to sign for it.</p>
    <p>Schedule a redelivery within 48 hours or the package will be returned to sender:</p>
    <p><a href="{{TRACKING_LINK}}">Reschedule delivery</a></p>
    <p style="font-size: 12px; color: #7f8c8d;">Tracking reference: DX-4417-220</p>
</body>
</html>`,
	},
	{
		ID:          "shared-document",
		Name:        "Shared Document",
		Subject:     "A document has been shared with you",
		Description: "Generic file-sharing notification with a view link.",
		Category:    CategorySecurity,
		Content: `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <p>Hi,</p>
    <p>A colleague shared <strong>Q3-budget-final.xlsx</strong> with you.</p>
    <p><a href="{{TRACKING_LINK}}">Open document</a></p>
    <p style="font-size: 12px; color: #7f8c8d;">This link is personal to you. Shared on {{TIMESTAMP}}.</p>
</body>
</html>`,
	},
	{
		ID:          "benefits-update",
		Name:        "HR Benefits Enrollment",
		Subject:     "Benefits enrollment closes Friday",
		Description: "HR notice pushing the recipient to confirm benefit elections.",
		Category:    CategoryHR,
		Content: `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2c3e50;">Annual benefits enrollment</h2>
    <p>Enrollment closes this Friday. Employees who take no action will be moved to
    the default plan.</p>
    <p><a href="{{TRACKING_LINK}}">Review your elections</a></p>
    <p style="font-size: 12px; color: #7f8c8d;">Human Resources</p>
</body>
</html>`,
	},
}
