package services

import (
	"context"
	"time"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phishsim/backend/internal/apperrors"
	"github.com/phishsim/backend/internal/dispatch"
	"github.com/phishsim/backend/internal/events"
	"github.com/phishsim/backend/internal/models"
	"github.com/phishsim/backend/internal/repositories"
	"github.com/phishsim/backend/internal/templates"
)

// CampaignStore is the persistence contract the orchestrator needs.
// UpdateStatusIf must be atomic: the conditional update on the current
// status is the only concurrency guard for campaign transitions.
type CampaignStore interface {
	Create(ctx context.Context, c *models.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.CampaignSummary, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expectedStatus, newStatus string, patch repositories.StatusPatch) (*models.Campaign, error)
}

// ChannelClient is the management-side end of the private channel.
type ChannelClient interface {
	SendEmail(ctx context.Context, req dispatch.SendRequest) (*dispatch.SendResult, error)
	HealthCheck(ctx context.Context) (*dispatch.HealthResult, error)
}

// CampaignService owns the campaign lifecycle: creation, the send
// exchange over the private channel, and click recording.
type CampaignService struct {
	store       CampaignStore
	channel     ChannelClient
	catalog     *templates.Catalog
	publisher   events.Publisher
	sendTimeout time.Duration
	log         *zap.Logger
}

func NewCampaignService(
	store CampaignStore,
	channel ChannelClient,
	catalog *templates.Catalog,
	publisher events.Publisher,
	sendTimeout time.Duration,
	log *zap.Logger,
) *CampaignService {
	return &CampaignService{
		store:       store,
		channel:     channel,
		catalog:     catalog,
		publisher:   publisher,
		sendTimeout: sendTimeout,
		log:         log,
	}
}

type CreateCampaignInput struct {
	RecipientEmail string
	TemplateID     string
	Subject        string
	Content        string
}

// Create resolves the email content (custom, chosen template, or the
// default) and persists a new PENDING campaign. Content is copied at
// creation time; later template edits never touch existing campaigns.
func (s *CampaignService) Create(ctx context.Context, ownerID uuid.UUID, in CreateCampaignInput) (*models.Campaign, error) {
	if err := checkmail.ValidateFormat(in.RecipientEmail); err != nil {
		return nil, apperrors.NewValidation("recipient_email", "not a valid email address")
	}

	subject := in.Subject
	content := in.Content

	switch {
	case content != "":
		if err := s.catalog.Validate(content); err != nil {
			return nil, err
		}
		if subject == "" {
			return nil, apperrors.NewValidation("subject", "required with custom content")
		}
	case in.TemplateID != "":
		tpl, err := s.catalog.GetByID(in.TemplateID)
		if err != nil {
			return nil, apperrors.NewValidation("template_id", "unknown template")
		}
		content = tpl.Content
		if subject == "" {
			subject = tpl.Subject
		}
	default:
		tpl := s.catalog.Default()
		content = tpl.Content
		if subject == "" {
			subject = tpl.Subject
		}
	}

	c := &models.Campaign{
		OwnerID:        ownerID,
		RecipientEmail: in.RecipientEmail,
		Subject:        subject,
		EmailContent:   content,
		Status:         models.CampaignStatusPending,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventCampaignCreated, c)
	return c, nil
}

func (s *CampaignService) Get(ctx context.Context, id, ownerID uuid.UUID) (*models.Campaign, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.OwnerID != ownerID {
		return nil, apperrors.ErrNotFound
	}
	return c, nil
}

func (s *CampaignService) List(ctx context.Context, ownerID uuid.UUID) ([]models.CampaignSummary, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// Send dispatches the campaign's email over the private channel and
// applies the resulting transition. At-most-once: only a PENDING
// campaign can be sent, and once the request has been dispatched the
// campaign never stays PENDING — success lands on SENT, everything
// else (failed result, timeout, broker error) lands on FAILED with the
// reason surfaced to the caller. There is no retry on the same id.
//
// Known race, unresolved upstream of this design: on timeout the
// mailer may still deliver after we have already marked the campaign
// FAILED. There is no idempotency token or reconciliation step.
func (s *CampaignService) Send(ctx context.Context, id, ownerID uuid.UUID) (*models.Campaign, error) {
	c, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CampaignStatusPending {
		return nil, apperrors.ErrInvalidState
	}

	callCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	res, err := s.channel.SendEmail(callCtx, dispatch.SendRequest{
		RecipientEmail: c.RecipientEmail,
		Subject:        c.Subject,
		EmailContent:   c.EmailContent,
		AttemptID:      c.ID.String(),
	})
	if err != nil {
		s.log.Warn("channel call failed",
			zap.String("campaign_id", c.ID.String()),
			zap.Error(err),
		)
		s.markFailed(ctx, c.ID)
		return nil, err
	}

	if !res.Success {
		code := apperrors.CodeSendFailed
		msg := res.Message
		if res.Error != nil {
			code = res.Error.Code
			msg = res.Error.Message
		}
		s.log.Warn("mailer reported failure",
			zap.String("campaign_id", c.ID.String()),
			zap.String("code", code),
		)
		s.markFailed(ctx, c.ID)
		return nil, &apperrors.TransportError{Code: code, Message: msg}
	}

	sentAt := time.Now().UTC()
	if res.SentAt != nil {
		sentAt = *res.SentAt
	}

	updated, err := s.store.UpdateStatusIf(ctx, c.ID,
		models.CampaignStatusPending, models.CampaignStatusSent,
		repositories.StatusPatch{SentAt: &sentAt})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// A concurrent send won the CAS while we were on the wire.
		return nil, apperrors.ErrInvalidState
	}

	s.publish(ctx, events.EventCampaignStatusChanged, updated)
	return updated, nil
}

// markFailed moves a dispatched campaign out of PENDING so the failed
// attempt cannot be silently retried under the same id.
func (s *CampaignService) markFailed(ctx context.Context, id uuid.UUID) {
	updated, err := s.store.UpdateStatusIf(ctx, id,
		models.CampaignStatusPending, models.CampaignStatusFailed,
		repositories.StatusPatch{})
	if err != nil {
		s.log.Error("failed to mark campaign FAILED", zap.String("campaign_id", id.String()), zap.Error(err))
		return
	}
	if updated != nil {
		s.publish(ctx, events.EventCampaignStatusChanged, updated)
	}
}

// RecordClick stamps the SENT->CLICKED transition for the public
// tracking path. Idempotent: a repeat click returns the record with the
// original clicked_at. Clicks on campaigns that never reached SENT are
// ignored rather than transitioned, keeping the state machine intact.
func (s *CampaignService) RecordClick(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	now := time.Now().UTC()
	updated, err := s.store.UpdateStatusIf(ctx, id,
		models.CampaignStatusSent, models.CampaignStatusClicked,
		repositories.StatusPatch{ClickedAt: &now})
	if err != nil {
		return nil, err
	}
	if updated != nil {
		s.publish(ctx, events.EventCampaignClicked, updated)
		return updated, nil
	}

	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CampaignStatusClicked {
		s.log.Info("click on campaign not in SENT, ignoring",
			zap.String("campaign_id", id.String()),
			zap.String("status", c.Status),
		)
	}
	return c, nil
}

// MailerHealth asks the simulation service for its transport liveness.
func (s *CampaignService) MailerHealth(ctx context.Context) (*dispatch.HealthResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	return s.channel.HealthCheck(callCtx)
}

func (s *CampaignService) publish(ctx context.Context, eventType string, c *models.Campaign) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, events.StreamCampaign, events.Event{
		Type: eventType,
		Payload: map[string]any{
			"campaign_id":     c.ID.String(),
			"owner_id":        c.OwnerID.String(),
			"recipient_email": c.RecipientEmail,
			"status":          c.Status,
		},
	})
	if err != nil {
		s.log.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}
