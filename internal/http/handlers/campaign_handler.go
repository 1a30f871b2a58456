package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phishsim/backend/internal/apperrors"
	"github.com/phishsim/backend/internal/http/dto"
	"github.com/phishsim/backend/internal/middleware"
	"github.com/phishsim/backend/internal/services"
	"github.com/phishsim/backend/internal/validation"
)

type CampaignHandler struct {
	campaignService *services.CampaignService
	log             *zap.Logger
}

func NewCampaignHandler(campaignService *services.CampaignService, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{campaignService: campaignService, log: log}
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if err := validation.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	userID := middleware.GetUserID(c)
	campaign, err := h.campaignService.Create(c.Context(), userID, services.CreateCampaignInput{
		RecipientEmail: req.RecipientEmail,
		TemplateID:     req.TemplateID,
		Subject:        req.Subject,
		Content:        req.Content,
	})
	if err != nil {
		return h.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	campaigns, err := h.campaignService.List(c.Context(), userID)
	if err != nil {
		h.log.Error("list campaigns failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: campaigns})
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	userID := middleware.GetUserID(c)
	campaign, err := h.campaignService.Get(c.Context(), id, userID)
	if err != nil {
		return h.renderError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

func (h *CampaignHandler) SendCampaign(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}

	userID := middleware.GetUserID(c)
	campaign, err := h.campaignService.Send(c.Context(), id, userID)
	if err != nil {
		return h.renderError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

func (h *CampaignHandler) MailerHealth(c *fiber.Ctx) error {
	res, err := h.campaignService.MailerHealth(c.Context())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.MailHealthResponse{
		Status:            res.Status,
		Timestamp:         res.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		EmailServiceReady: res.EmailServiceReady,
	})
}

// renderError maps the domain error taxonomy onto HTTP statuses.
func (h *CampaignHandler) renderError(c *fiber.Ctx, err error) error {
	reqID, _ := c.Locals(middleware.CtxRequestID).(string)

	var cerr *apperrors.ChannelError
	var terr *apperrors.TransportError

	switch {
	case apperrors.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error(), RequestID: reqID})
	case errors.Is(err, apperrors.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "campaign not found", RequestID: reqID})
	case errors.Is(err, apperrors.ErrInvalidState):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: "campaign is not in a sendable state", RequestID: reqID})
	case errors.As(err, &cerr), errors.As(err, &terr):
		// The campaign has already been moved to FAILED.
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: err.Error(), RequestID: reqID})
	default:
		h.log.Error("campaign operation failed", zap.Error(err), zap.String("request_id", reqID))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error", RequestID: reqID})
	}
}
