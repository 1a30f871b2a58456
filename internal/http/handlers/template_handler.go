package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/phishsim/backend/internal/http/dto"
	"github.com/phishsim/backend/internal/templates"
)

type TemplateHandler struct {
	catalog *templates.Catalog
}

func NewTemplateHandler(catalog *templates.Catalog) *TemplateHandler {
	return &TemplateHandler{catalog: catalog}
}

func (h *TemplateHandler) ListTemplates(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.catalog.List()})
}

func (h *TemplateHandler) GetTemplate(c *fiber.Ctx) error {
	tpl, err := h.catalog.GetByID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "template not found"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: tpl})
}
