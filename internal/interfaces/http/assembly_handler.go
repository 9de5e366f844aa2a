package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/onlyperf/warehouse-api/internal/application/assembly"
	"github.com/onlyperf/warehouse-api/internal/application/dto"
)

// AssemblyHandler ensambles por fases.
type AssemblyHandler struct {
	svc *assembly.Service
	log zerolog.Logger
}

// NewAssemblyHandler construye el handler.
func NewAssemblyHandler(svc *assembly.Service, log zerolog.Logger) *AssemblyHandler {
	return &AssemblyHandler{svc: svc, log: log}
}

// Create godoc
// @Summary      Abrir ensamble
// @Tags         assemblies
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateAssemblyRequest  true  "Producto objetivo y fases"
// @Success      201   {object}  dto.ActionResult{data=dto.AssemblyResponse}
// @Failure      400   {object}  dto.ActionResult
// @Router       /api/assemblies [post]
func (h *AssemblyHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateAssemblyRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.svc.Create(c.UserContext(), GetCompanyID(c), GetUserID(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(out))
}

// GetByID godoc
// @Summary      Estado del ensamble (polling)
// @Tags         assemblies
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del ensamble"
// @Success      200  {object}  dto.ActionResult{data=dto.AssemblyResponse}
// @Router       /api/assemblies/{id} [get]
func (h *AssemblyHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.svc.Get(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// Scan godoc
// @Summary      Escanear componente en la fase actual
// @Tags         assemblies
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del ensamble"
// @Param        body  body  dto.AssemblyScanRequest  true  "Código"
// @Success      200   {object}  dto.ActionResult{data=dto.AssemblyScanResult}
// @Failure      400   {object}  dto.ActionResult
// @Failure      409   {object}  dto.ActionResult
// @Router       /api/assemblies/{id}/scan [post]
func (h *AssemblyHandler) Scan(c *fiber.Ctx) error {
	var in dto.AssemblyScanRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.svc.Scan(c.UserContext(), GetCompanyID(c), GetUserID(c), c.Params("id"), in.Code)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// ConfirmPhase godoc
// @Summary      Confirmar fase completa y avanzar
// @Tags         assemblies
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del ensamble"
// @Param        body  body  dto.ConfirmPhaseRequest  true  "Fase vista por el operador"
// @Success      200   {object}  dto.ActionResult{data=dto.AssemblyResponse}
// @Router       /api/assemblies/{id}/confirm-phase [post]
func (h *AssemblyHandler) ConfirmPhase(c *fiber.Ctx) error {
	var in dto.ConfirmPhaseRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.svc.ConfirmPhase(c.UserContext(), GetCompanyID(c), c.Params("id"), in.PhaseIndex)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// Complete godoc
// @Summary      Completar ensamble
// @Tags         assemblies
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del ensamble"
// @Success      200  {object}  dto.ActionResult{data=dto.AssemblyCompleteResponse}
// @Failure      400  {object}  dto.ActionResult
// @Router       /api/assemblies/{id}/complete [post]
func (h *AssemblyHandler) Complete(c *fiber.Ctx) error {
	out, err := h.svc.Complete(c.UserContext(), GetCompanyID(c), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OKMessage("ensamble completado", out))
}

// Abandon godoc
// @Summary      Abandonar ensamble y liberar componentes
// @Tags         assemblies
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del ensamble"
// @Success      200  {object}  dto.ActionResult{data=dto.AssemblyResponse}
// @Router       /api/assemblies/{id}/abandon [post]
func (h *AssemblyHandler) Abandon(c *fiber.Ctx) error {
	out, err := h.svc.Abandon(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}
