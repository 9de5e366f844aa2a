package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/application/scanning"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// ScanHandler escaneos de entrada/venta y sesión de escaneo compartida.
type ScanHandler struct {
	svc      *scanning.Service
	sessions *scanning.SessionService
	log      zerolog.Logger
}

// NewScanHandler construye el handler.
func NewScanHandler(svc *scanning.Service, sessions *scanning.SessionService, log zerolog.Logger) *ScanHandler {
	return &ScanHandler{svc: svc, sessions: sessions, log: log}
}

// Lookup godoc
// @Summary      Consultar unidad por código QR
// @Tags         scan
// @Security     Bearer
// @Produce      json
// @Param        code  path  string  true  "Código QR"
// @Success      200   {object}  dto.ActionResult{data=dto.UnitResponse}
// @Failure      404   {object}  dto.ActionResult
// @Router       /api/units/{code} [get]
func (h *ScanHandler) Lookup(c *fiber.Ctx) error {
	out, err := h.svc.Lookup(c.UserContext(), GetCompanyID(c), c.Params("code"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// Inbound godoc
// @Summary      Escaneo de entrada (pending → received)
// @Tags         scan
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiveRequest  true  "Código escaneado"
// @Success      200   {object}  dto.ActionResult{data=dto.ReceiveResponse}
// @Failure      409   {object}  dto.ActionResult
// @Router       /api/scan/inbound [post]
func (h *ScanHandler) Inbound(c *fiber.Ctx) error {
	var in dto.ReceiveRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.svc.Receive(c.UserContext(), GetCompanyID(c), GetUserID(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OKMessage("unidad recibida", out))
}

// Sale godoc
// @Summary      Escaneo de venta en tienda
// @Tags         scan
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SellRequest  true  "Código escaneado"
// @Success      200   {object}  dto.ActionResult{data=dto.UnitResponse}
// @Failure      409   {object}  dto.ActionResult
// @Router       /api/scan/sale [post]
func (h *ScanHandler) Sale(c *fiber.Ctx) error {
	var in dto.SellRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.svc.Sell(c.UserContext(), GetCompanyID(c), GetUserID(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OKMessage("unidad vendida", out))
}

// GetSession godoc
// @Summary      Sesión de escaneo del operador
// @Tags         scan
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ActionResult{data=dto.SessionResponse}
// @Router       /api/scan/session [get]
func (h *ScanHandler) GetSession(c *fiber.Ctx) error {
	out, err := h.sessions.Get(c.UserContext(), GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// PatchSession godoc
// @Summary      Fusionar cambios de un dispositivo en la sesión
// @Tags         scan
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  entity.SessionPatch  true  "Cambios"
// @Success      200   {object}  dto.ActionResult{data=dto.SessionResponse}
// @Router       /api/scan/session [patch]
func (h *ScanHandler) PatchSession(c *fiber.Ctx) error {
	var patch entity.SessionPatch
	if err := c.BodyParser(&patch); err != nil {
		return badBody(c)
	}
	out, err := h.sessions.Apply(c.UserContext(), GetCompanyID(c), GetUserID(c), patch)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// ClearSession godoc
// @Summary      Vaciar la sesión de escaneo
// @Tags         scan
// @Security     Bearer
// @Success      204
// @Router       /api/scan/session [delete]
func (h *ScanHandler) ClearSession(c *fiber.Ctx) error {
	if err := h.sessions.Clear(c.UserContext(), GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
