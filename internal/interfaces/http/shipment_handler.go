package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/application/shipment"
)

// ShipmentHandler envíos de proveedor.
type ShipmentHandler struct {
	svc *shipment.Service
	log zerolog.Logger
}

// NewShipmentHandler construye el handler.
func NewShipmentHandler(svc *shipment.Service, log zerolog.Logger) *ShipmentHandler {
	return &ShipmentHandler{svc: svc, log: log}
}

// Create godoc
// @Summary      Registrar envío de proveedor
// @Description  Crea el envío y una unidad pending con código QR único por cada ítem. Las líneas con pack_size crean unidades del producto pack.
// @Tags         shipments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateShipmentRequest  true  "Envío"
// @Success      201   {object}  dto.ActionResult{data=dto.ShipmentResponse}
// @Failure      400   {object}  dto.ActionResult
// @Failure      404   {object}  dto.ActionResult
// @Router       /api/shipments [post]
func (h *ShipmentHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateShipmentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.svc.CreateShipment(c.UserContext(), GetCompanyID(c), GetUserID(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(out))
}

// GetByID godoc
// @Summary      Obtener envío con conteo por estado
// @Tags         shipments
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del envío"
// @Success      200  {object}  dto.ActionResult{data=dto.ShipmentResponse}
// @Failure      404  {object}  dto.ActionResult
// @Router       /api/shipments/{id} [get]
func (h *ShipmentHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.svc.GetShipment(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// Close godoc
// @Summary      Cerrar envío recibido
// @Tags         shipments
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del envío"
// @Success      200  {object}  dto.ActionResult{data=dto.ShipmentResponse}
// @Failure      409  {object}  dto.ActionResult
// @Router       /api/shipments/{id}/close [post]
func (h *ShipmentHandler) Close(c *fiber.Ctx) error {
	out, err := h.svc.CloseShipment(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OKMessage("envío cerrado", out))
}
