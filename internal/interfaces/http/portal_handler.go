package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/application/portal"
)

// PortalHandler rutas públicas del portal de clientes.
type PortalHandler struct {
	svc *portal.Service
	log zerolog.Logger
}

// NewPortalHandler construye el handler.
func NewPortalHandler(svc *portal.Service, log zerolog.Logger) *PortalHandler {
	return &PortalHandler{svc: svc, log: log}
}

// WarehouseSync godoc
// @Summary      Webhook de eventos de la bodega
// @Tags         portal
// @Accept       json
// @Produce      json
// @Param        X-Webhook-Secret  header  string                  true  "Secreto compartido"
// @Param        body              body    dto.WarehouseSyncEvent  true  "Evento"
// @Success      200  {object}  dto.WarehouseSyncResponse
// @Failure      400  {object}  dto.WarehouseSyncResponse
// @Failure      401  {object}  dto.WarehouseSyncResponse
// @Router       /api/webhooks/warehouse-sync [post]
func (h *PortalHandler) WarehouseSync(c *fiber.Ctx) error {
	var ev dto.WarehouseSyncEvent
	if err := c.BodyParser(&ev); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.WarehouseSyncResponse{Error: "cuerpo inválido"})
	}
	out, err := h.svc.HandleWebhook(c.UserContext(), ev)
	if err != nil {
		status := statusFor(err)
		if status == 0 {
			h.log.Error().Err(err).Str("event", ev.Event).Str("qr_code", ev.Data.QRCode).Msg("error procesando webhook")
			return c.Status(fiber.StatusInternalServerError).JSON(dto.WarehouseSyncResponse{Error: genericError})
		}
		return c.Status(status).JSON(dto.WarehouseSyncResponse{Error: err.Error()})
	}
	return c.JSON(out)
}

// Verify godoc
// @Summary      Verificar autenticidad de un producto
// @Description  El bloque ownership sólo aparece si la cookie de sesión pertenece al dueño.
// @Tags         portal
// @Produce      json
// @Param        qrCode  path  string  true  "Código QR"
// @Success      200  {object}  dto.ActionResult{data=dto.VerifyResponse}
// @Failure      404  {object}  dto.ActionResult
// @Router       /api/products/verify/{qrCode} [get]
func (h *PortalHandler) Verify(c *fiber.Ctx) error {
	out, err := h.svc.Verify(c.UserContext(), portal.VerifyInput{
		QRCode:     c.Params("qrCode"),
		CustomerID: GetCustomerID(c),
		IPAddress:  c.IP(),
		UserAgent:  c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}
