package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/application/order"
)

// OrderHandler pedidos: validación, asignación, preparación y despacho.
type OrderHandler struct {
	svc *order.Service
	log zerolog.Logger
}

// NewOrderHandler construye el handler.
func NewOrderHandler(svc *order.Service, log zerolog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, log: log}
}

// Create godoc
// @Summary      Procesar pedido (cliente + asignación)
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ProcessOrderRequest  true  "Pedido"
// @Success      201   {object}  dto.ActionResult{data=dto.OrderResponse}
// @Failure      404   {object}  dto.ActionResult  "SKU sin producto"
// @Failure      409   {object}  dto.ActionResult  "inventario insuficiente"
// @Router       /api/orders [post]
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var in dto.ProcessOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.svc.ProcessOrder(c.UserContext(), GetCompanyID(c), GetUserID(c), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(out))
}

// Validate godoc
// @Summary      Verificar disponibilidad sin reservar
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ValidateOrderRequest  true  "Líneas"
// @Success      200   {object}  dto.ActionResult{data=[]dto.AvailabilityLine}
// @Failure      409   {object}  dto.ActionResult
// @Router       /api/orders/validate [post]
func (h *OrderHandler) Validate(c *fiber.Ctx) error {
	var in dto.ValidateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	lines, err := h.svc.ValidateInventoryAvailability(c.UserContext(), GetCompanyID(c), in.Items)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(lines))
}

// GetByID godoc
// @Summary      Obtener pedido con su entrega
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del pedido"
// @Success      200  {object}  dto.ActionResult{data=dto.OrderResponse}
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.svc.GetOrder(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// Fulfill godoc
// @Summary      Preparar pedido con las unidades escaneadas
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del pedido"
// @Param        body  body  dto.FulfillOrderRequest  true  "Códigos"
// @Success      200   {object}  dto.ActionResult{data=dto.OrderResponse}
// @Router       /api/orders/{id}/fulfill [post]
func (h *OrderHandler) Fulfill(c *fiber.Ctx) error {
	var in dto.FulfillOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.svc.FulfillOrder(c.UserContext(), GetCompanyID(c), GetUserID(c), c.Params("id"), in.Codes)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// Ship godoc
// @Summary      Despachar pedido preparado
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID del pedido"
// @Param        body  body  dto.ShipOrderRequest  true  "Transporte"
// @Success      200   {object}  dto.ActionResult{data=dto.OrderResponse}
// @Router       /api/orders/{id}/ship [post]
func (h *OrderHandler) Ship(c *fiber.Ctx) error {
	var in dto.ShipOrderRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	out, err := h.svc.ShipOrder(c.UserContext(), GetCompanyID(c), GetUserID(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OKMessage("pedido despachado", out))
}

// DeliveryHandler entregas y resoluciones de entregas fallidas.
type DeliveryHandler struct {
	svc *order.DeliveryService
	log zerolog.Logger
}

// NewDeliveryHandler construye el handler.
func NewDeliveryHandler(svc *order.DeliveryService, log zerolog.Logger) *DeliveryHandler {
	return &DeliveryHandler{svc: svc, log: log}
}

// GetByID godoc
// @Summary      Obtener entrega
// @Tags         deliveries
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la entrega"
// @Success      200  {object}  dto.ActionResult{data=dto.DeliveryResponse}
// @Router       /api/deliveries/{id} [get]
func (h *DeliveryHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.svc.GetDelivery(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// UpdateStatus godoc
// @Summary      Cambiar estado de la entrega
// @Description  failed abre una resolución pendiente; delivered marca pedido y unidades como entregados.
// @Tags         deliveries
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                           true  "ID de la entrega"
// @Param        body  body  dto.UpdateDeliveryStatusRequest  true  "Nuevo estado"
// @Success      200   {object}  dto.ActionResult{data=dto.DeliveryResponse}
// @Router       /api/deliveries/{id}/status [post]
func (h *DeliveryHandler) UpdateStatus(c *fiber.Ctx) error {
	var in dto.UpdateDeliveryStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.svc.UpdateStatus(c.UserContext(), GetCompanyID(c), GetUserID(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// SetResolutionType godoc
// @Summary      Elegir tipo de resolución
// @Tags         deliveries
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                        true  "ID de la resolución"
// @Param        body  body  dto.SetResolutionTypeRequest  true  "re_import | return_to_supplier | retry_delivery"
// @Success      200   {object}  dto.ActionResult{data=dto.ResolutionResponse}
// @Router       /api/resolutions/{id}/type [post]
func (h *DeliveryHandler) SetResolutionType(c *fiber.Ctx) error {
	var in dto.SetResolutionTypeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.svc.SetResolutionType(c.UserContext(), GetCompanyID(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// StartResolution godoc
// @Summary      Iniciar resolución
// @Tags         deliveries
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la resolución"
// @Success      200  {object}  dto.ActionResult{data=dto.ResolutionResponse}
// @Router       /api/resolutions/{id}/start [post]
func (h *DeliveryHandler) StartResolution(c *fiber.Ctx) error {
	out, err := h.svc.StartResolution(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// CompleteResolution godoc
// @Summary      Completar resolución
// @Tags         deliveries
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                         true  "ID de la resolución"
// @Param        body  body  dto.CompleteResolutionRequest  false "Ubicación y notas"
// @Success      200   {object}  dto.ActionResult{data=dto.ResolutionResponse}
// @Router       /api/resolutions/{id}/complete [post]
func (h *DeliveryHandler) CompleteResolution(c *fiber.Ctx) error {
	var in dto.CompleteResolutionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	out, err := h.svc.CompleteResolution(c.UserContext(), GetCompanyID(c), GetUserID(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OKMessage("resolución completada", out))
}
