package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/application/shopifysync"
	"github.com/onlyperf/warehouse-api/internal/domain"
)

// SyncInventoryRequest productos a sincronizar.
type SyncInventoryRequest struct {
	ProductIDs []string `json:"product_ids"`
}

// ShopifyHandler disponibilidad y sincronización con la tienda.
type ShopifyHandler struct {
	svc   *shopifysync.Service
	queue *shopifysync.Queue
	log   zerolog.Logger
}

// NewShopifyHandler construye el handler; queue puede ser nil.
func NewShopifyHandler(svc *shopifysync.Service, queue *shopifysync.Queue, log zerolog.Logger) *ShopifyHandler {
	return &ShopifyHandler{svc: svc, queue: queue, log: log}
}

// Available godoc
// @Summary      Cantidad disponible de un producto
// @Tags         shopify
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {object}  dto.ActionResult{data=shopifysync.ProductAvailability}
// @Router       /api/inventory/{productId}/available [get]
func (h *ShopifyHandler) Available(c *fiber.Ctx) error {
	out, err := h.svc.Availability(c.UserContext(), GetCompanyID(c), c.Params("productId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// SyncInventory godoc
// @Summary      Sincronizar inventario con Shopify
// @Description  Sincroniza en serie; el resultado por producto es synced, skipped o error.
// @Tags         shopify
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  SyncInventoryRequest  true  "Productos"
// @Success      200   {object}  dto.ActionResult{data=[]shopifysync.SyncResult}
// @Router       /api/shopify/sync/inventory [post]
func (h *ShopifyHandler) SyncInventory(c *fiber.Ctx) error {
	var in SyncInventoryRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if len(in.ProductIDs) == 0 {
		return respondError(c, h.log, domain.Invalid("product_ids", "se requiere al menos un producto"))
	}
	return c.JSON(dto.OK(h.svc.SyncInventoryBatch(c.UserContext(), GetCompanyID(c), in.ProductIDs)))
}

// QueueStats godoc
// @Summary      Contadores de la cola de sincronización
// @Tags         shopify
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ActionResult{data=shopifysync.QueueStats}
// @Router       /api/shopify/queue [get]
func (h *ShopifyHandler) QueueStats(c *fiber.Ctx) error {
	var stats shopifysync.QueueStats
	if h.queue != nil {
		stats = h.queue.Stats()
	}
	return c.JSON(dto.OK(stats))
}
