package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/onlyperf/warehouse-api/internal/application/assembly"
	"github.com/onlyperf/warehouse-api/internal/application/catalog"
	"github.com/onlyperf/warehouse-api/internal/application/order"
	"github.com/onlyperf/warehouse-api/internal/application/portal"
	"github.com/onlyperf/warehouse-api/internal/application/scanning"
	"github.com/onlyperf/warehouse-api/internal/application/shipment"
	"github.com/onlyperf/warehouse-api/internal/application/shopifysync"
	"github.com/onlyperf/warehouse-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Catalog       *catalog.Service
	Shipments     *shipment.Service
	Scanning      *scanning.Service
	Sessions      *scanning.SessionService
	Assemblies    *assembly.Service
	Orders        *order.Service
	Deliveries    *order.DeliveryService
	Shopify       *shopifysync.Service
	SyncQueue     *shopifysync.Queue
	Portal        *portal.Service
	JWTSecret     string
	WebhookSecret string
	SessionCookie string
	Log           zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	log := deps.Log

	// Portal de clientes (público)
	portalHandler := NewPortalHandler(deps.Portal, log)
	api.Post("/webhooks/warehouse-sync", WebhookSecret(deps.WebhookSecret), portalHandler.WarehouseSync)
	api.Get("/products/verify/:qrCode", PortalSession(deps.JWTSecret, deps.SessionCookie), portalHandler.Verify)

	// Rutas de bodega (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	staff := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleVendedor)
	warehouse := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)
	sales := RequireRole(jwt.RoleAdmin, jwt.RoleVendedor)
	admin := RequireRole(jwt.RoleAdmin)

	// Catálogo
	productHandler := NewProductHandler(deps.Catalog, log)
	protected.Get("/products", staff, productHandler.List)
	protected.Post("/products", admin, productHandler.Create)
	protected.Get("/products/:id", staff, productHandler.GetByID)
	protected.Put("/products/:id", admin, productHandler.Update)

	// Envíos
	shipmentHandler := NewShipmentHandler(deps.Shipments, log)
	shipments := protected.Group("/shipments", warehouse)
	shipments.Post("/", shipmentHandler.Create)
	shipments.Get("/:id", shipmentHandler.GetByID)
	shipments.Post("/:id/close", shipmentHandler.Close)

	// Escaneo y sesión compartida
	scanHandler := NewScanHandler(deps.Scanning, deps.Sessions, log)
	protected.Get("/units/:code", staff, scanHandler.Lookup)
	scan := protected.Group("/scan")
	scan.Post("/inbound", warehouse, scanHandler.Inbound)
	scan.Post("/sale", sales, scanHandler.Sale)
	scan.Get("/session", staff, scanHandler.GetSession)
	scan.Patch("/session", staff, scanHandler.PatchSession)
	scan.Delete("/session", staff, scanHandler.ClearSession)

	// Ensambles
	assemblyHandler := NewAssemblyHandler(deps.Assemblies, log)
	assemblies := protected.Group("/assemblies", warehouse)
	assemblies.Post("/", assemblyHandler.Create)
	assemblies.Get("/:id", assemblyHandler.GetByID)
	assemblies.Post("/:id/scan", assemblyHandler.Scan)
	assemblies.Post("/:id/confirm-phase", assemblyHandler.ConfirmPhase)
	assemblies.Post("/:id/complete", assemblyHandler.Complete)
	assemblies.Post("/:id/abandon", assemblyHandler.Abandon)

	// Pedidos
	orderHandler := NewOrderHandler(deps.Orders, log)
	orders := protected.Group("/orders")
	orders.Post("/", sales, orderHandler.Create)
	orders.Post("/validate", sales, orderHandler.Validate)
	orders.Get("/:id", staff, orderHandler.GetByID)
	orders.Post("/:id/fulfill", warehouse, orderHandler.Fulfill)
	orders.Post("/:id/ship", warehouse, orderHandler.Ship)

	// Entregas y resoluciones
	deliveryHandler := NewDeliveryHandler(deps.Deliveries, log)
	protected.Get("/deliveries/:id", staff, deliveryHandler.GetByID)
	protected.Post("/deliveries/:id/status", warehouse, deliveryHandler.UpdateStatus)
	resolutions := protected.Group("/resolutions", warehouse)
	resolutions.Post("/:id/type", deliveryHandler.SetResolutionType)
	resolutions.Post("/:id/start", deliveryHandler.StartResolution)
	resolutions.Post("/:id/complete", deliveryHandler.CompleteResolution)

	// Shopify
	shopifyHandler := NewShopifyHandler(deps.Shopify, deps.SyncQueue, log)
	protected.Get("/inventory/:productId/available", staff, shopifyHandler.Available)
	protected.Post("/shopify/sync/inventory", admin, shopifyHandler.SyncInventory)
	protected.Get("/shopify/queue", admin, shopifyHandler.QueueStats)
}
