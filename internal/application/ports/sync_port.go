package ports

import (
	"context"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
)

// FulfillmentStage etapa del despacho que se refleja en Shopify.
type FulfillmentStage string

const (
	FulfillmentShipped   FulfillmentStage = "shipped"
	FulfillmentDelivered FulfillmentStage = "delivered"
)

// SyncScheduler agenda trabajo en segundo plano después del commit.
// Ningún método bloquea ni devuelve error: un fallo de sincronización nunca revierte la operación local.
type SyncScheduler interface {
	QueueInventorySync(orgID string, productIDs ...string)
	QueuePackProductSync(orgID, productID string)
	QueueShopifyFulfillmentSync(orgID, orderID string, stage FulfillmentStage)
	QueuePortalEvent(orgID string, ev dto.WarehouseSyncEvent)
}

// PortalNotifier entrega eventos de la bodega al portal de clientes.
type PortalNotifier interface {
	Notify(ctx context.Context, ev dto.WarehouseSyncEvent) error
}

// NopScheduler descarta todo; útil cuando la sincronización está deshabilitada.
type NopScheduler struct{}

func (NopScheduler) QueueInventorySync(string, ...string)                        {}
func (NopScheduler) QueuePackProductSync(string, string)                         {}
func (NopScheduler) QueueShopifyFulfillmentSync(string, string, FulfillmentStage) {}
func (NopScheduler) QueuePortalEvent(string, dto.WarehouseSyncEvent)             {}
