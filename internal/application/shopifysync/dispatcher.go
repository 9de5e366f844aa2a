package shopifysync

import (
	"context"
	"fmt"
	"strings"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/application/ports"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

var _ ports.SyncScheduler = (*Dispatcher)(nil)

// Dispatcher traduce los eventos de la bodega en tareas de la cola.
type Dispatcher struct {
	queue    *Queue
	service  *Service
	notifier ports.PortalNotifier // nil: portal deshabilitado
}

// NewDispatcher construye el despachador. notifier puede ser nil.
func NewDispatcher(q *Queue, svc *Service, notifier ports.PortalNotifier) *Dispatcher {
	return &Dispatcher{queue: q, service: svc, notifier: notifier}
}

// QueueInventorySync agenda la sincronización de inventario; falla (y se reintenta) si algún producto quedó en error.
func (d *Dispatcher) QueueInventorySync(orgID string, productIDs ...string) {
	ids := dedupe(productIDs)
	if len(ids) == 0 {
		return
	}
	d.queue.Enqueue(Task{
		Name:  "inventory_sync",
		OrgID: orgID,
		Ref:   strings.Join(ids, ","),
		Run: func(ctx context.Context) error {
			var failed []string
			for _, r := range d.service.SyncInventoryBatch(ctx, orgID, ids) {
				if r.Status == entity.SyncError {
					failed = append(failed, r.ProductID)
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("sincronización fallida para %s", strings.Join(failed, ", "))
			}
			return nil
		},
	})
}

// QueuePackProductSync agenda la publicación de un producto pack recién creado.
func (d *Dispatcher) QueuePackProductSync(orgID, productID string) {
	d.queue.Enqueue(Task{
		Name:  "pack_product_sync",
		OrgID: orgID,
		Ref:   productID,
		Run: func(ctx context.Context) error {
			r := d.service.SyncPackProduct(ctx, orgID, productID)
			if r.Status == entity.SyncError {
				return fmt.Errorf("publicar pack %s: %s", productID, r.Message)
			}
			return nil
		},
	})
}

// QueueShopifyFulfillmentSync agenda el reflejo del despacho en Shopify.
func (d *Dispatcher) QueueShopifyFulfillmentSync(orgID, orderID string, stage ports.FulfillmentStage) {
	d.queue.Enqueue(Task{
		Name:  "fulfillment_sync_" + string(stage),
		OrgID: orgID,
		Ref:   orderID,
		Run: func(ctx context.Context) error {
			_, err := d.service.SyncFulfillment(ctx, orgID, orderID, stage)
			return err
		},
	})
}

// QueuePortalEvent agenda la notificación al portal de clientes.
func (d *Dispatcher) QueuePortalEvent(orgID string, ev dto.WarehouseSyncEvent) {
	if d.notifier == nil {
		return
	}
	d.queue.Enqueue(Task{
		Name:  "portal_" + ev.Event,
		OrgID: orgID,
		Ref:   ev.Data.QRCode,
		Run: func(ctx context.Context) error {
			return d.notifier.Notify(ctx, ev)
		},
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
