// Package portstest dobles de prueba de los puertos de aplicación.
package portstest

import (
	"sync"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/application/ports"
)

// FulfillmentCall una llamada a QueueShopifyFulfillmentSync.
type FulfillmentCall struct {
	OrderID string
	Stage   ports.FulfillmentStage
}

// Scheduler registra todo lo que se agenda, sin ejecutar nada.
type Scheduler struct {
	mu           sync.Mutex
	Inventory    []string
	Packs        []string
	Fulfillments []FulfillmentCall
	Events       []dto.WarehouseSyncEvent
}

var _ ports.SyncScheduler = (*Scheduler)(nil)

func (s *Scheduler) QueueInventorySync(_ string, productIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Inventory = append(s.Inventory, productIDs...)
}

func (s *Scheduler) QueuePackProductSync(_ string, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Packs = append(s.Packs, productID)
}

func (s *Scheduler) QueueShopifyFulfillmentSync(_ string, orderID string, stage ports.FulfillmentStage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fulfillments = append(s.Fulfillments, FulfillmentCall{OrderID: orderID, Stage: stage})
}

func (s *Scheduler) QueuePortalEvent(_ string, ev dto.WarehouseSyncEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, ev)
}

// EventNames nombres de los eventos del portal en orden.
func (s *Scheduler) EventNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Events))
	for i, ev := range s.Events {
		out[i] = ev.Event
	}
	return out
}
