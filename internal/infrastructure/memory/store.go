// Package memory implementa los puertos de repository en memoria del proceso.
// Se usa en pruebas de casos de uso; Run de TxRunner restaura una copia del estado si fn falla.
package memory

import (
	"context"
	"sync"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

type state struct {
	products      map[string]*entity.Product
	packs         map[entity.PackKey]string
	units         map[string]*entity.Unit
	unitByCode    map[string]string
	shipments     map[string]*entity.Shipment
	assemblies    map[string]*entity.Assembly
	customers     map[string]*entity.Customer
	orders        map[string]*entity.Order
	deliveries    map[string]*entity.Delivery
	history       []*entity.DeliveryHistory
	resolutions   map[string]*entity.DeliveryResolution
	settings      map[string]*entity.ShopifySettings
	mappings      map[string]*entity.ShopifyProductMapping
	custProducts  map[string]*entity.CustomerProduct
	customerScans []*entity.CustomerScan
}

func newState() state {
	return state{
		products:     map[string]*entity.Product{},
		packs:        map[entity.PackKey]string{},
		units:        map[string]*entity.Unit{},
		unitByCode:   map[string]string{},
		shipments:    map[string]*entity.Shipment{},
		assemblies:   map[string]*entity.Assembly{},
		customers:    map[string]*entity.Customer{},
		orders:       map[string]*entity.Order{},
		deliveries:   map[string]*entity.Delivery{},
		resolutions:  map[string]*entity.DeliveryResolution{},
		settings:     map[string]*entity.ShopifySettings{},
		mappings:     map[string]*entity.ShopifyProductMapping{},
		custProducts: map[string]*entity.CustomerProduct{},
	}
}

// clone copia profunda suficiente para restaurar: las entidades se copian por valor.
func (s state) clone() state {
	c := newState()
	for k, v := range s.products {
		c.products[k] = cloneProduct(v)
	}
	for k, v := range s.packs {
		c.packs[k] = v
	}
	for k, v := range s.units {
		u := *v
		c.units[k] = &u
	}
	for k, v := range s.unitByCode {
		c.unitByCode[k] = v
	}
	for k, v := range s.shipments {
		sh := *v
		c.shipments[k] = &sh
	}
	for k, v := range s.assemblies {
		c.assemblies[k] = cloneAssembly(v)
	}
	for k, v := range s.customers {
		cu := *v
		c.customers[k] = &cu
	}
	for k, v := range s.orders {
		c.orders[k] = cloneOrder(v)
	}
	for k, v := range s.deliveries {
		d := *v
		c.deliveries[k] = &d
	}
	for _, h := range s.history {
		hh := *h
		c.history = append(c.history, &hh)
	}
	for k, v := range s.resolutions {
		r := *v
		c.resolutions[k] = &r
	}
	for k, v := range s.settings {
		st := *v
		c.settings[k] = &st
	}
	for k, v := range s.mappings {
		m := *v
		c.mappings[k] = &m
	}
	for k, v := range s.custProducts {
		cp := *v
		c.custProducts[k] = &cp
	}
	for _, sc := range s.customerScans {
		x := *sc
		c.customerScans = append(c.customerScans, &x)
	}
	return c
}

func cloneProduct(p *entity.Product) *entity.Product {
	c := *p
	return &c
}

func cloneAssembly(a *entity.Assembly) *entity.Assembly {
	c := *a
	c.Phases = append([]entity.AssemblyPhase(nil), a.Phases...)
	return &c
}

func cloneOrder(o *entity.Order) *entity.Order {
	c := *o
	c.Items = append([]entity.OrderItem(nil), o.Items...)
	return &c
}

// Store estado compartido por todos los repositorios en memoria.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   state

	// FailUnitBatch hace fallar la N-ésima llamada a InsertBatch (1 = la primera). 0 = nunca.
	FailUnitBatch int
	// UnitBatchSizes tamaño de cada llamada a InsertBatch, en orden.
	UnitBatchSizes []int
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Repos repositorios sobre el almacén.
func (s *Store) Repos() repository.Repos {
	return repository.Repos{
		Products:   &ProductRepo{s: s},
		Units:      &UnitRepo{s: s},
		Shipments:  &ShipmentRepo{s: s},
		Assemblies: &AssemblyRepo{s: s},
		Customers:  &CustomerRepo{s: s},
		Orders:     &OrderRepo{s: s},
		Deliveries: &DeliveryRepo{s: s},
		Shopify:    &ShopifyRepo{s: s},
		Portal:     &PortalRepo{s: s},
	}
}

// TxRunner serializa las transacciones y restaura el estado previo si fn devuelve error.
type TxRunner struct {
	s *Store
}

var _ repository.TxRunner = (*TxRunner)(nil)

// NewTxRunner construye el runner.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// Run ejecuta fn con todo-o-nada.
func (t *TxRunner) Run(ctx context.Context, fn func(repos repository.Repos) error) error {
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	t.s.mu.Lock()
	snap := t.s.st.clone()
	t.s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(t.s.Repos()); err != nil {
		t.s.mu.Lock()
		t.s.st = snap
		t.s.mu.Unlock()
		return err
	}
	return nil
}

// Helpers de inspección para pruebas.

// CountProducts número de productos.
func (s *Store) CountProducts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.products)
}

// CountUnits número de unidades.
func (s *Store) CountUnits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.units)
}

// CountShipments número de envíos.
func (s *Store) CountShipments() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.shipments)
}

// CustomerScans copia de la auditoría de verificaciones.
func (s *Store) CustomerScans() []entity.CustomerScan {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.CustomerScan, len(s.st.customerScans))
	for i, sc := range s.st.customerScans {
		out[i] = *sc
	}
	return out
}

// PutSettings fija la configuración Shopify de una organización.
func (s *Store) PutSettings(cfg entity.ShopifySettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.settings[cfg.OrganizationID] = &cfg
}
