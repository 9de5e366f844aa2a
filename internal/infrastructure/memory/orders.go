package memory

import (
	"context"
	"time"

	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

var (
	_ repository.AssemblyRepository = (*AssemblyRepo)(nil)
	_ repository.CustomerRepository = (*CustomerRepo)(nil)
	_ repository.OrderRepository    = (*OrderRepo)(nil)
	_ repository.DeliveryRepository = (*DeliveryRepo)(nil)
)

// AssemblyRepo ensambles en memoria.
type AssemblyRepo struct{ s *Store }

// Create inserta el ensamble.
func (r *AssemblyRepo) Create(_ context.Context, a *entity.Assembly) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.assemblies[a.ID]; ok {
		return domain.ErrDuplicate
	}
	r.s.st.assemblies[a.ID] = cloneAssembly(a)
	return nil
}

// GetByID ensamble con fases.
func (r *AssemblyRepo) GetByID(_ context.Context, id string) (*entity.Assembly, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.st.assemblies[id]
	if !ok {
		return nil, nil
	}
	return cloneAssembly(a), nil
}

// GetForUpdate igual que GetByID.
func (r *AssemblyRepo) GetForUpdate(ctx context.Context, id string) (*entity.Assembly, error) {
	return r.GetByID(ctx, id)
}

// IncrementPhase incremento condicional.
func (r *AssemblyRepo) IncrementPhase(_ context.Context, assemblyID string, phaseIndex int) (int, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.st.assemblies[assemblyID]
	if !ok || phaseIndex < 0 || phaseIndex >= len(a.Phases) {
		return 0, false, domain.ErrNotFound
	}
	p := &a.Phases[phaseIndex]
	if p.ScannedCount >= p.ExpectedCount {
		return 0, false, nil
	}
	p.ScannedCount++
	a.Version++
	a.UpdatedAt = time.Now()
	return p.ScannedCount, true, nil
}

// AdvancePhase avanza sólo desde expectedIndex.
func (r *AssemblyRepo) AdvancePhase(_ context.Context, assemblyID string, expectedIndex int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.st.assemblies[assemblyID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if a.CurrentPhaseIndex != expectedIndex {
		return false, nil
	}
	a.CurrentPhaseIndex++
	a.Version++
	a.UpdatedAt = time.Now()
	return true, nil
}

// UpdateStatus cambia el estado.
func (r *AssemblyRepo) UpdateStatus(_ context.Context, id string, status entity.AssemblyStatus, completedAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.st.assemblies[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = status
	a.CompletedAt = completedAt
	a.Version++
	a.UpdatedAt = time.Now()
	return nil
}

// CustomerRepo clientes en memoria.
type CustomerRepo struct{ s *Store }

// Create inserta respetando (organization_id, phone).
func (r *CustomerRepo) Create(_ context.Context, c *entity.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.st.customers {
		if x.OrganizationID == c.OrganizationID && x.Phone == c.Phone {
			return domain.ErrDuplicate
		}
	}
	cc := *c
	r.s.st.customers[c.ID] = &cc
	return nil
}

// GetByID obtiene un cliente.
func (r *CustomerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.st.customers[id]
	if !ok {
		return nil, nil
	}
	cc := *c
	return &cc, nil
}

// GetByPhone busca por teléfono.
func (r *CustomerRepo) GetByPhone(_ context.Context, orgID, phone string) (*entity.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.st.customers {
		if c.OrganizationID == orgID && c.Phone == phone {
			cc := *c
			return &cc, nil
		}
	}
	return nil, nil
}

// Update reemplaza datos de contacto.
func (r *CustomerRepo) Update(_ context.Context, c *entity.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.customers[c.ID]; !ok {
		return domain.ErrNotFound
	}
	cc := *c
	r.s.st.customers[c.ID] = &cc
	return nil
}

// OrderRepo pedidos en memoria.
type OrderRepo struct{ s *Store }

// Create inserta pedido e ítems.
func (r *OrderRepo) Create(_ context.Context, o *entity.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.orders[o.ID]; ok {
		return domain.ErrDuplicate
	}
	c := cloneOrder(o)
	for i := range c.Items {
		c.Items[i].OrderID = c.ID
	}
	r.s.st.orders[o.ID] = c
	return nil
}

// GetByID pedido con ítems.
func (r *OrderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.st.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

// GetForUpdate igual que GetByID.
func (r *OrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.GetByID(ctx, id)
}

// UpdateStatus cambia el estado.
func (r *OrderRepo) UpdateStatus(_ context.Context, id string, status entity.OrderStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.st.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}

// BindItem asigna la unidad a un ítem libre.
func (r *OrderRepo) BindItem(_ context.Context, itemID, unitID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.st.orders {
		for _, it := range o.Items {
			if it.ShipmentItemID != nil && *it.ShipmentItemID == unitID {
				return domain.ErrDuplicate
			}
		}
	}
	for _, o := range r.s.st.orders {
		for i := range o.Items {
			if o.Items[i].ID != itemID {
				continue
			}
			if o.Items[i].ShipmentItemID != nil {
				return domain.ErrConflict
			}
			id := unitID
			o.Items[i].ShipmentItemID = &id
			return nil
		}
	}
	return domain.ErrConflict
}

// UnbindUnits libera los ítems que apuntan a las unidades.
func (r *OrderRepo) UnbindUnits(_ context.Context, unitIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	drop := make(map[string]bool, len(unitIDs))
	for _, id := range unitIDs {
		drop[id] = true
	}
	for _, o := range r.s.st.orders {
		for i := range o.Items {
			if o.Items[i].ShipmentItemID != nil && drop[*o.Items[i].ShipmentItemID] {
				o.Items[i].ShipmentItemID = nil
			}
		}
	}
	return nil
}

// OrderIDForUnit pedido con un ítem asignado a la unidad.
func (r *OrderRepo) OrderIDForUnit(_ context.Context, unitID string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.st.orders {
		for _, it := range o.Items {
			if it.ShipmentItemID != nil && *it.ShipmentItemID == unitID {
				return o.ID, nil
			}
		}
	}
	return "", nil
}

// SetShopifyFulfillmentID guarda el fulfillment.
func (r *OrderRepo) SetShopifyFulfillmentID(_ context.Context, id, fulfillmentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if o, ok := r.s.st.orders[id]; ok {
		o.ShopifyFulfillmentID = fulfillmentID
	}
	return nil
}

// DeliveryRepo entregas en memoria.
type DeliveryRepo struct{ s *Store }

// Create inserta la entrega (una por pedido).
func (r *DeliveryRepo) Create(_ context.Context, d *entity.Delivery) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.st.deliveries {
		if x.OrderID == d.OrderID {
			return domain.ErrDuplicate
		}
	}
	c := *d
	r.s.st.deliveries[d.ID] = &c
	return nil
}

// GetByID obtiene una entrega.
func (r *DeliveryRepo) GetByID(_ context.Context, id string) (*entity.Delivery, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.st.deliveries[id]
	if !ok {
		return nil, nil
	}
	c := *d
	return &c, nil
}

// GetForUpdate igual que GetByID.
func (r *DeliveryRepo) GetForUpdate(ctx context.Context, id string) (*entity.Delivery, error) {
	return r.GetByID(ctx, id)
}

// GetByOrderID entrega de un pedido.
func (r *DeliveryRepo) GetByOrderID(_ context.Context, orderID string) (*entity.Delivery, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.st.deliveries {
		if d.OrderID == orderID {
			c := *d
			return &c, nil
		}
	}
	return nil, nil
}

// Update reemplaza la entrega.
func (r *DeliveryRepo) Update(_ context.Context, d *entity.Delivery) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.deliveries[d.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *d
	r.s.st.deliveries[d.ID] = &c
	return nil
}

// AddHistory agrega un registro.
func (r *DeliveryRepo) AddHistory(_ context.Context, h *entity.DeliveryHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *h
	r.s.st.history = append(r.s.st.history, &c)
	return nil
}

// ListHistory historial en orden de inserción.
func (r *DeliveryRepo) ListHistory(_ context.Context, deliveryID string) ([]*entity.DeliveryHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.DeliveryHistory
	for _, h := range r.s.st.history {
		if h.DeliveryID == deliveryID {
			c := *h
			out = append(out, &c)
		}
	}
	return out, nil
}

// CreateResolution inserta la resolución.
func (r *DeliveryRepo) CreateResolution(_ context.Context, res *entity.DeliveryResolution) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *res
	r.s.st.resolutions[res.ID] = &c
	return nil
}

// GetResolution obtiene una resolución.
func (r *DeliveryRepo) GetResolution(_ context.Context, id string) (*entity.DeliveryResolution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.st.resolutions[id]
	if !ok {
		return nil, nil
	}
	c := *res
	return &c, nil
}

// GetResolutionForUpdate igual que GetResolution.
func (r *DeliveryRepo) GetResolutionForUpdate(ctx context.Context, id string) (*entity.DeliveryResolution, error) {
	return r.GetResolution(ctx, id)
}

// UpdateResolution reemplaza la resolución.
func (r *DeliveryRepo) UpdateResolution(_ context.Context, res *entity.DeliveryResolution) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.resolutions[res.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *res
	r.s.st.resolutions[res.ID] = &c
	return nil
}

// ResolutionsFor resoluciones de una entrega (inspección en pruebas).
func (s *Store) ResolutionsFor(deliveryID string) []entity.DeliveryResolution {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.DeliveryResolution
	for _, r := range s.st.resolutions {
		if r.DeliveryID == deliveryID {
			out = append(out, *r)
		}
	}
	return out
}
