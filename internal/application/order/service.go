// Package order orquesta pedidos: disponibilidad, cliente, asignación de unidades, preparación y despacho.
package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/application/ports"
	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/qrcode"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

// Service casos de uso de pedidos.
type Service struct {
	tx    repository.TxRunner
	repos repository.Repos
	sync  ports.SyncScheduler
	now   func() time.Time
	log   zerolog.Logger
}

// NewService construye el orquestador de pedidos.
func NewService(tx repository.TxRunner, repos repository.Repos, sync ports.SyncScheduler, log zerolog.Logger) *Service {
	if sync == nil {
		sync = ports.NopScheduler{}
	}
	return &Service{tx: tx, repos: repos, sync: sync, now: time.Now, log: log}
}

// demand cantidad pedida por producto, en el orden de aparición de los SKUs.
type demand struct {
	product  *entity.Product
	quantity int
}

// resolveDemand agrupa líneas por SKU y resuelve los productos. Todos los SKUs faltantes se reportan juntos.
func (s *Service) resolveDemand(ctx context.Context, orgID string, items []dto.LineItem) ([]demand, error) {
	if len(items) == 0 {
		return nil, domain.Invalid("items", "el pedido debe tener al menos una línea")
	}
	qty := map[string]int{}
	var skus []string
	for i, it := range items {
		sku := strings.TrimSpace(it.SKU)
		if sku == "" {
			return nil, domain.Invalid(fmt.Sprintf("items[%d].sku", i), "el SKU es obligatorio")
		}
		if it.Quantity <= 0 {
			return nil, domain.Invalid(fmt.Sprintf("items[%d].quantity", i), "la cantidad de %s debe ser mayor que cero", sku)
		}
		if _, ok := qty[sku]; !ok {
			skus = append(skus, sku)
		}
		qty[sku] += it.Quantity
	}
	products, err := s.repos.Products.GetBySKUs(ctx, orgID, skus)
	if err != nil {
		return nil, fmt.Errorf("get products by sku: %w", err)
	}
	var missing []string
	out := make([]demand, 0, len(skus))
	for _, sku := range skus {
		p, ok := products[sku]
		if !ok {
			missing = append(missing, sku)
			continue
		}
		out = append(out, demand{product: p, quantity: qty[sku]})
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &domain.MissingSKUError{SKUs: missing}
	}
	return out, nil
}

// ValidateInventoryAvailability compara la demanda con las unidades received de cada producto.
func (s *Service) ValidateInventoryAvailability(ctx context.Context, orgID string, items []dto.LineItem) ([]dto.AvailabilityLine, error) {
	lines, err := s.resolveDemand(ctx, orgID, items)
	if err != nil {
		return nil, err
	}
	return s.checkAvailability(ctx, orgID, lines)
}

func (s *Service) checkAvailability(ctx context.Context, orgID string, lines []demand) ([]dto.AvailabilityLine, error) {
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.product.ID
	}
	counts, err := s.repos.Units.CountByProducts(ctx, orgID, ids, entity.UnitReceived)
	if err != nil {
		return nil, fmt.Errorf("count available units: %w", err)
	}
	out := make([]dto.AvailabilityLine, len(lines))
	var shortages []domain.Shortage
	for i, l := range lines {
		avail := counts[l.product.ID]
		out[i] = dto.AvailabilityLine{SKU: l.product.SKU, ProductID: l.product.ID, Requested: l.quantity, Available: avail}
		if avail < l.quantity {
			shortages = append(shortages, domain.Shortage{
				ProductID: l.product.ID, ProductName: l.product.Name, Requested: l.quantity, Available: avail,
			})
		}
	}
	if len(shortages) > 0 {
		return out, &domain.ShortageError{Shortages: shortages}
	}
	return out, nil
}

// UpsertCustomer busca por teléfono y actualiza los datos de contacto, o crea el cliente.
// Sin teléfono se usa el email como llave.
func (s *Service) UpsertCustomer(ctx context.Context, orgID string, in dto.CustomerInput) (*entity.Customer, error) {
	phone := strings.TrimSpace(in.Phone)
	email := strings.TrimSpace(in.Email)
	if phone == "" {
		phone = email
	}
	if phone == "" {
		return nil, domain.Invalid("customer.phone", "se requiere teléfono o email del cliente")
	}
	existing, err := s.repos.Customers.GetByPhone(ctx, orgID, phone)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	now := s.now()
	if existing != nil {
		mergeContact(existing, in)
		existing.UpdatedAt = now
		if err := s.repos.Customers.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("update customer: %w", err)
		}
		return existing, nil
	}
	c := &entity.Customer{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		Phone:          phone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	mergeContact(c, in)
	err = s.repos.Customers.Create(ctx, c)
	if errors.Is(err, domain.ErrDuplicate) {
		// otro pedido del mismo cliente lo creó primero
		return s.repos.Customers.GetByPhone(ctx, orgID, phone)
	}
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

func mergeContact(c *entity.Customer, in dto.CustomerInput) {
	if v := strings.TrimSpace(in.Name); v != "" {
		c.Name = v
	}
	if v := strings.TrimSpace(in.Email); v != "" {
		c.Email = v
	}
	if v := strings.TrimSpace(in.Address); v != "" {
		c.Address = v
	}
	if v := strings.TrimSpace(in.City); v != "" {
		c.City = v
	}
}

// AllocateInventory crea el pedido con un ítem por unidad demandada.
// deferred deja los ítems sin unidad; reserve bloquea unidades received y las marca allocated.
func (s *Service) AllocateInventory(ctx context.Context, orgID string, in dto.AllocateRequest) (*dto.OrderResponse, error) {
	mode := in.Mode
	if mode == "" {
		mode = dto.AllocationDeferred
	}
	if mode != dto.AllocationDeferred && mode != dto.AllocationReserve {
		return nil, domain.Invalid("mode", "modo de asignación desconocido: %q", in.Mode)
	}
	if in.CustomerID == "" {
		return nil, domain.Invalid("customer_id", "el cliente es obligatorio")
	}
	lines, err := s.resolveDemand(ctx, orgID, in.Items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := &entity.Order{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		CustomerID:     in.CustomerID,
		ShopifyOrderID: strings.TrimSpace(in.ShopifyOrderID),
		Status:         entity.OrderPending,
		Notes:          in.Notes,
		CreatedBy:      in.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, l := range lines {
		for i := 0; i < l.quantity; i++ {
			o.Items = append(o.Items, entity.OrderItem{
				ID:        uuid.New().String(),
				OrderID:   o.ID,
				ProductID: l.product.ID,
				Quantity:  1,
			})
		}
	}

	var stored *entity.Order
	err = s.tx.Run(ctx, func(r repository.Repos) error {
		if err := r.Orders.Create(ctx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if mode == dto.AllocationReserve {
			if err := reserve(ctx, r, o, lines, now); err != nil {
				return err
			}
		}
		var err error
		stored, err = r.Orders.GetByID(ctx, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if mode == dto.AllocationReserve {
		ids := make([]string, len(lines))
		for i, l := range lines {
			ids[i] = l.product.ID
		}
		s.sync.QueueInventorySync(orgID, ids...)
	}
	s.log.Info().Str("org_id", orgID).Str("order_id", o.ID).Str("mode", mode).Int("items", len(o.Items)).Msg("pedido registrado")
	return dto.NewOrderResponse(stored), nil
}

// reserve bloquea y asigna unidades a cada ítem. Un faltante revierte toda la transacción.
func reserve(ctx context.Context, r repository.Repos, o *entity.Order, lines []demand, now time.Time) error {
	var shortages []domain.Shortage
	locked := map[string][]*entity.Unit{}
	for _, l := range lines {
		units, err := r.Units.LockAvailable(ctx, o.OrganizationID, l.product.ID, l.quantity)
		if err != nil {
			return fmt.Errorf("lock available units: %w", err)
		}
		if len(units) < l.quantity {
			shortages = append(shortages, domain.Shortage{
				ProductID: l.product.ID, ProductName: l.product.Name, Requested: l.quantity, Available: len(units),
			})
			continue
		}
		locked[l.product.ID] = units
	}
	if len(shortages) > 0 {
		return &domain.ShortageError{Shortages: shortages}
	}
	for _, it := range o.Items {
		queue := locked[it.ProductID]
		u := queue[0]
		locked[it.ProductID] = queue[1:]
		if err := u.TransitionTo(entity.UnitAllocated); err != nil {
			return err
		}
		u.UpdatedAt = now
		if err := r.Units.Update(ctx, u); err != nil {
			return fmt.Errorf("allocate unit %s: %w", u.QRCode, err)
		}
		if err := r.Orders.BindItem(ctx, it.ID, u.ID); err != nil {
			return fmt.Errorf("bind item: %w", err)
		}
	}
	return nil
}

// ProcessOrder entrada única de HTTP/Shopify: valida disponibilidad, resuelve el cliente y asigna.
func (s *Service) ProcessOrder(ctx context.Context, orgID, userID string, in dto.ProcessOrderRequest) (*dto.OrderResponse, error) {
	if _, err := s.ValidateInventoryAvailability(ctx, orgID, in.Items); err != nil {
		return nil, err
	}
	customer, err := s.UpsertCustomer(ctx, orgID, in.Customer)
	if err != nil {
		return nil, err
	}
	return s.AllocateInventory(ctx, orgID, dto.AllocateRequest{
		CustomerID:     customer.ID,
		ShopifyOrderID: in.ShopifyOrderID,
		Items:          in.Items,
		Mode:           in.Mode,
		Notes:          in.Notes,
		CreatedBy:      userID,
	})
}

func lockOrder(ctx context.Context, r repository.Repos, orgID, id string) (*entity.Order, error) {
	o, err := r.Orders.GetForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o == nil || o.OrganizationID != orgID {
		return nil, fmt.Errorf("pedido %s: %w", id, domain.ErrNotFound)
	}
	return o, nil
}

func orderStatusError(o *entity.Order, expected ...entity.OrderStatus) error {
	exp := make([]string, len(expected))
	for i, e := range expected {
		exp[i] = string(e)
	}
	return &domain.StatusError{Entity: "pedido", Ref: o.ID, Actual: string(o.Status), Expected: exp, Err: domain.ErrInvalidTransition}
}

// GetOrder pedido con su entrega, si existe.
func (s *Service) GetOrder(ctx context.Context, orgID, id string) (*dto.OrderResponse, error) {
	o, err := s.repos.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o == nil || o.OrganizationID != orgID {
		return nil, fmt.Errorf("pedido %s: %w", id, domain.ErrNotFound)
	}
	resp := dto.NewOrderResponse(o)
	d, err := s.repos.Deliveries.GetByOrderID(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	if d != nil {
		resp.Delivery = dto.NewDeliveryResponse(d)
	}
	return resp, nil
}

// FulfillOrder escaneo de salida: cada código se vincula a un ítem del mismo producto y la unidad pasa a sold.
// El pedido queda fulfilled cuando todos sus ítems tienen una unidad vendida.
func (s *Service) FulfillOrder(ctx context.Context, orgID, userID, orderID string, codes []string) (*dto.OrderResponse, error) {
	if len(codes) == 0 {
		return nil, domain.Invalid("codes", "se requiere al menos un código")
	}
	seen := map[string]bool{}
	for i, c := range codes {
		codes[i] = qrcode.Normalize(c)
		if seen[codes[i]] {
			return nil, domain.Invalid("codes", "código repetido: %s", codes[i])
		}
		seen[codes[i]] = true
	}

	var (
		stored   *entity.Order
		products = map[string]bool{}
	)
	err := s.tx.Run(ctx, func(r repository.Repos) error {
		o, err := lockOrder(ctx, r, orgID, orderID)
		if err != nil {
			return err
		}
		if o.Status != entity.OrderPending {
			return orderStatusError(o, entity.OrderPending)
		}
		now := s.now()
		for _, code := range codes {
			u, err := r.Units.GetByCodeForUpdate(ctx, code)
			if err != nil {
				return fmt.Errorf("get unit: %w", err)
			}
			if u == nil || u.OrganizationID != orgID {
				return fmt.Errorf("unidad %s: %w", code, domain.ErrNotFound)
			}
			if err := bindScannedUnit(ctx, r, o, u); err != nil {
				return err
			}
			if err := u.TransitionTo(entity.UnitSold); err != nil {
				return err
			}
			u.SoldAt = &now
			u.SoldBy = userID
			if u.WarrantyMonths > 0 {
				u.WarrantyStatus = entity.WarrantyActive
				u.WarrantyStartAt = &now
			}
			u.UpdatedAt = now
			if err := r.Units.Update(ctx, u); err != nil {
				return fmt.Errorf("update unit: %w", err)
			}
			products[u.ProductID] = true
		}

		done, err := allItemsSold(ctx, r, o)
		if err != nil {
			return err
		}
		if done {
			if err := r.Orders.UpdateStatus(ctx, o.ID, entity.OrderFulfilled); err != nil {
				return fmt.Errorf("update order status: %w", err)
			}
		}
		stored, err = r.Orders.GetByID(ctx, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(products))
	for id := range products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	s.sync.QueueInventorySync(orgID, ids...)
	return dto.NewOrderResponse(stored), nil
}

// bindScannedUnit vincula u a un ítem de o. Una unidad reservada para el pedido ya está vinculada;
// una unidad en bodega ocupa el primer ítem libre de su producto. o.Items se actualiza en memoria.
func bindScannedUnit(ctx context.Context, r repository.Repos, o *entity.Order, u *entity.Unit) error {
	for _, it := range o.Items {
		if it.ShipmentItemID != nil && *it.ShipmentItemID == u.ID {
			if u.Status != entity.UnitAllocated {
				return &domain.StatusError{Entity: "unidad", Ref: u.QRCode, Actual: string(u.Status),
					Expected: entity.StatusStrings(entity.UnitAllocated), Err: domain.ErrAlreadySold}
			}
			return nil
		}
	}
	if u.Status != entity.UnitReceived {
		sentinel := domain.ErrUnitNotAvailable
		if u.Status.In(entity.UnitSold, entity.UnitShipped, entity.UnitDelivered) {
			sentinel = domain.ErrAlreadySold
		}
		return &domain.StatusError{Entity: "unidad", Ref: u.QRCode, Actual: string(u.Status),
			Expected: entity.StatusStrings(entity.UnitReceived), Err: sentinel}
	}
	for i := range o.Items {
		it := &o.Items[i]
		if it.ShipmentItemID != nil || it.ProductID != u.ProductID {
			continue
		}
		if err := r.Orders.BindItem(ctx, it.ID, u.ID); err != nil {
			return fmt.Errorf("bind item: %w", err)
		}
		id := u.ID
		it.ShipmentItemID = &id
		return nil
	}
	return fmt.Errorf("%w: el pedido no tiene ítems pendientes del producto de %s", domain.ErrConflict, u.QRCode)
}

func boundUnitIDs(o *entity.Order) []string {
	var ids []string
	for _, it := range o.Items {
		if it.ShipmentItemID != nil {
			ids = append(ids, *it.ShipmentItemID)
		}
	}
	return ids
}

func allItemsSold(ctx context.Context, r repository.Repos, o *entity.Order) (bool, error) {
	if len(o.UnboundItems()) > 0 {
		return false, nil
	}
	units, err := r.Units.GetByIDs(ctx, boundUnitIDs(o))
	if err != nil {
		return false, fmt.Errorf("get order units: %w", err)
	}
	for _, u := range units {
		if u.Status != entity.UnitSold {
			return false, nil
		}
	}
	return len(units) == len(o.Items), nil
}

// ShipOrder despacha un pedido preparado: unidades sold → shipped y entrega en espera.
func (s *Service) ShipOrder(ctx context.Context, orgID, userID, orderID string, in dto.ShipOrderRequest) (*dto.OrderResponse, error) {
	var (
		stored   *entity.Order
		delivery *entity.Delivery
		shipped  []*entity.Unit
	)
	err := s.tx.Run(ctx, func(r repository.Repos) error {
		o, err := lockOrder(ctx, r, orgID, orderID)
		if err != nil {
			return err
		}
		if o.Status != entity.OrderFulfilled {
			return orderStatusError(o, entity.OrderFulfilled)
		}
		now := s.now()
		units, err := r.Units.GetByIDs(ctx, boundUnitIDs(o))
		if err != nil {
			return fmt.Errorf("get order units: %w", err)
		}
		for _, u := range units {
			if err := u.TransitionTo(entity.UnitShipped); err != nil {
				return err
			}
			u.UpdatedAt = now
			if err := r.Units.Update(ctx, u); err != nil {
				return fmt.Errorf("ship unit %s: %w", u.QRCode, err)
			}
		}
		shipped = units
		if err := r.Orders.UpdateStatus(ctx, o.ID, entity.OrderShipped); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		delivery = &entity.Delivery{
			ID:             uuid.New().String(),
			OrganizationID: orgID,
			OrderID:        o.ID,
			Status:         entity.DeliveryWaiting,
			Carrier:        strings.TrimSpace(in.Carrier),
			TrackingNumber: strings.TrimSpace(in.TrackingNumber),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := r.Deliveries.Create(ctx, delivery); err != nil {
			return fmt.Errorf("create delivery: %w", err)
		}
		if err := r.Deliveries.AddHistory(ctx, &entity.DeliveryHistory{
			ID:         uuid.New().String(),
			DeliveryID: delivery.ID,
			ToStatus:   entity.DeliveryWaiting,
			Note:       "pedido despachado",
			ChangedBy:  userID,
			CreatedAt:  now,
		}); err != nil {
			return fmt.Errorf("add delivery history: %w", err)
		}
		stored, err = r.Orders.GetByID(ctx, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if stored.ShopifyOrderID != "" {
		s.sync.QueueShopifyFulfillmentSync(orgID, stored.ID, ports.FulfillmentShipped)
	}
	s.notifySold(ctx, orgID, stored, shipped)

	resp := dto.NewOrderResponse(stored)
	resp.Delivery = dto.NewDeliveryResponse(delivery)
	return resp, nil
}

// notifySold publica product.sold por cada unidad despachada a nombre del cliente del pedido.
func (s *Service) notifySold(ctx context.Context, orgID string, o *entity.Order, units []*entity.Unit) {
	ids := map[string]struct{}{}
	for _, u := range units {
		ids[u.ProductID] = struct{}{}
	}
	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	products, err := s.repos.Products.GetByIDs(ctx, orgID, list)
	if err != nil {
		s.log.Error().Err(err).Str("order_id", o.ID).Msg("no se pudo notificar la venta al portal")
		return
	}
	for _, u := range units {
		at := s.now()
		if u.SoldAt != nil {
			at = *u.SoldAt
		}
		s.sync.QueuePortalEvent(orgID, dto.NewSoldEvent(u, products[u.ProductID], o.ShopifyOrderID, o.CustomerID, at))
	}
}
