package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

var (
	_ repository.ProductRepository  = (*ProductRepo)(nil)
	_ repository.UnitRepository     = (*UnitRepo)(nil)
	_ repository.ShipmentRepository = (*ShipmentRepo)(nil)
)

// ProductRepo productos en memoria.
type ProductRepo struct{ s *Store }

func (r *ProductRepo) skuTaken(orgID, sku string) bool {
	for _, p := range r.s.st.products {
		if p.OrganizationID == orgID && p.SKU == sku {
			return true
		}
	}
	return false
}

// Create inserta el producto respetando (organization_id, sku) y el índice de packs.
func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.products[p.ID]; ok || r.skuTaken(p.OrganizationID, p.SKU) {
		return domain.ErrDuplicate
	}
	if p.IsPack() {
		key := entity.PackKey{BaseProductID: *p.BaseProductID, PackSize: *p.PackSize}
		if _, ok := r.s.st.packs[key]; ok {
			return domain.ErrDuplicate
		}
		r.s.st.packs[key] = p.ID
	}
	r.s.st.products[p.ID] = cloneProduct(p)
	return nil
}

// GetByID obtiene un producto.
func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.products[id]
	if !ok {
		return nil, nil
	}
	return cloneProduct(p), nil
}

// Update reemplaza los campos editables.
func (r *ProductRepo) Update(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.st.products[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	next := cloneProduct(p)
	next.OrganizationID, next.SKU = cur.OrganizationID, cur.SKU
	next.BaseProductID, next.PackSize = cur.BaseProductID, cur.PackSize
	next.CreatedAt = cur.CreatedAt
	r.s.st.products[p.ID] = next
	return nil
}

// ListByOrganization lista ordenado por SKU.
func (r *ProductRepo) ListByOrganization(_ context.Context, orgID string, limit, offset int) ([]*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*entity.Product
	for _, p := range r.s.st.products {
		if p.OrganizationID == orgID {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SKU < all[j].SKU })
	if offset >= len(all) {
		return []*entity.Product{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]*entity.Product, 0, len(all))
	for _, p := range all {
		out = append(out, cloneProduct(p))
	}
	return out, nil
}

// GetByIDs resuelve varios productos.
func (r *ProductRepo) GetByIDs(_ context.Context, orgID string, ids []string) (map[string]*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[string]*entity.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.s.st.products[id]; ok && p.OrganizationID == orgID {
			out[id] = cloneProduct(p)
		}
	}
	return out, nil
}

// GetBySKUs indexa por SKU.
func (r *ProductRepo) GetBySKUs(_ context.Context, orgID string, skus []string) (map[string]*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[string]struct{}, len(skus))
	for _, s := range skus {
		want[s] = struct{}{}
	}
	out := make(map[string]*entity.Product, len(skus))
	for _, p := range r.s.st.products {
		if _, ok := want[p.SKU]; ok && p.OrganizationID == orgID {
			out[p.SKU] = cloneProduct(p)
		}
	}
	return out, nil
}

// InsertPackProduct inserta salvo que ya exista el pack.
func (r *ProductRepo) InsertPackProduct(ctx context.Context, p *entity.Product) (bool, error) {
	if !p.IsPack() {
		return false, fmt.Errorf("insert pack product: %w", domain.ErrInvalidInput)
	}
	err := r.Create(ctx, p)
	if errors.Is(err, domain.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetPackProduct busca por clave natural.
func (r *ProductRepo) GetPackProduct(_ context.Context, key entity.PackKey) (*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.st.packs[key]
	if !ok {
		return nil, nil
	}
	return cloneProduct(r.s.st.products[id]), nil
}

// UnitRepo unidades en memoria.
type UnitRepo struct{ s *Store }

// InsertBatch inserta el bloque completo o nada.
func (r *UnitRepo) InsertBatch(_ context.Context, units []*entity.Unit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.UnitBatchSizes = append(r.s.UnitBatchSizes, len(units))
	if r.s.FailUnitBatch > 0 && len(r.s.UnitBatchSizes) == r.s.FailUnitBatch {
		return fmt.Errorf("insert unit batch: fallo simulado")
	}
	seen := make(map[string]struct{}, len(units))
	for _, u := range units {
		if _, ok := r.s.st.unitByCode[u.QRCode]; ok {
			return fmt.Errorf("insert unit %s: %w", u.QRCode, domain.ErrDuplicate)
		}
		if _, ok := seen[u.QRCode]; ok {
			return fmt.Errorf("insert unit %s: %w", u.QRCode, domain.ErrDuplicate)
		}
		seen[u.QRCode] = struct{}{}
	}
	for _, u := range units {
		c := *u
		r.s.st.units[c.ID] = &c
		r.s.st.unitByCode[c.QRCode] = c.ID
	}
	return nil
}

// ExistingCodes códigos ya persistidos.
func (r *UnitRepo) ExistingCodes(_ context.Context, codes []string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []string
	for _, c := range codes {
		if _, ok := r.s.st.unitByCode[c]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetByCode busca por QR.
func (r *UnitRepo) GetByCode(_ context.Context, code string) (*entity.Unit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.st.unitByCode[code]
	if !ok {
		return nil, nil
	}
	u := *r.s.st.units[id]
	return &u, nil
}

// GetByCodeForUpdate igual que GetByCode; las transacciones ya están serializadas.
func (r *UnitRepo) GetByCodeForUpdate(ctx context.Context, code string) (*entity.Unit, error) {
	return r.GetByCode(ctx, code)
}

// GetByIDs lista por ID en orden de creación.
func (r *UnitRepo) GetByIDs(_ context.Context, ids []string) ([]*entity.Unit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Unit
	for _, id := range ids {
		if u, ok := r.s.st.units[id]; ok {
			c := *u
			out = append(out, &c)
		}
	}
	sortUnits(out)
	return out, nil
}

// Update reemplaza la unidad.
func (r *UnitRepo) Update(_ context.Context, u *entity.Unit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.units[u.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *u
	r.s.st.units[u.ID] = &c
	return nil
}

// CountByStatus cuenta unidades de un producto en un estado.
func (r *UnitRepo) CountByStatus(_ context.Context, productID string, status entity.UnitStatus) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, u := range r.s.st.units {
		if u.ProductID == productID && u.Status == status {
			n++
		}
	}
	return n, nil
}

// CountByProducts cuenta por producto.
func (r *UnitRepo) CountByProducts(_ context.Context, orgID string, productIDs []string, status entity.UnitStatus) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		want[id] = struct{}{}
	}
	out := make(map[string]int, len(productIDs))
	for _, u := range r.s.st.units {
		if _, ok := want[u.ProductID]; ok && u.OrganizationID == orgID && u.Status == status {
			out[u.ProductID]++
		}
	}
	return out, nil
}

// ShipmentProgress total y pendientes.
func (r *UnitRepo) ShipmentProgress(_ context.Context, shipmentID string) (entity.ShipmentProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var p entity.ShipmentProgress
	for _, u := range r.s.st.units {
		if u.ShipmentID != nil && *u.ShipmentID == shipmentID {
			p.Total++
			if u.Status == entity.UnitPending {
				p.Pending++
			}
		}
	}
	return p, nil
}

// ShipmentStatusCounts conteo por estado.
func (r *UnitRepo) ShipmentStatusCounts(_ context.Context, shipmentID string) (map[entity.UnitStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[entity.UnitStatus]int{}
	for _, u := range r.s.st.units {
		if u.ShipmentID != nil && *u.ShipmentID == shipmentID {
			out[u.Status]++
		}
	}
	return out, nil
}

// LockAvailable devuelve hasta n unidades received, las más antiguas primero.
func (r *UnitRepo) LockAvailable(_ context.Context, orgID, productID string, n int) ([]*entity.Unit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Unit
	for _, u := range r.s.st.units {
		if u.OrganizationID == orgID && u.ProductID == productID && u.Status == entity.UnitReceived {
			c := *u
			out = append(out, &c)
		}
	}
	sortUnits(out)
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// ListByAssembly unidades reservadas por un ensamble.
func (r *UnitRepo) ListByAssembly(_ context.Context, assemblyID string, status entity.UnitStatus) ([]*entity.Unit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Unit
	for _, u := range r.s.st.units {
		if u.AssemblyID != nil && *u.AssemblyID == assemblyID && u.Status == status {
			c := *u
			out = append(out, &c)
		}
	}
	sortUnits(out)
	return out, nil
}

func sortUnits(list []*entity.Unit) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].QRCode < list[j].QRCode
	})
}

// ShipmentRepo envíos en memoria.
type ShipmentRepo struct{ s *Store }

// Create inserta la cabecera.
func (r *ShipmentRepo) Create(_ context.Context, sh *entity.Shipment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.shipments[sh.ID]; ok {
		return domain.ErrDuplicate
	}
	c := *sh
	r.s.st.shipments[sh.ID] = &c
	return nil
}

// GetByID obtiene un envío.
func (r *ShipmentRepo) GetByID(_ context.Context, id string) (*entity.Shipment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.st.shipments[id]
	if !ok {
		return nil, nil
	}
	c := *sh
	return &c, nil
}

// GetForUpdate igual que GetByID.
func (r *ShipmentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Shipment, error) {
	return r.GetByID(ctx, id)
}

// UpdateStatus cambia el estado.
func (r *ShipmentRepo) UpdateStatus(_ context.Context, id string, status entity.ShipmentStatus, receivedAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.st.shipments[id]
	if !ok {
		return domain.ErrNotFound
	}
	sh.Status = status
	if sh.ReceivedAt == nil {
		sh.ReceivedAt = receivedAt
	}
	sh.UpdatedAt = time.Now()
	return nil
}
