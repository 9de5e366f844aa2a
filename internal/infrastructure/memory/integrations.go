package memory

import (
	"context"
	"time"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

var (
	_ repository.ShopifyRepository = (*ShopifyRepo)(nil)
	_ repository.PortalRepository  = (*PortalRepo)(nil)
)

// ShopifyRepo configuración y mapeos en memoria.
type ShopifyRepo struct{ s *Store }

// GetSettings configuración de la organización.
func (r *ShopifyRepo) GetSettings(_ context.Context, orgID string) (*entity.ShopifySettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.st.settings[orgID]
	if !ok {
		return nil, nil
	}
	c := *st
	return &c, nil
}

// GetMapping mapeo del producto.
func (r *ShopifyRepo) GetMapping(_ context.Context, productID string) (*entity.ShopifyProductMapping, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.st.mappings[productID]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

// SaveMapping upsert por producto.
func (r *ShopifyRepo) SaveMapping(_ context.Context, m *entity.ShopifyProductMapping) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *m
	if prev, ok := r.s.st.mappings[m.ProductID]; ok {
		c.ID = prev.ID
		c.CreatedAt = prev.CreatedAt
	}
	r.s.st.mappings[m.ProductID] = &c
	return nil
}

// RecordSync actualiza la bitácora.
func (r *ShopifyRepo) RecordSync(_ context.Context, m *entity.ShopifyProductMapping) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.st.mappings[m.ProductID]
	if !ok {
		return nil
	}
	prev.LastSyncedAt = m.LastSyncedAt
	prev.LastSyncStatus = m.LastSyncStatus
	prev.LastSyncError = m.LastSyncError
	prev.UpdatedAt = time.Now()
	return nil
}

// PortalRepo registros del portal en memoria.
type PortalRepo struct{ s *Store }

// GetCustomerProduct registro por QR.
func (r *PortalRepo) GetCustomerProduct(_ context.Context, qrCode string) (*entity.CustomerProduct, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp, ok := r.s.st.custProducts[qrCode]
	if !ok {
		return nil, nil
	}
	c := *cp
	return &c, nil
}

// UpsertCustomerProduct inserta o reemplaza conservando el id.
func (r *PortalRepo) UpsertCustomerProduct(_ context.Context, cp *entity.CustomerProduct) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if prev, ok := r.s.st.custProducts[cp.QRCode]; ok {
		cp.ID = prev.ID
		cp.CreatedAt = prev.CreatedAt
	}
	c := *cp
	r.s.st.custProducts[cp.QRCode] = &c
	return nil
}

// RecordScan agrega a la auditoría.
func (r *PortalRepo) RecordScan(_ context.Context, sc *entity.CustomerScan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *sc
	r.s.st.customerScans = append(r.s.st.customerScans, &c)
	return nil
}
