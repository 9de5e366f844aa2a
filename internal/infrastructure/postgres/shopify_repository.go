package postgres

import (
	"context"
	"fmt"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

var _ repository.ShopifyRepository = (*ShopifyRepo)(nil)

// ShopifyRepo configuración de tiendas y mapeos de productos.
type ShopifyRepo struct {
	q Querier
}

// NewShopifyRepository construye el repositorio. Pasar pool o tx.
func NewShopifyRepository(q Querier) *ShopifyRepo {
	return &ShopifyRepo{q: q}
}

// GetSettings configuración de la organización; nil si no existe.
func (r *ShopifyRepo) GetSettings(ctx context.Context, orgID string) (*entity.ShopifySettings, error) {
	var s entity.ShopifySettings
	err := r.q.QueryRow(ctx, `
		SELECT organization_id, enabled, shop_domain, access_token, location_id, api_version, updated_at
		FROM shopify_settings WHERE organization_id = $1`, orgID).Scan(
		&s.OrganizationID, &s.Enabled, &s.ShopDomain, &s.AccessToken, &s.LocationID, &s.APIVersion, &s.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shopify settings: %w", err)
	}
	return &s, nil
}

// GetMapping mapeo del producto; nil si nunca se sincronizó.
func (r *ShopifyRepo) GetMapping(ctx context.Context, productID string) (*entity.ShopifyProductMapping, error) {
	var m entity.ShopifyProductMapping
	err := r.q.QueryRow(ctx, `
		SELECT id, organization_id, product_id, shopify_product_id, shopify_variant_id, shopify_inventory_item_id,
			last_synced_at, last_sync_status, last_sync_error, created_at, updated_at
		FROM shopify_product_mappings WHERE product_id = $1`, productID).Scan(
		&m.ID, &m.OrganizationID, &m.ProductID, &m.ShopifyProductID, &m.ShopifyVariantID, &m.ShopifyInventoryItemID,
		&m.LastSyncedAt, &m.LastSyncStatus, &m.LastSyncError, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shopify mapping: %w", err)
	}
	return &m, nil
}

// SaveMapping upsert por product_id.
func (r *ShopifyRepo) SaveMapping(ctx context.Context, m *entity.ShopifyProductMapping) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO shopify_product_mappings (id, organization_id, product_id, shopify_product_id, shopify_variant_id,
			shopify_inventory_item_id, last_synced_at, last_sync_status, last_sync_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (product_id) DO UPDATE SET
			shopify_product_id = EXCLUDED.shopify_product_id,
			shopify_variant_id = EXCLUDED.shopify_variant_id,
			shopify_inventory_item_id = EXCLUDED.shopify_inventory_item_id,
			last_synced_at = EXCLUDED.last_synced_at,
			last_sync_status = EXCLUDED.last_sync_status,
			last_sync_error = EXCLUDED.last_sync_error,
			updated_at = EXCLUDED.updated_at`,
		m.ID, m.OrganizationID, m.ProductID, m.ShopifyProductID, m.ShopifyVariantID, m.ShopifyInventoryItemID,
		m.LastSyncedAt, m.LastSyncStatus, m.LastSyncError, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save shopify mapping: %w", err)
	}
	return nil
}

// RecordSync actualiza sólo la bitácora de sincronización.
func (r *ShopifyRepo) RecordSync(ctx context.Context, m *entity.ShopifyProductMapping) error {
	_, err := r.q.Exec(ctx, `
		UPDATE shopify_product_mappings
		SET last_synced_at = $2, last_sync_status = $3, last_sync_error = $4, updated_at = now()
		WHERE product_id = $1`, m.ProductID, m.LastSyncedAt, m.LastSyncStatus, m.LastSyncError)
	if err != nil {
		return fmt.Errorf("record shopify sync: %w", err)
	}
	return nil
}
