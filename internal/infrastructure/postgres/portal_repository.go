package postgres

import (
	"context"
	"fmt"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

var _ repository.PortalRepository = (*PortalRepo)(nil)

// PortalRepo productos de clientes y auditoría de escaneos.
type PortalRepo struct {
	q Querier
}

// NewPortalRepository construye el repositorio. Pasar pool o tx.
func NewPortalRepository(q Querier) *PortalRepo {
	return &PortalRepo{q: q}
}

// GetCustomerProduct registro del portal para un código QR.
func (r *PortalRepo) GetCustomerProduct(ctx context.Context, qrCode string) (*entity.CustomerProduct, error) {
	var cp entity.CustomerProduct
	err := r.q.QueryRow(ctx, `
		SELECT id, qr_code, customer_id, shopify_order_id, product_details, purchase_date, warranty_months,
			warranty_status, warranty_start_at, returned, replaced_by, created_at, updated_at
		FROM customer_products WHERE qr_code = $1`, qrCode).Scan(
		&cp.ID, &cp.QRCode, &cp.CustomerID, &cp.ShopifyOrderID, &cp.ProductDetails, &cp.PurchaseDate,
		&cp.WarrantyMonths, &cp.WarrantyStatus, &cp.WarrantyStartAt, &cp.Returned, &cp.ReplacedBy,
		&cp.CreatedAt, &cp.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer product: %w", err)
	}
	return &cp, nil
}

// UpsertCustomerProduct inserta o reemplaza por qr_code; el id existente se conserva.
func (r *PortalRepo) UpsertCustomerProduct(ctx context.Context, cp *entity.CustomerProduct) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO customer_products (id, qr_code, customer_id, shopify_order_id, product_details, purchase_date,
			warranty_months, warranty_status, warranty_start_at, returned, replaced_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (qr_code) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			shopify_order_id = EXCLUDED.shopify_order_id,
			product_details = EXCLUDED.product_details,
			purchase_date = EXCLUDED.purchase_date,
			warranty_months = EXCLUDED.warranty_months,
			warranty_status = EXCLUDED.warranty_status,
			warranty_start_at = EXCLUDED.warranty_start_at,
			returned = EXCLUDED.returned,
			replaced_by = EXCLUDED.replaced_by,
			updated_at = EXCLUDED.updated_at
		RETURNING id`,
		cp.ID, cp.QRCode, cp.CustomerID, cp.ShopifyOrderID, cp.ProductDetails, cp.PurchaseDate,
		cp.WarrantyMonths, cp.WarrantyStatus, cp.WarrantyStartAt, cp.Returned, cp.ReplacedBy,
		cp.CreatedAt, cp.UpdatedAt).Scan(&cp.ID)
	if err != nil {
		return fmt.Errorf("upsert customer product: %w", err)
	}
	return nil
}

// RecordScan guarda una verificación.
func (r *PortalRepo) RecordScan(ctx context.Context, s *entity.CustomerScan) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO customer_scans (id, qr_code, customer_id, found, ip_address, user_agent, scanned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.QRCode, s.CustomerID, s.Found, s.IPAddress, s.UserAgent, s.ScannedAt)
	if err != nil {
		return fmt.Errorf("insert customer scan: %w", err)
	}
	return nil
}
