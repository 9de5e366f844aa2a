package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, organization_id, sku, brand, model, name, product_type, color, price, packable,
	base_product_id, pack_size, warranty_months, attributes, created_at, updated_at`

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.OrganizationID, &p.SKU, &p.Brand, &p.Model, &p.Name, &p.ProductType, &p.Color,
		&p.Price, &p.Packable, &p.BaseProductID, &p.PackSize, &p.WarrantyMonths, &p.Attributes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) insert(ctx context.Context, p *entity.Product, onConflict string) (int64, error) {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)` + onConflict
	cmd, err := r.q.Exec(ctx, query,
		p.ID, p.OrganizationID, p.SKU, p.Brand, p.Model, p.Name, p.ProductType, p.Color,
		p.Price, p.Packable, p.BaseProductID, p.PackSize, p.WarrantyMonths, p.Attributes, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// Create persiste un nuevo producto.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	if _, err := r.insert(ctx, product, ""); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Update actualiza los campos editables del producto.
func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	_, err := r.q.Exec(ctx, `
		UPDATE products
		SET brand = $2, model = $3, name = $4, product_type = $5, color = $6, price = $7,
			packable = $8, warranty_months = $9, attributes = $10, updated_at = $11
		WHERE id = $1`,
		p.ID, p.Brand, p.Model, p.Name, p.ProductType, p.Color, p.Price,
		p.Packable, p.WarrantyMonths, p.Attributes, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// ListByOrganization lista productos por organización con paginación.
func (r *ProductRepo) ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]*entity.Product, error) {
	list, err := r.list(ctx, `SELECT `+productColumns+` FROM products
		WHERE organization_id = $1 ORDER BY sku LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return list, nil
}

func (r *ProductRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// GetByIDs resuelve productos de la organización en una consulta.
func (r *ProductRepo) GetByIDs(ctx context.Context, orgID string, ids []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	list, err := r.list(ctx, `SELECT `+productColumns+` FROM products WHERE organization_id = $1 AND id = ANY($2)`, orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

// GetBySKUs indexa por SKU.
func (r *ProductRepo) GetBySKUs(ctx context.Context, orgID string, skus []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(skus))
	if len(skus) == 0 {
		return out, nil
	}
	list, err := r.list(ctx, `SELECT `+productColumns+` FROM products WHERE organization_id = $1 AND sku = ANY($2)`, orgID, skus)
	if err != nil {
		return nil, fmt.Errorf("get products by sku: %w", err)
	}
	for _, p := range list {
		out[p.SKU] = p
	}
	return out, nil
}

// InsertPackProduct inserta el pack respetando products_pack_unique.
// Un conflicto (ON CONFLICT o 23505 por SKU) no es error: created=false.
func (r *ProductRepo) InsertPackProduct(ctx context.Context, product *entity.Product) (bool, error) {
	n, err := r.insert(ctx, product, `
		ON CONFLICT (base_product_id, pack_size) WHERE base_product_id IS NOT NULL DO NOTHING`)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert pack product: %w", err)
	}
	return n == 1, nil
}

// GetPackProduct busca el pack por su clave natural.
func (r *ProductRepo) GetPackProduct(ctx context.Context, key entity.PackKey) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE base_product_id = $1 AND pack_size = $2`,
		key.BaseProductID, key.PackSize))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pack product: %w", err)
	}
	return p, nil
}
