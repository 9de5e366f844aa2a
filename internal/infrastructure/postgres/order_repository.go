package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo pedidos e ítems sobre PostgreSQL.
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el repositorio. Pasar pool o tx.
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `id, organization_id, customer_id, shopify_order_id, status, notes, shopify_fulfillment_id,
	created_by, created_at, updated_at`

// Create inserta cabecera e ítems en un solo batch.
func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	b := &pgx.Batch{}
	b.Queue(`INSERT INTO orders (`+orderColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.OrganizationID, o.CustomerID, o.ShopifyOrderID, o.Status, o.Notes, o.ShopifyFulfillmentID,
		o.CreatedBy, o.CreatedAt, o.UpdatedAt)
	for _, it := range o.Items {
		b.Queue(`INSERT INTO order_items (id, order_id, product_id, quantity, shipment_item_id) VALUES ($1, $2, $3, $4, $5)`,
			it.ID, o.ID, it.ProductID, it.Quantity, it.ShipmentItemID)
	}
	br := r.q.SendBatch(ctx, b)
	defer br.Close()
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicate
			}
			return fmt.Errorf("insert order: %w", err)
		}
	}
	return nil
}

func (r *OrderRepo) get(ctx context.Context, id, lock string) (*entity.Order, error) {
	var o entity.Order
	err := r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`+lock, id).Scan(
		&o.ID, &o.OrganizationID, &o.CustomerID, &o.ShopifyOrderID, &o.Status, &o.Notes, &o.ShopifyFulfillmentID,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	rows, err := r.q.Query(ctx,
		`SELECT id, product_id, quantity, shipment_item_id FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		it := entity.OrderItem{OrderID: o.ID}
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Quantity, &it.ShipmentItemID); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

// GetByID pedido con ítems.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate bloquea la cabecera del pedido.
func (r *OrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

// UpdateStatus cambia el estado del pedido.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, status entity.OrderStatus) error {
	cmd, err := r.q.Exec(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// BindItem asigna la unidad sólo si el ítem sigue libre.
func (r *OrderRepo) BindItem(ctx context.Context, itemID, unitID string) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE order_items SET shipment_item_id = $2 WHERE id = $1 AND shipment_item_id IS NULL`, itemID, unitID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("bind order item: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// UnbindUnits deja sin unidad los ítems asignados a unitIDs.
func (r *OrderRepo) UnbindUnits(ctx context.Context, unitIDs []string) error {
	if len(unitIDs) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx,
		`UPDATE order_items SET shipment_item_id = NULL WHERE shipment_item_id = ANY($1)`, unitIDs)
	if err != nil {
		return fmt.Errorf("unbind order items: %w", err)
	}
	return nil
}

// OrderIDForUnit pedido dueño de la unidad.
func (r *OrderRepo) OrderIDForUnit(ctx context.Context, unitID string) (string, error) {
	var orderID string
	err := r.q.QueryRow(ctx, `SELECT order_id FROM order_items WHERE shipment_item_id = $1`, unitID).Scan(&orderID)
	if err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("get order for unit: %w", err)
	}
	return orderID, nil
}

// SetShopifyFulfillmentID guarda el fulfillment creado en Shopify.
func (r *OrderRepo) SetShopifyFulfillmentID(ctx context.Context, id, fulfillmentID string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE orders SET shopify_fulfillment_id = $2, updated_at = now() WHERE id = $1`, id, fulfillmentID)
	if err != nil {
		return fmt.Errorf("set shopify fulfillment: %w", err)
	}
	return nil
}
