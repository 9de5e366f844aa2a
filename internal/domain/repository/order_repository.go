package repository

import (
	"context"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// OrderRepository persistencia de pedidos con sus ítems.
type OrderRepository interface {
	// Create inserta el pedido y todos sus ítems.
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Order, error)
	UpdateStatus(ctx context.Context, id string, status entity.OrderStatus) error
	// BindItem asigna la unidad física a un ítem todavía sin asignar.
	BindItem(ctx context.Context, itemID, unitID string) error
	// UnbindUnits libera los ítems que apuntan a esas unidades.
	UnbindUnits(ctx context.Context, unitIDs []string) error
	// OrderIDForUnit devuelve el pedido que tiene asignada la unidad, o "" si ninguno.
	OrderIDForUnit(ctx context.Context, unitID string) (string, error)
	SetShopifyFulfillmentID(ctx context.Context, id, fulfillmentID string) error
}
