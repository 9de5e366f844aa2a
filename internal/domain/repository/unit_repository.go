package repository

import (
	"context"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// UnitRepository persistencia de unidades físicas (tabla shipment_items).
type UnitRepository interface {
	// InsertBatch inserta un bloque de unidades en un solo viaje a la base.
	InsertBatch(ctx context.Context, units []*entity.Unit) error
	// ExistingCodes devuelve cuáles de codes ya están persistidos.
	ExistingCodes(ctx context.Context, codes []string) ([]string, error)
	GetByCode(ctx context.Context, code string) (*entity.Unit, error)
	// GetByCodeForUpdate bloquea la fila (SELECT ... FOR UPDATE) dentro de la transacción.
	GetByCodeForUpdate(ctx context.Context, code string) (*entity.Unit, error)
	GetByIDs(ctx context.Context, ids []string) ([]*entity.Unit, error)
	// Update persiste estado, ubicación, ensamble y marcas de recepción/venta.
	Update(ctx context.Context, unit *entity.Unit) error
	CountByStatus(ctx context.Context, productID string, status entity.UnitStatus) (int, error)
	// CountByProducts cuenta unidades en status agrupadas por producto.
	CountByProducts(ctx context.Context, orgID string, productIDs []string, status entity.UnitStatus) (map[string]int, error)
	ShipmentProgress(ctx context.Context, shipmentID string) (entity.ShipmentProgress, error)
	ShipmentStatusCounts(ctx context.Context, shipmentID string) (map[entity.UnitStatus]int, error)
	// LockAvailable bloquea hasta n unidades received del producto (FOR UPDATE SKIP LOCKED).
	LockAvailable(ctx context.Context, orgID, productID string, n int) ([]*entity.Unit, error)
	ListByAssembly(ctx context.Context, assemblyID string, status entity.UnitStatus) ([]*entity.Unit, error)
}
