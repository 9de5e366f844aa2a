package repository

import (
	"context"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// Los métodos Get* devuelven (nil, nil) cuando no existe el registro.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// Update modifica los datos editables; SKU y relación de pack no cambian.
	Update(ctx context.Context, product *entity.Product) error
	ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]*entity.Product, error)
	// GetByIDs resuelve varios productos de la organización en una sola consulta.
	GetByIDs(ctx context.Context, orgID string, ids []string) (map[string]*entity.Product, error)
	// GetBySKUs indexa por SKU; los SKUs sin producto no aparecen en el mapa.
	GetBySKUs(ctx context.Context, orgID string, skus []string) (map[string]*entity.Product, error)
	// InsertPackProduct inserta si no existe otro pack con la misma (base, pack_size).
	// created=false indica que otro llamador ganó la carrera; usar GetPackProduct.
	InsertPackProduct(ctx context.Context, product *entity.Product) (created bool, err error)
	GetPackProduct(ctx context.Context, key entity.PackKey) (*entity.Product, error)
}
