package repository

import (
	"context"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// ShopifyRepository configuración por organización y mapeos producto ↔ Shopify.
type ShopifyRepository interface {
	GetSettings(ctx context.Context, orgID string) (*entity.ShopifySettings, error)
	GetMapping(ctx context.Context, productID string) (*entity.ShopifyProductMapping, error)
	// SaveMapping inserta o actualiza por product_id.
	SaveMapping(ctx context.Context, m *entity.ShopifyProductMapping) error
	// RecordSync actualiza la bitácora de la última sincronización del mapeo.
	RecordSync(ctx context.Context, m *entity.ShopifyProductMapping) error
}
