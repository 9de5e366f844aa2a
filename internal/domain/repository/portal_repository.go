package repository

import (
	"context"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// PortalRepository registro de unidades de clientes y auditoría de verificaciones.
type PortalRepository interface {
	GetCustomerProduct(ctx context.Context, qrCode string) (*entity.CustomerProduct, error)
	// UpsertCustomerProduct inserta o reemplaza por qr_code.
	UpsertCustomerProduct(ctx context.Context, cp *entity.CustomerProduct) error
	RecordScan(ctx context.Context, scan *entity.CustomerScan) error
}
