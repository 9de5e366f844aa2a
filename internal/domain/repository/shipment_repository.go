package repository

import (
	"context"
	"time"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// ShipmentRepository persistencia de cabeceras de envío.
type ShipmentRepository interface {
	Create(ctx context.Context, shipment *entity.Shipment) error
	GetByID(ctx context.Context, id string) (*entity.Shipment, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Shipment, error)
	UpdateStatus(ctx context.Context, id string, status entity.ShipmentStatus, receivedAt *time.Time) error
}
