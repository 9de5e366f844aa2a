package repository

import (
	"context"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// DeliveryRepository persistencia de entregas, su historial y resoluciones.
type DeliveryRepository interface {
	Create(ctx context.Context, delivery *entity.Delivery) error
	GetByID(ctx context.Context, id string) (*entity.Delivery, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Delivery, error)
	GetByOrderID(ctx context.Context, orderID string) (*entity.Delivery, error)
	Update(ctx context.Context, delivery *entity.Delivery) error
	AddHistory(ctx context.Context, h *entity.DeliveryHistory) error
	ListHistory(ctx context.Context, deliveryID string) ([]*entity.DeliveryHistory, error)

	CreateResolution(ctx context.Context, r *entity.DeliveryResolution) error
	GetResolution(ctx context.Context, id string) (*entity.DeliveryResolution, error)
	GetResolutionForUpdate(ctx context.Context, id string) (*entity.DeliveryResolution, error)
	UpdateResolution(ctx context.Context, r *entity.DeliveryResolution) error
}
