package repository

import (
	"context"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// CustomerRepository define el puerto de persistencia para Customer. Phone es la llave de búsqueda.
type CustomerRepository interface {
	Create(ctx context.Context, customer *entity.Customer) error
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
	GetByPhone(ctx context.Context, orgID, phone string) (*entity.Customer, error)
	Update(ctx context.Context, customer *entity.Customer) error
}
