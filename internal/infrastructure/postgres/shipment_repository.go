package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

var _ repository.ShipmentRepository = (*ShipmentRepo)(nil)

// ShipmentRepo cabeceras de envío sobre PostgreSQL.
type ShipmentRepo struct {
	q Querier
}

// NewShipmentRepository construye el repositorio. Pasar pool o tx.
func NewShipmentRepository(q Querier) *ShipmentRepo {
	return &ShipmentRepo{q: q}
}

const shipmentColumns = `id, organization_id, provider_name, receipt_number, notes, status, total_units,
	received_at, created_by, created_at, updated_at`

func scanShipment(row pgx.Row) (*entity.Shipment, error) {
	var s entity.Shipment
	var createdBy *string
	err := row.Scan(&s.ID, &s.OrganizationID, &s.ProviderName, &s.ReceiptNumber, &s.Notes, &s.Status,
		&s.TotalUnits, &s.ReceivedAt, &createdBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if createdBy != nil {
		s.CreatedBy = *createdBy
	}
	return &s, nil
}

// Create inserta la cabecera.
func (r *ShipmentRepo) Create(ctx context.Context, s *entity.Shipment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO shipments (`+shipmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.OrganizationID, s.ProviderName, s.ReceiptNumber, s.Notes, s.Status, s.TotalUnits,
		s.ReceivedAt, nullIfEmpty(s.CreatedBy), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert shipment: %w", err)
	}
	return nil
}

// GetByID obtiene un envío.
func (r *ShipmentRepo) GetByID(ctx context.Context, id string) (*entity.Shipment, error) {
	s, err := scanShipment(r.q.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	return s, nil
}

// GetForUpdate bloquea la cabecera para el roll-up de estado.
func (r *ShipmentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Shipment, error) {
	s, err := scanShipment(r.q.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shipment for update: %w", err)
	}
	return s, nil
}

// UpdateStatus cambia el estado; receivedAt sólo se fija la primera vez.
func (r *ShipmentRepo) UpdateStatus(ctx context.Context, id string, status entity.ShipmentStatus, receivedAt *time.Time) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE shipments SET status = $2, received_at = COALESCE(received_at, $3), updated_at = now()
		WHERE id = $1`, id, status, receivedAt)
	if err != nil {
		return fmt.Errorf("update shipment status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
