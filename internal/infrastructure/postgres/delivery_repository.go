package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

var _ repository.DeliveryRepository = (*DeliveryRepo)(nil)

// DeliveryRepo entregas, historial y resoluciones sobre PostgreSQL.
type DeliveryRepo struct {
	q Querier
}

// NewDeliveryRepository construye el repositorio. Pasar pool o tx.
func NewDeliveryRepository(q Querier) *DeliveryRepo {
	return &DeliveryRepo{q: q}
}

const deliveryColumns = `id, organization_id, order_id, status, carrier, tracking_number, failure_reason,
	failed_at, delivered_at, created_at, updated_at`

func scanDelivery(row pgx.Row) (*entity.Delivery, error) {
	var d entity.Delivery
	if err := row.Scan(&d.ID, &d.OrganizationID, &d.OrderID, &d.Status, &d.Carrier, &d.TrackingNumber,
		&d.FailureReason, &d.FailedAt, &d.DeliveredAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserta la entrega.
func (r *DeliveryRepo) Create(ctx context.Context, d *entity.Delivery) error {
	_, err := r.q.Exec(ctx, `INSERT INTO deliveries (`+deliveryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.OrganizationID, d.OrderID, d.Status, d.Carrier, d.TrackingNumber, d.FailureReason,
		d.FailedAt, d.DeliveredAt, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

func (r *DeliveryRepo) getOne(ctx context.Context, where string, arg any) (*entity.Delivery, error) {
	d, err := scanDelivery(r.q.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE `+where, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	return d, nil
}

// GetByID obtiene una entrega.
func (r *DeliveryRepo) GetByID(ctx context.Context, id string) (*entity.Delivery, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetForUpdate bloquea la entrega.
func (r *DeliveryRepo) GetForUpdate(ctx context.Context, id string) (*entity.Delivery, error) {
	return r.getOne(ctx, "id = $1 FOR UPDATE", id)
}

// GetByOrderID entrega de un pedido.
func (r *DeliveryRepo) GetByOrderID(ctx context.Context, orderID string) (*entity.Delivery, error) {
	return r.getOne(ctx, "order_id = $1", orderID)
}

// Update persiste estado y campos de fallo/entrega.
func (r *DeliveryRepo) Update(ctx context.Context, d *entity.Delivery) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE deliveries SET status = $2, carrier = $3, tracking_number = $4, failure_reason = $5,
			failed_at = $6, delivered_at = $7, updated_at = $8
		WHERE id = $1`,
		d.ID, d.Status, d.Carrier, d.TrackingNumber, d.FailureReason, d.FailedAt, d.DeliveredAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddHistory registra un cambio de estado.
func (r *DeliveryRepo) AddHistory(ctx context.Context, h *entity.DeliveryHistory) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO delivery_history (id, delivery_id, from_status, to_status, note, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		h.ID, h.DeliveryID, h.FromStatus, h.ToStatus, h.Note, h.ChangedBy, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert delivery history: %w", err)
	}
	return nil
}

// ListHistory historial en orden cronológico.
func (r *DeliveryRepo) ListHistory(ctx context.Context, deliveryID string) ([]*entity.DeliveryHistory, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, delivery_id, from_status, to_status, note, changed_by, created_at
		FROM delivery_history WHERE delivery_id = $1 ORDER BY created_at, id`, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("list delivery history: %w", err)
	}
	defer rows.Close()
	var list []*entity.DeliveryHistory
	for rows.Next() {
		var h entity.DeliveryHistory
		if err := rows.Scan(&h.ID, &h.DeliveryID, &h.FromStatus, &h.ToStatus, &h.Note, &h.ChangedBy, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery history: %w", err)
		}
		list = append(list, &h)
	}
	return list, rows.Err()
}

const resolutionColumns = `id, delivery_id, status, resolution_type, storage_location, notes, resolved_by,
	completed_at, created_at, updated_at`

func scanResolution(row pgx.Row) (*entity.DeliveryResolution, error) {
	var res entity.DeliveryResolution
	if err := row.Scan(&res.ID, &res.DeliveryID, &res.Status, &res.Type, &res.StorageLocation, &res.Notes,
		&res.ResolvedBy, &res.CompletedAt, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateResolution inserta una resolución pendiente.
func (r *DeliveryRepo) CreateResolution(ctx context.Context, res *entity.DeliveryResolution) error {
	_, err := r.q.Exec(ctx, `INSERT INTO delivery_resolutions (`+resolutionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		res.ID, res.DeliveryID, res.Status, res.Type, res.StorageLocation, res.Notes, res.ResolvedBy,
		res.CompletedAt, res.CreatedAt, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert delivery resolution: %w", err)
	}
	return nil
}

func (r *DeliveryRepo) getResolution(ctx context.Context, id, lock string) (*entity.DeliveryResolution, error) {
	res, err := scanResolution(r.q.QueryRow(ctx,
		`SELECT `+resolutionColumns+` FROM delivery_resolutions WHERE id = $1`+lock, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery resolution: %w", err)
	}
	return res, nil
}

// GetResolution obtiene una resolución.
func (r *DeliveryRepo) GetResolution(ctx context.Context, id string) (*entity.DeliveryResolution, error) {
	return r.getResolution(ctx, id, "")
}

// GetResolutionForUpdate bloquea la resolución.
func (r *DeliveryRepo) GetResolutionForUpdate(ctx context.Context, id string) (*entity.DeliveryResolution, error) {
	return r.getResolution(ctx, id, " FOR UPDATE")
}

// UpdateResolution persiste tipo, estado y cierre.
func (r *DeliveryRepo) UpdateResolution(ctx context.Context, res *entity.DeliveryResolution) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE delivery_resolutions SET status = $2, resolution_type = $3, storage_location = $4, notes = $5,
			resolved_by = $6, completed_at = $7, updated_at = $8
		WHERE id = $1`,
		res.ID, res.Status, res.Type, res.StorageLocation, res.Notes, res.ResolvedBy, res.CompletedAt, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update delivery resolution: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
