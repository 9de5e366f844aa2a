package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

var _ repository.UnitRepository = (*UnitRepo)(nil)

// UnitRepo unidades físicas (shipment_items) sobre PostgreSQL.
type UnitRepo struct {
	q Querier
}

// NewUnitRepository construye el repositorio. Pasar pool o tx.
func NewUnitRepository(q Querier) *UnitRepo {
	return &UnitRepo{q: q}
}

const unitColumns = `id, organization_id, shipment_id, product_id, qr_code, status, source_type, source_assembly_id,
	assembly_id, storage_location, warranty_months, warranty_status, warranty_start_at, is_authentic,
	received_at, received_by, sold_at, sold_by, created_at, updated_at`

func scanUnit(row pgx.Row) (*entity.Unit, error) {
	var u entity.Unit
	err := row.Scan(&u.ID, &u.OrganizationID, &u.ShipmentID, &u.ProductID, &u.QRCode, &u.Status, &u.SourceType,
		&u.SourceAssemblyID, &u.AssemblyID, &u.StorageLocation, &u.WarrantyMonths, &u.WarrantyStatus,
		&u.WarrantyStartAt, &u.IsAuthentic, &u.ReceivedAt, &u.ReceivedBy, &u.SoldAt, &u.SoldBy, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UnitRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Unit, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*entity.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// InsertBatch envía todas las inserciones del bloque en un solo pgx.Batch.
func (r *UnitRepo) InsertBatch(ctx context.Context, units []*entity.Unit) error {
	if len(units) == 0 {
		return nil
	}
	query := `INSERT INTO shipment_items (` + unitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	b := &pgx.Batch{}
	for _, u := range units {
		b.Queue(query, u.ID, u.OrganizationID, u.ShipmentID, u.ProductID, u.QRCode, u.Status, u.SourceType,
			u.SourceAssemblyID, u.AssemblyID, u.StorageLocation, u.WarrantyMonths, u.WarrantyStatus,
			u.WarrantyStartAt, u.IsAuthentic, u.ReceivedAt, u.ReceivedBy, u.SoldAt, u.SoldBy, u.CreatedAt, u.UpdatedAt)
	}
	br := r.q.SendBatch(ctx, b)
	defer br.Close()
	for i := range units {
		if _, err := br.Exec(); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert unit %s: %w", units[i].QRCode, domain.ErrDuplicate)
			}
			return fmt.Errorf("insert unit %d: %w", i, err)
		}
	}
	return nil
}

// ExistingCodes devuelve los códigos de codes que ya existen.
func (r *UnitRepo) ExistingCodes(ctx context.Context, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `SELECT qr_code FROM shipment_items WHERE qr_code = ANY($1)`, codes)
	if err != nil {
		return nil, fmt.Errorf("existing codes: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan code: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByCode busca una unidad por su código QR.
func (r *UnitRepo) GetByCode(ctx context.Context, code string) (*entity.Unit, error) {
	u, err := scanUnit(r.q.QueryRow(ctx, `SELECT `+unitColumns+` FROM shipment_items WHERE qr_code = $1`, code))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return u, nil
}

// GetByCodeForUpdate bloquea la fila hasta el fin de la transacción.
func (r *UnitRepo) GetByCodeForUpdate(ctx context.Context, code string) (*entity.Unit, error) {
	u, err := scanUnit(r.q.QueryRow(ctx, `SELECT `+unitColumns+` FROM shipment_items WHERE qr_code = $1 FOR UPDATE`, code))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get unit for update: %w", err)
	}
	return u, nil
}

// GetByIDs lista unidades por ID.
func (r *UnitRepo) GetByIDs(ctx context.Context, ids []string) ([]*entity.Unit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	list, err := r.list(ctx, `SELECT `+unitColumns+` FROM shipment_items WHERE id = ANY($1) ORDER BY created_at`, ids)
	if err != nil {
		return nil, fmt.Errorf("get units: %w", err)
	}
	return list, nil
}

// Update persiste los campos mutables de la unidad.
func (r *UnitRepo) Update(ctx context.Context, u *entity.Unit) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE shipment_items SET status = $2, assembly_id = $3, storage_location = $4, warranty_status = $5,
			warranty_start_at = $6, received_at = $7, received_by = $8, sold_at = $9, sold_by = $10, updated_at = $11
		WHERE id = $1`,
		u.ID, u.Status, u.AssemblyID, u.StorageLocation, u.WarrantyStatus, u.WarrantyStartAt,
		u.ReceivedAt, u.ReceivedBy, u.SoldAt, u.SoldBy, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update unit: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountByStatus cuenta unidades de un producto en un estado.
func (r *UnitRepo) CountByStatus(ctx context.Context, productID string, status entity.UnitStatus) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT count(*) FROM shipment_items WHERE product_id = $1 AND status = $2`, productID, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count units: %w", err)
	}
	return n, nil
}

// CountByProducts cuenta por producto en una sola consulta agrupada.
func (r *UnitRepo) CountByProducts(ctx context.Context, orgID string, productIDs []string, status entity.UnitStatus) (map[string]int, error) {
	out := make(map[string]int, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT product_id, count(*) FROM shipment_items
		WHERE organization_id = $1 AND product_id = ANY($2) AND status = $3
		GROUP BY product_id`, orgID, productIDs, status)
	if err != nil {
		return nil, fmt.Errorf("count units by product: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

// ShipmentProgress total y pendientes del envío.
func (r *UnitRepo) ShipmentProgress(ctx context.Context, shipmentID string) (entity.ShipmentProgress, error) {
	var p entity.ShipmentProgress
	err := r.q.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE status = 'pending')
		FROM shipment_items WHERE shipment_id = $1`, shipmentID).Scan(&p.Total, &p.Pending)
	if err != nil {
		return p, fmt.Errorf("shipment progress: %w", err)
	}
	return p, nil
}

// ShipmentStatusCounts conteo por estado de las unidades del envío.
func (r *UnitRepo) ShipmentStatusCounts(ctx context.Context, shipmentID string) (map[entity.UnitStatus]int, error) {
	rows, err := r.q.Query(ctx,
		`SELECT status, count(*) FROM shipment_items WHERE shipment_id = $1 GROUP BY status`, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("shipment status counts: %w", err)
	}
	defer rows.Close()
	out := map[entity.UnitStatus]int{}
	for rows.Next() {
		var st entity.UnitStatus
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[st] = n
	}
	return out, rows.Err()
}

// LockAvailable toma hasta n unidades received; las filas bloqueadas por otra tx se saltan.
func (r *UnitRepo) LockAvailable(ctx context.Context, orgID, productID string, n int) ([]*entity.Unit, error) {
	list, err := r.list(ctx, `
		SELECT `+unitColumns+` FROM shipment_items
		WHERE organization_id = $1 AND product_id = $2 AND status = 'received'
		ORDER BY received_at NULLS LAST, created_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED`, orgID, productID, n)
	if err != nil {
		return nil, fmt.Errorf("lock available units: %w", err)
	}
	return list, nil
}

// ListByAssembly unidades reservadas por un ensamble.
func (r *UnitRepo) ListByAssembly(ctx context.Context, assemblyID string, status entity.UnitStatus) ([]*entity.Unit, error) {
	list, err := r.list(ctx,
		`SELECT `+unitColumns+` FROM shipment_items WHERE assembly_id = $1 AND status = $2 ORDER BY updated_at`,
		assemblyID, status)
	if err != nil {
		return nil, fmt.Errorf("list assembly units: %w", err)
	}
	return list, nil
}
