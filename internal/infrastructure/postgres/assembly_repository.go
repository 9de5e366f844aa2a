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

var _ repository.AssemblyRepository = (*AssemblyRepo)(nil)

// AssemblyRepo ensambles y fases sobre PostgreSQL.
type AssemblyRepo struct {
	q Querier
}

// NewAssemblyRepository construye el repositorio. Pasar pool o tx.
func NewAssemblyRepository(q Querier) *AssemblyRepo {
	return &AssemblyRepo{q: q}
}

const assemblyColumns = `id, organization_id, name, target_product_id, output_quantity, status,
	current_phase_index, version, created_by, completed_at, created_at, updated_at`

// Create inserta el ensamble con sus fases en un batch.
func (r *AssemblyRepo) Create(ctx context.Context, a *entity.Assembly) error {
	b := &pgx.Batch{}
	b.Queue(`INSERT INTO assemblies (`+assemblyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.OrganizationID, a.Name, a.TargetProductID, a.OutputQuantity, a.Status,
		a.CurrentPhaseIndex, a.Version, nullIfEmpty(a.CreatedBy), a.CompletedAt, a.CreatedAt, a.UpdatedAt)
	for _, p := range a.Phases {
		b.Queue(`INSERT INTO assembly_phases (assembly_id, phase_index, product_id, expected_count, scanned_count)
			VALUES ($1, $2, $3, $4, $5)`, a.ID, p.Index, p.ProductID, p.ExpectedCount, p.ScannedCount)
	}
	br := r.q.SendBatch(ctx, b)
	defer br.Close()
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicate
			}
			return fmt.Errorf("insert assembly: %w", err)
		}
	}
	return nil
}

func (r *AssemblyRepo) get(ctx context.Context, id, lock string) (*entity.Assembly, error) {
	var a entity.Assembly
	var createdBy *string
	err := r.q.QueryRow(ctx, `SELECT `+assemblyColumns+` FROM assemblies WHERE id = $1`+lock, id).Scan(
		&a.ID, &a.OrganizationID, &a.Name, &a.TargetProductID, &a.OutputQuantity, &a.Status,
		&a.CurrentPhaseIndex, &a.Version, &createdBy, &a.CompletedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get assembly: %w", err)
	}
	if createdBy != nil {
		a.CreatedBy = *createdBy
	}

	rows, err := r.q.Query(ctx, `
		SELECT phase_index, product_id, expected_count, scanned_count
		FROM assembly_phases WHERE assembly_id = $1 ORDER BY phase_index`, id)
	if err != nil {
		return nil, fmt.Errorf("get assembly phases: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p := entity.AssemblyPhase{AssemblyID: a.ID}
		if err := rows.Scan(&p.Index, &p.ProductID, &p.ExpectedCount, &p.ScannedCount); err != nil {
			return nil, fmt.Errorf("scan assembly phase: %w", err)
		}
		a.Phases = append(a.Phases, p)
	}
	return &a, rows.Err()
}

// GetByID ensamble con fases.
func (r *AssemblyRepo) GetByID(ctx context.Context, id string) (*entity.Assembly, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate bloquea la fila del ensamble.
func (r *AssemblyRepo) GetForUpdate(ctx context.Context, id string) (*entity.Assembly, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

// IncrementPhase incremento condicional; la condición en el WHERE evita superar expected_count.
func (r *AssemblyRepo) IncrementPhase(ctx context.Context, assemblyID string, phaseIndex int) (int, bool, error) {
	var scanned int
	err := r.q.QueryRow(ctx, `
		UPDATE assembly_phases SET scanned_count = scanned_count + 1
		WHERE assembly_id = $1 AND phase_index = $2 AND scanned_count < expected_count
		RETURNING scanned_count`, assemblyID, phaseIndex).Scan(&scanned)
	if err != nil {
		if isNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("increment assembly phase: %w", err)
	}
	if err := r.bump(ctx, assemblyID); err != nil {
		return 0, false, err
	}
	return scanned, true, nil
}

// AdvancePhase avanza sólo si current_phase_index sigue siendo expectedIndex.
func (r *AssemblyRepo) AdvancePhase(ctx context.Context, assemblyID string, expectedIndex int) (bool, error) {
	cmd, err := r.q.Exec(ctx, `
		UPDATE assemblies SET current_phase_index = current_phase_index + 1, version = version + 1, updated_at = now()
		WHERE id = $1 AND current_phase_index = $2`, assemblyID, expectedIndex)
	if err != nil {
		return false, fmt.Errorf("advance assembly phase: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// UpdateStatus cambia el estado del ensamble.
func (r *AssemblyRepo) UpdateStatus(ctx context.Context, id string, status entity.AssemblyStatus, completedAt *time.Time) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE assemblies SET status = $2, completed_at = $3, version = version + 1, updated_at = now()
		WHERE id = $1`, id, status, completedAt)
	if err != nil {
		return fmt.Errorf("update assembly status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AssemblyRepo) bump(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `UPDATE assemblies SET version = version + 1, updated_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("bump assembly version: %w", err)
	}
	return nil
}
