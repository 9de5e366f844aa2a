package repository

import (
	"context"
	"time"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// AssemblyRepository persistencia de ensambles y sus fases.
// Toda mutación incrementa assemblies.version.
type AssemblyRepository interface {
	Create(ctx context.Context, assembly *entity.Assembly) error
	GetByID(ctx context.Context, id string) (*entity.Assembly, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Assembly, error)
	// IncrementPhase suma un escaneo sólo si scanned_count < expected_count.
	// ok=false cuando la fase ya estaba llena.
	IncrementPhase(ctx context.Context, assemblyID string, phaseIndex int) (scanned int, ok bool, err error)
	// AdvancePhase mueve current_phase_index de expectedIndex a expectedIndex+1.
	// ok=false cuando otro dispositivo ya avanzó.
	AdvancePhase(ctx context.Context, assemblyID string, expectedIndex int) (ok bool, err error)
	UpdateStatus(ctx context.Context, id string, status entity.AssemblyStatus, completedAt *time.Time) error
}
