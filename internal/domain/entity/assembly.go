package entity

import (
	"fmt"
	"time"

	"github.com/onlyperf/warehouse-api/internal/domain"
)

// AssemblyStatus ciclo de vida de un ensamble.
type AssemblyStatus string

const (
	AssemblyPending    AssemblyStatus = "pending"
	AssemblyAssembling AssemblyStatus = "assembling"
	AssemblyCompleted  AssemblyStatus = "completed"
	AssemblyAbandoned  AssemblyStatus = "abandoned"
)

// IsClosed indica si el ensamble ya no acepta cambios.
func (s AssemblyStatus) IsClosed() bool {
	return s == AssemblyCompleted || s == AssemblyAbandoned
}

// AssemblyPhase una fase: N escaneos de un producto componente.
type AssemblyPhase struct {
	AssemblyID    string
	Index         int
	ProductID     string
	ExpectedCount int
	ScannedCount  int
}

// IsComplete indica si la fase alcanzó su cantidad esperada.
func (p AssemblyPhase) IsComplete() bool {
	return p.ScannedCount >= p.ExpectedCount
}

// Assembly ensamble de componentes en un producto pack, por fases ordenadas.
// El estado vive en el servidor; Version se incrementa en cada mutación para los clientes que hacen polling.
type Assembly struct {
	ID                string
	OrganizationID    string
	Name              string
	TargetProductID   string
	OutputQuantity    int
	Status            AssemblyStatus
	CurrentPhaseIndex int
	Phases            []AssemblyPhase
	Version           int
	CreatedBy         string
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CurrentPhase devuelve la fase activa.
func (a *Assembly) CurrentPhase() (*AssemblyPhase, error) {
	if a.CurrentPhaseIndex < 0 || a.CurrentPhaseIndex >= len(a.Phases) {
		return nil, fmt.Errorf("ensamble %s: índice de fase fuera de rango (%d)", a.ID, a.CurrentPhaseIndex)
	}
	return &a.Phases[a.CurrentPhaseIndex], nil
}

// CheckScan valida que un producto escaneado pueda sumar en la fase actual.
// No se permite escanear hacia otra fase.
func (a *Assembly) CheckScan(productID string) error {
	if a.Status.IsClosed() {
		return domain.ErrAssemblyClosed
	}
	phase, err := a.CurrentPhase()
	if err != nil {
		return err
	}
	if phase.ProductID != productID {
		for _, p := range a.Phases {
			if p.ProductID == productID && p.Index != phase.Index {
				return fmt.Errorf("%w: el producto pertenece a la fase %d, la fase actual es %d",
					domain.ErrWrongPhase, p.Index+1, phase.Index+1)
			}
		}
		return fmt.Errorf("%w: se esperaba el producto %s", domain.ErrWrongPhase, phase.ProductID)
	}
	if phase.IsComplete() {
		return domain.ErrPhaseFull
	}
	return nil
}

// AllPhasesComplete indica si todas las fases están satisfechas.
func (a *Assembly) AllPhasesComplete() bool {
	for _, p := range a.Phases {
		if !p.IsComplete() {
			return false
		}
	}
	return len(a.Phases) > 0
}

// CheckConfirmPhase valida el paso manual a la siguiente fase.
// expectedIndex es el índice que el operador ve en pantalla.
func (a *Assembly) CheckConfirmPhase(expectedIndex int) error {
	if a.Status.IsClosed() {
		return domain.ErrAssemblyClosed
	}
	if a.CurrentPhaseIndex != expectedIndex {
		return fmt.Errorf("%w: la fase actual es %d", domain.ErrConflict, a.CurrentPhaseIndex+1)
	}
	phase, err := a.CurrentPhase()
	if err != nil {
		return err
	}
	if !phase.IsComplete() {
		return fmt.Errorf("%w: %d de %d escaneados", domain.ErrPhaseIncomplete, phase.ScannedCount, phase.ExpectedCount)
	}
	if a.CurrentPhaseIndex == len(a.Phases)-1 {
		return fmt.Errorf("%w: no hay una fase siguiente", domain.ErrConflict)
	}
	return nil
}

// CheckComplete valida el cierre del ensamble.
func (a *Assembly) CheckComplete() error {
	if a.Status.IsClosed() {
		return domain.ErrAssemblyClosed
	}
	for _, p := range a.Phases {
		if !p.IsComplete() {
			return fmt.Errorf("%w: fase %d con %d de %d", domain.ErrAssemblyIncomplete, p.Index+1, p.ScannedCount, p.ExpectedCount)
		}
	}
	if len(a.Phases) == 0 {
		return domain.ErrAssemblyIncomplete
	}
	return nil
}
