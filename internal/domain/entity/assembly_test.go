package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

func newAssembly() *entity.Assembly {
	return &entity.Assembly{
		ID:     "asm-1",
		Status: entity.AssemblyAssembling,
		Phases: []entity.AssemblyPhase{
			{Index: 0, ProductID: "cuerpo", ExpectedCount: 2},
			{Index: 1, ProductID: "tapa", ExpectedCount: 2},
		},
	}
}

func TestAssembly_CheckScan(t *testing.T) {
	a := newAssembly()
	assert.NoError(t, a.CheckScan("cuerpo"))

	err := a.CheckScan("tapa")
	assert.ErrorIs(t, err, domain.ErrWrongPhase)
	assert.Contains(t, err.Error(), "fase 2")

	assert.ErrorIs(t, a.CheckScan("otro"), domain.ErrWrongPhase)

	a.Phases[0].ScannedCount = 2
	assert.ErrorIs(t, a.CheckScan("cuerpo"), domain.ErrPhaseFull)

	a.Status = entity.AssemblyCompleted
	assert.ErrorIs(t, a.CheckScan("cuerpo"), domain.ErrAssemblyClosed)
}

func TestAssembly_CheckConfirmPhase(t *testing.T) {
	a := newAssembly()
	assert.ErrorIs(t, a.CheckConfirmPhase(0), domain.ErrPhaseIncomplete)

	a.Phases[0].ScannedCount = 2
	assert.ErrorIs(t, a.CheckConfirmPhase(1), domain.ErrConflict)
	assert.NoError(t, a.CheckConfirmPhase(0))

	a.CurrentPhaseIndex = 1
	a.Phases[1].ScannedCount = 2
	assert.ErrorIs(t, a.CheckConfirmPhase(1), domain.ErrConflict, "la última fase no avanza, se completa")
}

func TestAssembly_CheckComplete(t *testing.T) {
	a := newAssembly()
	a.Phases[0].ScannedCount = 2
	a.Phases[1].ScannedCount = 1
	assert.ErrorIs(t, a.CheckComplete(), domain.ErrAssemblyIncomplete)
	assert.False(t, a.AllPhasesComplete())

	a.Phases[1].ScannedCount = 2
	assert.NoError(t, a.CheckComplete())
	assert.True(t, a.AllPhasesComplete())
}
