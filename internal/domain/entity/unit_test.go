package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

func TestUnitStatus_Transiciones(t *testing.T) {
	cases := []struct {
		from, to entity.UnitStatus
		ok       bool
	}{
		{entity.UnitPending, entity.UnitReceived, true},
		{entity.UnitPending, entity.UnitSold, false},
		{entity.UnitReceived, entity.UnitSold, true},
		{entity.UnitReceived, entity.UnitAllocated, true},
		{entity.UnitReceived, entity.UnitReceived, false},
		{entity.UnitAllocated, entity.UnitConsumed, true},
		{entity.UnitAllocated, entity.UnitReceived, true},
		{entity.UnitSold, entity.UnitShipped, true},
		{entity.UnitSold, entity.UnitReceived, false},
		{entity.UnitShipped, entity.UnitDelivered, true},
		{entity.UnitShipped, entity.UnitReceived, true},
		{entity.UnitDelivered, entity.UnitReturned, true},
		{entity.UnitReturned, entity.UnitReceived, false},
		{entity.UnitConsumed, entity.UnitReceived, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestParseUnitStatus(t *testing.T) {
	st, err := entity.ParseUnitStatus("received")
	require.NoError(t, err)
	assert.Equal(t, entity.UnitReceived, st)

	_, err = entity.ParseUnitStatus("perdida")
	assert.Error(t, err)
}

func TestRollUpShipmentStatus(t *testing.T) {
	assert.Equal(t, entity.ShipmentPending, entity.RollUpShipmentStatus(entity.ShipmentPending, entity.ShipmentProgress{Total: 3, Pending: 1}))
	assert.Equal(t, entity.ShipmentReceived, entity.RollUpShipmentStatus(entity.ShipmentPending, entity.ShipmentProgress{Total: 3, Pending: 0}))
	assert.Equal(t, entity.ShipmentCompleted, entity.RollUpShipmentStatus(entity.ShipmentCompleted, entity.ShipmentProgress{Total: 3, Pending: 2}))
	assert.Equal(t, entity.ShipmentPending, entity.RollUpShipmentStatus(entity.ShipmentPending, entity.ShipmentProgress{}))
}

func TestUnit_TransitionTo(t *testing.T) {
	u := &entity.Unit{QRCode: "OP-000001", Status: entity.UnitReceived}
	require.NoError(t, u.TransitionTo(entity.UnitSold))
	assert.Equal(t, entity.UnitSold, u.Status)

	err := u.TransitionTo(entity.UnitConsumed)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	var se *domain.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "sold", se.Actual)
	assert.Equal(t, []string{"allocated"}, se.Expected)
	assert.Equal(t, entity.UnitSold, u.Status, "un rechazo no modifica el estado")

	returned := &entity.Unit{QRCode: "OP-000002", Status: entity.UnitReturned}
	assert.ErrorIs(t, returned.TransitionTo(entity.UnitReceived), domain.ErrInvalidTransition)
}
