package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

func TestMergeSession_CamposUltimaEscrituraGana(t *testing.T) {
	now := time.Now()
	s := entity.NewScanningSession("u1")

	s = entity.MergeSession(s, entity.SessionPatch{Timestamp: 200, Fields: map[string]string{"orderId": "B"}}, now)
	// Llega tarde un cambio más antiguo de otro dispositivo.
	s = entity.MergeSession(s, entity.SessionPatch{Timestamp: 100, Fields: map[string]string{"orderId": "A", "notes": "x"}}, now)

	assert.Equal(t, "B", s.Fields["orderId"].Value)
	assert.Equal(t, "x", s.Fields["notes"].Value)
	assert.Equal(t, 2, s.Version)
}

func TestMergeSession_CarritoUnionYEliminaciones(t *testing.T) {
	now := time.Now()
	s := entity.NewScanningSession("u1")

	s = entity.MergeSession(s, entity.SessionPatch{Timestamp: 10, AddItems: []entity.SessionItem{{QRCode: "AAAA0001"}}}, now)
	s = entity.MergeSession(s, entity.SessionPatch{Timestamp: 11, AddItems: []entity.SessionItem{{QRCode: "BBBB0002"}}}, now)
	require.Len(t, s.Items, 2)

	s = entity.MergeSession(s, entity.SessionPatch{Timestamp: 20, RemoveItems: []string{"AAAA0001"}}, now)
	assert.NotContains(t, s.Items, "AAAA0001")

	// Un alta anterior a la eliminación (dispositivo desfasado) no revive el ítem.
	s = entity.MergeSession(s, entity.SessionPatch{Timestamp: 15, AddItems: []entity.SessionItem{{QRCode: "AAAA0001"}}}, now)
	assert.NotContains(t, s.Items, "AAAA0001")

	// Un alta posterior sí.
	s = entity.MergeSession(s, entity.SessionPatch{Timestamp: 30, AddItems: []entity.SessionItem{{QRCode: "AAAA0001"}}}, now)
	assert.Contains(t, s.Items, "AAAA0001")

	list := s.ItemList()
	require.Len(t, list, 2)
	assert.Equal(t, "BBBB0002", list[0].QRCode)
}
