package entity_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

func TestNewPackProduct(t *testing.T) {
	base := &entity.Product{
		ID:             "p1",
		OrganizationID: "org",
		SKU:            "PRF-100",
		Name:           "Perfume 100ml",
		Brand:          "OnlyPerf",
		Price:          decimal.RequireFromString("45000.50"),
		Packable:       true,
		WarrantyMonths: 6,
	}
	pack := entity.NewPackProduct("p2", base, 3, time.Now())

	require.True(t, pack.IsPack())
	assert.Equal(t, "p1", *pack.BaseProductID)
	assert.Equal(t, 3, *pack.PackSize)
	assert.Equal(t, "PRF-100-P3", pack.SKU)
	assert.Equal(t, "Perfume 100ml (Pack x3)", pack.Name)
	assert.True(t, decimal.RequireFromString("135001.50").Equal(pack.Price))
	assert.False(t, base.IsPack())
}

func TestWarrantyAt(t *testing.T) {
	start := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	st, end := entity.WarrantyAt(entity.WarrantyActive, &start, 12, start.AddDate(0, 6, 0))
	assert.Equal(t, entity.WarrantyActive, st)
	require.NotNil(t, end)
	assert.Equal(t, start.AddDate(1, 0, 0), *end)

	st, _ = entity.WarrantyAt(entity.WarrantyActive, &start, 12, start.AddDate(2, 0, 0))
	assert.Equal(t, entity.WarrantyExpired, st)

	st, _ = entity.WarrantyAt(entity.WarrantyVoid, &start, 12, start)
	assert.Equal(t, entity.WarrantyVoid, st)

	st, _ = entity.WarrantyAt("", nil, 12, start)
	assert.Equal(t, entity.WarrantyNone, st)
}
