package catalog_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyperf/warehouse-api/internal/application/catalog"
	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/infrastructure/memory"
)

func newService() *catalog.Service {
	return catalog.NewService(memory.NewStore().Repos().Products, zerolog.Nop())
}

func TestCreate_SKUDuplicadoEnLaMismaOrganizacion(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	in := dto.CreateProductRequest{SKU: "PAL-1", Name: "Paleta Pro", Price: decimal.NewFromInt(120000), WarrantyMonths: 12}

	out, err := svc.Create(ctx, "org-1", in)
	require.NoError(t, err)
	assert.Equal(t, "org-1", out.OrganizationID)
	assert.Nil(t, out.PackSize)

	_, err = svc.Create(ctx, "org-1", in)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	// otra organización puede usar el mismo SKU
	_, err = svc.Create(ctx, "org-2", in)
	assert.NoError(t, err)
}

func TestCreate_Validaciones(t *testing.T) {
	svc := newService()
	cases := []struct {
		name string
		in   dto.CreateProductRequest
	}{
		{"sin sku", dto.CreateProductRequest{Name: "X"}},
		{"sin nombre", dto.CreateProductRequest{SKU: "X-1", Name: "  "}},
		{"precio negativo", dto.CreateProductRequest{SKU: "X-1", Name: "X", Price: decimal.NewFromInt(-1)}},
		{"garantía negativa", dto.CreateProductRequest{SKU: "X-1", Name: "X", WarrantyMonths: -3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "org-1", tc.in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestUpdate_CamposParcialesYOrganizacion(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	created, err := svc.Create(ctx, "org-1", dto.CreateProductRequest{SKU: "PAL-1", Name: "Paleta Pro", Color: "negro"})
	require.NoError(t, err)

	name := "Paleta Pro 2026"
	months := 6
	out, err := svc.Update(ctx, "org-1", created.ID, dto.UpdateProductRequest{Name: &name, WarrantyMonths: &months})
	require.NoError(t, err)
	assert.Equal(t, name, out.Name)
	assert.Equal(t, 6, out.WarrantyMonths)
	assert.Equal(t, "negro", out.Color)
	assert.Equal(t, "PAL-1", out.SKU)

	got, err := svc.GetByID(ctx, "org-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)

	_, err = svc.Update(ctx, "org-2", created.ID, dto.UpdateProductRequest{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GetByID(ctx, "org-2", created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	empty := " "
	_, err = svc.Update(ctx, "org-1", created.ID, dto.UpdateProductRequest{Name: &empty})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestList_PaginaOrdenadaPorSKU(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	for _, sku := range []string{"C-1", "A-1", "B-1"} {
		_, err := svc.Create(ctx, "org-1", dto.CreateProductRequest{SKU: sku, Name: sku})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "org-2", dto.CreateProductRequest{SKU: "Z-1", Name: "Z"})
	require.NoError(t, err)

	page, err := svc.List(ctx, "org-1", 2, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "A-1", page.Items[0].SKU)
	assert.Equal(t, "B-1", page.Items[1].SKU)

	page, err = svc.List(ctx, "org-1", 0, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "C-1", page.Items[0].SKU)
	assert.Equal(t, 20, page.Page.Limit)

	page, err = svc.List(ctx, "org-1", 500, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 100, page.Page.Limit)
}
