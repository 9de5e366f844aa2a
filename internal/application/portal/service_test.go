package portal_test

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/application/portal"
	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/infrastructure/memory"
)

func soldEvent(code, customer string, purchase time.Time, months int) dto.WarehouseSyncEvent {
	return dto.WarehouseSyncEvent{
		Event: dto.EventProductSold,
		Data: dto.WarehouseSyncData{
			QRCode:         code,
			ShopifyOrderID: "5550001",
			CustomerID:     customer,
			ProductDetails: dto.PortalProductDetails{ProductID: "p1", SKU: "PAL-1", Name: "Paleta Pro"},
			PurchaseDate:   &purchase,
			WarrantyMonths: months,
		},
	}
}

func TestWebhook_VendidoRegistraConGarantiaActiva(t *testing.T) {
	store := memory.NewStore()
	svc := portal.NewService(store.Repos(), zerolog.Nop())

	res, err := svc.HandleWebhook(context.Background(), soldEvent("abcd1234", "c1", time.Now().AddDate(0, -1, 0), 12))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.ProductUnitID)

	cp, err := store.Repos().Portal.GetCustomerProduct(context.Background(), "ABCD1234")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, entity.WarrantyActive, cp.WarrantyStatus)
	assert.Equal(t, "c1", cp.CustomerID)
	assert.JSONEq(t, `{"productId":"p1","sku":"PAL-1","name":"Paleta Pro"}`, string(cp.ProductDetails))

	// reenviar el mismo evento conserva el id
	again, err := svc.HandleWebhook(context.Background(), soldEvent("ABCD1234", "c1", time.Now(), 12))
	require.NoError(t, err)
	assert.Equal(t, res.ProductUnitID, again.ProductUnitID)
}

func TestWebhook_DevueltoYReemplazado(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repos()
	svc := portal.NewService(repos, zerolog.Nop())
	_, err := svc.HandleWebhook(context.Background(), soldEvent("ABCD1234", "c1", time.Now(), 12))
	require.NoError(t, err)

	_, err = svc.HandleWebhook(context.Background(), dto.WarehouseSyncEvent{
		Event: dto.EventProductReplaced,
		Data:  dto.WarehouseSyncData{QRCode: "WXYZ9876", ReplacesQRCode: "ABCD1234", WarrantyMonths: 12},
	})
	require.NoError(t, err)

	old, err := repos.Portal.GetCustomerProduct(context.Background(), "ABCD1234")
	require.NoError(t, err)
	assert.Equal(t, entity.WarrantyVoid, old.WarrantyStatus)
	assert.Equal(t, "WXYZ9876", old.ReplacedBy)
	fresh, err := repos.Portal.GetCustomerProduct(context.Background(), "WXYZ9876")
	require.NoError(t, err)
	assert.Equal(t, "c1", fresh.CustomerID)
	assert.Equal(t, entity.WarrantyActive, fresh.WarrantyStatus)

	_, err = svc.HandleWebhook(context.Background(), dto.WarehouseSyncEvent{
		Event: dto.EventProductReturned, Data: dto.WarehouseSyncData{QRCode: "WXYZ9876"},
	})
	require.NoError(t, err)
	fresh, err = repos.Portal.GetCustomerProduct(context.Background(), "WXYZ9876")
	require.NoError(t, err)
	assert.True(t, fresh.Returned)
	assert.Equal(t, entity.WarrantyVoid, fresh.WarrantyStatus)
}

func TestWebhook_Validaciones(t *testing.T) {
	svc := portal.NewService(memory.NewStore().Repos(), zerolog.Nop())

	_, err := svc.HandleWebhook(context.Background(), dto.WarehouseSyncEvent{Event: dto.EventProductSold})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.HandleWebhook(context.Background(), dto.WarehouseSyncEvent{Event: "product.lost", Data: dto.WarehouseSyncData{QRCode: "ABCD1234"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.HandleWebhook(context.Background(), dto.WarehouseSyncEvent{Event: dto.EventProductReturned, Data: dto.WarehouseSyncData{QRCode: "ABCD1234"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerify_PropietarioVeBloqueDePropiedad(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repos()
	require.NoError(t, repos.Products.Create(context.Background(), &entity.Product{
		ID: "p1", OrganizationID: "org-1", SKU: "PAL-1", Name: "Paleta Pro", Price: decimal.NewFromInt(1),
	}))
	require.NoError(t, repos.Units.InsertBatch(context.Background(), []*entity.Unit{{
		ID: "u1", OrganizationID: "org-1", ProductID: "p1", QRCode: "ABCD1234", Status: entity.UnitSold,
		IsAuthentic: true, WarrantyMonths: 12, CreatedAt: time.Now(),
	}}))
	svc := portal.NewService(repos, zerolog.Nop())
	_, err := svc.HandleWebhook(context.Background(), soldEvent("ABCD1234", "c1", time.Now().AddDate(-2, 0, 0), 12))
	require.NoError(t, err)

	anon, err := svc.Verify(context.Background(), portal.VerifyInput{QRCode: "abcd1234", IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.True(t, anon.Authentic)
	assert.Equal(t, string(entity.WarrantyExpired), anon.WarrantyStatus)
	assert.Nil(t, anon.Ownership)
	assert.Contains(t, string(anon.Product), "Paleta Pro")

	other, err := svc.Verify(context.Background(), portal.VerifyInput{QRCode: "ABCD1234", CustomerID: "c2"})
	require.NoError(t, err)
	assert.Nil(t, other.Ownership)

	owner, err := svc.Verify(context.Background(), portal.VerifyInput{QRCode: "ABCD1234", CustomerID: "c1"})
	require.NoError(t, err)
	require.NotNil(t, owner.Ownership)
	assert.Equal(t, "5550001", owner.Ownership.ShopifyOrderID)
	require.NotNil(t, owner.Ownership.WarrantyEndsAt)

	_, err = svc.Verify(context.Background(), portal.VerifyInput{QRCode: "ZZZZ0000"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	scans := store.CustomerScans()
	require.Len(t, scans, 4)
	assert.True(t, scans[0].Found)
	assert.Equal(t, "10.0.0.1", scans[0].IPAddress)
	assert.False(t, scans[3].Found)
}

func TestVerify_UserAgentLargoSeCortaSinPartirRunas(t *testing.T) {
	store := memory.NewStore()
	svc := portal.NewService(store.Repos(), zerolog.Nop())
	// "ñ" ocupa los bytes 254 y 255: un corte por bytes la partiría
	ua := strings.Repeat("a", 254) + "ñandú móvil"

	_, err := svc.Verify(context.Background(), portal.VerifyInput{QRCode: "ZZZZ0000", UserAgent: ua})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	scans := store.CustomerScans()
	require.Len(t, scans, 1)
	got := scans[0].UserAgent
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 254), got)

	_, err = svc.Verify(context.Background(), portal.VerifyInput{QRCode: "ZZZZ0000", UserAgent: "  Safari/17 ñ  "})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Safari/17 ñ", store.CustomerScans()[1].UserAgent)
}
