package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// ShopifyProductInput datos para crear un producto en Shopify.
type ShopifyProductInput struct {
	Title       string
	Handle      string
	Vendor      string
	ProductType string
	SKU         string
	Price       decimal.Decimal
}

// ShopifyVariantInput datos para agregar una variante a un producto existente.
type ShopifyVariantInput struct {
	OptionName  string
	OptionValue string
	SKU         string
	Price       decimal.Decimal
}

// ShopifyVariantRef identificadores devueltos al crear producto o variante.
type ShopifyVariantRef struct {
	ProductID       string
	VariantID       string
	InventoryItemID string
}

// ShopifyFulfillmentOrder orden de preparación abierta en Shopify.
type ShopifyFulfillmentOrder struct {
	ID     string
	Status string
}

// ShopifyFulfillmentInput datos de despacho.
type ShopifyFulfillmentInput struct {
	FulfillmentOrderIDs []string
	TrackingNumber      string
	TrackingCompany     string
	NotifyCustomer      bool
}

// ShopifyAPI define el puerto de salida hacia la Admin API de una tienda.
// Los adaptadores reintentan errores transitorios; lo que llega al caller ya es definitivo.
type ShopifyAPI interface {
	CreateProduct(ctx context.Context, in ShopifyProductInput) (*ShopifyVariantRef, error)
	CreateVariant(ctx context.Context, productID string, in ShopifyVariantInput) (*ShopifyVariantRef, error)
	SetInventoryLevel(ctx context.Context, inventoryItemID, locationID string, available int) error
	FulfillmentOrders(ctx context.Context, orderID string) ([]ShopifyFulfillmentOrder, error)
	CreateFulfillment(ctx context.Context, in ShopifyFulfillmentInput) (string, error)
	CreateFulfillmentEvent(ctx context.Context, orderID, fulfillmentID, status string) error
	SetColorSwatch(ctx context.Context, productID, color string) error
}

// ShopifyClientFactory construye el cliente de la tienda de una organización.
type ShopifyClientFactory func(settings *entity.ShopifySettings) ShopifyAPI
