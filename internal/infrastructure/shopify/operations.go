package shopify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/onlyperf/warehouse-api/internal/application/ports"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

var _ ports.ShopifyAPI = (*Client)(nil)

// ClientFactory devuelve una ports.ShopifyClientFactory con los parámetros comunes de reintento.
func ClientFactory(base Config) ports.ShopifyClientFactory {
	return func(s *entity.ShopifySettings) ports.ShopifyAPI {
		cfg := base
		cfg.Domain = s.ShopDomain
		cfg.AccessToken = s.AccessToken
		cfg.LocationID = s.LocationID
		if s.APIVersion != "" {
			cfg.APIVersion = s.APIVersion
		}
		return NewClient(cfg)
	}
}

// Handle genera el handle de Shopify: minúsculas, sin tildes, separado por guiones.
func Handle(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func userErrorsToAPI(errs []userError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		if len(e.Field) > 0 {
			msgs[i] = strings.Join(e.Field, ".") + ": " + e.Message
		} else {
			msgs[i] = e.Message
		}
	}
	return &APIError{Status: http.StatusUnprocessableEntity, Body: strings.Join(msgs, "; ")}
}

type variantNode struct {
	ID            string `json:"id"`
	InventoryItem struct {
		ID string `json:"id"`
	} `json:"inventoryItem"`
}

const mutationProductCreate = `mutation productCreate($input: ProductInput!) {
  productCreate(input: $input) {
    product { id variants(first: 1) { nodes { id inventoryItem { id } } } }
    userErrors { field message }
  }
}`

const mutationVariantsBulkUpdate = `mutation productVariantsBulkUpdate($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
  productVariantsBulkUpdate(productId: $productId, variants: $variants) {
    productVariants { id }
    userErrors { field message }
  }
}`

// CreateProduct crea el producto y fija SKU, precio y seguimiento de inventario de su variante por defecto.
func (c *Client) CreateProduct(ctx context.Context, in ports.ShopifyProductInput) (*ports.ShopifyVariantRef, error) {
	handle := in.Handle
	if handle == "" {
		handle = Handle(in.Title)
	}
	var out struct {
		ProductCreate struct {
			Product *struct {
				ID       string `json:"id"`
				Variants struct {
					Nodes []variantNode `json:"nodes"`
				} `json:"variants"`
			} `json:"product"`
			UserErrors []userError `json:"userErrors"`
		} `json:"productCreate"`
	}
	vars := map[string]any{"input": map[string]any{
		"title":       in.Title,
		"handle":      handle,
		"vendor":      in.Vendor,
		"productType": in.ProductType,
		"status":      "ACTIVE",
	}}
	if err := c.GraphQL(ctx, mutationProductCreate, vars, &out); err != nil {
		return nil, fmt.Errorf("shopify: productCreate: %w", err)
	}
	if err := userErrorsToAPI(out.ProductCreate.UserErrors); err != nil {
		return nil, fmt.Errorf("shopify: productCreate: %w", err)
	}
	p := out.ProductCreate.Product
	if p == nil || len(p.Variants.Nodes) == 0 {
		return nil, fmt.Errorf("shopify: productCreate: respuesta sin producto o variante")
	}
	v := p.Variants.Nodes[0]
	ref := &ports.ShopifyVariantRef{ProductID: p.ID, VariantID: v.ID, InventoryItemID: v.InventoryItem.ID}

	var upd struct {
		ProductVariantsBulkUpdate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"productVariantsBulkUpdate"`
	}
	vars = map[string]any{
		"productId": p.ID,
		"variants": []map[string]any{{
			"id":    v.ID,
			"price": in.Price.StringFixed(2),
			"inventoryItem": map[string]any{
				"sku":     in.SKU,
				"tracked": true,
			},
		}},
	}
	if err := c.GraphQL(ctx, mutationVariantsBulkUpdate, vars, &upd); err != nil {
		return ref, fmt.Errorf("shopify: productVariantsBulkUpdate: %w", err)
	}
	if err := userErrorsToAPI(upd.ProductVariantsBulkUpdate.UserErrors); err != nil {
		return ref, fmt.Errorf("shopify: productVariantsBulkUpdate: %w", err)
	}
	return ref, nil
}

const mutationVariantsBulkCreate = `mutation productVariantsBulkCreate($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
  productVariantsBulkCreate(productId: $productId, variants: $variants) {
    productVariants { id inventoryItem { id } }
    userErrors { field message }
  }
}`

// CreateVariant agrega una variante (p. ej. "Pack x3") a un producto existente.
func (c *Client) CreateVariant(ctx context.Context, productID string, in ports.ShopifyVariantInput) (*ports.ShopifyVariantRef, error) {
	var out struct {
		ProductVariantsBulkCreate struct {
			ProductVariants []variantNode `json:"productVariants"`
			UserErrors      []userError   `json:"userErrors"`
		} `json:"productVariantsBulkCreate"`
	}
	optionName := in.OptionName
	if optionName == "" {
		optionName = "Presentación"
	}
	pid := GID("Product", productID)
	vars := map[string]any{
		"productId": pid,
		"variants": []map[string]any{{
			"price":         in.Price.StringFixed(2),
			"optionValues":  []map[string]any{{"optionName": optionName, "name": in.OptionValue}},
			"inventoryItem": map[string]any{"sku": in.SKU, "tracked": true},
		}},
	}
	if err := c.GraphQL(ctx, mutationVariantsBulkCreate, vars, &out); err != nil {
		return nil, fmt.Errorf("shopify: productVariantsBulkCreate: %w", err)
	}
	if err := userErrorsToAPI(out.ProductVariantsBulkCreate.UserErrors); err != nil {
		return nil, fmt.Errorf("shopify: productVariantsBulkCreate: %w", err)
	}
	if len(out.ProductVariantsBulkCreate.ProductVariants) == 0 {
		return nil, fmt.Errorf("shopify: productVariantsBulkCreate: respuesta sin variante")
	}
	v := out.ProductVariantsBulkCreate.ProductVariants[0]
	return &ports.ShopifyVariantRef{ProductID: pid, VariantID: v.ID, InventoryItemID: v.InventoryItem.ID}, nil
}

const mutationInventorySet = `mutation inventorySetQuantities($input: InventorySetQuantitiesInput!) {
  inventorySetQuantities(input: $input) {
    inventoryAdjustmentGroup { reason }
    userErrors { field message }
  }
}`

// SetInventoryLevel fija la cantidad disponible absoluta en la ubicación.
func (c *Client) SetInventoryLevel(ctx context.Context, inventoryItemID, locationID string, available int) error {
	if locationID == "" {
		locationID = c.cfg.LocationID
	}
	var out struct {
		InventorySetQuantities struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"inventorySetQuantities"`
	}
	vars := map[string]any{"input": map[string]any{
		"name":                  "available",
		"reason":                "correction",
		"ignoreCompareQuantity": true,
		"quantities": []map[string]any{{
			"inventoryItemId": GID("InventoryItem", inventoryItemID),
			"locationId":      GID("Location", locationID),
			"quantity":        available,
		}},
	}}
	if err := c.GraphQL(ctx, mutationInventorySet, vars, &out); err != nil {
		return fmt.Errorf("shopify: inventorySetQuantities: %w", err)
	}
	if err := userErrorsToAPI(out.InventorySetQuantities.UserErrors); err != nil {
		return fmt.Errorf("shopify: inventorySetQuantities: %w", err)
	}
	return nil
}

// FulfillmentOrders órdenes de preparación de un pedido (REST).
func (c *Client) FulfillmentOrders(ctx context.Context, orderID string) ([]ports.ShopifyFulfillmentOrder, error) {
	var out struct {
		FulfillmentOrders []struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"fulfillment_orders"`
	}
	path := fmt.Sprintf("orders/%s/fulfillment_orders.json", LegacyID(orderID))
	if err := c.REST(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("shopify: fulfillment_orders: %w", err)
	}
	list := make([]ports.ShopifyFulfillmentOrder, 0, len(out.FulfillmentOrders))
	for _, fo := range out.FulfillmentOrders {
		list = append(list, ports.ShopifyFulfillmentOrder{ID: fmt.Sprintf("%d", fo.ID), Status: fo.Status})
	}
	return list, nil
}

// CreateFulfillment crea el despacho para las órdenes de preparación dadas y devuelve su id.
func (c *Client) CreateFulfillment(ctx context.Context, in ports.ShopifyFulfillmentInput) (string, error) {
	lines := make([]map[string]any, 0, len(in.FulfillmentOrderIDs))
	for _, id := range in.FulfillmentOrderIDs {
		lines = append(lines, map[string]any{"fulfillment_order_id": LegacyID(id)})
	}
	fulfillment := map[string]any{
		"line_items_by_fulfillment_order": lines,
		"notify_customer":                 in.NotifyCustomer,
	}
	if in.TrackingNumber != "" {
		fulfillment["tracking_info"] = map[string]any{
			"number":  in.TrackingNumber,
			"company": in.TrackingCompany,
		}
	}
	var out struct {
		Fulfillment struct {
			ID int64 `json:"id"`
		} `json:"fulfillment"`
	}
	if err := c.REST(ctx, http.MethodPost, "fulfillments.json", map[string]any{"fulfillment": fulfillment}, &out); err != nil {
		return "", fmt.Errorf("shopify: fulfillments: %w", err)
	}
	return fmt.Sprintf("%d", out.Fulfillment.ID), nil
}

// CreateFulfillmentEvent registra un evento de seguimiento (in_transit, delivered, failure...).
func (c *Client) CreateFulfillmentEvent(ctx context.Context, orderID, fulfillmentID, status string) error {
	path := fmt.Sprintf("orders/%s/fulfillments/%s/events.json", LegacyID(orderID), LegacyID(fulfillmentID))
	body := map[string]any{"event": map[string]any{"status": strings.ToLower(status)}}
	if err := c.REST(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("shopify: fulfillment event: %w", err)
	}
	return nil
}

const mutationMetafieldsSet = `mutation metafieldsSet($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields { id }
    userErrors { field message }
  }
}`

// SetColorSwatch guarda el color del producto en el metafield custom.color.
func (c *Client) SetColorSwatch(ctx context.Context, productID, color string) error {
	var out struct {
		MetafieldsSet struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"metafieldsSet"`
	}
	vars := map[string]any{"metafields": []map[string]any{{
		"ownerId":   GID("Product", productID),
		"namespace": "custom",
		"key":       "color",
		"type":      "single_line_text_field",
		"value":     color,
	}}}
	if err := c.GraphQL(ctx, mutationMetafieldsSet, vars, &out); err != nil {
		return fmt.Errorf("shopify: metafieldsSet: %w", err)
	}
	return userErrorsToAPI(out.MetafieldsSet.UserErrors)
}
