// Package shopifysync refleja en Shopify el inventario, el catálogo de packs y los despachos de la bodega.
package shopifysync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onlyperf/warehouse-api/internal/application/ports"
	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

// SyncResult resultado por producto. Status error nunca se propaga como error Go.
type SyncResult struct {
	ProductID string            `json:"product_id"`
	Status    entity.SyncStatus `json:"status"`
	Available int               `json:"available"`
	Message   string            `json:"message,omitempty"`
}

// Service operaciones de sincronización. Seguro para uso concurrente.
type Service struct {
	repos      repository.Repos
	newClient  ports.ShopifyClientFactory
	batchDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	log        zerolog.Logger
}

// ServiceOption ajustes opcionales.
type ServiceOption func(*Service)

// WithBatchDelay pausa entre productos en SyncInventoryBatch.
func WithBatchDelay(d time.Duration) ServiceOption {
	return func(s *Service) { s.batchDelay = d }
}

// WithSleep reemplaza la espera entre productos (pruebas).
func WithSleep(fn func(ctx context.Context, d time.Duration) error) ServiceOption {
	return func(s *Service) { s.sleep = fn }
}

// NewService construye el servicio sobre repositorios fuera de transacción.
func NewService(repos repository.Repos, factory ports.ShopifyClientFactory, log zerolog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		repos:      repos,
		newClient:  factory,
		batchDelay: 250 * time.Millisecond,
		sleep:      sleepCtx,
		now:        time.Now,
		log:        log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Settings configuración de la tienda; ErrShopifyNotConfigured si está deshabilitada o incompleta.
func (s *Service) Settings(ctx context.Context, orgID string) (*entity.ShopifySettings, error) {
	st, err := s.repos.Shopify.GetSettings(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("get shopify settings: %w", err)
	}
	if !st.Configured() {
		return nil, domain.ErrShopifyNotConfigured
	}
	return st, nil
}

// CalculateAvailableQuantity unidades received del producto; allocated no cuenta como disponible.
func (s *Service) CalculateAvailableQuantity(ctx context.Context, productID string) (int, error) {
	n, err := s.repos.Units.CountByStatus(ctx, productID, entity.UnitReceived)
	if err != nil {
		return 0, fmt.Errorf("count available units: %w", err)
	}
	return n, nil
}

// ProductAvailability cantidad disponible que se publica en la tienda.
type ProductAvailability struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Available int    `json:"available"`
}

// Availability igual que CalculateAvailableQuantity pero validando que el producto sea de la organización.
func (s *Service) Availability(ctx context.Context, orgID, productID string) (*ProductAvailability, error) {
	p, err := s.repos.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil || p.OrganizationID != orgID {
		return nil, fmt.Errorf("producto %s: %w", productID, domain.ErrNotFound)
	}
	n, err := s.CalculateAvailableQuantity(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &ProductAvailability{ProductID: p.ID, SKU: p.SKU, Available: n}, nil
}

// SyncInventoryForProduct fija en Shopify la cantidad disponible del producto.
func (s *Service) SyncInventoryForProduct(ctx context.Context, orgID, productID string) SyncResult {
	res := SyncResult{ProductID: productID}
	settings, err := s.Settings(ctx, orgID)
	if errors.Is(err, domain.ErrShopifyNotConfigured) {
		res.Status, res.Message = entity.SyncSkipped, "shopify no configurado"
		return res
	}
	if err != nil {
		return s.fail(res, err)
	}
	mapping, err := s.repos.Shopify.GetMapping(ctx, productID)
	if err != nil {
		return s.fail(res, err)
	}
	if mapping == nil || mapping.OrganizationID != orgID {
		return s.missing(ctx, res, nil, "el producto no tiene mapeo en Shopify")
	}
	if mapping.ShopifyInventoryItemID == "" {
		return s.missing(ctx, res, mapping, "el mapeo no tiene inventory item de Shopify")
	}
	if settings.LocationID == "" {
		return s.missing(ctx, res, mapping, "la configuración de Shopify no tiene ubicación (location id)")
	}
	available, err := s.CalculateAvailableQuantity(ctx, productID)
	if err != nil {
		return s.fail(res, err)
	}
	res.Available = available

	client := s.newClient(settings)
	syncErr := client.SetInventoryLevel(ctx, mapping.ShopifyInventoryItemID, settings.LocationID, available)
	s.record(ctx, mapping, syncErr)
	if syncErr != nil {
		s.log.Error().Err(syncErr).Str("org_id", orgID).Str("product_id", productID).Msg("error sincronizando inventario")
		res.Status, res.Message = entity.SyncError, syncErr.Error()
		return res
	}
	res.Status = entity.SyncSynced
	return res
}

// missing deja el error en la bitácora del mapeo, si existe, y lo devuelve como resultado.
func (s *Service) missing(ctx context.Context, res SyncResult, m *entity.ShopifyProductMapping, msg string) SyncResult {
	s.log.Warn().Str("product_id", res.ProductID).Msg("no se puede sincronizar inventario: " + msg)
	if m != nil {
		s.record(ctx, m, errors.New(msg))
	}
	res.Status, res.Message = entity.SyncError, msg
	return res
}

func (s *Service) fail(res SyncResult, err error) SyncResult {
	s.log.Error().Err(err).Str("product_id", res.ProductID).Msg("error preparando sincronización")
	res.Status, res.Message = entity.SyncError, err.Error()
	return res
}

// record actualiza la bitácora del mapeo; su fallo sólo se registra.
func (s *Service) record(ctx context.Context, m *entity.ShopifyProductMapping, syncErr error) {
	now := s.now()
	m.LastSyncedAt = &now
	m.LastSyncStatus = entity.SyncSynced
	m.LastSyncError = ""
	if syncErr != nil {
		m.LastSyncStatus = entity.SyncError
		m.LastSyncError = syncErr.Error()
	}
	if err := s.repos.Shopify.RecordSync(ctx, m); err != nil {
		s.log.Warn().Err(err).Str("product_id", m.ProductID).Msg("no se pudo registrar la sincronización")
	}
}

// SyncInventoryBatch sincroniza en serie con una pausa fija entre productos para no agotar el límite de la API.
func (s *Service) SyncInventoryBatch(ctx context.Context, orgID string, productIDs []string) []SyncResult {
	out := make([]SyncResult, 0, len(productIDs))
	for i, id := range productIDs {
		if i > 0 {
			if err := s.sleep(ctx, s.batchDelay); err != nil {
				for _, rest := range productIDs[i:] {
					out = append(out, SyncResult{ProductID: rest, Status: entity.SyncError, Message: err.Error()})
				}
				return out
			}
		}
		out = append(out, s.SyncInventoryForProduct(ctx, orgID, id))
	}
	return out
}

// SyncPackProduct publica el producto en Shopify: como variante del producto base si ya está mapeado,
// o como producto nuevo. Idempotente: un producto con mapeo completo se omite.
func (s *Service) SyncPackProduct(ctx context.Context, orgID, productID string) SyncResult {
	res := SyncResult{ProductID: productID}
	settings, err := s.Settings(ctx, orgID)
	if errors.Is(err, domain.ErrShopifyNotConfigured) {
		res.Status, res.Message = entity.SyncSkipped, "shopify no configurado"
		return res
	}
	if err != nil {
		return s.fail(res, err)
	}
	existing, err := s.repos.Shopify.GetMapping(ctx, productID)
	if err != nil {
		return s.fail(res, err)
	}
	if existing != nil && existing.ShopifyVariantID != "" {
		res.Status, res.Message = entity.SyncSkipped, "producto ya publicado"
		return res
	}
	product, err := s.repos.Products.GetByID(ctx, productID)
	if err != nil {
		return s.fail(res, err)
	}
	if product == nil || product.OrganizationID != orgID {
		return s.fail(res, fmt.Errorf("producto %s: %w", productID, domain.ErrNotFound))
	}

	client := s.newClient(settings)
	var baseMapping *entity.ShopifyProductMapping
	if product.IsPack() {
		baseMapping, err = s.repos.Shopify.GetMapping(ctx, *product.BaseProductID)
		if err != nil {
			return s.fail(res, err)
		}
	}

	var ref *ports.ShopifyVariantRef
	newProduct := false
	if baseMapping != nil && baseMapping.ShopifyProductID != "" {
		ref, err = client.CreateVariant(ctx, baseMapping.ShopifyProductID, ports.ShopifyVariantInput{
			OptionValue: "Pack x" + strconv.Itoa(*product.PackSize),
			SKU:         product.SKU,
			Price:       product.Price,
		})
	} else {
		newProduct = true
		ref, err = client.CreateProduct(ctx, ports.ShopifyProductInput{
			Title:       product.Name,
			Vendor:      product.Brand,
			ProductType: product.ProductType,
			SKU:         product.SKU,
			Price:       product.Price,
		})
	}
	if err != nil && ref == nil {
		s.log.Error().Err(err).Str("org_id", orgID).Str("product_id", productID).Msg("error publicando producto en shopify")
		res.Status, res.Message = entity.SyncError, err.Error()
		return res
	}

	now := s.now()
	mapping := &entity.ShopifyProductMapping{
		ID:                     uuid.New().String(),
		OrganizationID:         orgID,
		ProductID:              productID,
		ShopifyProductID:       ref.ProductID,
		ShopifyVariantID:       ref.VariantID,
		ShopifyInventoryItemID: ref.InventoryItemID,
		LastSyncedAt:           &now,
		LastSyncStatus:         entity.SyncSynced,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err != nil {
		// el producto existe en Shopify pero la variante quedó sin SKU/precio
		mapping.LastSyncStatus, mapping.LastSyncError = entity.SyncError, err.Error()
	}
	if saveErr := s.repos.Shopify.SaveMapping(ctx, mapping); saveErr != nil {
		return s.fail(res, fmt.Errorf("save shopify mapping: %w", saveErr))
	}
	if err != nil {
		res.Status, res.Message = entity.SyncError, err.Error()
		return res
	}

	if newProduct && product.Color != "" {
		if err := client.SetColorSwatch(ctx, ref.ProductID, product.Color); err != nil {
			s.log.Warn().Err(err).Str("product_id", productID).Msg("no se pudo fijar el color en shopify")
		}
	}
	return s.SyncInventoryForProduct(ctx, orgID, productID)
}

// SyncFulfillment crea el despacho en Shopify (shipped) o registra la entrega (delivered).
// Pedidos sin origen Shopify se omiten.
func (s *Service) SyncFulfillment(ctx context.Context, orgID, orderID string, stage ports.FulfillmentStage) (entity.SyncStatus, error) {
	settings, err := s.Settings(ctx, orgID)
	if errors.Is(err, domain.ErrShopifyNotConfigured) {
		return entity.SyncSkipped, nil
	}
	if err != nil {
		return entity.SyncError, err
	}
	order, err := s.repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		return entity.SyncError, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.OrganizationID != orgID {
		return entity.SyncError, fmt.Errorf("pedido %s: %w", orderID, domain.ErrNotFound)
	}
	if order.ShopifyOrderID == "" {
		return entity.SyncSkipped, nil
	}
	client := s.newClient(settings)

	switch stage {
	case ports.FulfillmentShipped:
		if order.ShopifyFulfillmentID != "" {
			return entity.SyncSkipped, nil
		}
		fos, err := client.FulfillmentOrders(ctx, order.ShopifyOrderID)
		if err != nil {
			return entity.SyncError, err
		}
		var open []string
		for _, fo := range fos {
			if fo.Status == "open" || fo.Status == "in_progress" {
				open = append(open, fo.ID)
			}
		}
		if len(open) == 0 {
			s.log.Info().Str("order_id", orderID).Msg("pedido sin órdenes de preparación abiertas en shopify")
			return entity.SyncSkipped, nil
		}
		in := ports.ShopifyFulfillmentInput{FulfillmentOrderIDs: open, NotifyCustomer: true}
		if d, err := s.repos.Deliveries.GetByOrderID(ctx, orderID); err == nil && d != nil {
			in.TrackingNumber, in.TrackingCompany = d.TrackingNumber, d.Carrier
		}
		fid, err := client.CreateFulfillment(ctx, in)
		if err != nil {
			return entity.SyncError, err
		}
		if err := s.repos.Orders.SetShopifyFulfillmentID(ctx, orderID, fid); err != nil {
			return entity.SyncError, fmt.Errorf("set fulfillment id: %w", err)
		}
		return entity.SyncSynced, nil

	case ports.FulfillmentDelivered:
		if order.ShopifyFulfillmentID == "" {
			return entity.SyncError, fmt.Errorf("pedido %s sin fulfillment en shopify: %w", orderID, domain.ErrConflict)
		}
		if err := client.CreateFulfillmentEvent(ctx, order.ShopifyOrderID, order.ShopifyFulfillmentID, "delivered"); err != nil {
			return entity.SyncError, err
		}
		return entity.SyncSynced, nil
	}
	return entity.SyncError, fmt.Errorf("etapa de despacho %q: %w", stage, domain.ErrInvalidInput)
}
