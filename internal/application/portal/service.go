// Package portal lado del portal de clientes: registro de unidades vendidas y verificación de autenticidad.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/qrcode"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

// Service webhook de sincronización y verificación pública de códigos.
type Service struct {
	repos repository.Repos
	now   func() time.Time
	log   zerolog.Logger
}

// NewService construye el servicio del portal.
func NewService(repos repository.Repos, log zerolog.Logger) *Service {
	return &Service{repos: repos, now: time.Now, log: log}
}

// HandleWebhook aplica un evento de la bodega sobre el registro de unidades de clientes.
func (s *Service) HandleWebhook(ctx context.Context, ev dto.WarehouseSyncEvent) (*dto.WarehouseSyncResponse, error) {
	data := ev.Data
	data.QRCode = qrcode.Normalize(data.QRCode)
	if data.QRCode == "" {
		return nil, domain.Invalid("data.qrCode", "el código QR es obligatorio")
	}

	var (
		cp  *entity.CustomerProduct
		err error
	)
	switch ev.Event {
	case dto.EventProductSold:
		cp, err = s.register(ctx, data)
	case dto.EventProductReturned:
		cp, err = s.markReturned(ctx, data.QRCode)
	case dto.EventProductReplaced:
		cp, err = s.replace(ctx, data)
	default:
		return nil, domain.Invalid("event", "evento desconocido: %q", ev.Event)
	}
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("event", ev.Event).Str("qr_code", data.QRCode).Msg("evento de bodega aplicado")
	return &dto.WarehouseSyncResponse{Success: true, ProductUnitID: cp.ID}, nil
}

// register inserta o reemplaza la unidad a nombre del cliente; la garantía corre desde la fecha de compra.
func (s *Service) register(ctx context.Context, data dto.WarehouseSyncData) (*entity.CustomerProduct, error) {
	now := s.now()
	purchase := now
	if data.PurchaseDate != nil && !data.PurchaseDate.IsZero() {
		purchase = *data.PurchaseDate
	}
	details, err := json.Marshal(data.ProductDetails)
	if err != nil {
		return nil, fmt.Errorf("encode product details: %w", err)
	}
	cp, err := s.repos.Portal.GetCustomerProduct(ctx, data.QRCode)
	if err != nil {
		return nil, fmt.Errorf("get customer product: %w", err)
	}
	if cp == nil {
		cp = &entity.CustomerProduct{ID: uuid.New().String(), QRCode: data.QRCode, CreatedAt: now}
	}
	start := purchase
	cp.CustomerID = data.CustomerID
	cp.ShopifyOrderID = data.ShopifyOrderID
	cp.ProductDetails = details
	cp.PurchaseDate = purchase
	cp.WarrantyMonths = data.WarrantyMonths
	cp.WarrantyStartAt = &start
	cp.WarrantyStatus, _ = entity.WarrantyAt(entity.WarrantyActive, &start, data.WarrantyMonths, now)
	cp.Returned = false
	cp.ReplacedBy = ""
	cp.UpdatedAt = now
	if err := s.repos.Portal.UpsertCustomerProduct(ctx, cp); err != nil {
		return nil, fmt.Errorf("upsert customer product: %w", err)
	}
	return cp, nil
}

func (s *Service) markReturned(ctx context.Context, code string) (*entity.CustomerProduct, error) {
	cp, err := s.repos.Portal.GetCustomerProduct(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get customer product: %w", err)
	}
	if cp == nil {
		return nil, fmt.Errorf("unidad %s: %w", code, domain.ErrNotFound)
	}
	cp.Returned = true
	cp.WarrantyStatus = entity.WarrantyVoid
	cp.UpdatedAt = s.now()
	if err := s.repos.Portal.UpsertCustomerProduct(ctx, cp); err != nil {
		return nil, fmt.Errorf("upsert customer product: %w", err)
	}
	return cp, nil
}

// replace anula la unidad anterior y registra la nueva a nombre del mismo cliente.
func (s *Service) replace(ctx context.Context, data dto.WarehouseSyncData) (*entity.CustomerProduct, error) {
	oldCode := qrcode.Normalize(data.ReplacesQRCode)
	if oldCode == "" {
		return nil, domain.Invalid("data.replacesQrCode", "se requiere el código reemplazado")
	}
	old, err := s.repos.Portal.GetCustomerProduct(ctx, oldCode)
	if err != nil {
		return nil, fmt.Errorf("get customer product: %w", err)
	}
	if old == nil {
		return nil, fmt.Errorf("unidad %s: %w", oldCode, domain.ErrNotFound)
	}
	old.WarrantyStatus = entity.WarrantyVoid
	old.ReplacedBy = data.QRCode
	old.UpdatedAt = s.now()
	if err := s.repos.Portal.UpsertCustomerProduct(ctx, old); err != nil {
		return nil, fmt.Errorf("upsert customer product: %w", err)
	}
	if data.CustomerID == "" {
		data.CustomerID = old.CustomerID
	}
	if data.ShopifyOrderID == "" {
		data.ShopifyOrderID = old.ShopifyOrderID
	}
	return s.register(ctx, data)
}

// VerifyInput datos de la verificación; CustomerID vacío si no hay sesión de portal.
type VerifyInput struct {
	QRCode     string
	CustomerID string
	IPAddress  string
	UserAgent  string
}

// Verify responde si el código es auténtico y el estado de su garantía.
// Cada verificación queda registrada, se encuentre o no el código.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (*dto.VerifyResponse, error) {
	code := qrcode.Normalize(in.QRCode)
	now := s.now()

	var (
		unit *entity.Unit
		cp   *entity.CustomerProduct
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if unit, err = s.repos.Units.GetByCode(gctx, code); err != nil {
			return fmt.Errorf("get unit: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if cp, err = s.repos.Portal.GetCustomerProduct(gctx, code); err != nil {
			return fmt.Errorf("get customer product: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	found := unit != nil || cp != nil

	scan := &entity.CustomerScan{
		ID:         uuid.New().String(),
		QRCode:     code,
		CustomerID: in.CustomerID,
		Found:      found,
		IPAddress:  in.IPAddress,
		UserAgent:  truncate(in.UserAgent, 255),
		ScannedAt:  now,
	}
	if err := s.repos.Portal.RecordScan(ctx, scan); err != nil {
		s.log.Error().Err(err).Str("qr_code", code).Msg("no se pudo registrar la verificación")
	}
	if !found {
		return nil, fmt.Errorf("código %s: %w", code, domain.ErrNotFound)
	}

	resp := &dto.VerifyResponse{Authentic: true, QRCode: code}
	if unit != nil {
		resp.Authentic = unit.IsAuthentic
		resp.WarrantyMonths = unit.WarrantyMonths
		st, _ := entity.WarrantyAt(unit.WarrantyStatus, unit.WarrantyStartAt, unit.WarrantyMonths, now)
		resp.WarrantyStatus = string(st)
		resp.Returned = unit.Status == entity.UnitReturned
		p, err := s.repos.Products.GetByID(ctx, unit.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if p != nil {
			raw, err := json.Marshal(dto.NewPortalProductDetails(p))
			if err != nil {
				return nil, fmt.Errorf("encode product: %w", err)
			}
			resp.Product = raw
		}
	}
	if cp != nil {
		st, ends := entity.WarrantyAt(cp.WarrantyStatus, cp.WarrantyStartAt, cp.WarrantyMonths, now)
		resp.WarrantyStatus = string(st)
		resp.WarrantyMonths = cp.WarrantyMonths
		resp.Returned = resp.Returned || cp.Returned
		resp.ReplacedBy = cp.ReplacedBy
		if resp.Product == nil && len(cp.ProductDetails) > 0 {
			resp.Product = cp.ProductDetails
		}
		if in.CustomerID != "" && cp.CustomerID == in.CustomerID {
			resp.Ownership = &dto.VerifyOwnership{
				CustomerID:     cp.CustomerID,
				ShopifyOrderID: cp.ShopifyOrderID,
				PurchaseDate:   cp.PurchaseDate,
				WarrantyEndsAt: ends,
			}
		}
	}
	if resp.WarrantyStatus == "" {
		resp.WarrantyStatus = string(entity.WarrantyNone)
	}
	return resp, nil
}

// truncate corta a n bytes como máximo sin partir una runa; los bytes inválidos se descartan.
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(strings.TrimSpace(s), "")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
