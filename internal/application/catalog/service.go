// Package catalog administra los productos base del catálogo de la bodega.
// Los productos pack no se crean aquí: los deriva el registro de envíos.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service casos de uso CRUD para productos.
type Service struct {
	products repository.ProductRepository
	now      func() time.Time
	log      zerolog.Logger
}

// NewService construye el servicio.
func NewService(products repository.ProductRepository, log zerolog.Logger) *Service {
	return &Service{products: products, now: time.Now, log: log}
}

// Create crea un producto base. El SKU es único por organización.
func (s *Service) Create(ctx context.Context, orgID string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if in.SKU == "" {
		return nil, domain.Invalid("sku", "es requerido")
	}
	if in.Name == "" {
		return nil, domain.Invalid("name", "es requerido")
	}
	if err := validateNumbers(in.Price.IsNegative(), in.WarrantyMonths); err != nil {
		return nil, err
	}
	now := s.now()
	p := &entity.Product{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		SKU:            in.SKU,
		Brand:          in.Brand,
		Model:          in.Model,
		Name:           in.Name,
		ProductType:    in.ProductType,
		Color:          in.Color,
		Price:          in.Price,
		Packable:       in.Packable,
		WarrantyMonths: in.WarrantyMonths,
		Attributes:     in.Attributes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.products.Create(ctx, p); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, fmt.Errorf("sku %s: %w", p.SKU, domain.ErrDuplicate)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.log.Info().Str("product_id", p.ID).Str("sku", p.SKU).Msg("producto creado")
	return toProductResponse(p), nil
}

// GetByID obtiene un producto de la organización.
func (s *Service) GetByID(ctx context.Context, orgID, id string) (*dto.ProductResponse, error) {
	p, err := s.load(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return toProductResponse(p), nil
}

// Update aplica los campos presentes. SKU y relación de pack no se modifican.
func (s *Service) Update(ctx context.Context, orgID, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	p, err := s.load(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.Invalid("name", "no puede quedar vacío")
		}
		p.Name = name
	}
	if in.Brand != nil {
		p.Brand = *in.Brand
	}
	if in.Model != nil {
		p.Model = *in.Model
	}
	if in.ProductType != nil {
		p.ProductType = *in.ProductType
	}
	if in.Color != nil {
		p.Color = *in.Color
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Packable != nil {
		p.Packable = *in.Packable
	}
	if in.WarrantyMonths != nil {
		p.WarrantyMonths = *in.WarrantyMonths
	}
	if len(in.Attributes) > 0 {
		p.Attributes = in.Attributes
	}
	if err := validateNumbers(p.Price.IsNegative(), p.WarrantyMonths); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()
	if err := s.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return toProductResponse(p), nil
}

// List lista productos de la organización. limit fuera de rango usa el valor por defecto o el máximo.
func (s *Service) List(ctx context.Context, orgID string, limit, offset int) (*dto.ProductListResponse, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.products.ListByOrganization(ctx, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func (s *Service) load(ctx context.Context, orgID, id string) (*entity.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p == nil || p.OrganizationID != orgID {
		return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

func validateNumbers(negativePrice bool, warrantyMonths int) error {
	if negativePrice {
		return domain.Invalid("price", "no puede ser negativo")
	}
	if warrantyMonths < 0 {
		return domain.Invalid("warranty_months", "no puede ser negativo")
	}
	return nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		SKU:            p.SKU,
		Name:           p.Name,
		Brand:          p.Brand,
		Model:          p.Model,
		ProductType:    p.ProductType,
		Color:          p.Color,
		Price:          p.Price,
		Packable:       p.Packable,
		BaseProductID:  p.BaseProductID,
		PackSize:       p.PackSize,
		WarrantyMonths: p.WarrantyMonths,
		Attributes:     p.Attributes,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
