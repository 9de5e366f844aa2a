package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto del catálogo.
type CreateProductRequest struct {
	SKU            string          `json:"sku" validate:"required,min=1,max=100"`
	Name           string          `json:"name" validate:"required,min=1,max=200"`
	Brand          string          `json:"brand"`
	Model          string          `json:"model"`
	ProductType    string          `json:"product_type"`
	Color          string          `json:"color"`
	Price          decimal.Decimal `json:"price"`
	Packable       bool            `json:"packable"`
	WarrantyMonths int             `json:"warranty_months"`
	Attributes     json.RawMessage `json:"attributes" swaggertype:"object"`
}

// UpdateProductRequest entrada para actualizar un producto (SKU y relación de pack son fijos).
type UpdateProductRequest struct {
	Name           *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Brand          *string          `json:"brand"`
	Model          *string          `json:"model"`
	ProductType    *string          `json:"product_type"`
	Color          *string          `json:"color"`
	Price          *decimal.Decimal `json:"price"`
	Packable       *bool            `json:"packable"`
	WarrantyMonths *int             `json:"warranty_months"`
	Attributes     json.RawMessage  `json:"attributes" swaggertype:"object"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Brand          string          `json:"brand"`
	Model          string          `json:"model"`
	ProductType    string          `json:"product_type"`
	Color          string          `json:"color"`
	Price          decimal.Decimal `json:"price"`
	Packable       bool            `json:"packable"`
	BaseProductID  *string         `json:"base_product_id,omitempty"`
	PackSize       *int            `json:"pack_size,omitempty"`
	WarrantyMonths int             `json:"warranty_months"`
	Attributes     json.RawMessage `json:"attributes,omitempty" swaggertype:"object"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PageResponse parámetros de paginación devueltos.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
