package entity

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Product entrada del catálogo (paletas, pelotas, accesorios).
// Un producto pack apunta a su producto base (BaseProductID) con PackSize como discriminante;
// el catálogo forma un árbol de un nivel: base -> packs.
type Product struct {
	ID             string
	OrganizationID string
	SKU            string
	Brand          string
	Model          string
	Name           string
	ProductType    string
	Color          string
	Price          decimal.Decimal
	Packable       bool // admite configuración pack_size/total_units en los envíos
	BaseProductID  *string
	PackSize       *int
	WarrantyMonths int
	Attributes     json.RawMessage
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsPack indica si el producto es un pack de otro producto.
func (p *Product) IsPack() bool {
	return p.BaseProductID != nil && p.PackSize != nil
}

// PackKey clave natural de un producto pack (índice único condicional).
type PackKey struct {
	BaseProductID string
	PackSize      int
}

// NewPackProduct construye el producto pack derivado de base, sin persistir.
func NewPackProduct(id string, base *Product, packSize int, now time.Time) *Product {
	baseID := base.ID
	size := packSize
	return &Product{
		ID:             id,
		OrganizationID: base.OrganizationID,
		SKU:            PackSKU(base.SKU, packSize),
		Brand:          base.Brand,
		Model:          base.Model,
		Name:           PackName(base.Name, packSize),
		ProductType:    base.ProductType,
		Color:          base.Color,
		Price:          base.Price.Mul(decimal.NewFromInt(int64(packSize))),
		BaseProductID:  &baseID,
		PackSize:       &size,
		WarrantyMonths: base.WarrantyMonths,
		Attributes:     base.Attributes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// PackSKU SKU de un pack: <sku base>-P<n>.
func PackSKU(baseSKU string, packSize int) string {
	return baseSKU + "-P" + strconv.Itoa(packSize)
}

// PackName nombre de un pack: "<nombre base> (Pack x<n>)".
func PackName(baseName string, packSize int) string {
	return baseName + " (Pack x" + strconv.Itoa(packSize) + ")"
}
