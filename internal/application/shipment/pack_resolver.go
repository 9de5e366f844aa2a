package shipment

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

// PackResolver obtiene o crea el producto pack de (base, pack_size) sin duplicados bajo concurrencia:
// primero intenta insertar (ON CONFLICT DO NOTHING) y si otro llamador ganó, lee la fila existente.
// Dentro de una transacción el insert espera al índice único hasta que la otra confirme o revierta.
type PackResolver struct {
	products repository.ProductRepository
	now      func() time.Time
}

// NewPackResolver construye el resolver; products puede estar ligado a una transacción.
func NewPackResolver(products repository.ProductRepository) *PackResolver {
	return &PackResolver{products: products, now: time.Now}
}

// ResolvedPack producto pack y si esta llamada lo creó.
type ResolvedPack struct {
	Product *entity.Product
	Created bool
}

// Resolve devuelve el producto pack de base con packSize.
func (r *PackResolver) Resolve(ctx context.Context, base *entity.Product, packSize int) (*ResolvedPack, error) {
	if base.IsPack() {
		return nil, domain.Invalid("pack_size", "el producto %s ya es un pack", base.Name)
	}
	candidate := entity.NewPackProduct(uuid.New().String(), base, packSize, r.now())
	created, err := r.products.InsertPackProduct(ctx, candidate)
	if err != nil && !errors.Is(err, domain.ErrDuplicate) {
		return nil, fmt.Errorf("insert pack product: %w", err)
	}
	if created {
		return &ResolvedPack{Product: candidate, Created: true}, nil
	}
	existing, err := r.products.GetPackProduct(ctx, entity.PackKey{BaseProductID: base.ID, PackSize: packSize})
	if err != nil {
		return nil, fmt.Errorf("get pack product: %w", err)
	}
	if existing == nil {
		// conflicto por SKU con un producto que no es este pack
		return nil, fmt.Errorf("pack %s: %w", entity.PackSKU(base.SKU, packSize), domain.ErrConflict)
	}
	return &ResolvedPack{Product: existing}, nil
}

// ResolveAll resuelve en serie todos los pares distintos, ordenados por base y tamaño para que
// dos envíos concurrentes tomen los índices en el mismo orden. El resultado se indexa por PackKey.
func (r *PackResolver) ResolveAll(ctx context.Context, bases map[entity.PackKey]*entity.Product) (map[entity.PackKey]*ResolvedPack, error) {
	keys := make([]entity.PackKey, 0, len(bases))
	for k := range bases {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b entity.PackKey) int {
		return cmp.Or(cmp.Compare(a.BaseProductID, b.BaseProductID), cmp.Compare(a.PackSize, b.PackSize))
	})
	out := make(map[entity.PackKey]*ResolvedPack, len(keys))
	for _, k := range keys {
		p, err := r.Resolve(ctx, bases[k], k.PackSize)
		if err != nil {
			return nil, err
		}
		out[k] = p
	}
	return out, nil
}
