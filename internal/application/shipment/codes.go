package shipment

import (
	"context"
	"fmt"
	"sync"

	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/qrcode"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

// defaultCheckRounds rondas de verificación contra la base antes de abortar.
const defaultCheckRounds = 5

// CodeAllocator genera lotes de códigos únicos en el lote y no persistidos todavía.
// El índice único de shipment_items.qr_code sigue siendo la última garantía.
type CodeAllocator struct {
	mu     sync.Mutex
	gen    *qrcode.Generator
	rounds int
}

// NewCodeAllocator envuelve gen; el generador no es seguro para uso concurrente, el allocator sí.
func NewCodeAllocator(gen *qrcode.Generator) *CodeAllocator {
	return &CodeAllocator{gen: gen, rounds: defaultCheckRounds}
}

// Allocate devuelve n códigos. units se usa para descartar los ya persistidos.
func (a *CodeAllocator) Allocate(ctx context.Context, units repository.UnitRepository, n int) ([]string, error) {
	a.mu.Lock()
	codes, err := a.gen.GenerateBatch(n, nil)
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}
	for round := 0; round < a.rounds; round++ {
		existing, err := units.ExistingCodes(ctx, codes)
		if err != nil {
			return nil, fmt.Errorf("check existing codes: %w", err)
		}
		if len(existing) == 0 {
			return codes, nil
		}
		a.mu.Lock()
		codes, err = a.gen.Replace(codes, existing)
		a.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: colisiones persistentes tras %d rondas", domain.ErrQRExhausted, a.rounds)
}
