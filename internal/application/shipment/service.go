// Package shipment casos de uso de ingreso de mercancía: creación atómica de envíos con sus unidades etiquetadas.
package shipment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/application/ports"
	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

// DefaultInsertBatchSize filas por viaje al insertar unidades.
const DefaultInsertBatchSize = 500

// Service casos de uso de envíos.
type Service struct {
	tx        repository.TxRunner
	repos     repository.Repos
	codes     *CodeAllocator
	sync      ports.SyncScheduler
	batchSize int
	now       func() time.Time
	log       zerolog.Logger
}

// NewService construye el caso de uso. repos opera fuera de transacción (lecturas y verificación de códigos).
func NewService(tx repository.TxRunner, repos repository.Repos, codes *CodeAllocator, sync ports.SyncScheduler, batchSize int, log zerolog.Logger) *Service {
	if batchSize <= 0 {
		batchSize = DefaultInsertBatchSize
	}
	if sync == nil {
		sync = ports.NopScheduler{}
	}
	return &Service{
		tx:        tx,
		repos:     repos,
		codes:     codes,
		sync:      sync,
		batchSize: batchSize,
		now:       time.Now,
		log:       log,
	}
}

// plannedLine línea ya validada: producto destino y cantidad de unidades a crear.
type plannedLine struct {
	product  *entity.Product
	base     *entity.Product
	packSize int
	units    int
}

// CreateShipment valida, resuelve packs, genera todas las unidades en memoria y las inserta
// en una sola transacción por bloques de batchSize.
func (s *Service) CreateShipment(ctx context.Context, orgID, userID string, in dto.CreateShipmentRequest) (*dto.ShipmentResponse, error) {
	if strings.TrimSpace(in.ProviderName) == "" {
		return nil, domain.Invalid("provider_name", "el proveedor es obligatorio")
	}
	if len(in.Items) == 0 {
		return nil, domain.Invalid("items", "el envío debe tener al menos una línea")
	}

	ids := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.repos.Products.GetByIDs(ctx, orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	lines, packBases, err := planLines(in.Items, products)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, l := range lines {
		total += l.units
	}
	codes, err := s.codes.Allocate(ctx, s.repos.Units, total)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sh := &entity.Shipment{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		ProviderName:   strings.TrimSpace(in.ProviderName),
		ReceiptNumber:  strings.TrimSpace(in.ReceiptNumber),
		Notes:          in.Notes,
		Status:         entity.ShipmentPending,
		TotalUnits:     total,
		CreatedBy:      userID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	var (
		units   []*entity.Unit
		packOut []dto.PackProductResponse
	)
	err = s.tx.Run(ctx, func(r repository.Repos) error {
		// los packs nuevos se confirman o revierten junto con el envío
		resolver := &PackResolver{products: r.Products, now: s.now}
		resolved, err := resolver.ResolveAll(ctx, packBases)
		if err != nil {
			return err
		}
		packOut = packOut[:0]
		for key, rp := range resolved {
			packOut = append(packOut, dto.PackProductResponse{
				ProductID:     rp.Product.ID,
				BaseProductID: key.BaseProductID,
				PackSize:      key.PackSize,
				SKU:           rp.Product.SKU,
				Name:          rp.Product.Name,
				Created:       rp.Created,
			})
		}
		for i := range lines {
			if lines[i].base != nil {
				lines[i].product = resolved[entity.PackKey{BaseProductID: lines[i].base.ID, PackSize: lines[i].packSize}].Product
			}
		}
		units = buildUnits(sh, lines, codes, now)

		if err := r.Shipments.Create(ctx, sh); err != nil {
			return fmt.Errorf("create shipment: %w", err)
		}
		for start := 0; start < len(units); start += s.batchSize {
			end := min(start+s.batchSize, len(units))
			if err := r.Units.InsertBatch(ctx, units[start:end]); err != nil {
				return fmt.Errorf("insert units %d-%d: %w", start, end, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("org_id", orgID).Str("shipment_id", sh.ID).Int("units", total).Msg("envío creado")
	for _, p := range packOut {
		if p.Created {
			s.sync.QueuePackProductSync(orgID, p.ProductID)
		}
	}

	resp := dto.NewShipmentResponse(sh)
	resp.PackProducts = packOut
	resp.Units = make([]dto.ShipmentUnitResponse, len(units))
	for i, u := range units {
		resp.Units[i] = dto.ShipmentUnitResponse{ID: u.ID, QRCode: u.QRCode, ProductID: u.ProductID, Status: string(u.Status)}
	}
	return resp, nil
}

// buildUnits arma en memoria las unidades pending del envío, una por código.
func buildUnits(sh *entity.Shipment, lines []plannedLine, codes []string, now time.Time) []*entity.Unit {
	units := make([]*entity.Unit, 0, len(codes))
	next := 0
	for _, l := range lines {
		for j := 0; j < l.units; j++ {
			shipmentID := sh.ID
			units = append(units, &entity.Unit{
				ID:             uuid.New().String(),
				OrganizationID: sh.OrganizationID,
				ShipmentID:     &shipmentID,
				ProductID:      l.product.ID,
				QRCode:         codes[next],
				Status:         entity.UnitPending,
				SourceType:     entity.SourceShipment,
				WarrantyMonths: l.product.WarrantyMonths,
				WarrantyStatus: entity.WarrantyNone,
				IsAuthentic:    true,
				CreatedAt:      now,
				UpdatedAt:      now,
			})
			next++
		}
	}
	return units
}

// planLines valida cada línea antes de tocar la base. Las líneas pack quedan con base y packSize;
// su producto se completa tras resolver los packs.
func planLines(items []dto.ShipmentLineRequest, products map[string]*entity.Product) ([]plannedLine, map[entity.PackKey]*entity.Product, error) {
	lines := make([]plannedLine, 0, len(items))
	bases := map[entity.PackKey]*entity.Product{}
	var missing []string
	for i, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			missing = append(missing, it.ProductID)
			continue
		}
		if !it.HasPackConfig() {
			if it.Quantity <= 0 {
				return nil, nil, domain.Invalid(fmt.Sprintf("items[%d].quantity", i), "la cantidad de %s debe ser mayor que cero", p.Name)
			}
			lines = append(lines, plannedLine{product: p, units: it.Quantity})
			continue
		}
		if !p.Packable {
			return nil, nil, domain.Invalid(fmt.Sprintf("items[%d]", i), "el producto %s no admite configuración de pack", p.Name)
		}
		if it.PackSize <= 1 || it.TotalUnits <= 0 {
			return nil, nil, domain.Invalid(fmt.Sprintf("items[%d]", i), "%s: pack_size debe ser mayor que 1 y total_units mayor que cero", p.Name)
		}
		if it.TotalUnits%it.PackSize != 0 {
			return nil, nil, domain.Invalid(fmt.Sprintf("items[%d]", i),
				"%s: el total de unidades (%d) no es divisible por el tamaño del pack (%d)", p.Name, it.TotalUnits, it.PackSize)
		}
		bases[entity.PackKey{BaseProductID: p.ID, PackSize: it.PackSize}] = p
		lines = append(lines, plannedLine{base: p, packSize: it.PackSize, units: it.TotalUnits / it.PackSize})
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("productos %s: %w", strings.Join(missing, ", "), domain.ErrNotFound)
	}
	return lines, bases, nil
}

// GetShipment cabecera con conteo de unidades por estado.
func (s *Service) GetShipment(ctx context.Context, orgID, id string) (*dto.ShipmentResponse, error) {
	sh, err := s.repos.Shipments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	if sh == nil || sh.OrganizationID != orgID {
		return nil, domain.ErrNotFound
	}
	counts, err := s.repos.Units.ShipmentStatusCounts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("shipment status counts: %w", err)
	}
	resp := dto.NewShipmentResponse(sh)
	resp.StatusCounts = make(map[string]int, len(counts))
	for st, n := range counts {
		resp.StatusCounts[string(st)] = n
	}
	return resp, nil
}

// CloseShipment cierra un envío completamente recibido (received → completed).
func (s *Service) CloseShipment(ctx context.Context, orgID, id string) (*dto.ShipmentResponse, error) {
	var out *entity.Shipment
	err := s.tx.Run(ctx, func(r repository.Repos) error {
		sh, err := r.Shipments.GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("get shipment: %w", err)
		}
		if sh == nil || sh.OrganizationID != orgID {
			return domain.ErrNotFound
		}
		if sh.Status != entity.ShipmentReceived {
			return &domain.StatusError{
				Entity: "envío", Ref: sh.ID, Actual: string(sh.Status),
				Expected: []string{string(entity.ShipmentReceived)}, Err: domain.ErrInvalidTransition,
			}
		}
		if err := r.Shipments.UpdateStatus(ctx, id, entity.ShipmentCompleted, nil); err != nil {
			return fmt.Errorf("update shipment status: %w", err)
		}
		sh.Status = entity.ShipmentCompleted
		out = sh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto.NewShipmentResponse(out), nil
}
