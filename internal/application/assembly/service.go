// Package assembly ensamble por fases: componentes escaneados en orden que producen unidades de un producto pack.
package assembly

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/application/ports"
	"github.com/onlyperf/warehouse-api/internal/application/shipment"
	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/qrcode"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

// Service casos de uso del ensamble.
type Service struct {
	tx    repository.TxRunner
	repos repository.Repos
	codes *shipment.CodeAllocator
	sync  ports.SyncScheduler
	now   func() time.Time
	log   zerolog.Logger
}

// NewService construye el servicio. codes se comparte con la creación de envíos.
func NewService(tx repository.TxRunner, repos repository.Repos, codes *shipment.CodeAllocator, sync ports.SyncScheduler, log zerolog.Logger) *Service {
	if sync == nil {
		sync = ports.NopScheduler{}
	}
	return &Service{tx: tx, repos: repos, codes: codes, sync: sync, now: time.Now, log: log}
}

// Create abre un ensamble en estado pending con sus fases en el orden recibido.
func (s *Service) Create(ctx context.Context, orgID, userID string, in dto.CreateAssemblyRequest) (*dto.AssemblyResponse, error) {
	if len(in.Phases) == 0 {
		return nil, domain.Invalid("phases", "el ensamble necesita al menos una fase")
	}
	if in.OutputQuantity <= 0 {
		in.OutputQuantity = 1
	}
	ids := []string{in.TargetProductID}
	for i, ph := range in.Phases {
		if ph.ExpectedCount <= 0 {
			return nil, domain.Invalid(fmt.Sprintf("phases[%d].expected_count", i), "debe ser mayor que cero")
		}
		ids = append(ids, ph.ProductID)
	}
	products, err := s.repos.Products.GetByIDs(ctx, orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, fmt.Errorf("producto %s: %w", id, domain.ErrNotFound)
		}
	}

	now := s.now()
	a := &entity.Assembly{
		ID:              uuid.New().String(),
		OrganizationID:  orgID,
		Name:            strings.TrimSpace(in.Name),
		TargetProductID: in.TargetProductID,
		OutputQuantity:  in.OutputQuantity,
		Status:          entity.AssemblyPending,
		Version:         1,
		CreatedBy:       userID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if a.Name == "" {
		a.Name = products[in.TargetProductID].Name
	}
	for i, ph := range in.Phases {
		a.Phases = append(a.Phases, entity.AssemblyPhase{
			AssemblyID:    a.ID,
			Index:         i,
			ProductID:     ph.ProductID,
			ExpectedCount: ph.ExpectedCount,
		})
	}
	if err := s.repos.Assemblies.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create assembly: %w", err)
	}
	return dto.NewAssemblyResponse(a), nil
}

// Get estado autoritativo del ensamble.
func (s *Service) Get(ctx context.Context, orgID, id string) (*dto.AssemblyResponse, error) {
	a, err := s.repos.Assemblies.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get assembly: %w", err)
	}
	if a == nil || a.OrganizationID != orgID {
		return nil, fmt.Errorf("ensamble %s: %w", id, domain.ErrNotFound)
	}
	return dto.NewAssemblyResponse(a), nil
}

func lockAssembly(ctx context.Context, r repository.Repos, orgID, id string) (*entity.Assembly, error) {
	a, err := r.Assemblies.GetForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get assembly: %w", err)
	}
	if a == nil || a.OrganizationID != orgID {
		return nil, fmt.Errorf("ensamble %s: %w", id, domain.ErrNotFound)
	}
	return a, nil
}

// Scan suma un componente a la fase actual y lo reserva para el ensamble.
func (s *Service) Scan(ctx context.Context, orgID, userID, assemblyID, code string) (*dto.AssemblyScanResult, error) {
	code = qrcode.Normalize(code)
	var out *dto.AssemblyScanResult
	err := s.tx.Run(ctx, func(r repository.Repos) error {
		a, err := lockAssembly(ctx, r, orgID, assemblyID)
		if err != nil {
			return err
		}
		u, err := r.Units.GetByCodeForUpdate(ctx, code)
		if err != nil {
			return fmt.Errorf("get unit: %w", err)
		}
		if u == nil || u.OrganizationID != orgID {
			return fmt.Errorf("unidad %s: %w", code, domain.ErrNotFound)
		}
		if u.Status != entity.UnitReceived {
			return &domain.StatusError{Entity: "unidad", Ref: u.QRCode, Actual: string(u.Status),
				Expected: entity.StatusStrings(entity.UnitReceived), Err: domain.ErrUnitNotAvailable}
		}
		if err := a.CheckScan(u.ProductID); err != nil {
			return err
		}

		phase := a.CurrentPhaseIndex
		scanned, ok, err := r.Assemblies.IncrementPhase(ctx, a.ID, phase)
		if err != nil {
			return fmt.Errorf("increment phase: %w", err)
		}
		if !ok {
			return domain.ErrPhaseFull
		}

		now := s.now()
		assemblyRef := a.ID
		if err := u.TransitionTo(entity.UnitAllocated); err != nil {
			return err
		}
		u.AssemblyID = &assemblyRef
		u.UpdatedAt = now
		if err := r.Units.Update(ctx, u); err != nil {
			return fmt.Errorf("update unit: %w", err)
		}
		if a.Status == entity.AssemblyPending {
			if err := r.Assemblies.UpdateStatus(ctx, a.ID, entity.AssemblyAssembling, nil); err != nil {
				return fmt.Errorf("update assembly status: %w", err)
			}
		}

		fresh, err := r.Assemblies.GetByID(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("get assembly: %w", err)
		}
		p := fresh.Phases[phase]
		out = &dto.AssemblyScanResult{
			PhaseIndex:    phase,
			ScannedCount:  scanned,
			ExpectedCount: p.ExpectedCount,
			PhaseComplete: p.IsComplete(),
			AllComplete:   fresh.AllPhasesComplete(),
			Version:       fresh.Version,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("assembly_id", assemblyID).Str("qr_code", code).Int("phase", out.PhaseIndex).Msg("componente escaneado")
	return out, nil
}

// ConfirmPhase paso manual a la siguiente fase. expectedIndex evita que dos dispositivos avancen dos veces.
func (s *Service) ConfirmPhase(ctx context.Context, orgID, assemblyID string, expectedIndex int) (*dto.AssemblyResponse, error) {
	var out *entity.Assembly
	err := s.tx.Run(ctx, func(r repository.Repos) error {
		a, err := lockAssembly(ctx, r, orgID, assemblyID)
		if err != nil {
			return err
		}
		if err := a.CheckConfirmPhase(expectedIndex); err != nil {
			return err
		}
		ok, err := r.Assemblies.AdvancePhase(ctx, a.ID, expectedIndex)
		if err != nil {
			return fmt.Errorf("advance phase: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: la fase %d ya fue confirmada", domain.ErrConflict, expectedIndex+1)
		}
		out, err = r.Assemblies.GetByID(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("get assembly: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto.NewAssemblyResponse(out), nil
}

// Complete cierra el ensamble: consume los componentes y crea las unidades del producto destino.
func (s *Service) Complete(ctx context.Context, orgID, userID, assemblyID string) (*dto.AssemblyCompleteResponse, error) {
	a, err := s.repos.Assemblies.GetByID(ctx, assemblyID)
	if err != nil {
		return nil, fmt.Errorf("get assembly: %w", err)
	}
	if a == nil || a.OrganizationID != orgID {
		return nil, fmt.Errorf("ensamble %s: %w", assemblyID, domain.ErrNotFound)
	}
	if err := a.CheckComplete(); err != nil {
		return nil, err
	}
	target, err := s.repos.Products.GetByID(ctx, a.TargetProductID)
	if err != nil {
		return nil, fmt.Errorf("get target product: %w", err)
	}
	if target == nil {
		return nil, fmt.Errorf("producto %s: %w", a.TargetProductID, domain.ErrNotFound)
	}
	codes, err := s.codes.Allocate(ctx, s.repos.Units, a.OutputQuantity)
	if err != nil {
		return nil, err
	}

	var (
		produced   []*entity.Unit
		components []string
		closed     *entity.Assembly
	)
	err = s.tx.Run(ctx, func(r repository.Repos) error {
		a, err := lockAssembly(ctx, r, orgID, assemblyID)
		if err != nil {
			return err
		}
		if err := a.CheckComplete(); err != nil {
			return err
		}
		now := s.now()

		parts, err := r.Units.ListByAssembly(ctx, a.ID, entity.UnitAllocated)
		if err != nil {
			return fmt.Errorf("list components: %w", err)
		}
		seen := map[string]bool{}
		for _, u := range parts {
			if err := u.TransitionTo(entity.UnitConsumed); err != nil {
				return err
			}
			u.UpdatedAt = now
			if err := r.Units.Update(ctx, u); err != nil {
				return fmt.Errorf("consume unit %s: %w", u.QRCode, err)
			}
			if !seen[u.ProductID] {
				seen[u.ProductID] = true
				components = append(components, u.ProductID)
			}
		}

		source := a.ID
		produced = make([]*entity.Unit, len(codes))
		for i, c := range codes {
			produced[i] = &entity.Unit{
				ID:               uuid.New().String(),
				OrganizationID:   orgID,
				ProductID:        target.ID,
				QRCode:           c,
				Status:           entity.UnitReceived,
				SourceType:       entity.SourceAssembly,
				SourceAssemblyID: &source,
				WarrantyMonths:   target.WarrantyMonths,
				WarrantyStatus:   entity.WarrantyNone,
				IsAuthentic:      true,
				ReceivedAt:       &now,
				ReceivedBy:       userID,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
		}
		if err := r.Units.InsertBatch(ctx, produced); err != nil {
			return fmt.Errorf("insert assembled units: %w", err)
		}
		if err := r.Assemblies.UpdateStatus(ctx, a.ID, entity.AssemblyCompleted, &now); err != nil {
			return fmt.Errorf("update assembly status: %w", err)
		}
		closed, err = r.Assemblies.GetByID(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("get assembly: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sync.QueueInventorySync(orgID, append([]string{target.ID}, components...)...)
	s.log.Info().Str("assembly_id", assemblyID).Int("units", len(produced)).Msg("ensamble completado")

	resp := &dto.AssemblyCompleteResponse{Assembly: dto.NewAssemblyResponse(closed)}
	for _, u := range produced {
		resp.Units = append(resp.Units, dto.ShipmentUnitResponse{ID: u.ID, QRCode: u.QRCode, ProductID: u.ProductID, Status: string(u.Status)})
	}
	return resp, nil
}

// Abandon libera los componentes reservados (allocated → received) y cierra el ensamble.
func (s *Service) Abandon(ctx context.Context, orgID, assemblyID string) (*dto.AssemblyResponse, error) {
	var out *entity.Assembly
	err := s.tx.Run(ctx, func(r repository.Repos) error {
		a, err := lockAssembly(ctx, r, orgID, assemblyID)
		if err != nil {
			return err
		}
		if a.Status.IsClosed() {
			return domain.ErrAssemblyClosed
		}
		parts, err := r.Units.ListByAssembly(ctx, a.ID, entity.UnitAllocated)
		if err != nil {
			return fmt.Errorf("list components: %w", err)
		}
		now := s.now()
		for _, u := range parts {
			if err := u.TransitionTo(entity.UnitReceived); err != nil {
				return err
			}
			u.AssemblyID = nil
			u.UpdatedAt = now
			if err := r.Units.Update(ctx, u); err != nil {
				return fmt.Errorf("release unit %s: %w", u.QRCode, err)
			}
		}
		if err := r.Assemblies.UpdateStatus(ctx, a.ID, entity.AssemblyAbandoned, nil); err != nil {
			return fmt.Errorf("update assembly status: %w", err)
		}
		out, err = r.Assemblies.GetByID(ctx, a.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto.NewAssemblyResponse(out), nil
}
