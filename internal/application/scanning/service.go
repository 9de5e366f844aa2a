// Package scanning escaneo de entrada (recepción) y de venta en tienda sobre la máquina de estados de unidades.
package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/application/ports"
	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/qrcode"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

// Service casos de uso de escaneo.
type Service struct {
	tx    repository.TxRunner
	repos repository.Repos
	sync  ports.SyncScheduler
	now   func() time.Time
	log   zerolog.Logger
}

// NewService construye el servicio de escaneo.
func NewService(tx repository.TxRunner, repos repository.Repos, sync ports.SyncScheduler, log zerolog.Logger) *Service {
	if sync == nil {
		sync = ports.NopScheduler{}
	}
	return &Service{tx: tx, repos: repos, sync: sync, now: time.Now, log: log}
}

// lockUnit bloquea la unidad por código y verifica la organización.
func lockUnit(ctx context.Context, r repository.Repos, orgID, code string) (*entity.Unit, error) {
	code = qrcode.Normalize(code)
	if code == "" {
		return nil, domain.Invalid("code", "el código es obligatorio")
	}
	u, err := r.Units.GetByCodeForUpdate(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get unit: %w", err)
	}
	if u == nil || u.OrganizationID != orgID {
		return nil, fmt.Errorf("unidad %s: %w", code, domain.ErrNotFound)
	}
	return u, nil
}

// Receive registra la llegada física de una unidad (pending → received) y recalcula el estado del envío.
func (s *Service) Receive(ctx context.Context, orgID, userID string, in dto.ReceiveRequest) (*dto.ReceiveResponse, error) {
	var (
		unit     *entity.Unit
		shStatus entity.ShipmentStatus
		pending  int
	)
	err := s.tx.Run(ctx, func(r repository.Repos) error {
		u, err := lockUnit(ctx, r, orgID, in.Code)
		if err != nil {
			return err
		}
		switch u.Status {
		case entity.UnitPending:
		case entity.UnitReceived:
			return &domain.StatusError{Entity: "unidad", Ref: u.QRCode, Actual: string(u.Status),
				Expected: entity.StatusStrings(entity.UnitPending), Err: domain.ErrAlreadyReceived}
		default:
			return &domain.StatusError{Entity: "unidad", Ref: u.QRCode, Actual: string(u.Status),
				Expected: entity.StatusStrings(entity.UnitPending), Err: domain.ErrInvalidTransition}
		}

		now := s.now()
		if err := u.TransitionTo(entity.UnitReceived); err != nil {
			return err
		}
		u.ReceivedAt = &now
		u.ReceivedBy = userID
		if loc := strings.TrimSpace(in.StorageLocation); loc != "" {
			u.StorageLocation = loc
		}
		u.UpdatedAt = now
		if err := r.Units.Update(ctx, u); err != nil {
			return fmt.Errorf("update unit: %w", err)
		}
		unit = u

		if u.ShipmentID == nil {
			return nil
		}
		sh, err := r.Shipments.GetForUpdate(ctx, *u.ShipmentID)
		if err != nil {
			return fmt.Errorf("get shipment: %w", err)
		}
		if sh == nil {
			return nil
		}
		progress, err := r.Units.ShipmentProgress(ctx, sh.ID)
		if err != nil {
			return fmt.Errorf("shipment progress: %w", err)
		}
		pending = progress.Pending
		shStatus = entity.RollUpShipmentStatus(sh.Status, progress)
		if shStatus != sh.Status {
			if err := r.Shipments.UpdateStatus(ctx, sh.ID, shStatus, &now); err != nil {
				return fmt.Errorf("update shipment status: %w", err)
			}
			s.log.Info().Str("shipment_id", sh.ID).Str("status", string(shStatus)).Msg("envío recibido por completo")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sync.QueueInventorySync(orgID, unit.ProductID)
	p, err := s.repos.Products.GetByID(ctx, unit.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &dto.ReceiveResponse{
		Unit:           dto.NewUnitResponse(unit, p),
		ShipmentStatus: string(shStatus),
		PendingUnits:   pending,
	}, nil
}

// Sell venta directa en tienda: la unidad debe estar en bodega (received) o reservada
// sin dueño, es decir fuera de un ensamble y sin ítem de pedido asignado.
func (s *Service) Sell(ctx context.Context, orgID, userID string, in dto.SellRequest) (*dto.UnitResponse, error) {
	var unit *entity.Unit
	err := s.tx.Run(ctx, func(r repository.Repos) error {
		u, err := lockUnit(ctx, r, orgID, in.Code)
		if err != nil {
			return err
		}
		if err := checkSellable(ctx, r, u); err != nil {
			return err
		}
		now := s.now()
		if err := u.TransitionTo(entity.UnitSold); err != nil {
			return err
		}
		u.SoldAt = &now
		u.SoldBy = userID
		if u.WarrantyMonths > 0 {
			u.WarrantyStatus = entity.WarrantyActive
			u.WarrantyStartAt = &now
		}
		u.UpdatedAt = now
		if err := r.Units.Update(ctx, u); err != nil {
			return fmt.Errorf("update unit: %w", err)
		}
		unit = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	p, err := s.repos.Products.GetByID(ctx, unit.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	s.sync.QueueInventorySync(orgID, unit.ProductID)
	s.sync.QueuePortalEvent(orgID, dto.NewSoldEvent(unit, p, "", "", *unit.SoldAt))
	s.log.Info().Str("org_id", orgID).Str("qr_code", unit.QRCode).Msg("unidad vendida en tienda")
	return dto.NewUnitResponse(unit, p), nil
}

var sellable = []entity.UnitStatus{entity.UnitReceived, entity.UnitAllocated}

func checkSellable(ctx context.Context, r repository.Repos, u *entity.Unit) error {
	statusErr := func(sentinel error) error {
		return &domain.StatusError{Entity: "unidad", Ref: u.QRCode, Actual: string(u.Status),
			Expected: entity.StatusStrings(sellable...), Err: sentinel}
	}
	switch {
	case u.Status.In(entity.UnitSold, entity.UnitShipped, entity.UnitDelivered):
		return statusErr(domain.ErrAlreadySold)
	case !u.Status.In(sellable...):
		return statusErr(domain.ErrUnitNotAvailable)
	case u.AssemblyID != nil:
		// componente reservado por un ensamble abierto
		return statusErr(domain.ErrUnitNotAvailable)
	}
	if u.Status != entity.UnitAllocated {
		return nil
	}
	orderID, err := r.Orders.OrderIDForUnit(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("get unit order: %w", err)
	}
	if orderID != "" {
		return fmt.Errorf("reservada para el pedido %s: %w", orderID, statusErr(domain.ErrUnitNotAvailable))
	}
	return nil
}

// Lookup unidad y producto para la pantalla del escáner.
func (s *Service) Lookup(ctx context.Context, orgID, code string) (*dto.UnitResponse, error) {
	code = qrcode.Normalize(code)
	u, err := s.repos.Units.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get unit: %w", err)
	}
	if u == nil || u.OrganizationID != orgID {
		return nil, fmt.Errorf("unidad %s: %w", code, domain.ErrNotFound)
	}
	p, err := s.repos.Products.GetByID(ctx, u.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return dto.NewUnitResponse(u, p), nil
}
