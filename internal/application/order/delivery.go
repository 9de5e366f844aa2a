package order

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

// DeliveryService estados de entrega y resolución de entregas fallidas.
type DeliveryService struct {
	tx    repository.TxRunner
	repos repository.Repos
	sync  ports.SyncScheduler
	now   func() time.Time
	log   zerolog.Logger
}

// NewDeliveryService construye el servicio de entregas.
func NewDeliveryService(tx repository.TxRunner, repos repository.Repos, sync ports.SyncScheduler, log zerolog.Logger) *DeliveryService {
	if sync == nil {
		sync = ports.NopScheduler{}
	}
	return &DeliveryService{tx: tx, repos: repos, sync: sync, now: time.Now, log: log}
}

func lockDelivery(ctx context.Context, r repository.Repos, orgID, id string) (*entity.Delivery, error) {
	d, err := r.Deliveries.GetForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	if d == nil || d.OrganizationID != orgID {
		return nil, fmt.Errorf("entrega %s: %w", id, domain.ErrNotFound)
	}
	return d, nil
}

func addHistory(ctx context.Context, r repository.Repos, d *entity.Delivery, from entity.DeliveryStatus, note, userID string, at time.Time) error {
	err := r.Deliveries.AddHistory(ctx, &entity.DeliveryHistory{
		ID:         uuid.New().String(),
		DeliveryID: d.ID,
		FromStatus: from,
		ToStatus:   d.Status,
		Note:       note,
		ChangedBy:  userID,
		CreatedAt:  at,
	})
	if err != nil {
		return fmt.Errorf("add delivery history: %w", err)
	}
	return nil
}

// orderUnits unidades vinculadas al pedido de la entrega.
func orderUnits(ctx context.Context, r repository.Repos, orderID string) (*entity.Order, []*entity.Unit, error) {
	o, err := r.Orders.GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("get order: %w", err)
	}
	if o == nil {
		return nil, nil, fmt.Errorf("pedido %s: %w", orderID, domain.ErrNotFound)
	}
	units, err := r.Units.GetByIDs(ctx, boundUnitIDs(o))
	if err != nil {
		return nil, nil, fmt.Errorf("get order units: %w", err)
	}
	return o, units, nil
}

// GetDelivery entrega por ID.
func (s *DeliveryService) GetDelivery(ctx context.Context, orgID, id string) (*dto.DeliveryResponse, error) {
	d, err := s.repos.Deliveries.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	if d == nil || d.OrganizationID != orgID {
		return nil, fmt.Errorf("entrega %s: %w", id, domain.ErrNotFound)
	}
	return dto.NewDeliveryResponse(d), nil
}

// UpdateStatus aplica un cambio de estado validado contra la tabla de transiciones.
// La vuelta a waiting_for_delivery sólo ocurre al completar una resolución retry_delivery.
func (s *DeliveryService) UpdateStatus(ctx context.Context, orgID, userID, deliveryID string, in dto.UpdateDeliveryStatusRequest) (*dto.DeliveryResponse, error) {
	next, ok := entity.ParseDeliveryStatus(in.Status)
	if !ok {
		return nil, domain.Invalid("status", "estado de entrega desconocido: %q", in.Status)
	}
	var (
		out        *entity.Delivery
		resolution *entity.DeliveryResolution
		order      *entity.Order
	)
	err := s.tx.Run(ctx, func(r repository.Repos) error {
		d, err := lockDelivery(ctx, r, orgID, deliveryID)
		if err != nil {
			return err
		}
		if next == entity.DeliveryWaiting || !d.Status.CanTransitionTo(next) {
			return &domain.StatusError{Entity: "entrega", Ref: d.ID, Actual: string(d.Status),
				Expected: []string{string(entity.DeliveryWaiting)}, Err: domain.ErrInvalidTransition}
		}
		now := s.now()
		from := d.Status
		d.Status = next
		d.UpdatedAt = now

		switch next {
		case entity.DeliveryDelivered:
			o, units, err := orderUnits(ctx, r, d.OrderID)
			if err != nil {
				return err
			}
			for _, u := range units {
				if u.Status != entity.UnitShipped {
					continue
				}
				if err := u.TransitionTo(entity.UnitDelivered); err != nil {
					return err
				}
				u.UpdatedAt = now
				if err := r.Units.Update(ctx, u); err != nil {
					return fmt.Errorf("deliver unit %s: %w", u.QRCode, err)
				}
			}
			if o.Status.CanTransitionTo(entity.OrderDelivered) {
				if err := r.Orders.UpdateStatus(ctx, o.ID, entity.OrderDelivered); err != nil {
					return fmt.Errorf("update order status: %w", err)
				}
			}
			d.DeliveredAt = &now
			order = o
		case entity.DeliveryFailed:
			d.FailureReason = strings.TrimSpace(in.Reason)
			d.FailedAt = &now
			resolution = &entity.DeliveryResolution{
				ID:         uuid.New().String(),
				DeliveryID: d.ID,
				Status:     entity.ResolutionPending,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := r.Deliveries.CreateResolution(ctx, resolution); err != nil {
				return fmt.Errorf("create resolution: %w", err)
			}
		}

		if err := r.Deliveries.Update(ctx, d); err != nil {
			return fmt.Errorf("update delivery: %w", err)
		}
		if err := addHistory(ctx, r, d, from, in.Reason, userID, now); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	if order != nil && order.ShopifyOrderID != "" {
		s.sync.QueueShopifyFulfillmentSync(orgID, order.ID, ports.FulfillmentDelivered)
	}
	s.log.Info().Str("delivery_id", out.ID).Str("status", string(out.Status)).Msg("estado de entrega actualizado")
	resp := dto.NewDeliveryResponse(out)
	if resolution != nil {
		resp.Resolution = dto.NewResolutionResponse(resolution)
	}
	return resp, nil
}

// lockResolution bloquea la resolución y la entrega a la que pertenece.
func lockResolution(ctx context.Context, r repository.Repos, orgID, id string) (*entity.DeliveryResolution, *entity.Delivery, error) {
	res, err := r.Deliveries.GetResolutionForUpdate(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get resolution: %w", err)
	}
	if res == nil {
		return nil, nil, fmt.Errorf("resolución %s: %w", id, domain.ErrNotFound)
	}
	d, err := lockDelivery(ctx, r, orgID, res.DeliveryID)
	if err != nil {
		return nil, nil, err
	}
	return res, d, nil
}

func resolutionStatusError(res *entity.DeliveryResolution, expected ...entity.ResolutionStatus) error {
	exp := make([]string, len(expected))
	for i, e := range expected {
		exp[i] = string(e)
	}
	return &domain.StatusError{Entity: "resolución", Ref: res.ID, Actual: string(res.Status), Expected: exp, Err: domain.ErrInvalidTransition}
}

// SetResolutionType fija el tipo de resolución mientras no esté completada.
func (s *DeliveryService) SetResolutionType(ctx context.Context, orgID, resolutionID string, in dto.SetResolutionTypeRequest) (*dto.ResolutionResponse, error) {
	typ, ok := entity.ParseResolutionType(in.Type)
	if !ok {
		return nil, domain.Invalid("type", "tipo de resolución desconocido: %q", in.Type)
	}
	var out *entity.DeliveryResolution
	err := s.tx.Run(ctx, func(r repository.Repos) error {
		res, _, err := lockResolution(ctx, r, orgID, resolutionID)
		if err != nil {
			return err
		}
		if res.Status == entity.ResolutionCompleted {
			return resolutionStatusError(res, entity.ResolutionPending, entity.ResolutionInProgress)
		}
		res.Type = typ
		res.UpdatedAt = s.now()
		if err := r.Deliveries.UpdateResolution(ctx, res); err != nil {
			return fmt.Errorf("update resolution: %w", err)
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto.NewResolutionResponse(out), nil
}

// StartResolution pending → in_progress.
func (s *DeliveryService) StartResolution(ctx context.Context, orgID, resolutionID string) (*dto.ResolutionResponse, error) {
	var out *entity.DeliveryResolution
	err := s.tx.Run(ctx, func(r repository.Repos) error {
		res, _, err := lockResolution(ctx, r, orgID, resolutionID)
		if err != nil {
			return err
		}
		if res.Status != entity.ResolutionPending {
			return resolutionStatusError(res, entity.ResolutionPending)
		}
		res.Status = entity.ResolutionInProgress
		res.UpdatedAt = s.now()
		if err := r.Deliveries.UpdateResolution(ctx, res); err != nil {
			return fmt.Errorf("update resolution: %w", err)
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto.NewResolutionResponse(out), nil
}

// CompleteResolution cierra la resolución y aplica sus efectos.
// re_import devuelve las unidades despachadas a bodega y las libera del pedido.
// retry_delivery reabre la entrega. return_to_supplier marca las unidades como devueltas.
func (s *DeliveryService) CompleteResolution(ctx context.Context, orgID, userID, resolutionID string, in dto.CompleteResolutionRequest) (*dto.ResolutionResponse, error) {
	var (
		out      *entity.DeliveryResolution
		restored []string
		returned []*entity.Unit
	)
	err := s.tx.Run(ctx, func(r repository.Repos) error {
		res, d, err := lockResolution(ctx, r, orgID, resolutionID)
		if err != nil {
			return err
		}
		if res.Status != entity.ResolutionInProgress {
			return resolutionStatusError(res, entity.ResolutionInProgress)
		}
		if res.Type == "" {
			return domain.Invalid("type", "la resolución no tiene tipo asignado")
		}
		now := s.now()
		location := strings.TrimSpace(in.StorageLocation)

		switch res.Type {
		case entity.ResolutionReImport:
			_, units, err := orderUnits(ctx, r, d.OrderID)
			if err != nil {
				return err
			}
			seen := map[string]bool{}
			var released []string
			for _, u := range units {
				if u.Status != entity.UnitShipped {
					continue
				}
				if err := u.TransitionTo(entity.UnitReceived); err != nil {
					return err
				}
				if location != "" {
					u.StorageLocation = location
				}
				u.UpdatedAt = now
				if err := r.Units.Update(ctx, u); err != nil {
					return fmt.Errorf("re-import unit %s: %w", u.QRCode, err)
				}
				released = append(released, u.ID)
				if !seen[u.ProductID] {
					seen[u.ProductID] = true
					restored = append(restored, u.ProductID)
				}
			}
			// la unidad vuelve a estar disponible: el pedido original deja de ser su dueño
			if err := r.Orders.UnbindUnits(ctx, released); err != nil {
				return fmt.Errorf("unbind units: %w", err)
			}
		case entity.ResolutionRetryDelivery:
			from := d.Status
			d.Status = entity.DeliveryWaiting
			d.FailureReason = ""
			d.FailedAt = nil
			d.UpdatedAt = now
			if err := r.Deliveries.Update(ctx, d); err != nil {
				return fmt.Errorf("update delivery: %w", err)
			}
			if err := addHistory(ctx, r, d, from, "reintento de entrega", userID, now); err != nil {
				return err
			}
		case entity.ResolutionReturnToSupplier:
			_, units, err := orderUnits(ctx, r, d.OrderID)
			if err != nil {
				return err
			}
			for _, u := range units {
				if u.Status != entity.UnitShipped {
					continue
				}
				if err := u.TransitionTo(entity.UnitReturned); err != nil {
					return err
				}
				if u.WarrantyStatus == entity.WarrantyActive {
					u.WarrantyStatus = entity.WarrantyVoid
				}
				u.UpdatedAt = now
				if err := r.Units.Update(ctx, u); err != nil {
					return fmt.Errorf("return unit %s: %w", u.QRCode, err)
				}
				returned = append(returned, u)
			}
			s.log.Info().Str("delivery_id", d.ID).Str("order_id", d.OrderID).Str("user_id", userID).
				Int("units", len(returned)).Msg("resolución: devolución al proveedor")
		}

		res.Status = entity.ResolutionCompleted
		res.StorageLocation = location
		res.Notes = in.Notes
		res.ResolvedBy = userID
		res.CompletedAt = &now
		res.UpdatedAt = now
		if err := r.Deliveries.UpdateResolution(ctx, res); err != nil {
			return fmt.Errorf("update resolution: %w", err)
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(restored) > 0 {
		s.sync.QueueInventorySync(orgID, restored...)
	}
	if len(returned) > 0 {
		s.notifyReturned(ctx, orgID, returned)
	}
	return dto.NewResolutionResponse(out), nil
}

// notifyReturned publica product.returned para que el portal retire las unidades del cliente.
func (s *DeliveryService) notifyReturned(ctx context.Context, orgID string, units []*entity.Unit) {
	var ids []string
	seen := map[string]bool{}
	for _, u := range units {
		if !seen[u.ProductID] {
			seen[u.ProductID] = true
			ids = append(ids, u.ProductID)
		}
	}
	products, err := s.repos.Products.GetByIDs(ctx, orgID, ids)
	if err != nil {
		s.log.Error().Err(err).Str("org_id", orgID).Msg("no se pudo notificar la devolución al portal")
		return
	}
	for _, u := range units {
		s.sync.QueuePortalEvent(orgID, dto.NewReturnedEvent(u, products[u.ProductID]))
	}
}
