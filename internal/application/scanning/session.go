package scanning

import (
	"context"
	"fmt"
	"time"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/entity"
	"github.com/onlyperf/warehouse-api/internal/domain/qrcode"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
)

// SessionStore almacén de sesiones de escaneo de salida (memoria o Redis).
type SessionStore interface {
	Get(ctx context.Context, userID string) (*entity.ScanningSession, error)
	// Apply fusiona patch de forma atómica respecto de otras escrituras del mismo usuario.
	Apply(ctx context.Context, userID string, patch entity.SessionPatch) (*entity.ScanningSession, error)
	Clear(ctx context.Context, userID string) error
}

// SessionService sesión de escaneo compartida entre los dispositivos de un operador.
type SessionService struct {
	store SessionStore
	units repository.UnitRepository
	now   func() time.Time
}

// NewSessionService construye el servicio.
func NewSessionService(store SessionStore, units repository.UnitRepository) *SessionService {
	return &SessionService{store: store, units: units, now: time.Now}
}

// Get estado actual de la sesión.
func (s *SessionService) Get(ctx context.Context, userID string) (*dto.SessionResponse, error) {
	sess, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return dto.NewSessionResponse(sess), nil
}

// Apply valida las unidades agregadas al carrito y fusiona el patch.
// Sin timestamp del cliente se usa el reloj del servidor.
func (s *SessionService) Apply(ctx context.Context, orgID, userID string, patch entity.SessionPatch) (*dto.SessionResponse, error) {
	if patch.Timestamp <= 0 {
		patch.Timestamp = s.now().UnixMilli()
	}
	for i := range patch.AddItems {
		it := &patch.AddItems[i]
		it.QRCode = qrcode.Normalize(it.QRCode)
		if !qrcode.Valid(it.QRCode) {
			return nil, domain.Invalid("addItems", "código inválido: %q", it.QRCode)
		}
		u, err := s.units.GetByCode(ctx, it.QRCode)
		if err != nil {
			return nil, fmt.Errorf("get unit: %w", err)
		}
		if u == nil || u.OrganizationID != orgID {
			return nil, fmt.Errorf("unidad %s: %w", it.QRCode, domain.ErrNotFound)
		}
		if !u.Status.In(entity.UnitReceived, entity.UnitAllocated) {
			return nil, &domain.StatusError{Entity: "unidad", Ref: u.QRCode, Actual: string(u.Status),
				Expected: entity.StatusStrings(entity.UnitReceived, entity.UnitAllocated), Err: domain.ErrUnitNotAvailable}
		}
		it.ProductID = u.ProductID
	}
	for i, code := range patch.RemoveItems {
		patch.RemoveItems[i] = qrcode.Normalize(code)
	}
	sess, err := s.store.Apply(ctx, userID, patch)
	if err != nil {
		return nil, fmt.Errorf("apply session: %w", err)
	}
	return dto.NewSessionResponse(sess), nil
}

// Clear vacía la sesión (al cerrar la venta o cancelar).
func (s *SessionService) Clear(ctx context.Context, userID string) error {
	if err := s.store.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
