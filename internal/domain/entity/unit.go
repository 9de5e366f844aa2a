package entity

import (
	"fmt"
	"time"

	"github.com/onlyperf/warehouse-api/internal/domain"
)

// UnitStatus estado de una unidad física etiquetada con QR.
type UnitStatus string

const (
	UnitPending   UnitStatus = "pending"   // creada con el envío, aún sin escanear
	UnitReceived  UnitStatus = "received"  // en bodega, disponible
	UnitAllocated UnitStatus = "allocated" // reservada para un pedido o un ensamble
	UnitSold      UnitStatus = "sold"
	UnitShipped   UnitStatus = "shipped"
	UnitDelivered UnitStatus = "delivered"
	UnitReturned  UnitStatus = "returned"
	UnitConsumed  UnitStatus = "consumed" // componente absorbido por un ensamble
)

// unitTransitions única fuente de verdad de las transiciones legales.
var unitTransitions = map[UnitStatus][]UnitStatus{
	UnitPending:   {UnitReceived},
	UnitReceived:  {UnitAllocated, UnitSold, UnitReturned},
	UnitAllocated: {UnitSold, UnitReceived, UnitConsumed, UnitReturned},
	UnitSold:      {UnitShipped, UnitReturned},
	UnitShipped:   {UnitDelivered, UnitReceived, UnitReturned},
	UnitDelivered: {UnitReturned},
	UnitReturned:  nil,
	UnitConsumed:  nil,
}

// ParseUnitStatus convierte el texto de la columna en el enum cerrado.
func ParseUnitStatus(s string) (UnitStatus, error) {
	st := UnitStatus(s)
	if _, ok := unitTransitions[st]; !ok {
		return "", fmt.Errorf("estado de unidad desconocido: %q", s)
	}
	return st, nil
}

// CanTransitionTo indica si la tabla permite pasar de s a next.
func (s UnitStatus) CanTransitionTo(next UnitStatus) bool {
	for _, t := range unitTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// sourcesOf estados desde los que next es alcanzable, en orden estable.
func sourcesOf(next UnitStatus) []UnitStatus {
	var out []UnitStatus
	for _, from := range []UnitStatus{UnitPending, UnitReceived, UnitAllocated, UnitSold, UnitShipped, UnitDelivered} {
		if from.CanTransitionTo(next) {
			out = append(out, from)
		}
	}
	return out
}

// TransitionTo mueve la unidad a next si la tabla lo permite. Toda mutación
// de estado pasa por aquí.
func (u *Unit) TransitionTo(next UnitStatus) error {
	if !u.Status.CanTransitionTo(next) {
		return &domain.StatusError{
			Entity:   "unidad",
			Ref:      u.QRCode,
			Actual:   string(u.Status),
			Expected: StatusStrings(sourcesOf(next)...),
			Err:      domain.ErrInvalidTransition,
		}
	}
	u.Status = next
	return nil
}

// In indica si s pertenece al conjunto dado.
func (s UnitStatus) In(set ...UnitStatus) bool {
	for _, t := range set {
		if s == t {
			return true
		}
	}
	return false
}

// UnitSource origen de la unidad.
type UnitSource string

const (
	SourceShipment UnitSource = "shipment"
	SourceAssembly UnitSource = "assembly"
)

// Unit unidad física (tabla shipment_items). QRCode es único a nivel global.
type Unit struct {
	ID               string
	OrganizationID   string
	ShipmentID       *string
	ProductID        string
	QRCode           string
	Status           UnitStatus
	SourceType       UnitSource
	SourceAssemblyID *string
	AssemblyID       *string // ensamble que la tiene reservada como componente
	StorageLocation  string
	WarrantyMonths   int
	WarrantyStatus   WarrantyStatus
	WarrantyStartAt  *time.Time
	IsAuthentic      bool
	ReceivedAt       *time.Time
	ReceivedBy       string
	SoldAt           *time.Time
	SoldBy           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// StatusStrings convierte un conjunto de estados a texto (mensajes de error).
func StatusStrings(set ...UnitStatus) []string {
	out := make([]string, len(set))
	for i, s := range set {
		out[i] = string(s)
	}
	return out
}
