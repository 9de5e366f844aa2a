package entity

import "time"

// DeliveryStatus estado de la entrega física.
type DeliveryStatus string

const (
	DeliveryWaiting   DeliveryStatus = "waiting_for_delivery"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliveryCancelled DeliveryStatus = "cancelled"
)

var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryWaiting:   {DeliveryDelivered, DeliveryFailed, DeliveryCancelled},
	DeliveryFailed:    {DeliveryWaiting}, // sólo mediante una resolución retry_delivery
	DeliveryDelivered: nil,
	DeliveryCancelled: nil,
}

// ParseDeliveryStatus valida el texto recibido por la API.
func ParseDeliveryStatus(s string) (DeliveryStatus, bool) {
	st := DeliveryStatus(s)
	_, ok := deliveryTransitions[st]
	return st, ok
}

// CanTransitionTo indica si la entrega puede pasar a next.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	for _, t := range deliveryTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Delivery uno a uno con un pedido despachado.
type Delivery struct {
	ID             string
	OrganizationID string
	OrderID        string
	Status         DeliveryStatus
	Carrier        string
	TrackingNumber string
	FailureReason  string
	FailedAt       *time.Time
	DeliveredAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DeliveryHistory registro de auditoría de cada cambio de estado.
type DeliveryHistory struct {
	ID         string
	DeliveryID string
	FromStatus DeliveryStatus
	ToStatus   DeliveryStatus
	Note       string
	ChangedBy  string
	CreatedAt  time.Time
}

// ResolutionStatus sub-estado de una resolución de entrega fallida.
type ResolutionStatus string

const (
	ResolutionPending    ResolutionStatus = "pending"
	ResolutionInProgress ResolutionStatus = "in_progress"
	ResolutionCompleted  ResolutionStatus = "completed"
)

// ResolutionType determina los efectos al completar la resolución.
type ResolutionType string

const (
	ResolutionReImport         ResolutionType = "re_import"
	ResolutionReturnToSupplier ResolutionType = "return_to_supplier"
	ResolutionRetryDelivery    ResolutionType = "retry_delivery"
)

// ParseResolutionType valida el tipo de resolución.
func ParseResolutionType(s string) (ResolutionType, bool) {
	switch t := ResolutionType(s); t {
	case ResolutionReImport, ResolutionReturnToSupplier, ResolutionRetryDelivery:
		return t, true
	}
	return "", false
}

// DeliveryResolution existe sólo para entregas en estado failed.
type DeliveryResolution struct {
	ID              string
	DeliveryID      string
	Status          ResolutionStatus
	Type            ResolutionType // vacío hasta que el operador lo elige
	StorageLocation string
	Notes           string
	ResolvedBy      string
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
