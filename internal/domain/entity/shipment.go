package entity

import "time"

// ShipmentStatus estado agregado de un envío de ingreso.
type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "pending"
	ShipmentReceived  ShipmentStatus = "received"
	ShipmentCompleted ShipmentStatus = "completed"
)

// Shipment lote de ingreso; sus unidades se crean de forma atómica.
type Shipment struct {
	ID             string
	OrganizationID string
	ProviderName   string
	ReceiptNumber  string
	Notes          string
	Status         ShipmentStatus
	TotalUnits     int
	ReceivedAt     *time.Time
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ShipmentProgress conteo de unidades de un envío por estado.
type ShipmentProgress struct {
	Total   int
	Pending int
}

// RollUpShipmentStatus calcula el estado del envío a partir del avance de escaneo.
// Un envío completado no retrocede; pasa a received sólo cuando no queda ninguna unidad pendiente.
func RollUpShipmentStatus(current ShipmentStatus, p ShipmentProgress) ShipmentStatus {
	if current == ShipmentCompleted {
		return current
	}
	if p.Total > 0 && p.Pending == 0 {
		return ShipmentReceived
	}
	return ShipmentPending
}
