package dto

import (
	"time"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// AssemblyPhaseRequest una fase: cuántas unidades de qué producto.
type AssemblyPhaseRequest struct {
	ProductID     string `json:"product_id" validate:"required"`
	ExpectedCount int    `json:"expected_count" validate:"min=1"`
}

// CreateAssemblyRequest entrada para abrir un ensamble.
type CreateAssemblyRequest struct {
	Name            string                 `json:"name"`
	TargetProductID string                 `json:"target_product_id" validate:"required"`
	OutputQuantity  int                    `json:"output_quantity"`
	Phases          []AssemblyPhaseRequest `json:"phases" validate:"required,min=1"`
}

// AssemblyScanRequest escaneo de un componente.
type AssemblyScanRequest struct {
	Code string `json:"code" validate:"required"`
}

// ConfirmPhaseRequest confirmación manual; PhaseIndex es el índice (base 0) que el operador ve en pantalla.
type ConfirmPhaseRequest struct {
	PhaseIndex int `json:"phase_index"`
}

// AssemblyPhaseResponse progreso de una fase.
type AssemblyPhaseResponse struct {
	Index         int    `json:"index"`
	ProductID     string `json:"product_id"`
	ExpectedCount int    `json:"expected_count"`
	ScannedCount  int    `json:"scanned_count"`
	Complete      bool   `json:"complete"`
}

// AssemblyResponse estado autoritativo del ensamble para clientes que hacen polling.
type AssemblyResponse struct {
	ID                string                  `json:"id"`
	Name              string                  `json:"name"`
	TargetProductID   string                  `json:"target_product_id"`
	OutputQuantity    int                     `json:"output_quantity"`
	Status            string                  `json:"status"`
	CurrentPhaseIndex int                     `json:"current_phase_index"`
	Phases            []AssemblyPhaseResponse `json:"phases"`
	AllComplete       bool                    `json:"all_complete"`
	Version           int                     `json:"version"`
	CompletedAt       *time.Time              `json:"completed_at,omitempty"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// NewAssemblyResponse mapea la entidad.
func NewAssemblyResponse(a *entity.Assembly) *AssemblyResponse {
	phases := make([]AssemblyPhaseResponse, len(a.Phases))
	for i, p := range a.Phases {
		phases[i] = AssemblyPhaseResponse{
			Index:         p.Index,
			ProductID:     p.ProductID,
			ExpectedCount: p.ExpectedCount,
			ScannedCount:  p.ScannedCount,
			Complete:      p.IsComplete(),
		}
	}
	return &AssemblyResponse{
		ID:                a.ID,
		Name:              a.Name,
		TargetProductID:   a.TargetProductID,
		OutputQuantity:    a.OutputQuantity,
		Status:            string(a.Status),
		CurrentPhaseIndex: a.CurrentPhaseIndex,
		Phases:            phases,
		AllComplete:       a.AllPhasesComplete(),
		Version:           a.Version,
		CompletedAt:       a.CompletedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// AssemblyScanResult resultado de un escaneo de componente.
type AssemblyScanResult struct {
	PhaseIndex    int  `json:"phase_index"`
	ScannedCount  int  `json:"scanned_count"`
	ExpectedCount int  `json:"expected_count"`
	PhaseComplete bool `json:"phase_complete"`
	AllComplete   bool `json:"all_complete"`
	Version       int  `json:"version"`
}

// AssemblyCompleteResponse ensamble cerrado y unidades producidas.
type AssemblyCompleteResponse struct {
	Assembly *AssemblyResponse      `json:"assembly"`
	Units    []ShipmentUnitResponse `json:"units"`
}
