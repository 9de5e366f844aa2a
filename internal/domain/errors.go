package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// Máquina de estados de unidades.
	ErrAlreadyReceived   = errors.New("la unidad ya fue recibida")
	ErrAlreadySold       = errors.New("la unidad ya fue vendida")
	ErrUnitNotAvailable  = errors.New("la unidad no está disponible")
	ErrInvalidTransition = errors.New("transición de estado no permitida")

	// Ensamble por fases.
	ErrWrongPhase         = errors.New("el producto escaneado no corresponde a la fase actual")
	ErrPhaseIncomplete    = errors.New("la fase actual no está completa")
	ErrPhaseFull          = errors.New("la fase actual ya tiene todas sus unidades")
	ErrAssemblyIncomplete = errors.New("el ensamble tiene fases incompletas")
	ErrAssemblyClosed     = errors.New("el ensamble ya fue cerrado")

	ErrQRExhausted          = errors.New("no se pudo generar un código QR único")
	ErrShopifyNotConfigured = errors.New("shopify no configurado para la organización")
)

// StatusError indica que una entidad no está en el estado esperado por la operación.
// Unwrap devuelve el sentinel concreto (ErrAlreadyReceived, ErrUnitNotAvailable, ...).
type StatusError struct {
	Entity   string
	Ref      string
	Actual   string
	Expected []string
	Err      error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: estado actual %q, se esperaba [%s]: %v",
		e.Entity, e.Ref, e.Actual, strings.Join(e.Expected, ", "), e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// ValidationError error de validación de entrada con campo y mensaje legible.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Invalid construye un ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Shortage faltante de inventario para un producto.
type Shortage struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

// ShortageError lista los productos sin inventario suficiente.
type ShortageError struct {
	Shortages []Shortage
}

func (e *ShortageError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s: solicitado %d, disponible %d", s.ProductName, s.Requested, s.Available))
	}
	return "inventario insuficiente (" + strings.Join(parts, "; ") + ")"
}

func (e *ShortageError) Unwrap() error { return ErrInsufficientStock }

// MissingSKUError SKUs externos sin producto local.
type MissingSKUError struct {
	SKUs []string
}

func (e *MissingSKUError) Error() string {
	return "SKUs sin producto asociado: " + strings.Join(e.SKUs, ", ")
}

func (e *MissingSKUError) Unwrap() error { return ErrNotFound }
