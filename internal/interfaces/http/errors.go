package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/domain"
)

const genericError = "error interno, intente más tarde"

// statusFor traduce errores de dominio a códigos HTTP. 0 = error no esperado.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrWrongPhase),
		errors.Is(err, domain.ErrPhaseIncomplete),
		errors.Is(err, domain.ErrAssemblyIncomplete):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicate),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrAlreadyReceived),
		errors.Is(err, domain.ErrAlreadySold),
		errors.Is(err, domain.ErrUnitNotAvailable),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrPhaseFull),
		errors.Is(err, domain.ErrAssemblyClosed),
		errors.Is(err, domain.ErrShopifyNotConfigured):
		return fiber.StatusConflict
	}
	return 0
}

// respondError escribe el ActionResult de error. Los errores de dominio viajan con su mensaje;
// el resto se registra y el cliente recibe un mensaje genérico.
func respondError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	if status := statusFor(err); status != 0 {
		res := dto.Fail(err.Error())
		var shortage *domain.ShortageError
		if errors.As(err, &shortage) {
			res.Data = shortageLines(shortage)
		}
		return c.Status(status).JSON(res)
	}
	log.Error().Err(err).
		Str("method", c.Method()).
		Str("route", c.Route().Path).
		Str("org_id", GetCompanyID(c)).
		Msg("error no controlado")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.Fail(genericError))
}

type shortageLine struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

func shortageLines(e *domain.ShortageError) []shortageLine {
	out := make([]shortageLine, len(e.Shortages))
	for i, s := range e.Shortages {
		out[i] = shortageLine{ProductID: s.ProductID, ProductName: s.ProductName, Requested: s.Requested, Available: s.Available}
	}
	return out
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.FailCode("INVALID_BODY", "cuerpo inválido"))
}
