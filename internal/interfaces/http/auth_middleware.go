package http

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/pkg/jwt"
)

// Locals keys para UserID, CompanyID (organización) y Role en Fiber.
const (
	LocalUserID     = "user_id"
	LocalCompanyID  = "company_id"
	LocalRole       = "role"
	LocalCustomerID = "customer_id"
)

// WebhookSecretHeader cabecera con el secreto compartido entre bodega y portal.
const WebhookSecretHeader = "X-Webhook-Secret"

// AuthMiddleware valida el Bearer Token JWT y extrae UserID, CompanyID y Role a c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.FailCode("MISSING_TOKEN", "Authorization header requerido"))
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.FailCode("INVALID_TOKEN", "formato: Bearer <token>"))
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.FailCode("MISSING_TOKEN", "token vacío"))
		}
		userID, companyID, role, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.FailCode("INVALID_TOKEN", "token inválido o expirado"))
		}
		c.Locals(LocalUserID, userID)
		c.Locals(LocalCompanyID, companyID)
		c.Locals(LocalRole, role)
		return c.Next()
	}
}

// RequireRole deja pasar sólo a los roles indicados. Debe usarse DESPUÉS de AuthMiddleware.
//   - 401 si el token no trae rol o no trae organización.
//   - 403 si el rol no está permitido.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.FailCode("MISSING_ROLE", "el token no incluye rol"))
		}
		if _, ok := allowed[role]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(dto.FailCode("FORBIDDEN", "el rol '"+role+"' no tiene acceso a este recurso"))
		}
		if GetCompanyID(c) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.FailCode("UNAUTHORIZED", "company_id no encontrado en el token"))
		}
		return c.Next()
	}
}

// PortalSession lee (si existe) la cookie de sesión del portal y deja el id del cliente en c.Locals.
// Nunca rechaza: sin cookie válida la petición sigue como anónima.
func PortalSession(jwtSecret, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(cookieName)
		if raw == "" {
			return c.Next()
		}
		claims, err := jwt.ParseClaims(jwtSecret, raw)
		if err == nil && claims.Role == jwt.RoleCustomer {
			c.Locals(LocalCustomerID, claims.UserID)
		}
		return c.Next()
	}
}

// WebhookSecret compara en tiempo constante la cabecera X-Webhook-Secret. Un secreto vacío rechaza todo.
func WebhookSecret(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get(WebhookSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.WarehouseSyncResponse{Error: "secreto de webhook inválido"})
		}
		return c.Next()
	}
}

func localString(c *fiber.Ctx, key string) string {
	s, _ := c.Locals(key).(string)
	return s
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string { return localString(c, LocalUserID) }

// GetCompanyID devuelve la organización del contexto (después del middleware de auth).
func GetCompanyID(c *fiber.Ctx) string { return localString(c, LocalCompanyID) }

// GetRole devuelve el rol del contexto.
func GetRole(c *fiber.Ctx) string { return localString(c, LocalRole) }

// GetCustomerID cliente del portal; vacío si la petición es anónima.
func GetCustomerID(c *fiber.Ctx) string { return localString(c, LocalCustomerID) }
