package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vigilo-edu/vigilo-go-api/internal/utils"
)

// Role gates understood by WithAuth.
const (
	AuthRoleAny     = "any"
	AuthRoleAdmin   = "admin"
	AuthRoleTeacher = "teacher"
	AuthRoleStudent = "student"
)

// AuthOptions controls the guard applied by WithAuth. Naming a concrete Role
// implies RequireUser.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth wraps a handler with an identity and role gate. It assumes an
// upstream middleware has already resolved the token into user_id and
// user_role locals.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}
	requireUser := opts.RequireUser || role != AuthRoleAny

	return func(c *fiber.Ctx) error {
		if requireUser && c.Locals("user_id") == nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		if !roleSatisfies(role, normalizeRoleValue(c.Locals("user_role"))) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return handler(c)
	}
}

// roleSatisfies implements the role lattice. Admins count as teachers; every
// other gate requires an exact match.
func roleSatisfies(required, current string) bool {
	switch required {
	case AuthRoleAny:
		return true
	case AuthRoleTeacher:
		return current == AuthRoleTeacher || current == AuthRoleAdmin
	default:
		return current == required
	}
}
