package session

import (
	"github.com/gofiber/fiber/v2"
)

// FiberGuardConfig configures the fiber guard handler.
type FiberGuardConfig struct {
	Manager *Manager
	Allow   AllowList
	Paths   GuardPaths
	// ContextKey is the Locals key the current user is stored under;
	// defaults to "session_user"
	ContextKey string
	Logger     Logger
}

// FiberGuard returns a fiber middleware mirroring RouterGuard for apps
// mounted directly on fiber.
func FiberGuard(cfg FiberGuardConfig) fiber.Handler {
	paths := cfg.Paths.withDefaults()
	contextKey := cfg.ContextKey
	if contextKey == "" {
		contextKey = defaultRouterContextKey
	}
	logger := cfg.Logger
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx) error {
		state := cfg.Manager.State()
		decision := Evaluate(state, cfg.Allow, paths)

		switch decision.Mode {
		case RenderContent:
			c.Locals(contextKey, state.User)
			c.SetUserContext(WithUserContext(WithStateContext(c.UserContext(), state), state.User))
			return c.Next()
		case RenderRedirect:
			logger.Debug("guard middleware redirecting", "target", decision.Target, "path", c.OriginalURL())
			statusCode := fiber.StatusSeeOther
			if c.Method() == fiber.MethodGet {
				statusCode = fiber.StatusFound
			}
			return c.Redirect(decision.Target, statusCode)
		default:
			c.Set(fiber.HeaderRetryAfter, "1")
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}
	}
}
