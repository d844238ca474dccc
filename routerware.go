package session

import (
	"net/http"

	"github.com/goliatone/go-router"
)

// RouterGuardConfig configures the go-router guard middleware.
type RouterGuardConfig struct {
	Manager *Manager
	// Allow restricts the wrapped routes to these roles; empty admits every
	// authenticated user
	Allow AllowList
	// Paths carries the login/landing redirect targets
	Paths GuardPaths
	// ContextKey is the Locals key the current user is stored under;
	// defaults to "session_user"
	ContextKey string
	// RetryAfter is the Retry-After header value (seconds) sent while the
	// session is still settling; defaults to 1
	RetryAfter string
	Logger     Logger
}

const defaultRouterContextKey = "session_user"

// RouterGuard returns a go-router middleware enforcing the guard decision
// table on each request:
//
//   - content: the user lands in Locals and the request context, then Next
//   - nothing (session still settling): 503 with a Retry-After header
//   - redirect: 303/302 to the decision target
func RouterGuard(cfg RouterGuardConfig) router.MiddlewareFunc {
	paths := cfg.Paths.withDefaults()
	contextKey := cfg.ContextKey
	if contextKey == "" {
		contextKey = defaultRouterContextKey
	}
	retryAfter := cfg.RetryAfter
	if retryAfter == "" {
		retryAfter = "1"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = defLogger{}
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			state := cfg.Manager.State()
			decision := Evaluate(state, cfg.Allow, paths)

			switch decision.Mode {
			case RenderContent:
				ctx.Locals(contextKey, state.User)
				ctx.SetContext(WithUserContext(WithStateContext(ctx.Context(), state), state.User))
				return ctx.Next()
			case RenderRedirect:
				logger.Debug("guard middleware redirecting", "target", decision.Target, "path", ctx.OriginalURL())
				statusCode := http.StatusSeeOther
				if ctx.Method() == string(router.GET) {
					statusCode = http.StatusFound
				}
				return ctx.Redirect(decision.Target, statusCode)
			default:
				ctx.SetHeader("Retry-After", retryAfter)
				return ctx.Status(http.StatusServiceUnavailable).SendString("session state pending")
			}
		}
	}
}
