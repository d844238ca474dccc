package session

import (
	"sync"
)

// RenderMode is the guard's verdict for a protected surface.
type RenderMode int

const (
	// RenderNothing holds the surface blank while the session settles,
	// avoiding a flash of unauthenticated content
	RenderNothing RenderMode = iota
	// RenderContent shows the guarded content
	RenderContent
	// RenderRedirect requests navigation to Decision.Target
	RenderRedirect
)

func (m RenderMode) String() string {
	switch m {
	case RenderContent:
		return "content"
	case RenderRedirect:
		return "redirect"
	default:
		return "nothing"
	}
}

// Decision is the outcome of evaluating a guard against the session state.
type Decision struct {
	Mode   RenderMode
	Target string
}

// GuardPaths carries the two navigation targets a guard can emit.
type GuardPaths struct {
	// LoginPath receives unauthenticated visitors
	LoginPath string
	// LandingPath receives authenticated users whose role misses the allow-list
	LandingPath string
}

const (
	defaultLoginPath   = "/login"
	defaultLandingPath = "/dashboard"
)

func (p GuardPaths) withDefaults() GuardPaths {
	if p.LoginPath == "" {
		p.LoginPath = defaultLoginPath
	}
	if p.LandingPath == "" {
		p.LandingPath = defaultLandingPath
	}
	return p
}

// GuardPathsFromConfig builds GuardPaths from a Config.
func GuardPathsFromConfig(cfg Config) GuardPaths {
	paths := GuardPaths{}
	if cfg != nil {
		paths.LoginPath = cfg.GetLoginPath()
		paths.LandingPath = cfg.GetLandingPath()
	}
	return paths.withDefaults()
}

// Evaluate is the guard decision table as a pure function:
//
//	Unknown/Loading                    -> RenderNothing
//	Unauthenticated                    -> Redirect(login)
//	Authenticated, role allowed        -> RenderContent
//	Authenticated, role not in list    -> Redirect(landing)
//
// An empty allow-list admits every authenticated user.
func Evaluate(state State, allow AllowList, paths GuardPaths) Decision {
	paths = paths.withDefaults()

	switch state.Status {
	case StatusUnknown, StatusLoading:
		return Decision{Mode: RenderNothing}
	case StatusAuthenticated:
		if state.User == nil {
			// defensive: an authenticated state with no user is a bug
			// upstream, treat it as not yet settled
			return Decision{Mode: RenderNothing}
		}
		if allow.Allows(state.User.Role) {
			return Decision{Mode: RenderContent}
		}
		return Decision{Mode: RenderRedirect, Target: paths.LandingPath}
	default:
		return Decision{Mode: RenderRedirect, Target: paths.LoginPath}
	}
}

// GuardOption customizes Guard construction.
type GuardOption func(*Guard)

// WithGuardPaths overrides the redirect targets.
func WithGuardPaths(paths GuardPaths) GuardOption {
	return func(g *Guard) {
		g.paths = paths.withDefaults()
	}
}

// WithGuardAllowList restricts the guarded surface to the given roles.
func WithGuardAllowList(allow AllowList) GuardOption {
	return func(g *Guard) {
		g.allow = allow
	}
}

// WithGuardLogger overrides the logger.
func WithGuardLogger(logger Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// Guard watches a Manager and keeps one protected surface's render decision
// current. It re-evaluates on every state change, forwards redirect intents
// to the Navigator, and never re-triggers navigation to a target already in
// flight.
type Guard struct {
	mu           sync.Mutex
	manager      *Manager
	navigator    Navigator
	allow        AllowList
	paths        GuardPaths
	logger       Logger
	decision     Decision
	lastRedirect string
	unsubscribe  func()
}

// NewGuard attaches a guard to the manager. The returned guard already holds
// a decision for the manager's current state; call Close to detach.
func NewGuard(manager *Manager, navigator Navigator, opts ...GuardOption) *Guard {
	g := &Guard{
		manager:   manager,
		navigator: navigator,
		paths:     GuardPaths{}.withDefaults(),
		logger:    defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	g.unsubscribe = manager.Subscribe(func(state State) {
		g.evaluate(state)
	})

	g.evaluate(manager.State())

	return g
}

// Decision returns the guard's current decision.
func (g *Guard) Decision() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decision
}

// Close detaches the guard from the manager.
func (g *Guard) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
}

func (g *Guard) evaluate(state State) {
	g.mu.Lock()

	decision := Evaluate(state, g.allow, g.paths)
	g.decision = decision

	if decision.Mode != RenderRedirect {
		// a settled non-redirect decision re-arms navigation
		if decision.Mode == RenderContent {
			g.lastRedirect = ""
		}
		g.mu.Unlock()
		return
	}

	if decision.Target == g.lastRedirect {
		// already navigating there, repeated evaluation stays idempotent
		g.mu.Unlock()
		return
	}

	g.lastRedirect = decision.Target
	navigator := g.navigator
	g.mu.Unlock()

	if navigator != nil {
		g.logger.Debug("guard redirecting", "target", decision.Target)
		navigator.Navigate(decision.Target)
	}
}
