package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/authgate/authz"
	"github.com/fieldserve/authgate/credstore"
	"github.com/fieldserve/authgate/services"
)

// SessionCookie names the cookie carrying the browser's session id.
const SessionCookie = "authgate_session"

// Context keys set by the guard for downstream handlers.
const (
	ContextSessionID = "session_id"
	ContextUserRole  = "user_role"
)

// GuardSpec is one route's access requirements. Roles are checked
// before Permissions; failing the role list short-circuits to
// unauthorized without evaluating the permission list. A spec with
// neither list allows any authenticated session unless DenyByDefault
// is set on the Guard.
type GuardSpec struct {
	Roles       []string
	Permissions []string
}

// defaultRefreshLeeway is how close to expiry an access token may get
// before the guard exchanges it proactively.
const defaultRefreshLeeway = 30 * time.Second

// Guard is the route guard middleware factory. Decision ladder per
// request: loading, unauthenticated, bypass role, role list, permission
// list, default. Authorization outcomes are redirects, never errors.
type Guard struct {
	Sessions *credstore.Sessions

	// Refresher, when set, lets the guard refresh an expiring access
	// token before evaluating the request instead of waiting for the
	// upstream 401.
	Refresher *services.Refresher

	// RefreshLeeway overrides defaultRefreshLeeway when positive.
	RefreshLeeway time.Duration

	// DenyByDefault flips the documented default-allow behavior for
	// routes that specify neither roles nor permissions.
	DenyByDefault bool
}

func NewGuard(sessions *credstore.Sessions) *Guard {
	return &Guard{Sessions: sessions}
}

// Require builds the middleware for one route.
func (g *Guard) Require(spec GuardSpec) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookie)
		if err != nil || id == "" {
			g.toLogin(c)
			return
		}

		creds := g.Sessions.Bind(id)
		ctx := c.Request.Context()

		// Refresh an access token nearing expiry before deciding, so
		// the proxied request does not bounce off the upstream 401. A
		// failed exchange has already cleared the record.
		if g.Refresher != nil {
			if token, err := creds.Token(ctx); err == nil && token != "" && services.TokenExpired(token, g.leeway()) {
				if _, err := g.Refresher.Refresh(ctx, creds); err != nil {
					g.toLogin(c)
					return
				}
			}
		}

		snap := authz.NewEvaluator(creds).Take(ctx)

		// Permissions still hydrating: hold the decision rather than
		// flashing unauthorized.
		if snap.Loading {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"status":  "Error",
				"message": "permissions are still loading",
			})
			return
		}
		// A failure that left the permission set unreadable is a 503,
		// never a denial: a store blip must not read as unauthorized.
		// When the stored set was materialized, a stale sync error flag
		// does not block the decision.
		if snap.Err != nil && snap.Permissions == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"status":  "Error",
				"message": "session store unavailable",
			})
			return
		}

		// Absent access token is authoritative over every other field.
		if !snap.Authenticated {
			g.toLogin(c)
			return
		}

		if authz.IsBypass(snap.Role) {
			g.admit(c, id, snap.Role)
			return
		}

		if len(spec.Roles) > 0 && !roleAllowed(snap.Role, spec.Roles) {
			g.toUnauthorized(c)
			return
		}

		if len(spec.Permissions) > 0 && !snap.HasAnyPermission(spec.Permissions...) {
			g.toUnauthorized(c)
			return
		}

		if len(spec.Roles) == 0 && len(spec.Permissions) == 0 && g.DenyByDefault {
			g.toUnauthorized(c)
			return
		}

		g.admit(c, id, snap.Role)
	}
}

func (g *Guard) leeway() time.Duration {
	if g.RefreshLeeway > 0 {
		return g.RefreshLeeway
	}
	return defaultRefreshLeeway
}

func roleAllowed(role string, allowed []string) bool {
	for _, r := range allowed {
		if credstore.NormalizeRole(r) == role {
			return true
		}
	}
	return false
}

func (g *Guard) admit(c *gin.Context, sessionID, role string) {
	c.Set(ContextSessionID, sessionID)
	c.Set(ContextUserRole, role)
	c.Next()
}

func (g *Guard) toLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, services.RouteLogin)
	c.Abort()
}

func (g *Guard) toUnauthorized(c *gin.Context) {
	c.Redirect(http.StatusFound, services.RouteUnauthorized)
	c.Abort()
}
