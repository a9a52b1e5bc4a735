package auth

import (
	"log"
	"strings"

	"github.com/valyala/fasthttp"

	"credvault/internal/audit"
	"credvault/internal/ratelimit"
	"credvault/internal/token"
)

// Request is the slice of an inbound HTTP request the authenticator
// needs to make an admission decision.
type Request struct {
	ClientID      string
	Authorization string
	Method        string
	Path          string
	UserAgent     string
	IPAddress     string
}

// Decision is the terminal admission state for one request: either
// Allowed with the authenticated identity, or denied with a reason and
// an HTTP status code the boundary translates verbatim.
type Decision struct {
	Allowed bool
	UserID  string
	Role    string
	Reason  string
	Status  int
}

// Authenticator orchestrates rate limiting, token verification, the
// role check and audit logging into a single admission decision.
type Authenticator struct {
	limiter *ratelimit.Limiter
	tokens  *token.Service
	log     *audit.Logger

	// bypass is a startup-time capability, never a runtime lookup.
	// config.Load refuses to produce a bypass-enabled production
	// config, so a deployed binary cannot carry it.
	bypass bool
}

func NewAuthenticator(limiter *ratelimit.Limiter, tokens *token.Service, auditLog *audit.Logger, bypass bool) *Authenticator {
	return &Authenticator{limiter: limiter, tokens: tokens, log: auditLog, bypass: bypass}
}

func denied(reason string, status int) Decision {
	return Decision{Reason: reason, Status: status}
}

// Authorize runs the admission sequence for one administrative request.
// Any panic during the sequence collapses to a generic 500 denial so no
// internal detail reaches the caller.
func (a *Authenticator) Authorize(req Request) (dec Decision) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("auth: admission error: %v", r)
			dec = denied("authentication service error", fasthttp.StatusInternalServerError)
		}
	}()

	if !a.limiter.Allow(req.ClientID) {
		return denied("rate limit exceeded", fasthttp.StatusTooManyRequests)
	}

	if a.bypass {
		return Decision{Allowed: true, UserID: "dev", Role: token.RoleAdmin}
	}

	raw, ok := bearerToken(req.Authorization)
	if !ok {
		return denied("missing or invalid Authorization header", fasthttp.StatusUnauthorized)
	}

	claims, err := a.tokens.Verify(raw)
	if err != nil {
		// The precise reason stays in the log; callers get a generic denial.
		log.Printf("auth: token rejected for %s %s: %v", req.Method, req.Path, err)
		return denied("authentication failed", fasthttp.StatusUnauthorized)
	}

	if claims.Role != token.RoleAdmin {
		return denied("insufficient permissions", fasthttp.StatusForbidden)
	}

	a.log.Record(audit.Event{
		Action:    audit.ActionAdminAccess,
		Service:   audit.ServiceAuth,
		UserID:    claims.UserID,
		UserAgent: req.UserAgent,
		IPAddress: req.IPAddress,
		Metadata:  map[string]any{"endpoint": req.Path, "method": req.Method},
	})

	return Decision{Allowed: true, UserID: claims.UserID, Role: claims.Role}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	t := strings.TrimSpace(header[len(prefix):])
	return t, t != ""
}
