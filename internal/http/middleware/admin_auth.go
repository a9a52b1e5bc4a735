package middleware

import (
	"strings"

	"github.com/valyala/fasthttp"

	"credvault/internal/auth"
	httpctx "credvault/internal/http/ctx"
	"credvault/internal/http/handlers"
)

// ClientID derives the rate-limit identity from proxy headers: first
// populated of X-Forwarded-For (first hop), X-Real-IP, X-Client-IP.
// Unidentified clients all share the "unknown" bucket; a low effective
// ceiling for them is accepted.
func ClientID(ctx *fasthttp.RequestCtx) string {
	if v := ctx.Request.Header.Peek("X-Forwarded-For"); len(v) > 0 {
		ip := string(v)
		if idx := strings.IndexByte(ip, ','); idx != -1 {
			ip = ip[:idx]
		}
		return strings.TrimSpace(ip)
	}
	if v := ctx.Request.Header.Peek("X-Real-IP"); len(v) > 0 {
		return string(v)
	}
	if v := ctx.Request.Header.Peek("X-Client-IP"); len(v) > 0 {
		return string(v)
	}
	return "unknown"
}

// AdminAuth returns middleware that admits only authenticated admin
// requests. Denials carry the authenticator's status code and a short
// machine-readable reason; on success the actor id is stored on the
// request context.
func AdminAuth(authn *auth.Authenticator) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			dec := authn.Authorize(auth.Request{
				ClientID:      ClientID(ctx),
				Authorization: string(ctx.Request.Header.Peek("Authorization")),
				Method:        string(ctx.Method()),
				Path:          string(ctx.Path()),
				UserAgent:     string(ctx.Request.Header.UserAgent()),
				IPAddress:     ctx.RemoteIP().String(),
			})
			handlers.ObserveAdmission(dec.Status, dec.Allowed)
			if !dec.Allowed {
				ctx.SetStatusCode(dec.Status)
				ctx.SetContentType("application/json")
				ctx.SetBodyString(`{"error":"` + dec.Reason + `"}`)
				return
			}

			httpctx.SetUserID(ctx, dec.UserID)
			next(ctx)
		}
	}
}
