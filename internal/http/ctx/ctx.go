package ctx

import (
	"github.com/valyala/fasthttp"
)

const UserIDKey = "authUserID"

// SetUserID stores the authenticated actor id for downstream handlers.
func SetUserID(ctx *fasthttp.RequestCtx, userID string) {
	ctx.SetUserValue(UserIDKey, userID)
}

// UserID returns the authenticated actor id, or "" when the request was
// admitted without one (dev bypass).
func UserID(ctx *fasthttp.RequestCtx) string {
	v := ctx.UserValue(UserIDKey)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
