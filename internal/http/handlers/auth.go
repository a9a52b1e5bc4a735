package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"credvault/internal/db"
	"credvault/internal/token"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges a username and password for a signed identity token.
// Admin tooling calls this once and carries the token as a bearer
// credential on every subsequent vault request.
func Login(database *gorm.DB, tokens *token.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req loginRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Username == "" || req.Password == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "username and password required")
			return
		}

		user, err := db.FindUserByUsername(database, req.Username)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}
		if user == nil {
			errResponse(ctx, fasthttp.StatusUnauthorized, "invalid username or password")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			errResponse(ctx, fasthttp.StatusUnauthorized, "invalid username or password")
			return
		}

		role := token.RoleUser
		if user.IsAdmin {
			role = token.RoleAdmin
		}

		signed, err := tokens.Issue(strconv.Itoa(int(user.ID)), role, user.Email)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to issue token")
			return
		}

		jsonResponse(ctx, map[string]any{
			"token":     signed,
			"role":      role,
			"expiresIn": int(token.TTL.Seconds()),
		})
	}
}
