package handlers

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"

	"credvault/internal/crypto"
	httpctx "credvault/internal/http/ctx"
	"credvault/internal/vault"
)

type upsertRequest struct {
	Service     string `json:"service"`
	KeyValue    string `json:"keyValue"`
	SecretValue string `json:"secretValue,omitempty"`
}

func requestInfo(ctx *fasthttp.RequestCtx) vault.RequestInfo {
	return vault.RequestInfo{
		UserAgent: string(ctx.Request.Header.UserAgent()),
		IPAddress: ctx.RemoteIP().String(),
	}
}

func pathService(ctx *fasthttp.RequestCtx) string {
	if v, ok := ctx.UserValue("service").(string); ok {
		return v
	}
	return ""
}

func writeVaultError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, vault.ErrNotFound):
		errResponse(ctx, fasthttp.StatusNotFound, "credential not found")
	case errors.Is(err, vault.ErrCrypto):
		errResponse(ctx, fasthttp.StatusInternalServerError, "crypto failure")
	default:
		errResponse(ctx, fasthttp.StatusInternalServerError, "persistence failure")
	}
}

// ListCredentials returns every credential with masked secret values.
func ListCredentials(v *vault.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		records, err := v.ListAll()
		observeVaultOp("list", err)
		if err != nil {
			writeVaultError(ctx, err)
			return
		}
		jsonResponse(ctx, records)
	}
}

// GetCredential returns one credential by service, masked. Plaintext
// secrets never leave the vault over HTTP.
func GetCredential(v *vault.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		service := pathService(ctx)
		rec, err := v.Get(service)
		observeVaultOp("get", err)
		if err != nil {
			writeVaultError(ctx, err)
			return
		}
		if rec == nil {
			errResponse(ctx, fasthttp.StatusNotFound, "credential not found")
			return
		}

		masked := vault.MaskedCredential{
			ID:        rec.ID,
			Service:   rec.Service,
			KeyValue:  crypto.Mask(rec.KeyValue),
			IsActive:  rec.IsActive,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
			LastUsed:  rec.LastUsed,
		}
		if rec.SecretValue != "" {
			masked.SecretValue = crypto.Mask(rec.SecretValue)
		}
		jsonResponse(ctx, masked)
	}
}

// UpsertCredential creates or updates the credential for a service.
// The service name comes from the path (PUT) or the body (POST).
func UpsertCredential(v *vault.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req upsertRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		service := pathService(ctx)
		if service == "" {
			service = req.Service
		}
		if service == "" || req.KeyValue == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "service and keyValue required")
			return
		}

		masked, err := v.Upsert(service, req.KeyValue, req.SecretValue, httpctx.UserID(ctx), requestInfo(ctx))
		observeVaultOp("upsert", err)
		if err != nil {
			writeVaultError(ctx, err)
			return
		}
		jsonResponse(ctx, masked)
	}
}

// DeleteCredential removes the credential for a service. The audit
// history for the service remains queryable afterwards.
func DeleteCredential(v *vault.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		err := v.Delete(pathService(ctx), httpctx.UserID(ctx), requestInfo(ctx))
		observeVaultOp("delete", err)
		if err != nil {
			writeVaultError(ctx, err)
			return
		}
		jsonResponse(ctx, map[string]any{"success": true})
	}
}

// TestCredential proves the stored credential decrypts cleanly and
// stamps its lastUsed timestamp.
func TestCredential(v *vault.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		msg, err := v.Test(pathService(ctx), httpctx.UserID(ctx), requestInfo(ctx))
		observeVaultOp("test", err)
		if err != nil {
			writeVaultError(ctx, err)
			return
		}
		jsonResponse(ctx, map[string]any{"success": true, "message": msg})
	}
}
