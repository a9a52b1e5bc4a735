package handlers

import (
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"credvault/internal/audit"
	"credvault/internal/db"
)

type auditEntry struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Service   string         `json:"service"`
	APIKeyID  string         `json:"apiKeyId,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
	IPAddress string         `json:"ipAddress,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// AuditLogs returns audit entries newest first, optionally filtered by
// the service query parameter and paginated via limit/offset.
func AuditLogs(auditLog *audit.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		service := string(ctx.QueryArgs().Peek("service"))
		limit, _ := strconv.Atoi(string(ctx.QueryArgs().Peek("limit")))
		offset, _ := strconv.Atoi(string(ctx.QueryArgs().Peek("offset")))

		entries, err := auditLog.Query(service, limit, offset)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to fetch audit logs")
			return
		}

		out := make([]auditEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, toAuditEntry(e))
		}
		jsonResponse(ctx, out)
	}
}

func toAuditEntry(e db.AuditLog) auditEntry {
	return auditEntry{
		ID:        e.ID,
		Action:    e.Action,
		Service:   e.Service,
		APIKeyID:  e.APIKeyID,
		UserID:    e.UserID,
		UserAgent: e.UserAgent,
		IPAddress: e.IPAddress,
		Metadata:  e.Metadata,
		Timestamp: e.Timestamp,
	}
}
