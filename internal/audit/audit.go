package audit

import (
	"log"

	"gorm.io/datatypes"

	"credvault/internal/db"
)

// Actions recorded against vault and authentication events.
const (
	ActionCreate      = "CREATE"
	ActionUpdate      = "UPDATE"
	ActionDelete      = "DELETE"
	ActionUse         = "USE"
	ActionTest        = "TEST"
	ActionTestFailed  = "TEST_FAILED"
	ActionAdminAccess = "ADMIN_ACCESS"
)

// ServiceAuth is the logical service name for authentication-only
// events that do not reference a stored credential.
const ServiceAuth = "AUTH"

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 500
)

// Event describes one observed action. APIKeyID, UserID and the
// provenance fields may be empty.
type Event struct {
	Action    string
	Service   string
	APIKeyID  string
	UserID    string
	UserAgent string
	IPAddress string
	Metadata  map[string]any
}

// Logger records audit events. Record deliberately returns nothing:
// append failures are written to the process log and never reach the
// caller, so a broken audit store cannot fail the operation that
// triggered the entry.
type Logger struct {
	store db.AuditStore
}

func NewLogger(store db.AuditStore) *Logger {
	return &Logger{store: store}
}

// Record appends one entry, best effort.
func (l *Logger) Record(ev Event) {
	entry := &db.AuditLog{
		Action:    ev.Action,
		Service:   ev.Service,
		APIKeyID:  ev.APIKeyID,
		UserID:    ev.UserID,
		UserAgent: ev.UserAgent,
		IPAddress: ev.IPAddress,
	}
	if ev.Metadata != nil {
		entry.Metadata = datatypes.JSONMap(ev.Metadata)
	}
	if err := l.store.Append(entry); err != nil {
		log.Printf("audit: failed to record %s for %s: %v", ev.Action, ev.Service, err)
	}
}

// Query returns entries newest first. An empty service matches all
// services; limit is clamped to a sane range.
func (l *Logger) Query(service string, limit, offset int) ([]db.AuditLog, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return l.store.Query(service, limit, offset)
}
