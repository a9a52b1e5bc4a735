package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Credential stores one external service's secret pair, encrypted at
// rest. KeyValue and SecretValue hold crypto blobs (salt:iv:ciphertext),
// never plaintext and never masked display forms.
type Credential struct {
	ID string `gorm:"primaryKey;size:36"`

	// Service is the natural key (e.g. "payment-gateway"). At most one
	// live row exists per service; upserts update in place.
	Service string `gorm:"uniqueIndex;size:128;not null"`

	KeyValue    string `gorm:"not null"`
	SecretValue string

	IsActive bool `gorm:"default:true"`

	// Actor identifiers; empty in non-authenticated/dev contexts.
	CreatedBy string `gorm:"size:64"`
	UpdatedBy string `gorm:"size:64"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// LastUsed is stamped on successful use, not on mutation.
	LastUsed *time.Time
}

func (c *Credential) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// AuditLog is an append-only record of one vault or authentication
// event. There is no update or delete path; APIKeyID is a weak
// reference, entries outlive the credential they point at.
type AuditLog struct {
	ID string `gorm:"primaryKey;size:36"`

	Action  string `gorm:"size:32;not null;index"`
	Service string `gorm:"size:128;not null;index"`

	APIKeyID string `gorm:"size:36"`
	UserID   string `gorm:"size:64"`

	UserAgent string `gorm:"size:256"`
	IPAddress string `gorm:"size:64"`

	Metadata datatypes.JSONMap `gorm:"type:json"`

	Timestamp time.Time `gorm:"index;not null"`
}

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	return nil
}

// User is an administrator able to exchange credentials for a signed
// token. The bootstrap admin (from env) is created as a row in this
// table on startup.
type User struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Username     string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Email        string `gorm:"size:128"`

	// IsAdmin grants access to the vault and audit endpoints.
	IsAdmin bool `gorm:"default:false"`
}
