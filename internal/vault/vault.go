package vault

import (
	"errors"
	"fmt"
	"log"
	"time"

	"credvault/internal/audit"
	"credvault/internal/crypto"
	"credvault/internal/db"
)

var (
	// ErrNotFound means no credential exists for the service.
	ErrNotFound = errors.New("credential not found")
	// ErrCrypto wraps blob format and decryption failures.
	ErrCrypto = errors.New("crypto failure")
	// ErrPersistence wraps store failures.
	ErrPersistence = errors.New("persistence failure")
)

// RequestInfo carries caller provenance into audit entries.
type RequestInfo struct {
	UserAgent string
	IPAddress string
}

// MaskedCredential is the display-safe projection of a stored
// credential. Secrets are decrypted and immediately masked; the raw
// plaintext never appears in this shape.
type MaskedCredential struct {
	ID          string     `json:"id"`
	Service     string     `json:"service"`
	KeyValue    string     `json:"keyValue"`
	SecretValue string     `json:"secretValue,omitempty"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastUsed    *time.Time `json:"lastUsed,omitempty"`
}

// DecryptedCredential carries plaintext secrets for programmatic use.
// Only Get produces this; it must not be serialized into listings.
type DecryptedCredential struct {
	ID          string
	Service     string
	KeyValue    string
	SecretValue string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastUsed    *time.Time
}

// Service is the credential vault: CRUD over named credential records,
// encrypting at rest via the crypto engine and recording every action
// in the audit log.
type Service struct {
	store  db.CredentialStore
	engine *crypto.Engine
	log    *audit.Logger
	now    func() time.Time
}

func New(store db.CredentialStore, engine *crypto.Engine, auditLog *audit.Logger) *Service {
	return &Service{store: store, engine: engine, log: auditLog, now: time.Now}
}

// ListAll returns every credential with its secrets decrypted and
// immediately masked. Bulk listings never expose plaintext.
func (s *Service) ListAll() ([]MaskedCredential, error) {
	records, err := s.store.FindAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	out := make([]MaskedCredential, 0, len(records))
	for _, rec := range records {
		m := MaskedCredential{
			ID:        rec.ID,
			Service:   rec.Service,
			IsActive:  rec.IsActive,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
			LastUsed:  rec.LastUsed,
		}
		if rec.KeyValue != "" {
			plain, err := s.engine.Decrypt(rec.KeyValue)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrCrypto, rec.Service, err)
			}
			m.KeyValue = crypto.Mask(plain)
		}
		if rec.SecretValue != "" {
			plain, err := s.engine.Decrypt(rec.SecretValue)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrCrypto, rec.Service, err)
			}
			m.SecretValue = crypto.Mask(plain)
		}
		out = append(out, m)
	}
	return out, nil
}

// Get returns the fully decrypted record for programmatic use, or
// (nil, nil) when the service is unknown. It writes no audit entry and
// does not update lastUsed; callers record USE or TEST explicitly.
func (s *Service) Get(service string) (*DecryptedCredential, error) {
	rec, err := s.store.FindByService(service)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if rec == nil {
		return nil, nil
	}

	out := &DecryptedCredential{
		ID:        rec.ID,
		Service:   rec.Service,
		IsActive:  rec.IsActive,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		LastUsed:  rec.LastUsed,
	}
	if rec.KeyValue != "" {
		out.KeyValue, err = s.engine.Decrypt(rec.KeyValue)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCrypto, service, err)
		}
	}
	if rec.SecretValue != "" {
		out.SecretValue, err = s.engine.Decrypt(rec.SecretValue)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCrypto, service, err)
		}
	}
	return out, nil
}

// Upsert encrypts and stores the secrets for a service, updating in
// place when a record already exists (same id, same service) and
// creating one otherwise. Concurrent upserts for the same service are
// last-write-wins. Returns the masked values, never the raw ones.
func (s *Service) Upsert(service, keyValue, secretValue, actorID string, req RequestInfo) (*MaskedCredential, error) {
	encKey, err := s.engine.Encrypt(keyValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	encSecret := ""
	if secretValue != "" {
		encSecret, err = s.engine.Encrypt(secretValue)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
		}
	}

	existing, err := s.store.FindByService(service)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	meta := map[string]any{"hasSecretValue": secretValue != ""}

	var rec *db.Credential
	if existing != nil {
		existing.KeyValue = encKey
		existing.SecretValue = encSecret
		existing.UpdatedBy = actorID
		if err := s.store.Update(existing); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		rec = existing
		s.log.Record(audit.Event{
			Action:    audit.ActionUpdate,
			Service:   service,
			APIKeyID:  rec.ID,
			UserID:    actorID,
			UserAgent: req.UserAgent,
			IPAddress: req.IPAddress,
			Metadata:  meta,
		})
	} else {
		rec = &db.Credential{
			Service:     service,
			KeyValue:    encKey,
			SecretValue: encSecret,
			IsActive:    true,
			CreatedBy:   actorID,
		}
		if err := s.store.Create(rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		s.log.Record(audit.Event{
			Action:    audit.ActionCreate,
			Service:   service,
			APIKeyID:  rec.ID,
			UserID:    actorID,
			UserAgent: req.UserAgent,
			IPAddress: req.IPAddress,
			Metadata:  meta,
		})
	}

	masked := &MaskedCredential{
		ID:        rec.ID,
		Service:   rec.Service,
		KeyValue:  crypto.Mask(keyValue),
		IsActive:  rec.IsActive,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		LastUsed:  rec.LastUsed,
	}
	if secretValue != "" {
		masked.SecretValue = crypto.Mask(secretValue)
	}
	return masked, nil
}

// Delete removes the record for a service and records a DELETE entry
// referencing the removed record's id. ErrNotFound when no record
// exists; the credential's audit history is left intact.
func (s *Service) Delete(service, actorID string, req RequestInfo) error {
	existing, err := s.store.FindByService(service)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if existing == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, service)
	}

	if err := s.store.DeleteByService(service); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.log.Record(audit.Event{
		Action:    audit.ActionDelete,
		Service:   service,
		APIKeyID:  existing.ID,
		UserID:    actorID,
		UserAgent: req.UserAgent,
		IPAddress: req.IPAddress,
	})
	return nil
}

// TouchLastUsed stamps lastUsed and records a USE entry. Failures are
// logged and swallowed: marking use is secondary to whatever operation
// the caller is actually performing.
func (s *Service) TouchLastUsed(service, actorID string) {
	if err := s.store.TouchLastUsed(service, s.now()); err != nil {
		log.Printf("vault: failed to update last_used for %s: %v", service, err)
		return
	}
	s.log.Record(audit.Event{
		Action:  audit.ActionUse,
		Service: service,
		UserID:  actorID,
	})
}

// Test fetches and decrypts the credential to prove it is usable,
// recording TEST and stamping lastUsed on success, or TEST_FAILED with
// the error message before returning the failure.
func (s *Service) Test(service, actorID string, req RequestInfo) (string, error) {
	rec, err := s.Get(service)
	if err == nil && rec == nil {
		err = fmt.Errorf("%w: %s", ErrNotFound, service)
	}
	if err != nil {
		s.log.Record(audit.Event{
			Action:    audit.ActionTestFailed,
			Service:   service,
			UserID:    actorID,
			UserAgent: req.UserAgent,
			IPAddress: req.IPAddress,
			Metadata:  map[string]any{"error": err.Error()},
		})
		return "", err
	}

	s.log.Record(audit.Event{
		Action:    audit.ActionTest,
		Service:   service,
		APIKeyID:  rec.ID,
		UserID:    actorID,
		UserAgent: req.UserAgent,
		IPAddress: req.IPAddress,
	})
	s.TouchLastUsed(service, actorID)

	return "Key retrieved for testing", nil
}
