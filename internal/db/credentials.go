package db

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// CredentialStore is the keyed persistence surface the vault needs:
// find/create/update/delete by service, nothing more. Tests substitute
// an in-memory implementation.
type CredentialStore interface {
	// FindByService returns (nil, nil) when no record exists.
	FindByService(service string) (*Credential, error)
	// FindAll returns every record ordered by service name.
	FindAll() ([]Credential, error)
	Create(c *Credential) error
	Update(c *Credential) error
	DeleteByService(service string) error
	// TouchLastUsed stamps last_used without touching other columns.
	TouchLastUsed(service string, at time.Time) error
}

type gormCredentialStore struct {
	db *gorm.DB
}

// NewCredentialStore returns a CredentialStore backed by GORM.
func NewCredentialStore(db *gorm.DB) CredentialStore {
	return &gormCredentialStore{db: db}
}

func (s *gormCredentialStore) FindByService(service string) (*Credential, error) {
	var c Credential
	err := s.db.Where("service = ?", service).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *gormCredentialStore) FindAll() ([]Credential, error) {
	var list []Credential
	if err := s.db.Order("service asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (s *gormCredentialStore) Create(c *Credential) error {
	return s.db.Create(c).Error
}

func (s *gormCredentialStore) Update(c *Credential) error {
	return s.db.Save(c).Error
}

func (s *gormCredentialStore) DeleteByService(service string) error {
	return s.db.Where("service = ?", service).Delete(&Credential{}).Error
}

func (s *gormCredentialStore) TouchLastUsed(service string, at time.Time) error {
	return s.db.Model(&Credential{}).Where("service = ?", service).Update("last_used", at).Error
}
