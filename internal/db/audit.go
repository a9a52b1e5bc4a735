package db

import (
	"gorm.io/gorm"
)

// AuditStore appends and queries audit log entries. Append-only: there
// is deliberately no update or delete method.
type AuditStore interface {
	Append(entry *AuditLog) error
	// Query returns entries newest first. An empty service matches all
	// services.
	Query(service string, limit, offset int) ([]AuditLog, error)
}

type gormAuditStore struct {
	db *gorm.DB
}

// NewAuditStore returns an AuditStore backed by GORM.
func NewAuditStore(db *gorm.DB) AuditStore {
	return &gormAuditStore{db: db}
}

func (s *gormAuditStore) Append(entry *AuditLog) error {
	return s.db.Create(entry).Error
}

func (s *gormAuditStore) Query(service string, limit, offset int) ([]AuditLog, error) {
	q := s.db.Order("timestamp desc").Limit(limit).Offset(offset)
	if service != "" {
		q = q.Where("service = ?", service)
	}
	var list []AuditLog
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
