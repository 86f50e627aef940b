package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel provides common persistence fields for aggregate roots.
// It extends BaseModel with version for optimistic locking.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot populates AggregateModel from domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// ClinicAggregateModel provides common persistence fields for clinic-scoped
// aggregate roots. It extends AggregateModel with clinic ID and creator info.
type ClinicAggregateModel struct {
	AggregateModel
	ClinicID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy *uuid.UUID `gorm:"type:uuid;index"`
}

// FromDomainClinicAggregateRoot populates ClinicAggregateModel from domain ClinicAggregateRoot
func (m *ClinicAggregateModel) FromDomainClinicAggregateRoot(c shared.ClinicAggregateRoot) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.ClinicID = c.ClinicID
	m.CreatedBy = c.CreatedBy
}

// PopulateClinicAggregateRoot populates a domain ClinicAggregateRoot from persistence model
func (m *ClinicAggregateModel) PopulateClinicAggregateRoot(c *shared.ClinicAggregateRoot) {
	c.BaseAggregateRoot.BaseEntity.ID = m.ID
	c.BaseAggregateRoot.BaseEntity.CreatedAt = m.CreatedAt
	c.BaseAggregateRoot.BaseEntity.UpdatedAt = m.UpdatedAt
	c.BaseAggregateRoot.Version = m.Version
	c.ClinicID = m.ClinicID
	c.CreatedBy = m.CreatedBy
}
