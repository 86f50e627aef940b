package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/billing"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	ClinicAggregateModel
	InvoiceNumber string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_clinic_number,priority:2"`
	PatientID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	ProviderID    *uuid.UUID            `gorm:"type:uuid;index"`
	Status        billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	TotalDue      decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	AmountPaid    decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	IssueDate     time.Time             `gorm:"not null;index"`
	DueDate       *time.Time            `gorm:"index"`
	Notes         string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		InvoiceNumber: m.InvoiceNumber,
		PatientID:     m.PatientID,
		ProviderID:    m.ProviderID,
		Status:        m.Status,
		TotalDue:      m.TotalDue,
		AmountPaid:    m.AmountPaid,
		IssueDate:     m.IssueDate,
		DueDate:       m.DueDate,
		Notes:         m.Notes,
	}
	m.PopulateClinicAggregateRoot(&inv.ClinicAggregateRoot)
	return inv
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainClinicAggregateRoot(inv.ClinicAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.PatientID = inv.PatientID
	m.ProviderID = inv.ProviderID
	m.Status = inv.Status
	m.TotalDue = inv.TotalDue
	m.AmountPaid = inv.AmountPaid
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.Notes = inv.Notes
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate root.
type PaymentModel struct {
	ClinicAggregateModel
	PaymentNumber string                   `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_clinic_number,priority:2"`
	PatientID     uuid.UUID                `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Method        billing.PaymentMethod    `gorm:"type:varchar(20);not null;index"`
	MethodDetails billing.MethodDetails    `gorm:"type:jsonb;default:'{}'"`
	PaymentDate   time.Time                `gorm:"not null;index"`
	Status        billing.PaymentStatus    `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	Notes         string                   `gorm:"type:text"`
	RecordedBy    uuid.UUID                `gorm:"type:uuid;not null"`
	VoidReason    string                   `gorm:"type:varchar(500)"`
	VoidedAt      *time.Time
	VoidedBy      *uuid.UUID               `gorm:"type:uuid"`
	Allocations   []PaymentAllocationModel `gorm:"foreignKey:PaymentID;references:ID"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *billing.Payment {
	allocations := make([]billing.Allocation, len(m.Allocations))
	for i, a := range m.Allocations {
		allocations[i] = a.ToDomain()
	}
	p := &billing.Payment{
		PaymentNumber: m.PaymentNumber,
		PatientID:     m.PatientID,
		Amount:        m.Amount,
		Method:        m.Method,
		MethodDetails: m.MethodDetails,
		PaymentDate:   m.PaymentDate,
		Status:        m.Status,
		Notes:         m.Notes,
		RecordedBy:    m.RecordedBy,
		VoidReason:    m.VoidReason,
		VoidedAt:      m.VoidedAt,
		VoidedBy:      m.VoidedBy,
		Allocations:   allocations,
	}
	m.PopulateClinicAggregateRoot(&p.ClinicAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain Payment entity.
// Allocation rows are mapped alongside so a single create persists the whole
// aggregate.
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainClinicAggregateRoot(p.ClinicAggregateRoot)
	m.PaymentNumber = p.PaymentNumber
	m.PatientID = p.PatientID
	m.Amount = p.Amount
	m.Method = p.Method
	m.MethodDetails = p.MethodDetails
	m.PaymentDate = p.PaymentDate
	m.Status = p.Status
	m.Notes = p.Notes
	m.RecordedBy = p.RecordedBy
	m.VoidReason = p.VoidReason
	m.VoidedAt = p.VoidedAt
	m.VoidedBy = p.VoidedBy
	m.Allocations = make([]PaymentAllocationModel, len(p.Allocations))
	for i, a := range p.Allocations {
		m.Allocations[i].FromDomain(p.ID, a)
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// PaymentAllocationModel is the persistence model for one allocation of a
// payment against an invoice. Rows are immutable apart from the status flip
// on void.
type PaymentAllocationModel struct {
	ID         uuid.UUID                `gorm:"type:uuid;primary_key"`
	PaymentID  uuid.UUID                `gorm:"type:uuid;not null;index;uniqueIndex:idx_allocation_payment_invoice,priority:1"`
	InvoiceID  uuid.UUID                `gorm:"type:uuid;not null;index;uniqueIndex:idx_allocation_payment_invoice,priority:2"`
	Amount     decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	ProviderID *uuid.UUID               `gorm:"type:uuid;index"`
	Status     billing.AllocationStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	CreatedAt  time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentAllocationModel) TableName() string {
	return "payment_allocations"
}

// ToDomain converts the persistence model to a domain Allocation value.
func (m *PaymentAllocationModel) ToDomain() billing.Allocation {
	return billing.Allocation{
		ID:         m.ID,
		InvoiceID:  m.InvoiceID,
		Amount:     m.Amount,
		ProviderID: m.ProviderID,
		Status:     m.Status,
		CreatedAt:  m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain Allocation value.
func (m *PaymentAllocationModel) FromDomain(paymentID uuid.UUID, a billing.Allocation) {
	m.ID = a.ID
	m.PaymentID = paymentID
	m.InvoiceID = a.InvoiceID
	m.Amount = a.Amount
	m.ProviderID = a.ProviderID
	m.Status = a.Status
	m.CreatedAt = a.CreatedAt
}

// PaymentSequenceModel backs the per-clinic monthly counter that payment
// numbers are drawn from. The row is locked FOR UPDATE inside the recording
// transaction so concurrent payments never share a number.
type PaymentSequenceModel struct {
	ClinicID  uuid.UUID `gorm:"type:uuid;primary_key"`
	Year      int       `gorm:"primary_key"`
	Month     int       `gorm:"primary_key"`
	NextValue int       `gorm:"not null;default:1"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentSequenceModel) TableName() string {
	return "payment_sequences"
}
