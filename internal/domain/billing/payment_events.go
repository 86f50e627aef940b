package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/shared"
)

// PaymentRecordedEvent is raised when a payment is recorded and allocated.
// The human-facing payment number is absent: it is assigned at commit, after
// the event is raised.
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID      uuid.UUID       `json:"payment_id"`
	PatientID      uuid.UUID       `json:"patient_id"`
	Amount         decimal.Decimal `json:"amount"`
	AllocatedTotal decimal.Decimal `json:"allocated_total"`
	Method         PaymentMethod   `json:"method"`
	PaymentDate    time.Time       `json:"payment_date"`
	RecordedBy     uuid.UUID       `json:"recorded_by"`
}

// EventType returns the event type name
func (e *PaymentRecordedEvent) EventType() string {
	return "PaymentRecorded"
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentRecorded", "Payment", p.ID, p.ClinicID),
		PaymentID:       p.ID,
		PatientID:       p.PatientID,
		Amount:          p.Amount,
		AllocatedTotal:  p.AllocatedTotal(),
		Method:          p.Method,
		PaymentDate:     p.PaymentDate,
		RecordedBy:      p.RecordedBy,
	}
}

// PaymentVoidedEvent is raised when a payment is reversed
type PaymentVoidedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	PaymentNumber string          `json:"payment_number"`
	PatientID     uuid.UUID       `json:"patient_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason"`
	VoidedBy      uuid.UUID       `json:"voided_by"`
	VoidedAt      time.Time       `json:"voided_at"`
}

// EventType returns the event type name
func (e *PaymentVoidedEvent) EventType() string {
	return "PaymentVoided"
}

// NewPaymentVoidedEvent creates a new PaymentVoidedEvent
func NewPaymentVoidedEvent(p *Payment, reason string) *PaymentVoidedEvent {
	var voidedBy uuid.UUID
	if p.VoidedBy != nil {
		voidedBy = *p.VoidedBy
	}
	var voidedAt time.Time
	if p.VoidedAt != nil {
		voidedAt = *p.VoidedAt
	}
	return &PaymentVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentVoided", "Payment", p.ID, p.ClinicID),
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		PatientID:       p.PatientID,
		Amount:          p.Amount,
		Reason:          reason,
		VoidedBy:        voidedBy,
		VoidedAt:        voidedAt,
	}
}
