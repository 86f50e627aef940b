// Package report holds read models for revenue reporting. These are CQRS
// style projections computed directly from payment and allocation rows;
// voided payments are excluded everywhere.
package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/billing"
)

// RevenueSummary provides aggregated collection statistics for a period
type RevenueSummary struct {
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	PaymentCount     int64           `json:"payment_count"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	TotalAllocated   decimal.Decimal `json:"total_allocated"`
	TotalUnallocated decimal.Decimal `json:"total_unallocated"` // Held as patient credit
	AvgPaymentValue  decimal.Decimal `json:"avg_payment_value"`
}

// MethodRevenue represents collections grouped by payment method
type MethodRevenue struct {
	Method         billing.PaymentMethod `json:"method"`
	PaymentCount   int64                 `json:"payment_count"`
	TotalCollected decimal.Decimal       `json:"total_collected"`
}

// DailyRevenueTrend represents collections per calendar day
type DailyRevenueTrend struct {
	Date           time.Time       `json:"date"`
	PaymentCount   int64           `json:"payment_count"`
	TotalCollected decimal.Decimal `json:"total_collected"`
}

// ProviderRevenue represents allocated revenue attributed to the treating
// dentist of each invoice
type ProviderRevenue struct {
	ProviderID      uuid.UUID       `json:"provider_id"`
	AllocationCount int64           `json:"allocation_count"`
	TotalAllocated  decimal.Decimal `json:"total_allocated"`
}

// RevenueReportFilter defines filtering options for revenue reports
type RevenueReportFilter struct {
	ClinicID  uuid.UUID              `json:"-"`
	StartDate time.Time              `json:"start_date"`
	EndDate   time.Time              `json:"end_date"`
	Method    *billing.PaymentMethod `json:"method,omitempty"`
}

// RevenueReportRepository defines the interface for revenue report queries
type RevenueReportRepository interface {
	// GetRevenueSummary returns aggregated collections for the period
	GetRevenueSummary(filter RevenueReportFilter) (*RevenueSummary, error)

	// GetRevenueByMethod returns collections grouped by payment method
	GetRevenueByMethod(filter RevenueReportFilter) ([]MethodRevenue, error)

	// GetDailyRevenueTrend returns collections per day
	GetDailyRevenueTrend(filter RevenueReportFilter) ([]DailyRevenueTrend, error)

	// GetRevenueByProvider returns allocated revenue per treating dentist
	GetRevenueByProvider(filter RevenueReportFilter) ([]ProviderRevenue, error)
}
