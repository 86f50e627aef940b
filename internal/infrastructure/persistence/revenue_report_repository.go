package persistence

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/billing"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/report"
)

// GormRevenueReportRepository implements RevenueReportRepository using GORM.
// All queries exclude voided payments and voided allocations; collections are
// attributed to the payment date, not the recording date.
type GormRevenueReportRepository struct {
	db *gorm.DB
}

var _ report.RevenueReportRepository = (*GormRevenueReportRepository)(nil)

// NewGormRevenueReportRepository creates a new GormRevenueReportRepository
func NewGormRevenueReportRepository(db *gorm.DB) *GormRevenueReportRepository {
	return &GormRevenueReportRepository{db: db}
}

// GetRevenueSummary returns aggregated collections for the period
func (r *GormRevenueReportRepository) GetRevenueSummary(filter report.RevenueReportFilter) (*report.RevenueSummary, error) {
	var totals struct {
		PaymentCount   int64
		TotalCollected decimal.Decimal
	}
	query := r.db.Table("payments p").
		Select("COUNT(*) as payment_count, COALESCE(SUM(p.amount), 0) as total_collected").
		Where("p.clinic_id = ?", filter.ClinicID).
		Where("p.payment_date BETWEEN ? AND ?", filter.StartDate, filter.EndDate).
		Where("p.status <> ?", billing.PaymentStatusVoided)
	if filter.Method != nil {
		query = query.Where("p.method = ?", *filter.Method)
	}
	if err := query.Scan(&totals).Error; err != nil {
		return nil, err
	}

	var totalAllocated decimal.Decimal
	allocQuery := r.db.Table("payment_allocations pa").
		Select("COALESCE(SUM(pa.amount), 0)").
		Joins("JOIN payments p ON p.id = pa.payment_id").
		Where("p.clinic_id = ?", filter.ClinicID).
		Where("p.payment_date BETWEEN ? AND ?", filter.StartDate, filter.EndDate).
		Where("p.status <> ?", billing.PaymentStatusVoided).
		Where("pa.status = ?", billing.AllocationStatusActive)
	if filter.Method != nil {
		allocQuery = allocQuery.Where("p.method = ?", *filter.Method)
	}
	if err := allocQuery.Scan(&totalAllocated).Error; err != nil {
		return nil, err
	}

	avgPayment := decimal.Zero
	if totals.PaymentCount > 0 {
		avgPayment = totals.TotalCollected.Div(decimal.NewFromInt(totals.PaymentCount)).Round(4)
	}

	return &report.RevenueSummary{
		PeriodStart:      filter.StartDate,
		PeriodEnd:        filter.EndDate,
		PaymentCount:     totals.PaymentCount,
		TotalCollected:   totals.TotalCollected,
		TotalAllocated:   totalAllocated,
		TotalUnallocated: totals.TotalCollected.Sub(totalAllocated),
		AvgPaymentValue:  avgPayment,
	}, nil
}

// GetRevenueByMethod returns collections grouped by payment method
func (r *GormRevenueReportRepository) GetRevenueByMethod(filter report.RevenueReportFilter) ([]report.MethodRevenue, error) {
	var rows []struct {
		Method         billing.PaymentMethod
		PaymentCount   int64
		TotalCollected decimal.Decimal
	}
	query := r.db.Table("payments p").
		Select("p.method, COUNT(*) as payment_count, COALESCE(SUM(p.amount), 0) as total_collected").
		Where("p.clinic_id = ?", filter.ClinicID).
		Where("p.payment_date BETWEEN ? AND ?", filter.StartDate, filter.EndDate).
		Where("p.status <> ?", billing.PaymentStatusVoided).
		Group("p.method").
		Order("total_collected DESC")
	if filter.Method != nil {
		query = query.Where("p.method = ?", *filter.Method)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]report.MethodRevenue, len(rows))
	for i, row := range rows {
		result[i] = report.MethodRevenue{
			Method:         row.Method,
			PaymentCount:   row.PaymentCount,
			TotalCollected: row.TotalCollected,
		}
	}
	return result, nil
}

// GetDailyRevenueTrend returns collections per calendar day
func (r *GormRevenueReportRepository) GetDailyRevenueTrend(filter report.RevenueReportFilter) ([]report.DailyRevenueTrend, error) {
	var rows []struct {
		Date           time.Time
		PaymentCount   int64
		TotalCollected decimal.Decimal
	}
	query := r.db.Table("payments p").
		Select("DATE(p.payment_date) as date, COUNT(*) as payment_count, COALESCE(SUM(p.amount), 0) as total_collected").
		Where("p.clinic_id = ?", filter.ClinicID).
		Where("p.payment_date BETWEEN ? AND ?", filter.StartDate, filter.EndDate).
		Where("p.status <> ?", billing.PaymentStatusVoided).
		Group("DATE(p.payment_date)").
		Order("date ASC")
	if filter.Method != nil {
		query = query.Where("p.method = ?", *filter.Method)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]report.DailyRevenueTrend, len(rows))
	for i, row := range rows {
		result[i] = report.DailyRevenueTrend{
			Date:           row.Date,
			PaymentCount:   row.PaymentCount,
			TotalCollected: row.TotalCollected,
		}
	}
	return result, nil
}

// GetRevenueByProvider returns allocated revenue per credited dentist.
// Attribution is per allocation line; unattributed lines are excluded.
func (r *GormRevenueReportRepository) GetRevenueByProvider(filter report.RevenueReportFilter) ([]report.ProviderRevenue, error) {
	var rows []struct {
		ProviderID      uuid.UUID
		AllocationCount int64
		TotalAllocated  decimal.Decimal
	}
	query := r.db.Table("payment_allocations pa").
		Select("pa.provider_id, COUNT(*) as allocation_count, COALESCE(SUM(pa.amount), 0) as total_allocated").
		Joins("JOIN payments p ON p.id = pa.payment_id").
		Where("p.clinic_id = ?", filter.ClinicID).
		Where("p.payment_date BETWEEN ? AND ?", filter.StartDate, filter.EndDate).
		Where("p.status <> ?", billing.PaymentStatusVoided).
		Where("pa.status = ?", billing.AllocationStatusActive).
		Where("pa.provider_id IS NOT NULL").
		Group("pa.provider_id").
		Order("total_allocated DESC")
	if filter.Method != nil {
		query = query.Where("p.method = ?", *filter.Method)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]report.ProviderRevenue, len(rows))
	for i, row := range rows {
		result[i] = report.ProviderRevenue{
			ProviderID:      row.ProviderID,
			AllocationCount: row.AllocationCount,
			TotalAllocated:  row.TotalAllocated,
		}
	}
	return result, nil
}
