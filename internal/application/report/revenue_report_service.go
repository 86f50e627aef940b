package report

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/report"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/shared"
)

// RevenueReportService exposes read-only collection reports. It never writes
// anything; the figures are derived on demand from payment and allocation
// rows with voided records excluded.
type RevenueReportService struct {
	reportRepo report.RevenueReportRepository
	logger     *zap.Logger
}

// NewRevenueReportService creates a new RevenueReportService
func NewRevenueReportService(reportRepo report.RevenueReportRepository, logger *zap.Logger) *RevenueReportService {
	return &RevenueReportService{
		reportRepo: reportRepo,
		logger:     logger,
	}
}

// normalize fills the date range (current month by default) and validates it
func (s *RevenueReportService) normalize(filter report.RevenueReportFilter) (report.RevenueReportFilter, error) {
	now := time.Now()
	if filter.StartDate.IsZero() {
		filter.StartDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
	if filter.EndDate.IsZero() {
		filter.EndDate = now
	}
	if filter.EndDate.Before(filter.StartDate) {
		return filter, shared.NewDomainError("INVALID_DATE_RANGE",
			"end date cannot be before start date")
	}
	return filter, nil
}

// GetRevenueSummary returns aggregated collections for the period
func (s *RevenueReportService) GetRevenueSummary(
	ctx context.Context,
	filter report.RevenueReportFilter,
) (*report.RevenueSummary, error) {
	filter, err := s.normalize(filter)
	if err != nil {
		return nil, err
	}
	return s.reportRepo.GetRevenueSummary(filter)
}

// GetRevenueByMethod returns collections grouped by payment method
func (s *RevenueReportService) GetRevenueByMethod(
	ctx context.Context,
	filter report.RevenueReportFilter,
) ([]report.MethodRevenue, error) {
	filter, err := s.normalize(filter)
	if err != nil {
		return nil, err
	}
	return s.reportRepo.GetRevenueByMethod(filter)
}

// GetDailyRevenueTrend returns collections per calendar day
func (s *RevenueReportService) GetDailyRevenueTrend(
	ctx context.Context,
	filter report.RevenueReportFilter,
) ([]report.DailyRevenueTrend, error) {
	filter, err := s.normalize(filter)
	if err != nil {
		return nil, err
	}
	return s.reportRepo.GetDailyRevenueTrend(filter)
}

// GetRevenueByProvider returns allocated revenue per treating dentist
func (s *RevenueReportService) GetRevenueByProvider(
	ctx context.Context,
	filter report.RevenueReportFilter,
) ([]report.ProviderRevenue, error) {
	filter, err := s.normalize(filter)
	if err != nil {
		return nil, err
	}
	return s.reportRepo.GetRevenueByProvider(filter)
}
