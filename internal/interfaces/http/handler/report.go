package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	reportapp "github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/application/report"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/billing"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/report"
)

// ReportHandler handles revenue reporting endpoints
type ReportHandler struct {
	BaseHandler
	reportService *reportapp.RevenueReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *reportapp.RevenueReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

// ===================== Request/Response DTOs =====================

// RevenueReportQuery represents revenue report query parameters
type RevenueReportQuery struct {
	StartDate string  `form:"start_date"`
	EndDate   string  `form:"end_date"`
	Method    *string `form:"method" binding:"omitempty,oneof=CASH CHECK BANK_TRANSFER CARD GCASH MAYA OTHER"`
}

// RevenueSummaryResponse represents aggregated collections for a period
// @Description Revenue summary response
type RevenueSummaryResponse struct {
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
	PaymentCount     int64     `json:"payment_count" example:"42"`
	TotalCollected   float64   `json:"total_collected" example:"125000.00"`
	TotalAllocated   float64   `json:"total_allocated" example:"118000.00"`
	TotalUnallocated float64   `json:"total_unallocated" example:"7000.00"`
	AvgPaymentValue  float64   `json:"avg_payment_value" example:"2976.19"`
}

// MethodRevenueResponse represents collections for one payment method
type MethodRevenueResponse struct {
	Method         string  `json:"method" example:"GCASH"`
	PaymentCount   int64   `json:"payment_count" example:"18"`
	TotalCollected float64 `json:"total_collected" example:"54000.00"`
}

// DailyRevenueTrendResponse represents collections for one calendar day
type DailyRevenueTrendResponse struct {
	Date           time.Time `json:"date"`
	PaymentCount   int64     `json:"payment_count" example:"5"`
	TotalCollected float64   `json:"total_collected" example:"12500.00"`
}

// ProviderRevenueResponse represents allocated revenue for one dentist
type ProviderRevenueResponse struct {
	ProviderID      string  `json:"provider_id" example:"550e8400-e29b-41d4-a716-446655440003"`
	AllocationCount int64   `json:"allocation_count" example:"12"`
	TotalAllocated  float64 `json:"total_allocated" example:"36000.00"`
}

func (h *ReportHandler) buildReportFilter(c *gin.Context) (report.RevenueReportFilter, bool) {
	var filter report.RevenueReportFilter

	clinicID, err := getClinicID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid clinic ID")
		return filter, false
	}
	filter.ClinicID = clinicID

	var query RevenueReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return filter, false
	}

	if query.StartDate != "" {
		start, err := parseDate(query.StartDate)
		if err != nil {
			h.BadRequest(c, "Invalid start date format")
			return filter, false
		}
		filter.StartDate = start
	}
	if query.EndDate != "" {
		end, err := parseDate(query.EndDate)
		if err != nil {
			h.BadRequest(c, "Invalid end date format")
			return filter, false
		}
		filter.EndDate = end
	}
	if query.Method != nil {
		method := billing.PaymentMethod(*query.Method)
		filter.Method = &method
	}
	return filter, true
}

// ===================== Revenue Report Handlers =====================

// GetRevenueSummary godoc
// @Summary      Revenue summary
// @Description  Aggregated collections for the period, defaults to the current month
// @Tags         reports
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        start_date query string false "Period start (ISO 8601)" format(date)
// @Param        end_date query string false "Period end (ISO 8601)" format(date)
// @Param        method query string false "Payment method" Enums(CASH, CHECK, BANK_TRANSFER, CARD, GCASH, MAYA, OTHER)
// @Success      200 {object} dto.Response{data=RevenueSummaryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/reports/revenue/summary [get]
func (h *ReportHandler) GetRevenueSummary(c *gin.Context) {
	filter, ok := h.buildReportFilter(c)
	if !ok {
		return
	}

	summary, err := h.reportService.GetRevenueSummary(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, RevenueSummaryResponse{
		PeriodStart:      summary.PeriodStart,
		PeriodEnd:        summary.PeriodEnd,
		PaymentCount:     summary.PaymentCount,
		TotalCollected:   summary.TotalCollected.InexactFloat64(),
		TotalAllocated:   summary.TotalAllocated.InexactFloat64(),
		TotalUnallocated: summary.TotalUnallocated.InexactFloat64(),
		AvgPaymentValue:  summary.AvgPaymentValue.InexactFloat64(),
	})
}

// GetRevenueByMethod godoc
// @Summary      Revenue by payment method
// @Tags         reports
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        start_date query string false "Period start (ISO 8601)" format(date)
// @Param        end_date query string false "Period end (ISO 8601)" format(date)
// @Success      200 {object} dto.Response{data=[]MethodRevenueResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/reports/revenue/by-method [get]
func (h *ReportHandler) GetRevenueByMethod(c *gin.Context) {
	filter, ok := h.buildReportFilter(c)
	if !ok {
		return
	}

	rows, err := h.reportService.GetRevenueByMethod(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]MethodRevenueResponse, len(rows))
	for i, row := range rows {
		responses[i] = MethodRevenueResponse{
			Method:         string(row.Method),
			PaymentCount:   row.PaymentCount,
			TotalCollected: row.TotalCollected.InexactFloat64(),
		}
	}
	h.Success(c, responses)
}

// GetDailyRevenueTrend godoc
// @Summary      Daily revenue trend
// @Tags         reports
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        start_date query string false "Period start (ISO 8601)" format(date)
// @Param        end_date query string false "Period end (ISO 8601)" format(date)
// @Param        method query string false "Payment method" Enums(CASH, CHECK, BANK_TRANSFER, CARD, GCASH, MAYA, OTHER)
// @Success      200 {object} dto.Response{data=[]DailyRevenueTrendResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/reports/revenue/daily [get]
func (h *ReportHandler) GetDailyRevenueTrend(c *gin.Context) {
	filter, ok := h.buildReportFilter(c)
	if !ok {
		return
	}

	rows, err := h.reportService.GetDailyRevenueTrend(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]DailyRevenueTrendResponse, len(rows))
	for i, row := range rows {
		responses[i] = DailyRevenueTrendResponse{
			Date:           row.Date,
			PaymentCount:   row.PaymentCount,
			TotalCollected: row.TotalCollected.InexactFloat64(),
		}
	}
	h.Success(c, responses)
}

// GetRevenueByProvider godoc
// @Summary      Revenue by treating dentist
// @Description  Allocated revenue attributed to the provider on each invoice
// @Tags         reports
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        start_date query string false "Period start (ISO 8601)" format(date)
// @Param        end_date query string false "Period end (ISO 8601)" format(date)
// @Success      200 {object} dto.Response{data=[]ProviderRevenueResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/reports/revenue/by-provider [get]
func (h *ReportHandler) GetRevenueByProvider(c *gin.Context) {
	filter, ok := h.buildReportFilter(c)
	if !ok {
		return
	}

	rows, err := h.reportService.GetRevenueByProvider(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]ProviderRevenueResponse, len(rows))
	for i, row := range rows {
		responses[i] = ProviderRevenueResponse{
			ProviderID:      row.ProviderID.String(),
			AllocationCount: row.AllocationCount,
			TotalAllocated:  row.TotalAllocated.InexactFloat64(),
		}
	}
	h.Success(c, responses)
}

// RegisterRoutes registers revenue report routes
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/billing/reports/revenue")
	{
		reports.GET("/summary", h.GetRevenueSummary)
		reports.GET("/by-method", h.GetRevenueByMethod)
		reports.GET("/daily", h.GetDailyRevenueTrend)
		reports.GET("/by-provider", h.GetRevenueByProvider)
	}
}
