package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	billingapp "github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/application/billing"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/billing"
)

// PaymentHandler handles payment recording and reconciliation endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *billingapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *billingapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// ===================== Request/Response DTOs =====================

// AllocationResponse represents one allocation of a payment in API responses
// @Description Payment allocation response
type AllocationResponse struct {
	ID         string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	InvoiceID  string    `json:"invoice_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	Amount     float64   `json:"amount" example:"1500.00"`
	ProviderID string    `json:"provider_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440003"`
	Status     string    `json:"status" example:"ACTIVE"`
	CreatedAt  time.Time `json:"created_at"`
}

// PaymentResponse represents a payment in API responses
// @Description Payment response
type PaymentResponse struct {
	ID            string               `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ClinicID      string               `json:"clinic_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	PaymentNumber string               `json:"payment_number" example:"PAY-2026-09-0001"`
	PatientID     string               `json:"patient_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	Amount        float64              `json:"amount" example:"2000.00"`
	Method        string               `json:"method" example:"GCASH"`
	MethodDetails MethodDetailsPayload `json:"method_details"`
	PaymentDate   time.Time            `json:"payment_date"`
	Status        string               `json:"status" example:"ACTIVE"`
	Notes         string               `json:"notes,omitempty"`
	RecordedBy    string               `json:"recorded_by" example:"550e8400-e29b-41d4-a716-446655440003"`
	VoidReason    string               `json:"void_reason,omitempty"`
	VoidedAt      *time.Time           `json:"voided_at,omitempty"`
	VoidedBy      *string              `json:"voided_by,omitempty"`
	Allocated     float64              `json:"allocated" example:"1500.00"`
	Unallocated   float64              `json:"unallocated" example:"500.00"`
	Allocations   []AllocationResponse `json:"allocations"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Version       int                  `json:"version" example:"1"`
}

// MethodDetailsPayload carries method-specific metadata in requests and
// responses
type MethodDetailsPayload struct {
	CheckNumber     string `json:"check_number,omitempty" binding:"omitempty,max=50"`
	BankName        string `json:"bank_name,omitempty" binding:"omitempty,max=100"`
	ReferenceNumber string `json:"reference_number,omitempty" binding:"omitempty,max=100"`
}

// AllocationPayload is one allocation line in a record payment request.
// ProviderID credits a specific dentist; left empty the invoice's provider
// is credited.
type AllocationPayload struct {
	InvoiceID  string  `json:"invoice_id" binding:"required,uuid"`
	Amount     float64 `json:"amount" binding:"required,gt=0"`
	ProviderID string  `json:"provider_id" binding:"omitempty,uuid"`
}

// RecordPaymentRequest represents the payload for recording a payment
type RecordPaymentRequest struct {
	PatientID     string               `json:"patient_id" binding:"required,uuid"`
	Amount        float64              `json:"amount" binding:"required,gt=0"`
	Method        string               `json:"method" binding:"required,oneof=CASH CHECK BANK_TRANSFER CARD GCASH MAYA OTHER"`
	MethodDetails MethodDetailsPayload `json:"method_details"`
	PaymentDate   string               `json:"payment_date" binding:"omitempty"`
	Notes         string               `json:"notes" binding:"omitempty,max=2000"`
	Allocations   []AllocationPayload  `json:"allocations" binding:"required,min=1,dive"`
}

// VoidPaymentRequest represents the payload for voiding a payment
type VoidPaymentRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ListPaymentsRequest represents payment list query parameters
type ListPaymentsRequest struct {
	Search        string  `form:"search"`
	PatientID     *string `form:"patient_id" binding:"omitempty,uuid"`
	Method        *string `form:"method" binding:"omitempty,oneof=CASH CHECK BANK_TRANSFER CARD GCASH MAYA OTHER"`
	PaidFrom      *string `form:"paid_from"`
	PaidTo        *string `form:"paid_to"`
	IncludeVoided bool    `form:"include_voided"`
	Page          int     `form:"page" binding:"omitempty,min=1"`
	PageSize      int     `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy       string  `form:"order_by" binding:"omitempty,oneof=payment_date payment_number amount created_at"`
	OrderDir      string  `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// RecordPaymentResultResponse represents the outcome of recording a payment
// @Description Record payment result
type RecordPaymentResultResponse struct {
	PaymentID      string                        `json:"payment_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	PaymentNumber  string                        `json:"payment_number" example:"PAY-2026-09-0001"`
	Amount         float64                       `json:"amount" example:"2000.00"`
	AllocatedTotal float64                       `json:"allocated_total" example:"1500.00"`
	Unallocated    float64                       `json:"unallocated" example:"500.00"`
	Invoices       []InvoiceLedgerResultResponse `json:"invoices"`
	PatientBalance float64                       `json:"patient_balance" example:"2000.00"`
}

// InvoiceLedgerResultResponse summarizes one invoice after a ledger write
type InvoiceLedgerResultResponse struct {
	InvoiceID     string  `json:"invoice_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	InvoiceNumber string  `json:"invoice_number" example:"INV-20260901-00001"`
	Allocated     float64 `json:"allocated" example:"1500.00"`
	AmountPaid    float64 `json:"amount_paid" example:"1500.00"`
	Balance       float64 `json:"balance" example:"2000.00"`
	Status        string  `json:"status" example:"SENT"`
}

// VoidPaymentResultResponse represents the outcome of voiding a payment
// @Description Void payment result
type VoidPaymentResultResponse struct {
	PaymentID      string                        `json:"payment_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	PaymentNumber  string                        `json:"payment_number" example:"PAY-2026-09-0001"`
	Invoices       []InvoiceLedgerResultResponse `json:"invoices"`
	PatientBalance float64                       `json:"patient_balance" example:"3500.00"`
}

func toPaymentResponse(p *billing.Payment) PaymentResponse {
	allocations := make([]AllocationResponse, len(p.Allocations))
	for i, a := range p.Allocations {
		allocations[i] = AllocationResponse{
			ID:        a.ID.String(),
			InvoiceID: a.InvoiceID.String(),
			Amount:    a.Amount.InexactFloat64(),
			Status:    string(a.Status),
			CreatedAt: a.CreatedAt,
		}
		if a.ProviderID != nil {
			allocations[i].ProviderID = a.ProviderID.String()
		}
	}
	resp := PaymentResponse{
		ID:            p.ID.String(),
		ClinicID:      p.ClinicID.String(),
		PaymentNumber: p.PaymentNumber,
		PatientID:     p.PatientID.String(),
		Amount:        p.Amount.InexactFloat64(),
		Method:        string(p.Method),
		MethodDetails: MethodDetailsPayload{
			CheckNumber:     p.MethodDetails.CheckNumber,
			BankName:        p.MethodDetails.BankName,
			ReferenceNumber: p.MethodDetails.ReferenceNumber,
		},
		PaymentDate: p.PaymentDate,
		Status:      string(p.Status),
		Notes:       p.Notes,
		RecordedBy:  p.RecordedBy.String(),
		VoidReason:  p.VoidReason,
		VoidedAt:    p.VoidedAt,
		Allocated:   p.AllocatedTotal().InexactFloat64(),
		Unallocated: p.UnallocatedAmount().InexactFloat64(),
		Allocations: allocations,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Version:     p.Version,
	}
	if p.VoidedBy != nil {
		voidedBy := p.VoidedBy.String()
		resp.VoidedBy = &voidedBy
	}
	return resp
}

func toPaymentResponses(payments []billing.Payment) []PaymentResponse {
	responses := make([]PaymentResponse, len(payments))
	for i := range payments {
		responses[i] = toPaymentResponse(&payments[i])
	}
	return responses
}

func toInvoiceLedgerResponses(results []billingapp.InvoiceLedgerResult) []InvoiceLedgerResultResponse {
	responses := make([]InvoiceLedgerResultResponse, len(results))
	for i, r := range results {
		responses[i] = InvoiceLedgerResultResponse{
			InvoiceID:     r.InvoiceID.String(),
			InvoiceNumber: r.InvoiceNumber,
			Allocated:     r.Allocated.InexactFloat64(),
			AmountPaid:    r.AmountPaid.InexactFloat64(),
			Balance:       r.Balance.InexactFloat64(),
			Status:        string(r.Status),
		}
	}
	return responses
}

// ===================== Payment Handlers =====================

// RecordPayment godoc
// @Summary      Record a payment
// @Description  Record a received payment and allocate it across the patient's invoices in one atomic write
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        X-Staff-ID header string true "Acting staff ID"
// @Param        request body RecordPaymentRequest true "Payment payload"
// @Success      201 {object} dto.Response{data=RecordPaymentResultResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/payments [post]
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	clinicID, err := getClinicID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid clinic ID")
		return
	}
	staffID, err := getStaffID(c)
	if err != nil {
		h.BadRequest(c, "Invalid staff ID")
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		h.BadRequest(c, "Invalid patient ID format")
		return
	}

	appReq := billingapp.RecordPaymentRequest{
		ClinicID:  clinicID,
		PatientID: patientID,
		Amount:    decimal.NewFromFloat(req.Amount),
		Method:    billing.PaymentMethod(req.Method),
		Details: billing.MethodDetails{
			CheckNumber:     req.MethodDetails.CheckNumber,
			BankName:        req.MethodDetails.BankName,
			ReferenceNumber: req.MethodDetails.ReferenceNumber,
		},
		PaymentDate: time.Now(),
		Notes:       req.Notes,
		RecordedBy:  staffID,
	}
	if req.PaymentDate != "" {
		paymentDate, err := parseDate(req.PaymentDate)
		if err != nil {
			h.BadRequest(c, "Invalid payment date format")
			return
		}
		appReq.PaymentDate = paymentDate
	}
	for _, alloc := range req.Allocations {
		invoiceID, err := uuid.Parse(alloc.InvoiceID)
		if err != nil {
			h.BadRequest(c, "Invalid invoice ID format in allocations")
			return
		}
		var providerID *uuid.UUID
		if alloc.ProviderID != "" {
			parsed, err := uuid.Parse(alloc.ProviderID)
			if err != nil {
				h.BadRequest(c, "Invalid provider ID format in allocations")
				return
			}
			providerID = &parsed
		}
		appReq.Allocations = append(appReq.Allocations, billingapp.AllocationRequest{
			InvoiceID:  invoiceID,
			Amount:     decimal.NewFromFloat(alloc.Amount),
			ProviderID: providerID,
		})
	}

	result, err := h.paymentService.RecordPayment(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, RecordPaymentResultResponse{
		PaymentID:      result.PaymentID.String(),
		PaymentNumber:  result.PaymentNumber,
		Amount:         result.Amount.InexactFloat64(),
		AllocatedTotal: result.AllocatedTotal.InexactFloat64(),
		Unallocated:    result.Unallocated.InexactFloat64(),
		Invoices:       toInvoiceLedgerResponses(result.Invoices),
		PatientBalance: result.PatientBalance.InexactFloat64(),
	})
}

// VoidPayment godoc
// @Summary      Void a payment
// @Description  Void a recorded payment and revert its effect on every allocated invoice
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        X-Staff-ID header string true "Acting staff ID"
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body VoidPaymentRequest true "Void reason"
// @Success      200 {object} dto.Response{data=VoidPaymentResultResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/payments/{id}/void [post]
func (h *PaymentHandler) VoidPayment(c *gin.Context) {
	clinicID, err := getClinicID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid clinic ID")
		return
	}
	staffID, err := getStaffID(c)
	if err != nil {
		h.BadRequest(c, "Invalid staff ID")
		return
	}
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req VoidPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.paymentService.VoidPayment(c.Request.Context(), billingapp.VoidPaymentRequest{
		ClinicID:  clinicID,
		PaymentID: paymentID,
		Reason:    req.Reason,
		VoidedBy:  staffID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, VoidPaymentResultResponse{
		PaymentID:      result.PaymentID.String(),
		PaymentNumber:  result.PaymentNumber,
		Invoices:       toInvoiceLedgerResponses(result.Invoices),
		PatientBalance: result.PatientBalance.InexactFloat64(),
	})
}

// ListPayments godoc
// @Summary      List payments
// @Description  Retrieve a paginated list of payments with filtering, voided ones excluded by default
// @Tags         payments
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        patient_id query string false "Patient ID" format(uuid)
// @Param        method query string false "Payment method" Enums(CASH, CHECK, BANK_TRANSFER, CARD, GCASH, MAYA, OTHER)
// @Param        paid_from query string false "Payment date range start" format(date)
// @Param        paid_to query string false "Payment date range end" format(date)
// @Param        include_voided query boolean false "Include voided payments"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]PaymentResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	clinicID, err := getClinicID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid clinic ID")
		return
	}

	var req ListPaymentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	filter, err := h.buildPaymentFilter(req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.paymentService.ListPayments(c.Request.Context(), clinicID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, toPaymentResponses(result.Items), result.Total, req.Page, req.PageSize)
}

// GetPayment godoc
// @Summary      Get payment by ID
// @Description  Retrieve a payment with its allocations
// @Tags         payments
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response{data=PaymentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	clinicID, err := getClinicID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid clinic ID")
		return
	}
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), clinicID, paymentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(payment))
}

// GetPatientPaymentSummary godoc
// @Summary      Get patient payment summary
// @Description  Total collected from the patient alongside their outstanding balance
// @Tags         payments
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        id path string true "Patient ID" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.PatientPaymentSummary}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/patients/{id}/payments/summary [get]
func (h *PaymentHandler) GetPatientPaymentSummary(c *gin.Context) {
	clinicID, err := getClinicID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid clinic ID")
		return
	}
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid patient ID format")
		return
	}

	summary, err := h.paymentService.GetPatientPaymentSummary(c.Request.Context(), clinicID, patientID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// RegisterRoutes registers payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/billing/payments")
	{
		payments.POST("", h.RecordPayment)
		payments.GET("", h.ListPayments)
		payments.GET("/:id", h.GetPayment)
		payments.POST("/:id/void", h.VoidPayment)
	}
	rg.GET("/billing/patients/:id/payments/summary", h.GetPatientPaymentSummary)
}

func (h *PaymentHandler) buildPaymentFilter(req ListPaymentsRequest) (billing.PaymentFilter, error) {
	var filter billing.PaymentFilter
	filter.Search = req.Search
	filter.Page = req.Page
	filter.PageSize = req.PageSize
	filter.OrderBy = req.OrderBy
	filter.OrderDir = req.OrderDir
	filter.IncludeVoided = req.IncludeVoided

	if req.PatientID != nil {
		patientID, err := uuid.Parse(*req.PatientID)
		if err != nil {
			return filter, err
		}
		filter.PatientID = &patientID
	}
	if req.Method != nil {
		method := billing.PaymentMethod(*req.Method)
		filter.Method = &method
	}
	if req.PaidFrom != nil {
		from, err := parseDate(*req.PaidFrom)
		if err != nil {
			return filter, err
		}
		filter.PaidFrom = &from
	}
	if req.PaidTo != nil {
		to, err := parseDate(*req.PaidTo)
		if err != nil {
			return filter, err
		}
		filter.PaidTo = &to
	}
	return filter, nil
}
