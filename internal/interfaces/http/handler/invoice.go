package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	billingapp "github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/application/billing"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/domain/billing"
)

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *billingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *billingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// ===================== Request/Response DTOs =====================

// InvoiceResponse represents an invoice in API responses
// @Description Invoice response
type InvoiceResponse struct {
	ID            string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ClinicID      string     `json:"clinic_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	InvoiceNumber string     `json:"invoice_number" example:"INV-20260901-00001"`
	PatientID     string     `json:"patient_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	ProviderID    *string    `json:"provider_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440003"`
	Status        string     `json:"status" example:"SENT"`
	TotalDue      float64    `json:"total_due" example:"3500.00"`
	AmountPaid    float64    `json:"amount_paid" example:"1500.00"`
	Balance       float64    `json:"balance" example:"2000.00"`
	IssueDate     time.Time  `json:"issue_date"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Notes         string     `json:"notes,omitempty" example:"Root canal, two sessions"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Version       int        `json:"version" example:"1"`
}

// CreateInvoiceRequest represents the payload for creating an invoice
type CreateInvoiceRequest struct {
	PatientID  string  `json:"patient_id" binding:"required,uuid"`
	ProviderID *string `json:"provider_id" binding:"omitempty,uuid"`
	TotalDue   float64 `json:"total_due" binding:"required,gt=0"`
	IssueDate  string  `json:"issue_date" binding:"omitempty"`
	DueDate    *string `json:"due_date" binding:"omitempty"`
	Notes      string  `json:"notes" binding:"omitempty,max=2000"`
	Send       bool    `json:"send"`
}

// CancelInvoiceRequest represents the payload for cancelling an invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ListInvoicesRequest represents invoice list query parameters
type ListInvoicesRequest struct {
	Search     string  `form:"search"`
	PatientID  *string `form:"patient_id" binding:"omitempty,uuid"`
	ProviderID *string `form:"provider_id" binding:"omitempty,uuid"`
	Status     *string `form:"status" binding:"omitempty,oneof=DRAFT SENT PAID OVERDUE CANCELLED"`
	IssuedFrom *string `form:"issued_from"`
	IssuedTo   *string `form:"issued_to"`
	Overdue    *bool   `form:"overdue"`
	Page       int     `form:"page" binding:"omitempty,min=1"`
	PageSize   int     `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string  `form:"order_by" binding:"omitempty,oneof=issue_date due_date invoice_number total_due created_at"`
	OrderDir   string  `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func toInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:            inv.ID.String(),
		ClinicID:      inv.ClinicID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		PatientID:     inv.PatientID.String(),
		Status:        string(inv.Status),
		TotalDue:      inv.TotalDue.InexactFloat64(),
		AmountPaid:    inv.AmountPaid.InexactFloat64(),
		Balance:       inv.Balance().InexactFloat64(),
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		Notes:         inv.Notes,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
		Version:       inv.Version,
	}
	if inv.ProviderID != nil {
		providerID := inv.ProviderID.String()
		resp.ProviderID = &providerID
	}
	return resp
}

func toInvoiceResponses(invoices []billing.Invoice) []InvoiceResponse {
	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = toInvoiceResponse(&invoices[i])
	}
	return responses
}

// parseDate accepts a date-only or RFC 3339 timestamp string
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

// ===================== Invoice Handlers =====================

// CreateInvoice godoc
// @Summary      Create an invoice
// @Description  Create a new invoice for a patient, as a draft or sent
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        X-Staff-ID header string true "Acting staff ID"
// @Param        request body CreateInvoiceRequest true "Invoice payload"
// @Success      201 {object} dto.Response{data=InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
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

	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		h.BadRequest(c, "Invalid patient ID format")
		return
	}

	appReq := billingapp.CreateInvoiceRequest{
		ClinicID:  clinicID,
		PatientID: patientID,
		TotalDue:  decimal.NewFromFloat(req.TotalDue),
		IssueDate: time.Now(),
		Notes:     req.Notes,
		CreatedBy: staffID,
		Send:      req.Send,
	}
	if req.ProviderID != nil {
		providerID, err := uuid.Parse(*req.ProviderID)
		if err != nil {
			h.BadRequest(c, "Invalid provider ID format")
			return
		}
		appReq.ProviderID = &providerID
	}
	if req.IssueDate != "" {
		issueDate, err := parseDate(req.IssueDate)
		if err != nil {
			h.BadRequest(c, "Invalid issue date format")
			return
		}
		appReq.IssueDate = issueDate
	}
	if req.DueDate != nil {
		dueDate, err := parseDate(*req.DueDate)
		if err != nil {
			h.BadRequest(c, "Invalid due date format")
			return
		}
		appReq.DueDate = &dueDate
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toInvoiceResponse(invoice))
}

// ListInvoices godoc
// @Summary      List invoices
// @Description  Retrieve a paginated list of invoices with filtering
// @Tags         invoices
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        patient_id query string false "Patient ID" format(uuid)
// @Param        provider_id query string false "Provider (dentist) ID" format(uuid)
// @Param        status query string false "Status" Enums(DRAFT, SENT, PAID, OVERDUE, CANCELLED)
// @Param        issued_from query string false "Issue date range start" format(date)
// @Param        issued_to query string false "Issue date range end" format(date)
// @Param        overdue query boolean false "Filter overdue only"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]InvoiceResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	clinicID, err := getClinicID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid clinic ID")
		return
	}

	var req ListInvoicesRequest
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

	filter, err := h.buildInvoiceFilter(req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.invoiceService.ListInvoices(c.Request.Context(), clinicID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, toInvoiceResponses(result.Items), result.Total, req.Page, req.PageSize)
}

// GetInvoice godoc
// @Summary      Get invoice by ID
// @Tags         invoices
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=InvoiceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	clinicID, err := getClinicID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid clinic ID")
		return
	}
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), clinicID, invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// SendInvoice godoc
// @Summary      Send an invoice
// @Description  Transition a draft invoice to sent, making it payable
// @Tags         invoices
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=InvoiceResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices/{id}/send [post]
func (h *InvoiceHandler) SendInvoice(c *gin.Context) {
	clinicID, err := getClinicID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid clinic ID")
		return
	}
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoiceService.SendInvoice(c.Request.Context(), clinicID, invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// CancelInvoice godoc
// @Summary      Cancel an invoice
// @Description  Cancel an invoice that has no recorded payments
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body CancelInvoiceRequest true "Cancellation reason"
// @Success      200 {object} dto.Response{data=InvoiceResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices/{id}/cancel [post]
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	clinicID, err := getClinicID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid clinic ID")
		return
	}
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req CancelInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.CancelInvoice(c.Request.Context(), clinicID, invoiceID, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// MarkOverdue godoc
// @Summary      Mark an invoice overdue
// @Description  Flag an unpaid invoice whose due date has passed
// @Tags         invoices
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=InvoiceResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/invoices/{id}/mark-overdue [post]
func (h *InvoiceHandler) MarkOverdue(c *gin.Context) {
	clinicID, err := getClinicID(c)
	if err != nil {
		h.BadRequest(c, "Missing or invalid clinic ID")
		return
	}
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoiceService.MarkOverdue(c.Request.Context(), clinicID, invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// RegisterRoutes registers invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/billing/invoices")
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.GET("/:id", h.GetInvoice)
		invoices.POST("/:id/send", h.SendInvoice)
		invoices.POST("/:id/cancel", h.CancelInvoice)
		invoices.POST("/:id/mark-overdue", h.MarkOverdue)
	}
}

func (h *InvoiceHandler) buildInvoiceFilter(req ListInvoicesRequest) (billing.InvoiceFilter, error) {
	var filter billing.InvoiceFilter
	filter.Search = req.Search
	filter.Page = req.Page
	filter.PageSize = req.PageSize
	filter.OrderBy = req.OrderBy
	filter.OrderDir = req.OrderDir
	filter.Overdue = req.Overdue

	if req.PatientID != nil {
		patientID, err := uuid.Parse(*req.PatientID)
		if err != nil {
			return filter, err
		}
		filter.PatientID = &patientID
	}
	if req.ProviderID != nil {
		providerID, err := uuid.Parse(*req.ProviderID)
		if err != nil {
			return filter, err
		}
		filter.ProviderID = &providerID
	}
	if req.Status != nil {
		status := billing.InvoiceStatus(*req.Status)
		filter.Status = &status
	}
	if req.IssuedFrom != nil {
		from, err := parseDate(*req.IssuedFrom)
		if err != nil {
			return filter, err
		}
		filter.IssuedFrom = &from
	}
	if req.IssuedTo != nil {
		to, err := parseDate(*req.IssuedTo)
		if err != nil {
			return filter, err
		}
		filter.IssuedTo = &to
	}
	return filter, nil
}
