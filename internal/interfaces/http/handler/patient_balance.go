package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/application/billing"
)

// PatientBalanceHandler exposes the patient's outstanding balance
type PatientBalanceHandler struct {
	BaseHandler
	balanceService *billingapp.PatientBalanceService
}

// NewPatientBalanceHandler creates a new PatientBalanceHandler
func NewPatientBalanceHandler(balanceService *billingapp.PatientBalanceService) *PatientBalanceHandler {
	return &PatientBalanceHandler{
		balanceService: balanceService,
	}
}

// PatientBalanceResponse represents a patient's outstanding balance
// @Description Patient balance response
type PatientBalanceResponse struct {
	ClinicID    string    `json:"clinic_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	PatientID   string    `json:"patient_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	Outstanding float64   `json:"outstanding" example:"3500.00"`
	FromCache   bool      `json:"from_cache" example:"true"`
	ComputedAt  time.Time `json:"computed_at"`
}

func toPatientBalanceResponse(r *billingapp.PatientBalanceResult) PatientBalanceResponse {
	return PatientBalanceResponse{
		ClinicID:    r.ClinicID.String(),
		PatientID:   r.PatientID.String(),
		Outstanding: r.Outstanding.InexactFloat64(),
		FromCache:   r.FromCache,
		ComputedAt:  r.ComputedAt,
	}
}

// GetBalance godoc
// @Summary      Get patient balance
// @Description  Returns the patient's total outstanding balance, served from cache when fresh
// @Tags         patients
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        id path string true "Patient ID" format(uuid)
// @Success      200 {object} dto.Response{data=PatientBalanceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/patients/{id}/balance [get]
func (h *PatientBalanceHandler) GetBalance(c *gin.Context) {
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

	result, err := h.balanceService.GetBalance(c.Request.Context(), clinicID, patientID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPatientBalanceResponse(result))
}

// RefreshBalance godoc
// @Summary      Refresh patient balance
// @Description  Recompute the balance from invoice rows and update the cache
// @Tags         patients
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        id path string true "Patient ID" format(uuid)
// @Success      200 {object} dto.Response{data=PatientBalanceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/patients/{id}/balance/refresh [post]
func (h *PatientBalanceHandler) RefreshBalance(c *gin.Context) {
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

	balance, err := h.balanceService.Refresh(c.Request.Context(), clinicID, patientID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, PatientBalanceResponse{
		ClinicID:    clinicID.String(),
		PatientID:   patientID.String(),
		Outstanding: balance.InexactFloat64(),
		FromCache:   false,
		ComputedAt:  time.Now(),
	})
}

// ListOutstandingInvoices godoc
// @Summary      List outstanding invoices for a patient
// @Description  Returns the non-cancelled invoices carrying a balance, oldest first
// @Tags         patients
// @Produce      json
// @Param        X-Clinic-ID header string true "Clinic ID"
// @Param        id path string true "Patient ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/patients/{id}/invoices/outstanding [get]
func (h *PatientBalanceHandler) ListOutstandingInvoices(c *gin.Context) {
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

	invoices, err := h.balanceService.OutstandingInvoices(c.Request.Context(), clinicID, patientID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponses(invoices))
}

// RegisterRoutes registers patient balance routes
func (h *PatientBalanceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	patients := rg.Group("/billing/patients")
	{
		patients.GET("/:id/balance", h.GetBalance)
		patients.POST("/:id/balance/refresh", h.RefreshBalance)
		patients.GET("/:id/invoices/outstanding", h.ListOutstandingInvoices)
	}
}
