// PDI inspection HTTP handlers.
//
// Endpoints for submitting and reading pre-delivery inspection reports:
//   - GET  /pdi/structure         (checklist sections + items)
//   - GET  /pdi/leakage-items     (leakage checklist)
//   - POST /pdi/inspections       (submit a report)
//   - GET  /pdi/inspections       (admin list)
//   - GET  /pdi/inspections/stats (dashboard totals)
//   - GET  /pdi/inspections/mine  (customer's own reports)
//   - GET  /pdi/inspections/{id}  (single report, fully nested)
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-vehicle-backend/internal/services"
)

//
// DTOs
//

// InspectionResponseEntry is one checklist verdict in a submission.
type InspectionResponseEntry struct {
	ItemID string `json:"item_id" binding:"required" format:"uuid"`
	Status string `json:"status" binding:"required" example:"PASS" enums:"PASS,FAIL,WARN"`
	Notes  string `json:"notes" example:"Minor scuff on rear bumper"`
}

// InspectionImageEntry references an already-uploaded photo by its temporary
// location; the server moves it into permanent storage after the report is
// persisted.
type InspectionImageEntry struct {
	TempPath string `json:"temp_path" binding:"required" example:"/tmp/uploads/9f1c-front.jpg"`
	FileName string `json:"file_name" binding:"required" example:"front.jpg"`
}

// CreateInspectionRequest is the JSON payload for a report submission.
type CreateInspectionRequest struct {
	CustomerName   string  `json:"customer_name" example:"Asha Rao"`
	CustomerEmail  string  `json:"customer_email" example:"asha@example.com"`
	CustomerMobile *string `json:"customer_mobile" example:"+919812345678"`

	VehicleMake    string `json:"vehicle_make" binding:"required" example:"Hyundai"`
	VehicleModel   string `json:"vehicle_model" binding:"required" example:"Creta"`
	VehicleYear    int    `json:"vehicle_year" example:"2026"`
	RegistrationNo string `json:"registration_no" example:"KA-05-XY-9876"`
	ChassisNo      string `json:"chassis_no" example:"MALBB51RLHM334455"`
	OdometerKM     int    `json:"odometer_km" example:"42"`

	InspectionDate    *time.Time `json:"inspection_date"`
	DigitalSignature  string     `json:"digital_signature"`
	CustomerSignature string     `json:"customer_signature"`

	// SkipPackageDeduction bypasses the credit ledger; honored only for
	// admin-entered reports.
	SkipPackageDeduction bool `json:"skip_package_deduction"`

	Responses        []InspectionResponseEntry `json:"responses" binding:"required"`
	LeakageResponses []InspectionResponseEntry `json:"leakage_responses"`
	Images           []InspectionImageEntry    `json:"images"`
}

//
// Handlers
//

// ChecklistStructure godoc
// @ID          checklistStructure
// @Summary     Inspection checklist structure
// @Description Returns every checklist section with its items, both in display order.
// @Tags        Inspections
// @Produce     json
//
// @Success     200  {array}  domain.PDISection
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pdi/structure [get]
func (h *Handlers) ChecklistStructure(c *gin.Context) {
	sections, err := h.chkSvc.Structure(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, sections)
}

// LeakageItems godoc
// @ID          leakageItems
// @Summary     Leakage checklist
// @Description Returns the leakage inspection checklist in display order.
// @Tags        Inspections
// @Produce     json
//
// @Success     200  {array}  domain.PDILeakageItem
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pdi/leakage-items [get]
func (h *Handlers) LeakageItems(c *gin.Context) {
	items, err := h.chkSvc.LeakageItems(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// CreateInspection godoc
// @ID          createInspection
// @Summary     Submit a PDI report
// @Description Persists a completed inspection with its checklist responses, resolving the customer account and consuming one package credit when applicable.
// @Tags        Inspections
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Session user ID (demo header)"  example(user123)
// @Param       body       body    handlers.CreateInspectionRequest  true  "Report payload"
//
// @Success     201  {object}  services.ReportResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request / unknown response status"
// @Failure     409  {object}  handlers.ErrorResponse  "Email and mobile belong to different accounts"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /pdi/inspections [post]
func (h *Handlers) CreateInspection(c *gin.Context) {
	var req CreateInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	in := services.ReportInput{
		CustomerName:         strings.TrimSpace(req.CustomerName),
		CustomerEmail:        strings.TrimSpace(req.CustomerEmail),
		CustomerMobile:       req.CustomerMobile,
		VehicleMake:          strings.TrimSpace(req.VehicleMake),
		VehicleModel:         strings.TrimSpace(req.VehicleModel),
		VehicleYear:          req.VehicleYear,
		RegistrationNo:       strings.TrimSpace(req.RegistrationNo),
		ChassisNo:            strings.TrimSpace(req.ChassisNo),
		OdometerKM:           req.OdometerKM,
		DigitalSignature:     req.DigitalSignature,
		CustomerSignature:    req.CustomerSignature,
		SkipPackageDeduction: req.SkipPackageDeduction,
		Responses:            toResponseInputs(req.Responses),
		LeakageResponses:     toResponseInputs(req.LeakageResponses),
	}
	if req.InspectionDate != nil {
		in.InspectionDate = *req.InspectionDate
	}
	for _, img := range req.Images {
		in.Images = append(in.Images, services.ImageInput{TempPath: img.TempPath, FileName: img.FileName})
	}
	// A self-service submission links the report to the session user; the
	// customer contact fields only drive resolution when no session user is
	// submitting on their own behalf.
	if uid := userID(c); uid != "" && req.CustomerEmail == "" && req.CustomerMobile == nil {
		in.UserID = &uid
	}

	res, err := h.inspSvc.CreateReport(c.Request.Context(), in)
	switch {
	case errors.Is(err, services.ErrNoResponses):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "at least one checklist response is required")
		return
	case errors.Is(err, services.ErrInvalidResponseStatus):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "response status must be PASS, FAIL or WARN")
		return
	case errors.Is(err, services.ErrIdentityConflict):
		fail(c, http.StatusConflict, ErrCodeIdentityConflict, "email and mobile belong to different accounts")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, res)
}

// ListInspections godoc
// @ID          listInspections
// @Summary     List all PDI reports (admin)
// @Tags        Inspections
// @Produce     json
//
// @Success     200  {array}  domain.PDIInspection
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pdi/inspections [get]
func (h *Handlers) ListInspections(c *gin.Context) {
	items, err := h.inspSvc.ListAll(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// InspectionStats godoc
// @ID          inspectionStats
// @Summary     Inspection dashboard stats
// @Description Returns the total report count and the count for the current month, computed fresh.
// @Tags        Inspections
// @Produce     json
//
// @Success     200  {object} repo.InspectionStats
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pdi/inspections/stats [get]
func (h *Handlers) InspectionStats(c *gin.Context) {
	stats, err := h.inspSvc.Stats(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, stats)
}

// ListMyInspections godoc
// @ID          listMyInspections
// @Summary     List the current user's PDI reports
// @Tags        Inspections
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {array}  domain.PDIInspection
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pdi/inspections/mine [get]
func (h *Handlers) ListMyInspections(c *gin.Context) {
	items, err := h.inspSvc.ListForUser(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// GetInspection godoc
// @ID          getInspection
// @Summary     Fetch one PDI report
// @Description Returns a report with responses (and their checklist items), leakage findings, images, and the customer summary.
// @Tags        Inspections
// @Produce     json
//
// @Param       id  path  string  true  "Inspection ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.PDIInspection
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Report not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pdi/inspections/{id} [get]
func (h *Handlers) GetInspection(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "inspection id must be a UUID")
		return
	}

	insp, err := h.inspSvc.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrInspectionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "inspection not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, insp)
}

func toResponseInputs(entries []InspectionResponseEntry) []services.ResponseInput {
	out := make([]services.ResponseInput, 0, len(entries))
	for _, e := range entries {
		out = append(out, services.ResponseInput{
			ItemID: e.ItemID,
			Status: strings.ToUpper(strings.TrimSpace(e.Status)),
			Notes:  e.Notes,
		})
	}
	return out
}
