// Insurance claim HTTP handlers.
//
// This file exposes REST endpoints for the claim lifecycle:
//   - POST   /claims              (online submission)
//   - POST   /claims/walk-in      (staff-entered submission)
//   - GET    /claims              (admin list: filters, search, pagination)
//   - GET    /claims/mine         (customer's own claims, paginated)
//   - GET    /claims/stats        (per-status counts + damage sum)
//   - GET    /claims/{id}         (single claim)
//   - GET    /claims/{id}/events  (status history)
//   - PUT    /claims/{id}/status  (review transition)
//   - PUT    /claims/{id}/pdf     (attach generated report)
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
	"github.com/tbourn/go-vehicle-backend/internal/http/middleware"
	"github.com/tbourn/go-vehicle-backend/internal/repo"
	"github.com/tbourn/go-vehicle-backend/internal/services"
)

//
// DTOs
//

// ClaimDocument is one attachment submitted with a claim.
type ClaimDocument struct {
	FileName string `json:"file_name" binding:"required" example:"police-report.pdf"`
	FileURL  string `json:"file_url" binding:"required" example:"/media/claims/police-report.pdf"`
	FileType string `json:"file_type" example:"POLICY" enums:"PHOTO,POLICY,ESTIMATE,OTHER"`
}

// CreateClaimRequest is the JSON payload for an online claim submission.
type CreateClaimRequest struct {
	PolicyNumber     string          `json:"policy_number" binding:"required" example:"POL-88341"`
	VehicleMake      string          `json:"vehicle_make" binding:"required" example:"Toyota"`
	VehicleModel     string          `json:"vehicle_model" binding:"required" example:"Corolla"`
	VehicleYear      int             `json:"vehicle_year" example:"2021"`
	RegistrationNo   string          `json:"registration_no" example:"KA-01-AB-1234"`
	IncidentDate     *time.Time      `json:"incident_date" example:"2026-08-12T09:30:00Z"`
	IncidentLocation string          `json:"incident_location" example:"NH-48, Tumkur Road"`
	Description      string          `json:"description" binding:"required"`
	EstimatedDamage  float64         `json:"estimated_damage" example:"45000"`
	Documents        []ClaimDocument `json:"documents"`
}

// CreateWalkInClaimRequest is the staff-entered variant: the claim details
// plus the customer's contact info, which drives account resolution.
type CreateWalkInClaimRequest struct {
	CreateClaimRequest
	CustomerName   string  `json:"customer_name" binding:"required" example:"Asha Rao"`
	CustomerEmail  string  `json:"customer_email" example:"asha@example.com"`
	CustomerMobile *string `json:"customer_mobile" example:"+919812345678"`
}

// UpdateClaimStatusRequest is the JSON payload for a review transition.
type UpdateClaimStatusRequest struct {
	Status     string `json:"status" binding:"required" example:"UNDER_REVIEW"`
	AdminNotes string `json:"admin_notes" example:"Awaiting garage estimate"`
}

// AttachClaimPDFRequest records where the generated report was stored.
type AttachClaimPDFRequest struct {
	PDFURL string `json:"pdf_url" binding:"required" example:"/media/claims/CLM-2026-00042.pdf"`
}

func (r CreateClaimRequest) toInput() services.ClaimInput {
	docs := make([]services.DocumentInput, 0, len(r.Documents))
	for _, d := range r.Documents {
		ft := strings.ToUpper(strings.TrimSpace(d.FileType))
		if !knownFileType(ft) {
			ft = domain.FileTypeOther
		}
		docs = append(docs, services.DocumentInput{
			FileName: d.FileName,
			FileURL:  d.FileURL,
			FileType: ft,
		})
	}
	return services.ClaimInput{
		PolicyNumber:     strings.TrimSpace(r.PolicyNumber),
		VehicleMake:      strings.TrimSpace(r.VehicleMake),
		VehicleModel:     strings.TrimSpace(r.VehicleModel),
		VehicleYear:      r.VehicleYear,
		RegistrationNo:   strings.TrimSpace(r.RegistrationNo),
		IncidentDate:     r.IncidentDate,
		IncidentLocation: strings.TrimSpace(r.IncidentLocation),
		Description:      strings.TrimSpace(r.Description),
		EstimatedDamage:  r.EstimatedDamage,
		Documents:        docs,
	}
}

//
// Handlers
//

// ClaimIdemScope keys idempotency records for online claim submission. It is
// shared with the router's replay-lookup wiring so the validator middleware
// and the handler consult the same records.
const ClaimIdemScope = "claims.create"

// claimIdemTTL is how long a stored submission result can be replayed.
const claimIdemTTL = 24 * time.Hour

// CreateClaim godoc
// @ID          createClaim
// @Summary     Submit an insurance claim
// @Description Creates an ONLINE claim for the current user and returns it with its claim number.
// @Description Supports idempotency via the Idempotency-Key header (same key → same claim).
// @Tags        Claims
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateClaimRequest  true  "Claim payload"
//
// @Success     201  {object}  domain.InsuranceClaim
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /claims [post]
func (h *Handlers) CreateClaim(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	currentUser := userID(c)

	// Idempotency (replay path): a retried submission with the same key
	// returns the originally created claim instead of allocating a new one.
	idemKey, _ := idempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.claimSvc.(*services.ClaimService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, currentUser, ClaimIdemScope, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetClaim(ctx, svc.DB, rec.RefID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, prev)
					return
				}
			}
		}
	}

	claim, err := h.claimSvc.Create(ctx, currentUser, req.toInput())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}

	// Idempotency (store path): best effort, a concurrent duplicate loses.
	if idemKey != "" {
		if svc, okSvc := h.claimSvc.(*services.ClaimService); okSvc && svc.DB != nil {
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, ClaimIdemScope, idemKey, claim.ID, http.StatusCreated, claimIdemTTL)
		}
	}

	ok(c, http.StatusCreated, claim)
}

// idempotencyKey returns the key stashed by the validation middleware, falling
// back to the raw Idempotency-Key header when no middleware ran.
func idempotencyKey(c *gin.Context) (string, bool) {
	if k, okKey := middleware.GetIdempotencyKey(c); okKey {
		return k, true
	}
	if v := strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey)); v != "" {
		return v, true
	}
	return "", false
}

// CreateWalkInClaim godoc
// @ID          createWalkInClaim
// @Summary     Submit a walk-in claim for a customer
// @Description Staff-entered submission. Resolves the customer to an account by email/mobile, provisioning one when needed, and creates the claim in the same transaction.
// @Tags        Claims
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Staff user ID (demo header)"  example(agent42)
// @Param       body       body    handlers.CreateWalkInClaimRequest  true  "Walk-in claim payload"
//
// @Success     201  {object}  services.WalkInClaimResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request / customer unresolvable"
// @Failure     409  {object}  handlers.ErrorResponse  "Email and mobile belong to different accounts"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /claims/walk-in [post]
func (h *Handlers) CreateWalkInClaim(c *gin.Context) {
	var req CreateWalkInClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.claimSvc.CreateWalkIn(c.Request.Context(), services.WalkInClaimInput{
		ClaimInput:     req.toInput(),
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerEmail:  strings.TrimSpace(req.CustomerEmail),
		CustomerMobile: req.CustomerMobile,
		EnteredBy:      userID(c),
	})
	switch {
	case errors.Is(err, services.ErrIdentityConflict):
		fail(c, http.StatusConflict, ErrCodeIdentityConflict, "email and mobile belong to different accounts")
		return
	case errors.Is(err, services.ErrCustomerUnresolved):
		fail(c, http.StatusBadRequest, ErrCodeCustomerUnresolved, "customer email or an existing mobile is required")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, res)
}

// ListClaims godoc
// @ID          listClaims
// @Summary     List claims (admin)
// @Description Returns a filtered, searched, paginated view across all claims.
// @Tags        Claims
// @Produce     json
//
// @Param       status     query  string  false "Filter by status"  Enums(SUBMITTED, UNDER_REVIEW, APPROVED, REJECTED, PENDING_DOCUMENTS, COMPLETED)
// @Param       source     query  string  false "Filter by source"  Enums(ONLINE, WALK_IN)
// @Param       search     query  string  false "Free text over claim number, policy number, customer name/email"
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} services.ClaimPage
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /claims [get]
func (h *Handlers) ListClaims(c *gin.Context) {
	page, pageSize := clampPagination(c)
	res, err := h.claimSvc.List(c.Request.Context(), services.ListFilter{
		Status:   c.Query("status"),
		Source:   c.Query("source"),
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, res)
}

// ListMyClaims godoc
// @ID          listMyClaims
// @Summary     List the current user's claims
// @Tags        Claims
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       source     query   string  false "Filter by source"  Enums(ONLINE, WALK_IN)
// @Param       page       query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} services.ClaimPage
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /claims/mine [get]
func (h *Handlers) ListMyClaims(c *gin.Context) {
	page, pageSize := clampPagination(c)
	res, err := h.claimSvc.ListForUser(c.Request.Context(), userID(c), page, pageSize, c.Query("source"))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, res)
}

// GetClaim godoc
// @ID          getClaim
// @Summary     Fetch one claim
// @Description Returns a claim with its documents and customer summary.
// @Tags        Claims
// @Produce     json
//
// @Param       id  path  string  true  "Claim ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.InsuranceClaim
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Claim not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /claims/{id} [get]
func (h *Handlers) GetClaim(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "claim id must be a UUID")
		return
	}

	claim, err := h.claimSvc.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrClaimNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "claim not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, claim)
}

// ClaimEvents godoc
// @ID          claimEvents
// @Summary     Claim status history
// @Description Returns the append-only status event log of a claim, oldest first.
// @Tags        Claims
// @Produce     json
//
// @Param       id  path  string  true  "Claim ID (UUID)"  format(uuid)
//
// @Success     200  {array}  domain.ClaimStatusEvent
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /claims/{id}/events [get]
func (h *Handlers) ClaimEvents(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "claim id must be a UUID")
		return
	}

	events, err := h.claimSvc.Events(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, events)
}

// UpdateClaimStatus godoc
// @ID          updateClaimStatus
// @Summary     Transition a claim's status
// @Description Moves a claim to a new review status, stamps the reviewer, and notifies the customer.
// @Tags        Claims
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Reviewer ID (demo header)"  example(admin1)
// @Param       id         path    string  true  "Claim ID (UUID)"  format(uuid)
// @Param       body       body    handlers.UpdateClaimStatusRequest  true  "New status"
//
// @Success     200  {object} domain.InsuranceClaim
// @Failure     400  {object} handlers.ErrorResponse "Unknown status"
// @Failure     404  {object} handlers.ErrorResponse "Claim not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /claims/{id}/status [put]
func (h *Handlers) UpdateClaimStatus(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "claim id must be a UUID")
		return
	}

	var req UpdateClaimStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	claim, err := h.claimSvc.UpdateStatus(c.Request.Context(), id, strings.ToUpper(strings.TrimSpace(req.Status)), req.AdminNotes, userID(c))
	switch {
	case errors.Is(err, services.ErrUnknownClaimStatus):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown claim status")
		return
	case errors.Is(err, services.ErrClaimNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "claim not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, claim)
}

// AttachClaimPDF godoc
// @ID          attachClaimPDF
// @Summary     Attach the generated report PDF
// @Description Records the report location on the claim and notifies the customer it is ready.
// @Tags        Claims
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Claim ID (UUID)"  format(uuid)
// @Param       body  body  handlers.AttachClaimPDFRequest  true  "Report location"
//
// @Success     200  {object} domain.InsuranceClaim
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Claim not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /claims/{id}/pdf [put]
func (h *Handlers) AttachClaimPDF(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "claim id must be a UUID")
		return
	}

	var req AttachClaimPDFRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PDFURL) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "pdf_url required")
		return
	}

	claim, err := h.claimSvc.AttachPDF(c.Request.Context(), id, strings.TrimSpace(req.PDFURL))
	switch {
	case errors.Is(err, services.ErrClaimNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "claim not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, claim)
}

// ClaimStats godoc
// @ID          claimStats
// @Summary     Claim dashboard stats
// @Description Returns per-status claim counts and the total estimated damage, computed fresh.
// @Tags        Claims
// @Produce     json
//
// @Success     200  {object} repo.ClaimStats
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /claims/stats [get]
func (h *Handlers) ClaimStats(c *gin.Context) {
	stats, err := h.claimSvc.Stats(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, stats)
}

// knownFileType reports whether t is one of the accepted document kinds.
// Unknown types are stored as OTHER rather than rejected.
func knownFileType(t string) bool {
	switch t {
	case domain.FileTypePhoto, domain.FileTypePolicy, domain.FileTypeEstimate, domain.FileTypeOther:
		return true
	}
	return false
}
