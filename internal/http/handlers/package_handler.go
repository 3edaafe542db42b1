// Package ledger HTTP handlers.
//
//   - GET  /packages/mine  (customer's credit packages)
//   - POST /packages       (admin grants a package)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-vehicle-backend/internal/services"
)

// GrantPackageRequest creates a credit package for a customer.
type GrantPackageRequest struct {
	UserID      string `json:"user_id" binding:"required" format:"uuid"`
	PackageName string `json:"package_name" binding:"required" example:"PDI Starter 5"`
	PDICount    int    `json:"pdi_count" binding:"required,min=1" example:"5"`
}

// ListMyPackages godoc
// @ID          listMyPackages
// @Summary     List the current user's credit packages
// @Description Returns packages oldest purchase first, the order consumption walks them.
// @Tags        Packages
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {array}  domain.UserPackage
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /packages/mine [get]
func (h *Handlers) ListMyPackages(c *gin.Context) {
	pkgs, err := h.pkgSvc.ListForUser(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, pkgs)
}

// GrantPackage godoc
// @ID          grantPackage
// @Summary     Grant a credit package to a customer
// @Tags        Packages
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.GrantPackageRequest  true  "Package payload"
//
// @Success     201  {object} domain.UserPackage
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /packages [post]
func (h *Handlers) GrantPackage(c *gin.Context) {
	var req GrantPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id, package_name and pdi_count >= 1 required")
		return
	}

	pkg, err := h.pkgSvc.Grant(c.Request.Context(), req.UserID, strings.TrimSpace(req.PackageName), req.PDICount)
	switch {
	case errors.Is(err, services.ErrInvalidPackageCount):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "pdi_count must be at least 1")
		return
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, pkg)
}
