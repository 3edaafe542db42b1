// Checklist template administration handlers.
//
// CRUD plus reordering for the PDI checklist templates. Reads live on the
// inspection handlers (structure, leakage items); this file is the admin
// write surface.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-vehicle-backend/internal/services"
)

//
// DTOs
//

// CreateSectionRequest names a new checklist section.
type CreateSectionRequest struct {
	Title string `json:"title" binding:"required,min=1,max=255" example:"Exterior"`
}

// CreateItemRequest adds an item to an existing section.
type CreateItemRequest struct {
	SectionID string `json:"section_id" binding:"required" format:"uuid"`
	Label     string `json:"label" binding:"required,min=1,max=255" example:"Headlight alignment"`
}

// CreateLeakageItemRequest adds an entry to the leakage checklist.
type CreateLeakageItemRequest struct {
	Label string `json:"label" binding:"required,min=1,max=255" example:"Engine oil"`
}

// RenameRequest carries the new label for a section, item, or leakage item.
type RenameRequest struct {
	Label string `json:"label" binding:"required,min=1,max=255" example:"Underbody"`
}

// ReorderRequest lists IDs in their new display order. Position 1 goes to the
// first ID, and so on.
type ReorderRequest struct {
	Sections     []string `json:"sections"`
	Items        []string `json:"items"`
	LeakageItems []string `json:"leakage_items"`
}

//
// Handlers
//

// CreateSection godoc
// @ID          createSection
// @Summary     Add a checklist section
// @Description Appends a section at the end of the checklist.
// @Tags        Checklist
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateSectionRequest  true  "Section title"
//
// @Success     201  {object} domain.PDISection
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pdi/sections [post]
func (h *Handlers) CreateSection(c *gin.Context) {
	var req CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required (1-255 chars)")
		return
	}
	sec, err := h.chkSvc.CreateSection(c.Request.Context(), req.Title)
	if err != nil {
		failChecklist(c, err)
		return
	}
	ok(c, http.StatusCreated, sec)
}

// CreateItem godoc
// @ID          createItem
// @Summary     Add a checklist item
// @Description Appends an item at the end of its section.
// @Tags        Checklist
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateItemRequest  true  "Item payload"
//
// @Success     201  {object} domain.PDIItem
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Section not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pdi/items [post]
func (h *Handlers) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "section_id and label required")
		return
	}
	item, err := h.chkSvc.CreateItem(c.Request.Context(), req.SectionID, req.Label)
	if err != nil {
		failChecklist(c, err)
		return
	}
	ok(c, http.StatusCreated, item)
}

// CreateLeakage godoc
// @ID          createLeakageItem
// @Summary     Add a leakage checklist entry
// @Tags        Checklist
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateLeakageItemRequest  true  "Entry label"
//
// @Success     201  {object} domain.PDILeakageItem
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pdi/leakage-items [post]
func (h *Handlers) CreateLeakage(c *gin.Context) {
	var req CreateLeakageItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "label required (1-255 chars)")
		return
	}
	item, err := h.chkSvc.CreateLeakageItem(c.Request.Context(), req.Label)
	if err != nil {
		failChecklist(c, err)
		return
	}
	ok(c, http.StatusCreated, item)
}

// RenameSection godoc
// @ID          renameSection
// @Summary     Rename a checklist section
// @Tags        Checklist
// @Accept      json
//
// @Param       id    path  string  true  "Section ID (UUID)"  format(uuid)
// @Param       body  body  handlers.RenameRequest  true  "New title"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Section not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pdi/sections/{id} [put]
func (h *Handlers) RenameSection(c *gin.Context) {
	h.rename(c, h.chkSvc.RenameSection)
}

// RenameItem godoc
// @ID          renameItem
// @Summary     Rename a checklist item
// @Tags        Checklist
// @Accept      json
//
// @Param       id    path  string  true  "Item ID (UUID)"  format(uuid)
// @Param       body  body  handlers.RenameRequest  true  "New label"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Item not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pdi/items/{id} [put]
func (h *Handlers) RenameItem(c *gin.Context) {
	h.rename(c, h.chkSvc.RenameItem)
}

// RenameLeakage godoc
// @ID          renameLeakageItem
// @Summary     Rename a leakage checklist entry
// @Tags        Checklist
// @Accept      json
//
// @Param       id    path  string  true  "Entry ID (UUID)"  format(uuid)
// @Param       body  body  handlers.RenameRequest  true  "New label"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pdi/leakage-items/{id} [put]
func (h *Handlers) RenameLeakage(c *gin.Context) {
	h.rename(c, h.chkSvc.RenameLeakageItem)
}

// DeleteSection godoc
// @ID          deleteSection
// @Summary     Delete a checklist section and its items
// @Tags        Checklist
//
// @Param       id  path  string  true  "Section ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Section not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pdi/sections/{id} [delete]
func (h *Handlers) DeleteSection(c *gin.Context) {
	h.remove(c, h.chkSvc.DeleteSection)
}

// DeleteItem godoc
// @ID          deleteItem
// @Summary     Delete a checklist item
// @Tags        Checklist
//
// @Param       id  path  string  true  "Item ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Item not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pdi/items/{id} [delete]
func (h *Handlers) DeleteItem(c *gin.Context) {
	h.remove(c, h.chkSvc.DeleteItem)
}

// DeleteLeakage godoc
// @ID          deleteLeakageItem
// @Summary     Delete a leakage checklist entry
// @Tags        Checklist
//
// @Param       id  path  string  true  "Entry ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pdi/leakage-items/{id} [delete]
func (h *Handlers) DeleteLeakage(c *gin.Context) {
	h.remove(c, h.chkSvc.DeleteLeakageItem)
}

// ReorderChecklist godoc
// @ID          reorderChecklist
// @Summary     Reorder checklist entries
// @Description Rewrites display positions to match the supplied ID order. Any combination of the three lists may be sent; each applies atomically.
// @Tags        Checklist
// @Accept      json
//
// @Param       body  body  handlers.ReorderRequest  true  "IDs in new display order"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Unknown ID in list"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /pdi/structure/reorder [put]
func (h *Handlers) ReorderChecklist(c *gin.Context) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	ctx := c.Request.Context()
	if len(req.Sections) > 0 {
		if err := h.chkSvc.ReorderSections(ctx, req.Sections); err != nil {
			failChecklist(c, err)
			return
		}
	}
	if len(req.Items) > 0 {
		if err := h.chkSvc.ReorderItems(ctx, req.Items); err != nil {
			failChecklist(c, err)
			return
		}
	}
	if len(req.LeakageItems) > 0 {
		if err := h.chkSvc.ReorderLeakageItems(ctx, req.LeakageItems); err != nil {
			failChecklist(c, err)
			return
		}
	}
	noContent(c)
}

// rename handles the shared shape of the three rename endpoints.
func (h *Handlers) rename(c *gin.Context, fn func(ctx context.Context, id, label string) error) {
	id, okID := pathUUID(c)
	if !okID {
		return
	}
	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "label required (1-255 chars)")
		return
	}
	if err := fn(c.Request.Context(), id, req.Label); err != nil {
		failChecklist(c, err)
		return
	}
	noContent(c)
}

// remove handles the shared shape of the three delete endpoints.
func (h *Handlers) remove(c *gin.Context, fn func(ctx context.Context, id string) error) {
	id, okID := pathUUID(c)
	if !okID {
		return
	}
	if err := fn(c.Request.Context(), id); err != nil {
		failChecklist(c, err)
		return
	}
	noContent(c)
}

// failChecklist maps checklist service errors onto HTTP responses.
func failChecklist(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyLabel):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "label must not be empty")
	case errors.Is(err, services.ErrSectionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "section not found")
	case errors.Is(err, services.ErrItemNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "item not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// pathUUID validates the :id path param and reports it, failing the request
// when it is not a UUID.
func pathUUID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a UUID")
		return "", false
	}
	return id, true
}
