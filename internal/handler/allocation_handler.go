package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-room-api/internal/dto"
	appErrors "github.com/noah-isme/exam-room-api/pkg/errors"
	"github.com/noah-isme/exam-room-api/pkg/response"
)

type allocationService interface {
	Allocate(ctx context.Context, req dto.AllocationRequest) (*dto.AllocationBatchResponse, error)
	Preview(ctx context.Context, req dto.AllocationRequest) (*dto.AllocationBatchResponse, error)
	CheckConflicts(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictReport, error)
	CancelCourse(ctx context.Context, req dto.CancelAllocationRequest) (*dto.CancelAllocationResponse, error)
	ListBySlot(ctx context.Context, req dto.SlotRequest) (*dto.SlotAllocationsResponse, error)
}

// AllocationHandler exposes the room allocation endpoints.
type AllocationHandler struct {
	service allocationService
}

// NewAllocationHandler constructs the handler.
func NewAllocationHandler(svc allocationService) *AllocationHandler {
	return &AllocationHandler{service: svc}
}

// Register mounts the allocation routes on rg.
func (h *AllocationHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/allocations/auto", h.Auto)
	rg.POST("/allocations/preview", h.Preview)
	rg.POST("/allocations/check-conflicts", h.CheckConflicts)
	rg.POST("/allocations/cancel", h.Cancel)
	rg.GET("/allocations", h.List)
}

// Auto godoc
// @Summary Allocate rooms for courses in an exam slot
// @Description Runs one allocation batch. Omit course_ids to allocate every active course still needing seats.
// @Tags Allocations
// @Accept json
// @Produce json
// @Param payload body dto.AllocationRequest true "Allocation payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /allocations/auto [post]
func (h *AllocationHandler) Auto(c *gin.Context) {
	var req dto.AllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid allocation payload"))
		return
	}
	result, err := h.service.Allocate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	message := fmt.Sprintf("allocated %d of %d courses", result.Summary.Succeeded, result.Summary.TotalCourses)
	response.WithMessage(c, http.StatusCreated, message, result)
}

// Preview godoc
// @Summary Preview an allocation batch without saving it
// @Tags Allocations
// @Accept json
// @Produce json
// @Param payload body dto.AllocationRequest true "Allocation payload"
// @Success 200 {object} response.Envelope
// @Router /allocations/preview [post]
func (h *AllocationHandler) Preview(c *gin.Context) {
	var req dto.AllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preview payload"))
		return
	}
	result, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// CheckConflicts godoc
// @Summary Check candidate courses against existing allocations in a slot
// @Tags Allocations
// @Accept json
// @Produce json
// @Param payload body dto.ConflictCheckRequest true "Conflict check payload"
// @Success 200 {object} response.Envelope
// @Router /allocations/check-conflicts [post]
func (h *AllocationHandler) CheckConflicts(c *gin.Context) {
	var req dto.ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict check payload"))
		return
	}
	report, err := h.service.CheckConflicts(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Cancel godoc
// @Summary Cancel a course's allocations in a slot
// @Tags Allocations
// @Accept json
// @Produce json
// @Param payload body dto.CancelAllocationRequest true "Cancel payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /allocations/cancel [post]
func (h *AllocationHandler) Cancel(c *gin.Context) {
	var req dto.CancelAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancel payload"))
		return
	}
	result, err := h.service.CancelCourse(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// List godoc
// @Summary List active allocations of a slot
// @Tags Allocations
// @Produce json
// @Param date query string true "Exam date (YYYY-MM-DD)"
// @Param start_time query string true "Start time (HH:MM)"
// @Param end_time query string true "End time (HH:MM)"
// @Success 200 {object} response.Envelope
// @Router /allocations [get]
func (h *AllocationHandler) List(c *gin.Context) {
	var query dto.SlotRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot query"))
		return
	}
	result, err := h.service.ListBySlot(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
