package testresult

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quantalab/lims-api/internal/middleware"
	"github.com/quantalab/lims-api/internal/model"
	"github.com/quantalab/lims-api/internal/service/testresult"
	apperrors "github.com/quantalab/lims-api/pkg/errors"
	"github.com/quantalab/lims-api/pkg/httputil"
)

type Handler struct {
	service *testresult.Service
}

func NewHandler(service *testresult.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the result-entry and review endpoints. The group is
// expected to be staff-gated; patients never reach these.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	results := r.Group("/test-results")
	{
		results.POST("", h.Create)
		results.GET("/:id", h.Get)
		results.DELETE("/:id", h.Delete)
		results.POST("/:id/transitions/:action", h.Transition)
	}

	r.GET("/samples/:sample_id", h.GetBySampleID)
	r.GET("/appointments/:id/test-results", h.ListByAppointment)
}

// RegisterPatientRoutes mounts the patient portal endpoint on the plain
// authenticated group; ownership is checked per request.
func (h *Handler) RegisterPatientRoutes(r *gin.RouterGroup) {
	r.GET("/patients/:account_id/results", h.ListPatientResults)
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.NewUnauthorized("authentication required"))
		return
	}

	var req model.CreateTestResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	result, err := h.service.Create(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, result)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid test result id"))
		return
	}

	result, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, result)
}

func (h *Handler) GetBySampleID(c *gin.Context) {
	result, err := h.service.GetBySampleID(c.Request.Context(), c.Param("sample_id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, result)
}

// Transition dispatches the workflow actions: advance, approve, reject,
// release. The request carries the caller's last seen version.
func (h *Handler) Transition(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.NewUnauthorized("authentication required"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid test result id"))
		return
	}

	var req model.TransitionTestResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	result, err := h.service.Transition(c.Request.Context(), actor, id, c.Param("action"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, result)
}

func (h *Handler) ListByAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid appointment id"))
		return
	}

	results, err := h.service.ListByAppointment(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, results)
}

// ListPatientResults serves the patient portal view: released results only.
// Patients may read their own trail; staff may read anyone's.
func (h *Handler) ListPatientResults(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.NewUnauthorized("authentication required"))
		return
	}

	accountID, err := uuid.Parse(c.Param("account_id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid account id"))
		return
	}

	if !actor.IsStaff() && actor.ID != accountID {
		httputil.RespondWithError(c, apperrors.NewForbidden("patients may only read their own results"))
		return
	}

	results, err := h.service.GetPatientVisibleResults(c.Request.Context(), accountID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, results)
}

func (h *Handler) Delete(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.NewUnauthorized("authentication required"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewValidation("invalid test result id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"deleted": true})
}
