package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smd-edu/syllabus-api/internal/dto"
	"github.com/smd-edu/syllabus-api/internal/models"
	appErrors "github.com/smd-edu/syllabus-api/pkg/errors"
	"github.com/smd-edu/syllabus-api/pkg/response"
)

type revisionService interface {
	Start(ctx context.Context, req dto.StartRevisionRequest, actor *models.JWTClaims) (*models.RevisionSession, error)
	Submit(ctx context.Context, sessionID string, req dto.SubmitRevisionRequest, actor *models.JWTClaims) (*models.RevisionSession, error)
	Review(ctx context.Context, sessionID string, req dto.ReviewRevisionRequest, actor *models.JWTClaims) (*models.RevisionSession, error)
	Republish(ctx context.Context, sessionID string, actor *models.JWTClaims) (*models.RevisionSession, error)
	Cancel(ctx context.Context, sessionID string, actor *models.JWTClaims) (*models.RevisionSession, error)
	Get(ctx context.Context, sessionID string, actor *models.JWTClaims) (*dto.RevisionSessionResponse, error)
	ActiveSession(ctx context.Context, syllabusID string, actor *models.JWTClaims) (*dto.RevisionSessionResponse, error)
	CompletedSession(ctx context.Context, syllabusID string, actor *models.JWTClaims) (*dto.RevisionSessionResponse, error)
	PendingReview(ctx context.Context, actor *models.JWTClaims) ([]models.RevisionSession, error)
}

// RevisionHandler exposes REST endpoints for post-publication revisions.
type RevisionHandler struct {
	service revisionService
}

// NewRevisionHandler constructs the handler.
func NewRevisionHandler(service revisionService) *RevisionHandler {
	return &RevisionHandler{service: service}
}

// Start godoc
// @Summary Open a revision session for a published syllabus
// @Tags Revisions
// @Accept json
// @Produce json
// @Param payload body dto.StartRevisionRequest true "Revision payload"
// @Success 201 {object} response.Envelope
// @Router /revisions [post]
func (h *RevisionHandler) Start(c *gin.Context) {
	var req dto.StartRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid revision payload"))
		return
	}
	if strings.TrimSpace(req.SyllabusID) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "syllabusId is required"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	session, err := h.service.Start(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, session, nil)
}

// Get godoc
// @Summary Get revision session detail
// @Tags Revisions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /revisions/{id} [get]
func (h *RevisionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	session, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Submit godoc
// @Summary Submit a corrected syllabus for HOD review
// @Tags Revisions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SubmitRevisionRequest true "Submission summary"
// @Success 200 {object} response.Envelope
// @Router /revisions/{id}/submit [post]
func (h *RevisionHandler) Submit(c *gin.Context) {
	var req dto.SubmitRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid submission payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	session, err := h.service.Submit(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Review godoc
// @Summary Record the HOD verdict on a submitted revision
// @Tags Revisions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.ReviewRevisionRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Router /revisions/{id}/review [post]
func (h *RevisionHandler) Review(c *gin.Context) {
	var req dto.ReviewRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	req.Decision = models.RevisionDecision(strings.ToUpper(string(req.Decision)))
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	session, err := h.service.Review(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Republish godoc
// @Summary Republish an approved revision
// @Tags Revisions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /revisions/{id}/republish [post]
func (h *RevisionHandler) Republish(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	session, err := h.service.Republish(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Cancel godoc
// @Summary Cancel a revision session before review
// @Tags Revisions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /revisions/{id}/cancel [post]
func (h *RevisionHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	session, err := h.service.Cancel(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// PendingReview godoc
// @Summary List sessions awaiting review or republish
// @Tags Revisions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /revisions/pending [get]
func (h *RevisionHandler) PendingReview(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	sessions, err := h.service.PendingReview(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// ActiveSession godoc
// @Summary Get the active revision session of a syllabus
// @Tags Revisions
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/revision [get]
func (h *RevisionHandler) ActiveSession(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	session, err := h.service.ActiveSession(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// CompletedSession godoc
// @Summary Get the latest completed revision session of a syllabus
// @Tags Revisions
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/revision/completed [get]
func (h *RevisionHandler) CompletedSession(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	session, err := h.service.CompletedSession(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}
