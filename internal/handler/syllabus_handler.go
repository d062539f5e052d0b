package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smd-edu/syllabus-api/internal/dto"
	"github.com/smd-edu/syllabus-api/internal/models"
	appErrors "github.com/smd-edu/syllabus-api/pkg/errors"
	"github.com/smd-edu/syllabus-api/pkg/response"
)

type syllabusService interface {
	Create(ctx context.Context, req dto.CreateSyllabusRequest, actor *models.JWTClaims) (*models.Syllabus, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Syllabus, error)
	List(ctx context.Context, query dto.SyllabusQuery, actor *models.JWTClaims) ([]models.Syllabus, error)
	Submit(ctx context.Context, id string, actor *models.JWTClaims) (*models.Syllabus, error)
	Decide(ctx context.Context, id string, req dto.ApprovalRequest, actor *models.JWTClaims) (*models.Syllabus, error)
	Archive(ctx context.Context, id string, req dto.ArchiveSyllabusRequest, actor *models.JWTClaims) (*models.Syllabus, error)
	History(ctx context.Context, id string, actor *models.JWTClaims) ([]models.ApprovalHistory, error)
	StatusTabs(actor *models.JWTClaims) ([]dto.StatusTab, error)
}

// SyllabusHandler exposes REST endpoints for the approval workflow.
type SyllabusHandler struct {
	service syllabusService
}

// NewSyllabusHandler constructs the handler.
func NewSyllabusHandler(service syllabusService) *SyllabusHandler {
	return &SyllabusHandler{service: service}
}

// Create godoc
// @Summary Draft a new syllabus version
// @Tags Syllabi
// @Accept json
// @Produce json
// @Param payload body dto.CreateSyllabusRequest true "Syllabus payload"
// @Success 201 {object} response.Envelope
// @Router /syllabi [post]
func (h *SyllabusHandler) Create(c *gin.Context) {
	var req dto.CreateSyllabusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid syllabus payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	syllabus, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, syllabus, nil)
}

// List godoc
// @Summary List syllabi visible to the caller
// @Tags Syllabi
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param search query string false "Subject code or name fragment"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} response.Envelope
// @Router /syllabi [get]
func (h *SyllabusHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.SyllabusQuery{
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.SyllabusStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.SyllabusStatus(part))
		}
		query.Status = statuses
	}
	syllabi, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, syllabi, nil)
}

// Get godoc
// @Summary Get syllabus detail
// @Tags Syllabi
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id} [get]
func (h *SyllabusHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	syllabus, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, syllabus, nil)
}

// Submit godoc
// @Summary Submit a draft for approval
// @Tags Syllabi
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/submit [post]
func (h *SyllabusHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	syllabus, err := h.service.Submit(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, syllabus, nil)
}

// Decide godoc
// @Summary Approve or reject a pending syllabus
// @Tags Syllabi
// @Accept json
// @Produce json
// @Param id path string true "Syllabus ID"
// @Param payload body dto.ApprovalRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/decision [post]
func (h *SyllabusHandler) Decide(c *gin.Context) {
	var req dto.ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	req.Action = models.ApprovalAction(strings.ToUpper(string(req.Action)))
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	syllabus, err := h.service.Decide(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, syllabus, nil)
}

// Archive godoc
// @Summary Archive a published syllabus
// @Tags Syllabi
// @Accept json
// @Produce json
// @Param id path string true "Syllabus ID"
// @Param payload body dto.ArchiveSyllabusRequest true "Archive reason"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/archive [post]
func (h *SyllabusHandler) Archive(c *gin.Context) {
	var req dto.ArchiveSyllabusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid archive payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	syllabus, err := h.service.Archive(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, syllabus, nil)
}

// History godoc
// @Summary List approval decisions of a syllabus
// @Tags Syllabi
// @Produce json
// @Param id path string true "Syllabus ID"
// @Success 200 {object} response.Envelope
// @Router /syllabi/{id}/history [get]
func (h *SyllabusHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	history, err := h.service.History(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// StatusTabs godoc
// @Summary Status tab bar for the caller's role
// @Tags Syllabi
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /syllabi/status-tabs [get]
func (h *SyllabusHandler) StatusTabs(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	tabs, err := h.service.StatusTabs(claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tabs, nil)
}

func queryInt(c *gin.Context, key string) int {
	raw := c.Query(key)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
