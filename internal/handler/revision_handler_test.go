package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/smd-edu/syllabus-api/internal/dto"
	"github.com/smd-edu/syllabus-api/internal/models"
	appErrors "github.com/smd-edu/syllabus-api/pkg/errors"
)

type fakeRevisionSrv struct {
	session    *models.RevisionSession
	response   *dto.RevisionSessionResponse
	err        error
	lastReview dto.ReviewRevisionRequest
	lastStart  dto.StartRevisionRequest
}

func (f *fakeRevisionSrv) Start(_ context.Context, req dto.StartRevisionRequest, _ *models.JWTClaims) (*models.RevisionSession, error) {
	f.lastStart = req
	return f.session, f.err
}

func (f *fakeRevisionSrv) Submit(context.Context, string, dto.SubmitRevisionRequest, *models.JWTClaims) (*models.RevisionSession, error) {
	return f.session, f.err
}

func (f *fakeRevisionSrv) Review(_ context.Context, _ string, req dto.ReviewRevisionRequest, _ *models.JWTClaims) (*models.RevisionSession, error) {
	f.lastReview = req
	return f.session, f.err
}

func (f *fakeRevisionSrv) Republish(context.Context, string, *models.JWTClaims) (*models.RevisionSession, error) {
	return f.session, f.err
}

func (f *fakeRevisionSrv) Cancel(context.Context, string, *models.JWTClaims) (*models.RevisionSession, error) {
	return f.session, f.err
}

func (f *fakeRevisionSrv) Get(context.Context, string, *models.JWTClaims) (*dto.RevisionSessionResponse, error) {
	return f.response, f.err
}

func (f *fakeRevisionSrv) ActiveSession(context.Context, string, *models.JWTClaims) (*dto.RevisionSessionResponse, error) {
	return f.response, f.err
}

func (f *fakeRevisionSrv) CompletedSession(context.Context, string, *models.JWTClaims) (*dto.RevisionSessionResponse, error) {
	return f.response, f.err
}

func (f *fakeRevisionSrv) PendingReview(context.Context, *models.JWTClaims) ([]models.RevisionSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.RevisionSession{*f.session}, nil
}

func TestRevisionHandlerStartRequiresSyllabusID(t *testing.T) {
	handler := NewRevisionHandler(&fakeRevisionSrv{})

	c, rec := authedContext(t, http.MethodPost, "/revisions", `{"description":"x"}`)

	handler.Start(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRevisionHandlerStartSuccess(t *testing.T) {
	service := &fakeRevisionSrv{session: &models.RevisionSession{ID: "rev-1", Status: models.RevisionOpen}}
	handler := NewRevisionHandler(service)

	c, rec := authedContext(t, http.MethodPost, "/revisions", `{"syllabusId":"syl-1","feedbackIds":["fb-1"]}`)

	handler.Start(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "syl-1", service.lastStart.SyllabusID)
	assert.Equal(t, []string{"fb-1"}, service.lastStart.FeedbackIDs)
}

func TestRevisionHandlerReviewNormalizesDecision(t *testing.T) {
	service := &fakeRevisionSrv{session: &models.RevisionSession{ID: "rev-1"}}
	handler := NewRevisionHandler(service)

	c, rec := authedContext(t, http.MethodPost, "/revisions/rev-1/review", `{"decision":"approved"}`)
	c.Params = gin.Params{{Key: "id", Value: "rev-1"}}

	handler.Review(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RevisionDecisionApproved, service.lastReview.Decision)
}

func TestRevisionHandlerRepublishConflict(t *testing.T) {
	handler := NewRevisionHandler(&fakeRevisionSrv{err: appErrors.ErrStale})

	c, rec := authedContext(t, http.MethodPost, "/revisions/rev-1/republish", "")
	c.Params = gin.Params{{Key: "id", Value: "rev-1"}}

	handler.Republish(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	assert.Equal(t, "STALE_STATE", env.Error.Code)
}

func TestRevisionHandlerActiveSessionNotFound(t *testing.T) {
	handler := NewRevisionHandler(&fakeRevisionSrv{err: appErrors.ErrNotFound})

	c, rec := authedContext(t, http.MethodGet, "/syllabi/syl-1/revision", "")
	c.Params = gin.Params{{Key: "id", Value: "syl-1"}}

	handler.ActiveSession(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
