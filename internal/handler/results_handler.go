package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lexprep/barprep-backend/internal/middleware"
	"github.com/lexprep/barprep-backend/internal/response"
	"github.com/lexprep/barprep-backend/internal/service"
)

// ResultsHandler serves the post-exam review.
type ResultsHandler struct {
	resultsService *service.ResultsService
}

// NewResultsHandler creates a new ResultsHandler.
func NewResultsHandler(resultsService *service.ResultsService) *ResultsHandler {
	return &ResultsHandler{resultsService: resultsService}
}

// GetSessionResults godoc
// GET /api/v1/results/session/:examId
// Renders the actor's latest finished sitting from the ephemeral snapshot.
// This is the only results source guests have.
func (h *ResultsHandler) GetSessionResults(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	actor := middleware.GetActor(c)

	view, err := h.resultsService.FromSession(c.Request.Context(), actor, examID)
	if err != nil {
		if errors.Is(err, service.ErrResultsNotReady) {
			response.Fail(c, http.StatusNotFound, response.ErrResultsNotReady)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// GetAttemptResults godoc
// GET /api/v1/results/attempts/:attemptId
// Renders a durable attempt. Registered users only, own attempts only.
func (h *ResultsHandler) GetAttemptResults(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attemptId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	view, err := h.resultsService.FromAttempt(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// GetHistory godoc
// GET /api/v1/results/attempts
// Lists the user's attempt history, newest first.
func (h *ResultsHandler) GetHistory(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attempts, err := h.resultsService.History(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}
