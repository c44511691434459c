package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lexprep/barprep-backend/internal/middleware"
	"github.com/lexprep/barprep-backend/internal/model"
	"github.com/lexprep/barprep-backend/internal/response"
	"github.com/lexprep/barprep-backend/internal/service"
	"github.com/lexprep/barprep-backend/internal/validator"
)

// RunnerHandler drives a live exam session over REST. The WebSocket stream
// covers the same mutations for connected clients; these endpoints are the
// fallback and the resume path.
type RunnerHandler struct {
	catalogService *service.CatalogService
	runnerService  *service.RunnerService
}

// NewRunnerHandler creates a new RunnerHandler.
func NewRunnerHandler(catalogService *service.CatalogService, runnerService *service.RunnerService) *RunnerHandler {
	return &RunnerHandler{catalogService: catalogService, runnerService: runnerService}
}

// resolveExamParam parses :examId and loads the exam, failing the request
// itself on bad input. Shared with the WebSocket handler.
func resolveExamParam(c *gin.Context, catalogService *service.CatalogService) (*model.Exam, bool) {
	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}
	exam, err := catalogService.GetByID(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		return nil, false
	}
	return exam, true
}

// failRunner maps runner errors onto the response catalog.
func failRunner(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotActive):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotActive)
	case errors.Is(err, service.ErrConfirmationRequired):
		response.Fail(c, http.StatusConflict, response.ErrConfirmationRequired)
	case errors.Is(err, service.ErrAttemptLimitReached):
		response.Fail(c, http.StatusForbidden, response.ErrAttemptLimitReached)
	case errors.Is(err, service.ErrInvalidPosition):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	case errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// Start godoc
// POST /api/v1/runner/:examId/start
// Opens or resumes a session. Idempotent: a taker who already has state on
// this exam gets it back with resumed=true and the original countdown.
func (h *RunnerHandler) Start(c *gin.Context) {
	exam, ok := resolveExamParam(c, h.catalogService)
	if !ok {
		return
	}
	actor := middleware.GetActor(c)

	state, err := h.runnerService.Start(c.Request.Context(), actor, exam)
	if err != nil {
		failRunner(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// State godoc
// GET /api/v1/runner/:examId/state
func (h *RunnerHandler) State(c *gin.Context) {
	exam, ok := resolveExamParam(c, h.catalogService)
	if !ok {
		return
	}
	actor := middleware.GetActor(c)

	state, err := h.runnerService.State(c.Request.Context(), actor, exam)
	if err != nil {
		failRunner(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

type answerRequest struct {
	Position int    `json:"position" binding:"required,min=1"`
	OptionID string `json:"option_id" binding:"required"`
}

// Answer godoc
// PUT /api/v1/runner/:examId/answer
func (h *RunnerHandler) Answer(c *gin.Context) {
	exam, ok := resolveExamParam(c, h.catalogService)
	if !ok {
		return
	}
	actor := middleware.GetActor(c)

	var req answerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.runnerService.Answer(c.Request.Context(), actor, exam, req.Position, req.OptionID)
	if err != nil {
		failRunner(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"progress": state})
}

type bookmarkRequest struct {
	Position int `json:"position" binding:"required,min=1"`
}

// Bookmark godoc
// PUT /api/v1/runner/:examId/bookmark
func (h *RunnerHandler) Bookmark(c *gin.Context) {
	exam, ok := resolveExamParam(c, h.catalogService)
	if !ok {
		return
	}
	actor := middleware.GetActor(c)

	var req bookmarkRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.runnerService.ToggleBookmark(c.Request.Context(), actor, exam, req.Position)
	if err != nil {
		failRunner(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"progress": state})
}

type positionRequest struct {
	Index int `json:"index" binding:"min=0"`
}

// Position godoc
// PUT /api/v1/runner/:examId/position
func (h *RunnerHandler) Position(c *gin.Context) {
	exam, ok := resolveExamParam(c, h.catalogService)
	if !ok {
		return
	}
	actor := middleware.GetActor(c)

	var req positionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.runnerService.Navigate(c.Request.Context(), actor, exam, req.Index)
	if err != nil {
		failRunner(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"progress": state})
}

type finishRequest struct {
	Confirmed bool `json:"confirmed"`
}

// Finish godoc
// POST /api/v1/runner/:examId/finish
// Grades and tears down the session. Requires confirmed=true unless the
// countdown already ran out; finishing is irreversible.
func (h *RunnerHandler) Finish(c *gin.Context) {
	exam, ok := resolveExamParam(c, h.catalogService)
	if !ok {
		return
	}
	actor := middleware.GetActor(c)

	var req finishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	result, err := h.runnerService.Finish(c.Request.Context(), actor, exam, req.Confirmed)
	if err != nil {
		failRunner(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
