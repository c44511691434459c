package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lexprep/barprep-backend/internal/middleware"
	"github.com/lexprep/barprep-backend/internal/model"
	"github.com/lexprep/barprep-backend/internal/response"
	"github.com/lexprep/barprep-backend/internal/service"
	"github.com/lexprep/barprep-backend/internal/validator"
)

// CatalogHandler serves the public exam catalog.
type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// ListExams godoc
// GET /api/v1/catalog/exams?exam_type=BARRISTER
// Lists the catalog, optionally filtered by track.
func (h *CatalogHandler) ListExams(c *gin.Context) {
	examType := c.Query("exam_type")
	if examType != "" &&
		examType != string(model.ExamTypeBarrister) &&
		examType != string(model.ExamTypeSolicitor) {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
		return
	}

	exams, err := h.catalogService.List(c.Request.Context(), examType)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// ResolveExam godoc
// GET /api/v1/catalog/exams/resolve?exam_type=...&pricing_type=...&exam_set=...
// Resolves an exam from its identifying triple. The set is optional; absent
// means the single unnamed set for that (type, pricing) pair.
func (h *CatalogHandler) ResolveExam(c *gin.Context) {
	var ident model.ExamIdentity
	if fields := validator.BindQuery(c, &ident); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.catalogService.GetByIdentity(c.Request.Context(), ident)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// GetExam godoc
// GET /api/v1/catalog/exams/:examId
func (h *CatalogHandler) GetExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.catalogService.GetByID(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// GetQuestionsPage godoc
// GET /api/v1/catalog/exams/:examId/questions?page=1&per_page=20
// One page of taker-facing questions, correctness withheld. Serves preview
// and review flows outside a live session.
func (h *CatalogHandler) GetQuestionsPage(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	questions, total, err := h.catalogService.QuestionsPage(c.Request.Context(), examID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		return
	}

	totalPages := (total + perPage - 1) / perPage
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"questions": questions}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	})
}

// GetRemainingAttempts godoc
// GET /api/v1/catalog/exams/:examId/attempts-remaining
// Registered users only; guests have no durable attempts to count.
func (h *CatalogHandler) GetRemainingAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.catalogService.GetByID(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		return
	}

	remaining, err := h.catalogService.RemainingAttempts(c.Request.Context(), claims.UserID, exam)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"max_attempts": exam.MaxAttempts,
		"remaining":    remaining,
	})
}
