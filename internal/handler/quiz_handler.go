package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quizdrop/quizdrop-backend/internal/config"
	"github.com/quizdrop/quizdrop-backend/internal/model"
	"github.com/quizdrop/quizdrop-backend/internal/response"
	"github.com/quizdrop/quizdrop-backend/internal/service"
	"github.com/quizdrop/quizdrop-backend/internal/validator"
)

// QuizHandler handles the quiz record endpoints.
type QuizHandler struct {
	quizService *service.QuizService
	cfg         *config.Config
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService *service.QuizService, cfg *config.Config) *QuizHandler {
	return &QuizHandler{quizService: quizService, cfg: cfg}
}

// Upload godoc
// POST /api/upload-quiz
// Accepts the quiz metadata form plus a JSON question file and creates a
// new quiz record.
func (h *QuizHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	if strings.ToLower(filepath.Ext(header.Filename)) != ".json" {
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
		return
	}
	if header.Size > h.cfg.MaxUploadBytes {
		response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
		return
	}

	var req model.UploadQuizRequest
	if fields := validator.BindForm(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	stagedPath, err := h.quizService.StagePayload(file)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	rec, err := h.quizService.Create(toMeta(req.QuizMetaRequest), stagedPath, req.Password)
	if err != nil {
		failQuiz(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"message": "Quiz uploaded successfully",
		"id":      rec.ID,
		"url":     "/quiz/" + rec.ID,
	})
}

// Search godoc
// GET /api/search-quizzes?searchBy=<field>&query=<substring>
func (h *QuizHandler) Search(c *gin.Context) {
	field := model.SearchField(c.Query("searchBy"))
	query := c.Query("query")

	quizzes, err := h.quizService.Search(field, query)
	if err != nil {
		failQuiz(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quizzes": quizzes})
}

// List godoc
// GET /api/quizzes
func (h *QuizHandler) List(c *gin.Context) {
	quizzes, err := h.quizService.List()
	if err != nil {
		failQuiz(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quizzes": quizzes})
}

// Get godoc
// GET /api/quiz/:id
func (h *QuizHandler) Get(c *gin.Context) {
	rec, err := h.quizService.Get(c.Param("id"))
	if err != nil {
		failQuiz(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quiz": rec})
}

// VerifyPassword godoc
// POST /api/quiz/:id/verify-password
// Always answers with a validity flag for a known quiz; a wrong password
// is not an error.
func (h *QuizHandler) VerifyPassword(c *gin.Context) {
	var req model.PasswordRequest
	if fields := validator.BindJSON(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	valid, err := h.quizService.VerifyOwnership(c.Param("id"), req.Password)
	if err != nil {
		failQuiz(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"valid": valid})
}

// Update godoc
// PUT /api/quiz/:id
// Same form as upload; the file is optional and the password must match
// the record's digest.
func (h *QuizHandler) Update(c *gin.Context) {
	var req model.EditQuizRequest
	if fields := validator.BindForm(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	stagedPath := ""
	file, header, err := c.Request.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		if strings.ToLower(filepath.Ext(header.Filename)) != ".json" {
			response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
			return
		}
		if header.Size > h.cfg.MaxUploadBytes {
			response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
			return
		}
		stagedPath, err = h.quizService.StagePayload(file)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
	case errors.Is(err, http.ErrMissingFile):
		// Metadata-only edit.
	default:
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}

	if err := h.quizService.Update(c.Param("id"), toMeta(req.QuizMetaRequest), req.Password, stagedPath); err != nil {
		failQuiz(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Quiz updated successfully"})
}

// Delete godoc
// DELETE /api/quiz/:id
func (h *QuizHandler) Delete(c *gin.Context) {
	var req model.PasswordRequest
	if fields := validator.BindJSON(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.quizService.Delete(c.Param("id"), req.Password); err != nil {
		failQuiz(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Quiz deleted successfully"})
}

// toMeta converts the bound form fields into the service metadata type.
func toMeta(req model.QuizMetaRequest) service.QuizMeta {
	return service.QuizMeta{
		Title:       req.Title,
		Subject:     req.Subject,
		Description: req.Description,
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
	}
}

// failQuiz maps service errors onto the response envelope.
func failQuiz(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrInvalidField):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidField)
	case errors.Is(err, service.ErrValidation):
		response.FailWithReason(c, http.StatusBadRequest, response.ErrValidation, err.Error())
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
