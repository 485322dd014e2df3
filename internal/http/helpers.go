package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/wordpack/internal/auth"
	"github.com/mrlokans/wordpack/internal/database"
	"github.com/mrlokans/wordpack/internal/database/articles"
	"github.com/mrlokans/wordpack/internal/database/examples"
	"github.com/mrlokans/wordpack/internal/database/lemmas"
	"github.com/mrlokans/wordpack/internal/database/users"
	"github.com/mrlokans/wordpack/internal/docstore"
	"github.com/mrlokans/wordpack/internal/entities"
	"github.com/mrlokans/wordpack/internal/importers"
	"github.com/mrlokans/wordpack/internal/search"
	"github.com/mrlokans/wordpack/internal/tasks"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	HasMore    bool  `json:"has_more"`
	TotalPages int   `json:"total_pages,omitempty"`
}

func newPaginatedResponse(data any, total int64, limit, offset int) PaginatedResponse {
	resp := PaginatedResponse{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+limit) < total,
	}
	if limit > 0 {
		resp.TotalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return resp
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// validationErrors are caller mistakes reported by the database layer.
var validationErrors = []error{
	database.ErrEmptyPackID,
	database.ErrEmptyExample,
	lemmas.ErrEmptyLabel,
	entities.ErrInvalidCategory,
	examples.ErrInvalidTypingInput,
	examples.ErrInvalidOrderField,
	search.ErrInvalidMode,
	articles.ErrInvalidLinkStatus,
	users.ErrEmptyUsername,
	auth.ErrPasswordTooShort,
	auth.ErrPasswordTooLong,
	importers.ErrInvalidURL,
	tasks.ErrMissingParam,
}

// respondStoreError maps a database error to a response. Validation errors
// become 400s and their message is returned; anything else is a 500.
func respondStoreError(c *gin.Context, err error, context string) {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			respondBadRequest(c, err.Error())
			return
		}
	}
	switch {
	case errors.Is(err, tasks.ErrUnknownTaskType):
		respondNotFound(c, "task type")
	case errors.Is(err, users.ErrUsernameTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "username_taken"})
	case errors.Is(err, docstore.ErrAggregationUnsupported):
		c.JSON(http.StatusNotImplemented, ErrorResponse{Error: err.Error(), Code: "aggregation_unsupported"})
	default:
		respondInternalError(c, err, context)
	}
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates a positive integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return id, true
}

// parseCategoryParam validates the :category URL parameter.
func parseCategoryParam(c *gin.Context) (entities.Category, bool) {
	category, err := entities.ParseCategory(c.Param("category"))
	if err != nil {
		respondBadRequest(c, err.Error())
		return "", false
	}
	return category, true
}

// parsePagination reads limit and offset query parameters. Out-of-range
// values fall back to the defaults.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageSize
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= maxPageSize {
		limit = l
	}
	if o, err := strconv.Atoi(c.Query("offset")); err == nil && o >= 0 {
		offset = o
	}
	return limit, offset
}
