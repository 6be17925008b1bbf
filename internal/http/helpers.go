package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookclub/internal/auth"
	domainerrors "github.com/mrlokans/bookclub/internal/errors"
	"github.com/mrlokans/bookclub/internal/logger"
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

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: string(domainerrors.CodeValidation)})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	logger.Log.WithError(err).WithField("context", context).Error("internal error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: string(domainerrors.CodeInternal)})
}

// errorBody converts err into a status and a client-safe body. Anything that
// is not a coded domain error is reported as an opaque internal error.
func errorBody(err error) (int, ErrorResponse) {
	var de *domainerrors.Error
	if domainerrors.As(err, &de) && de.Code != domainerrors.CodeInternal {
		return de.HTTPStatus(), ErrorResponse{Error: de.Message, Code: string(de.Code), Details: de.Details}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: string(domainerrors.CodeInternal)}
}

// --- Success Response Helpers ---

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
func parseIDParam(c *gin.Context, paramName string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		return 0, domainerrors.Validation("invalid " + paramName)
	}
	return uint(id), nil
}

// parseOptionalUint reads an optional positive integer; empty input yields nil.
func parseOptionalUint(raw string) (*uint, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		return nil, domainerrors.Validation("invalid id: " + raw)
	}
	id := uint(v)
	return &id, nil
}

// --- HTML / JSON negotiation ---

// responder decides between template rendering and JSON per request.
// Controllers embed it; html is false when no templates were loaded.
type responder struct {
	html bool
}

// wantsHTML reports whether the response should be a rendered page.
func (r responder) wantsHTML(c *gin.Context) bool {
	return r.html && !auth.IsAPIRequest(c)
}

// page renders the named template for browsers and body as JSON otherwise.
func (r responder) page(c *gin.Context, status int, name string, data gin.H, body any) {
	if !r.wantsHTML(c) {
		c.JSON(status, body)
		return
	}
	c.HTML(status, name, withPageContext(c, data))
}

// mutated finishes a successful write: browsers follow a 303 to location,
// API clients get body with status.
func (r responder) mutated(c *gin.Context, status int, location string, body any) {
	if r.wantsHTML(c) {
		c.Redirect(http.StatusSeeOther, location)
		return
	}
	if body == nil {
		c.Status(status)
		return
	}
	c.JSON(status, body)
}

// fail reports err as JSON or as the error page.
func (r responder) fail(c *gin.Context, err error) {
	status, body := errorBody(err)
	if status == http.StatusInternalServerError {
		logger.Log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
	}
	if !r.wantsHTML(c) {
		c.JSON(status, body)
		return
	}
	c.HTML(status, "error.html", withPageContext(c, gin.H{
		"Title":  http.StatusText(status),
		"Status": status,
		"Error":  body.Error,
	}))
}

// failForm re-renders a form with the error for browsers; API clients get
// the coded error JSON.
func (r responder) failForm(c *gin.Context, name string, data gin.H, err error) {
	status, body := errorBody(err)
	if status == http.StatusInternalServerError || !r.wantsHTML(c) {
		r.fail(c, err)
		return
	}
	data["Error"] = body.Error
	data["Errors"] = body.Details
	c.HTML(status, name, withPageContext(c, data))
}

// withPageContext adds the values every template expects.
func withPageContext(c *gin.Context, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	data["CurrentUser"] = auth.GetUser(c)
	data["IsAuthenticated"] = auth.IsAuthenticated(c)
	data["CSRFField"] = auth.CSRFTokenField(c)
	return data
}
