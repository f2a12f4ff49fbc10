package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"reportgen/internal/ingest"
	"reportgen/internal/llm"
	"reportgen/internal/logger"
	"reportgen/internal/reports"
	"reportgen/internal/tables"
)

var errFileTooLarge = errors.New("file too large")

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, reports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reports.ErrNameTaken):
		return http.StatusConflict
	case errors.Is(err, reports.ErrWrongMode),
		errors.Is(err, reports.ErrSchemaMismatch),
		errors.Is(err, reports.ErrInvalidArgument),
		errors.Is(err, reports.ErrUnknownField),
		errors.Is(err, tables.ErrInvalidIdentifier),
		errors.Is(err, ingest.ErrEmptySheet):
		return http.StatusBadRequest
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, llm.ErrUpstream), errors.Is(err, llm.ErrNotConfigured):
		return http.StatusBadGateway
	case isUniqueViolation(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// isUniqueViolation catches a name race that slips past the existence check.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value violates unique constraint")
}

func respondError(c *gin.Context, log *logger.Logger, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error(message, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"message": message, "details": err.Error()})
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "details": err.Error()})
}

// parseUintParam reads a positive integer path parameter, answering 400
// itself when it is malformed.
func parseUintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid " + name + " format"})
		return 0, false
	}
	return uint(v), true
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid " + name + " format"})
		return 0, false
	}
	return v, true
}
