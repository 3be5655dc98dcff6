package server

import (
	"fmt"
	"net/http"
)

// ErrPipelineNotFound indicates no pipeline exists for the id
type ErrPipelineNotFound struct {
	ID string
}

func (e *ErrPipelineNotFound) Error() string {
	return fmt.Sprintf("pipeline not found: %s", e.ID)
}

// ErrMissingJobURL indicates a retry was requested for a pipeline without a
// job posting URL
type ErrMissingJobURL struct {
	ID string
}

func (e *ErrMissingJobURL) Error() string {
	return fmt.Sprintf("pipeline %s has no jdId (job URL)", e.ID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrPipelineNotFound:
		return http.StatusNotFound
	case *ErrMissingJobURL, *ErrValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
