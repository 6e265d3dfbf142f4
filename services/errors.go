package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/zumerkk/entas-sub001/common/logger"
	"github.com/zumerkk/entas-sub001/models"
	"github.com/zumerkk/entas-sub001/repository"
)

// ServiceError represents a typed error with an HTTP status code. Field names the offending
// request field when there is one.
type ServiceError struct {
	StatusCode int
	Message    string
	Field      string
}

func (e *ServiceError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

func badRequest(field, msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusBadRequest, Message: msg, Field: field}
}

func notFound(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusNotFound, Message: msg}
}

func forbidden() *ServiceError {
	return &ServiceError{StatusCode: http.StatusForbidden, Message: "Forbidden"}
}

// classify maps model and repository errors to a ServiceError. Anything unrecognized is
// logged and reported as 500 with failMsg.
func classify(ctx context.Context, log *zap.Logger, err error, notFoundMsg, failMsg string) *ServiceError {
	var (
		dupErr        *repository.DuplicateKeyError
		validationErr *models.ValidationError
		mismatchErr   *models.AttributeMismatchError
		transitionErr *models.InvalidTransitionError
	)

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound(notFoundMsg)
	case errors.As(err, &dupErr):
		return &ServiceError{StatusCode: http.StatusConflict, Message: fmt.Sprintf("%s already exists", dupErr.Field), Field: dupErr.Field}
	case errors.As(err, &validationErr):
		return badRequest(validationErr.Field, validationErr.Message)
	case errors.As(err, &mismatchErr):
		return &ServiceError{StatusCode: http.StatusUnprocessableEntity, Message: mismatchErr.Error(), Field: "attributes." + mismatchErr.Key}
	case errors.As(err, &transitionErr):
		return &ServiceError{StatusCode: http.StatusConflict, Message: transitionErr.Error(), Field: "status"}
	case errors.Is(err, repository.ErrStatusConflict):
		return &ServiceError{StatusCode: http.StatusConflict, Message: "Payment status was changed by another request, reload and retry", Field: "status"}
	case errors.Is(err, ErrReferenceNotFound):
		return &ServiceError{StatusCode: http.StatusUnprocessableEntity, Message: err.Error()}
	case errors.Is(err, ErrReferenceUnavailable):
		logger.FromContext(ctx, log).Error("reference check failed", zap.Error(err))
		return &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "Reference service unavailable"}
	case errors.Is(err, context.DeadlineExceeded):
		logger.FromContext(ctx, log).Error(failMsg, zap.Error(err))
		return &ServiceError{StatusCode: http.StatusGatewayTimeout, Message: "Request timed out"}
	default:
		logger.FromContext(ctx, log).Error(failMsg, zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: failMsg}
	}
}
