package exceptions

import (
	"errors"
	"fmt"
	"net/http"
)

type ServiceError struct {
	StatusCode int
	Cause      error
}

func (se *ServiceError) Error() string {
	return se.Cause.Error()
}

func (se *ServiceError) Unwrap() error {
	return se.Cause
}

type RequestError interface {
	ToServiceError() *ServiceError
	Error() string
}

type ConflictError struct {
	Resource string
	Id       string
}

func (ce *ConflictError) Error() string {
	return fmt.Sprintf("Found conflicting %s with id: %s", ce.Resource, ce.Id)
}

func (ce *ConflictError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusConflict,
		Cause:      ce,
	}
}

func Conflict(resource string, id string) *ConflictError {
	return &ConflictError{
		Resource: resource,
		Id:       id,
	}
}

type NotFoundError struct {
	Resource string
	Id       string
}

func (nfe *NotFoundError) Error() string {
	if nfe.Id == "" {
		return fmt.Sprintf("Could not find a %s", nfe.Resource)
	}
	return fmt.Sprintf("Could not find a %s with id: %s", nfe.Resource, nfe.Id)
}

func (nfe *NotFoundError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusNotFound,
		Cause:      nfe,
	}
}

func NotFound(resource string, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Id:       id,
	}
}

type InvalidInputError struct {
	Message string
}

func (ie *InvalidInputError) Error() string {
	return ie.Message
}

func (ie *InvalidInputError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusBadRequest,
		Cause:      ie,
	}
}

func InvalidInput(message string) *InvalidInputError {
	return &InvalidInputError{
		Message: message,
	}
}

// UnauthorizedError is returned when a credential is missing or rejected by
// an identity provider.
type UnauthorizedError struct {
	Message string
}

func (ue *UnauthorizedError) Error() string {
	return ue.Message
}

func (ue *UnauthorizedError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusUnauthorized,
		Cause:      ue,
	}
}

func Unauthorized(message string) *UnauthorizedError {
	return &UnauthorizedError{
		Message: message,
	}
}

// ForbiddenError is returned when a session token is present but invalid or
// expired.
type ForbiddenError struct {
	Message string
}

func (fe *ForbiddenError) Error() string {
	return fe.Message
}

func (fe *ForbiddenError) ToServiceError() *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusForbidden,
		Cause:      fe,
	}
}

func Forbidden(message string) *ForbiddenError {
	return &ForbiddenError{
		Message: message,
	}
}

func InternalServer(message string) *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusInternalServerError,
		Cause:      errors.New(message),
	}
}

// StatusCode resolves the HTTP status carried by err, looking through
// wrapped errors. Anything unrecognized is a 500.
func StatusCode(err error) int {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	var re RequestError
	if errors.As(err, &re) {
		return re.ToServiceError().StatusCode
	}
	return http.StatusInternalServerError
}

func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
