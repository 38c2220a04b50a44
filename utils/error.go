package utils

import (
	"errors"
	"fmt"
	"strings"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError reports missing or invalid input. The mutation that raised
// it had no side effects.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a referenced entity that does not exist. The message
// capitalizes the entity ("Invoice not found"), matching what clients show.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	entity := e.Entity
	if entity != "" {
		entity = strings.ToUpper(entity[:1]) + entity[1:]
	}
	return entity + " not found"
}

func NewNotFoundError(entity string) error {
	return &NotFoundError{Entity: entity}
}

// ConflictError reports a unique-key collision (account no, invoice number).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func NewConflictError(format string, args ...interface{}) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// InfrastructureError wraps a storage failure. Callers treat it as
// "service unavailable": remaining batch work is aborted rather than retried
// in-request.
type InfrastructureError struct {
	Err error
}

func (e *InfrastructureError) Error() string { return "storage unavailable: " + e.Err.Error() }

func (e *InfrastructureError) Unwrap() error { return e.Err }

func NewInfrastructureError(err error) error {
	if err == nil {
		return nil
	}
	return &InfrastructureError{Err: err}
}

func IsValidationErr(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFoundErr(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) || errors.Is(err, ErrorRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

func IsConflictErr(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsInfrastructureErr(err error) bool {
	var ie *InfrastructureError
	return errors.As(err, &ie)
}

func IsDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// ClassifyDBError maps a raw gorm/mysql error onto the taxonomy above.
// entity names what was being looked up, for NotFound messages.
func ClassifyDBError(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NewNotFoundError(entity)
	case IsDuplicateKeyErr(err):
		return NewConflictError("%s already exists", entity)
	default:
		return NewInfrastructureError(err)
	}
}
