package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reKeyField extracts the column from "Key (field)=(value) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapDBError maps database errors to AppError instances:
//   - context deadline/cancel → Timeout/Canceled
//   - pgx.ErrNoRows → NotFound
//   - unique violation → Conflict
//   - check and NOT NULL violations → Validation
//   - statement timeout → Timeout
//
// Unrecognized errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{Code: ErrCodeCanceled, Message: "Request was canceled.", Cause: err}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &AppError{Code: ErrCodeNotFound, Message: "Resource not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}
	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return &AppError{
			Code:    ErrCodeConflict,
			Message: "This value already exists.",
			Field:   uniqueViolationField(pgErr),
			Cause:   pgErr,
		}
	case pgerrcode.CheckViolation:
		field := pgErr.ColumnName
		if field == "" {
			field = inferFieldFromConstraint(pgErr.ConstraintName)
		}
		return &AppError{Code: ErrCodeValidation, Message: "This field has an invalid value.", Field: field, Cause: pgErr}
	case pgerrcode.NotNullViolation:
		return &AppError{Code: ErrCodeValidation, Message: "This field is required.", Field: pgErr.ColumnName, Cause: pgErr}
	case pgerrcode.QueryCanceled:
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: pgErr}
	default:
		return &AppError{Code: ErrCodeInternal, Message: "A database error occurred. Please try again.", Cause: pgErr}
	}
}

func uniqueViolationField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return m[1]
	}
	return inferFieldFromConstraint(pgErr.ConstraintName)
}

// inferFieldFromConstraint takes the middle part of "<table>_<field>_<suffix>"
// constraint names, e.g. "profiles_role_check" → "role". Names with more parts
// are ambiguous and yield "".
func inferFieldFromConstraint(name string) string {
	parts := strings.Split(name, "_")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}
