// Package services holds the business operations shared by the HTTP
// handlers and the CLI: the template store, report generation, document
// rendering and invoicing.
package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/diewo77/seo-backoffice/validation"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrTemplateNotFound    = errors.New("template not found")
	ErrDefaultConflict     = errors.New("default template changed concurrently")
	ErrDefaultTemplateUsed = errors.New("default template cannot be deleted")
	ErrNotEditable         = errors.New("record can no longer be edited")
	ErrReportNotGenerated  = errors.New("report has not been generated")
)

// ValidationError carries field violations back to the caller.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f, code := range e.Violations {
		fields = append(fields, f+"="+code)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

func invalid(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Violations: v}
}

// isUniqueViolation recognizes unique constraint errors from both Postgres
// (SQLSTATE 23505) and SQLite.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
