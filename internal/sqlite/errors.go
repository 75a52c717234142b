package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/agencyops/internal/repository"
)

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY constraint failed")
}

// translate maps driver errors onto repository sentinels.
func translate(err error, action string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return repository.ErrNotFound
	case isForeignKeyViolation(err):
		return fmt.Errorf("failed to %s: %w", action, repository.ErrForeignKeyViolation)
	case isUniqueViolation(err):
		return fmt.Errorf("failed to %s: %w", action, repository.ErrConflict)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// expectOne turns a zero-row write into ErrNotFound.
func expectOne(res sql.Result, err error, action string) error {
	if err != nil {
		return translate(err, action)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
