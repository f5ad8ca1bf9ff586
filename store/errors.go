package store

import (
	stderrors "errors"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/Heimeroux/pyannote-api-toolkit/errors"
)

// isConnectionError checks if a store error might be resolved by retrying.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"database is locked",
		"driver: bad connection",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// fromStore converts a GORM error to an AppError. key is the filename or
// job reference used in the failed lookup, included in NotFound details.
func fromStore(err error, resource, key string) *apperrors.AppError {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(resource, key)
	}

	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.DuplicateKey(resource, key)
	}

	if isConnectionError(err) {
		return apperrors.DatabaseError(err).WithDetail("transient", true)
	}

	return apperrors.DatabaseError(err)
}
