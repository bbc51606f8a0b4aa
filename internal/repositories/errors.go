package repositories

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsNotFoundError reports whether an error from a repository operation
// means the requested record does not exist.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true
	}
	return strings.Contains(err.Error(), "not found")
}
