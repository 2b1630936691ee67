package utils

import (
	"github.com/google/uuid"
)

// UUID returns a new random UUID as a string.
func UUID() string {
	return uuid.New().String()
}
