// Package id generates identifiers for build runs.
package id

import (
	"github.com/google/uuid"
)

// NewRunID returns a unique identifier for a build run.
func NewRunID() string {
	return uuid.New().String()
}
