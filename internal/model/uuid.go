package model

import "github.com/google/uuid"

// GenerateID creates a new random record ID.
// IDs are never derived from the clock, so records created within the same
// tick still get distinct values.
func GenerateID() string {
	return uuid.New().String()
}
