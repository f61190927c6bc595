package automation

import "github.com/google/uuid"

// GenerateRunID creates a new unique identifier for one automation run.
func GenerateRunID() string {
	return uuid.NewString()
}
