package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewRecordID returns a short uppercase record identifier, e.g. "3F2A9C01".
// Document, match, and anomaly IDs all use this format.
func NewRecordID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// NewEventID returns a short lowercase identifier for activity-log entries.
func NewEventID() string {
	return uuid.NewString()[:8]
}
