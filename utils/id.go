package utils

import (
	"time"

	"github.com/google/uuid"
)

// NewSessionID returns a random operator session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// NewAssetID returns a random identifier for an uploaded image.
func NewAssetID() string {
	return uuid.NewString()
}

// EpochMillis returns t as milliseconds since the Unix epoch.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
