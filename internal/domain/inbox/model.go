package inbox

import (
	"fmt"
	"strings"
	"time"
)

type Source string

const (
	SourceStrava Source = "STRAVA"
	SourceHevy   Source = "HEVY"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

func ParseSource(raw string) (Source, error) {
	switch Source(strings.ToUpper(strings.TrimSpace(raw))) {
	case SourceStrava:
		return SourceStrava, nil
	case SourceHevy:
		return SourceHevy, nil
	default:
		return "", fmt.Errorf("unsupported inbox source %q", raw)
	}
}

type Event struct {
	ID            string
	Source        Source
	SourceEventID string
	ReceivedAt    time.Time
	ProcessedAt   *time.Time
	Status        Status
	PayloadJSON   string
	LastError     string
}
