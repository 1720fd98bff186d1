package usecase

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/forge/internal/domain/inbox"
)

// ResolvedEvent is what the consumer needs from a stored payload to credit a workout.
type ResolvedEvent struct {
	ExternalUserID string
	OccurredAt     time.Time
}

type PayloadResolver interface {
	Resolve(event inbox.Event) (ResolvedEvent, error)
}

// EnvelopeResolver reads the relay envelope fields external_user_id and
// occurred_at. Provider specific bodies are kept as-is and not interpreted.
type EnvelopeResolver struct{}

type payloadEnvelope struct {
	ExternalUserID string `json:"external_user_id"`
	OccurredAt     string `json:"occurred_at"`
}

func (EnvelopeResolver) Resolve(event inbox.Event) (ResolvedEvent, error) {
	var envelope payloadEnvelope
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(event.PayloadJSON, &envelope); err != nil {
		return ResolvedEvent{}, fmt.Errorf("decode payload envelope: %w", err)
	}

	externalUserID := strings.TrimSpace(envelope.ExternalUserID)
	if externalUserID == "" {
		return ResolvedEvent{}, fmt.Errorf("payload envelope missing external_user_id")
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(envelope.OccurredAt))
	if err != nil {
		return ResolvedEvent{}, fmt.Errorf("payload envelope occurred_at: %w", err)
	}

	return ResolvedEvent{ExternalUserID: externalUserID, OccurredAt: occurredAt.UTC()}, nil
}

// sourceEventIDKeys are the top-level payload fields each provider uses to
// identify a delivery.
var sourceEventIDKeys = map[inbox.Source]string{
	inbox.SourceStrava: "object_id",
	inbox.SourceHevy:   "workout_id",
}

// SourceEventIDFromPayload returns the provider identifier of a delivery when
// the caller did not pass one explicitly.
func SourceEventIDFromPayload(source inbox.Source, payload []byte) string {
	key, ok := sourceEventIDKeys[source]
	if !ok {
		return ""
	}

	value := jsoniter.Get(payload, key)
	switch value.ValueType() {
	case jsoniter.StringValue:
		return strings.TrimSpace(value.ToString())
	case jsoniter.NumberValue:
		return strconv.FormatInt(value.ToInt64(), 10)
	default:
		return ""
	}
}
