package observability

import "go.opentelemetry.io/otel/attribute"

func communityAttribute(communityID string) attribute.KeyValue {
	return attribute.String("forge.community_id", communityID)
}
