package events

import "context"

// Stream carrying campaign lifecycle events.
const StreamCampaign = "events:campaign"

// Event types
const (
	EventCampaignCreated       = "campaign_created"
	EventCampaignStatusChanged = "campaign_status_changed"
	EventCampaignClicked       = "campaign_clicked"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
