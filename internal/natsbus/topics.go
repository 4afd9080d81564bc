package natsbus

import "time"

// Audit event topics. Payloads never carry secret values or credentials.
const (
	TopicEventsAll           = "events.>"
	TopicEventsLogin         = "events.auth.login"
	TopicEventsSecretCreated = "events.secret.created"
	TopicEventsSecretRead    = "events.secret.read"
)

// Event is the envelope published on every audit topic.
type Event struct {
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

func NewEvent(topic string, data map[string]any) Event {
	return Event{
		Type:      topic,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
}
