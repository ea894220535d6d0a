package model

// SubscriptionEvent is the payload the outbox relay publishes to Kafka
// after a creation commits. EventID is unique per event so consumers can
// deduplicate under at-least-once delivery.
type SubscriptionEvent struct {
	EventID       string   `json:"event_id"`
	CustomerGUID  string   `json:"customer_guid"`
	WorkEmail     string   `json:"work_email"`
	CategoryGUIDs []string `json:"category_guids"`
}
