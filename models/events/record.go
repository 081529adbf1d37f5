package events

import "time"

// EventRecord is the last occurrence of an event key on a camera.
type EventRecord struct {
	Camera     string      `json:"camera"`
	Key        string      `json:"key"`
	Payload    interface{} `json:"payload,omitempty"`
	Active     *bool       `json:"active,omitempty"`
	ReceivedAt time.Time   `json:"receivedAt"`
}
