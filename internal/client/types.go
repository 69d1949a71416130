// Package client provides the wire types and the REST client for the feed
// server. Types mirror the feed server protocol without importing server
// packages.
package client

import "encoding/json"

// MessageType identifies the kind of event channel message.
type MessageType string

const (
	MsgWorkClick MessageType = "work_click"
)

// WorkClickEvent is broadcast by the feed server every time a work is clicked.
// Seq is assigned per broadcast and only used for de-duplication. It stays
// raw because peers may send it as a number or a numeric string.
type WorkClickEvent struct {
	Type   MessageType     `json:"type"`
	WorkID string          `json:"workId"`
	Seq    json.RawMessage `json:"seq"`
}

// Work mirrors the subset of the works listing the live world reads.
type Work struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Comment     string  `json:"comment"`
	Description *string `json:"description"`
	AccentColor string  `json:"accent_color"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// Health is the /healthz payload.
type Health struct {
	Status  string  `json:"status"`
	Clients int     `json:"clients"`
	Seq     uint64  `json:"seq"`
	RSS     uint64  `json:"rss"`
	CPU     float64 `json:"cpu"`
}
