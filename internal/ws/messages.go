package ws

// MessageType identifies the kind of message pushed to feed clients.
type MessageType string

const (
	MsgWorkClick MessageType = "work_click"
)

// WorkClickEvent is broadcast once per accepted click. Seq is a
// process-wide counter clients use to drop duplicates.
type WorkClickEvent struct {
	Type   MessageType `json:"type"`
	WorkID string      `json:"workId"`
	Seq    uint64      `json:"seq"`
}

// Health is the /healthz payload.
type Health struct {
	Status  string  `json:"status"`
	Clients int     `json:"clients"`
	Seq     uint64  `json:"seq"`
	RSS     uint64  `json:"rss"`
	CPU     float64 `json:"cpu"`
}
