package types

import (
	"time"
)

// DefaultRoom is the implicit room every identified connection joins.
const DefaultRoom = "global"

type DeliveryStatus string

const (
	StatusSent DeliveryStatus = "sent"
	StatusRead DeliveryStatus = "read"
)

type Message struct {
	Id            string         `json:"id"`
	From          string         `json:"from"`
	Text          string         `json:"text,omitempty"`
	AttachmentRef string         `json:"attachment_ref,omitempty"`
	Room          string         `json:"room"`
	To            string         `json:"to,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	Status        DeliveryStatus `json:"status"`
}

// IsPrivate reports whether the message is addressed to a single recipient.
func (m Message) IsPrivate() bool {
	return m.To != ""
}

type ReadReceipt struct {
	MessageId string `json:"message_id"`
	Room      string `json:"room"`
	ReadBy    string `json:"read_by"`
}

type TypingIndicator struct {
	From    string `json:"from"`
	Room    string `json:"room,omitempty"`
	Private bool   `json:"private,omitempty"`
}
