// Package domain contains core concepts of the chat system.
// This file defines Message events and the visibility rule.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Broadcast is the reserved recipient meaning "every participant".
const Broadcast = "Todos"

const (
	JoinedText = "entered"
	LeftText   = "left the room"
)

type Kind string

const (
	KindMessage        Kind = "message"
	KindPrivateMessage Kind = "private_message"
	// KindStatus is reserved for join and departure notices.
	KindStatus Kind = "status"
)

// IsClientPostable reports whether a client may author a message of this kind.
func (k Kind) IsClientPostable() bool {
	return k == KindMessage || k == KindPrivateMessage
}

// Message is a chat line addressed to one participant or to everyone.
// Time is set once at creation and never changes.
type Message struct {
	ID   uuid.UUID
	From string
	To   string
	Text string
	Kind Kind
	Time time.Time
}

// VisibleTo reports whether viewer may read the message: it was sent by
// them, to them, or to everyone.
func (m Message) VisibleTo(viewer string) bool {
	return m.To == Broadcast || m.To == viewer || m.From == viewer
}

// IsOwnedBy reports whether requester authored the message.
func (m Message) IsOwnedBy(requester string) bool {
	return m.From == requester
}

// NewStatusMessage builds a system notice about name.
func NewStatusMessage(name, text string, at time.Time) Message {
	return Message{
		ID:   uuid.New(),
		From: name,
		To:   Broadcast,
		Text: text,
		Kind: KindStatus,
		Time: at,
	}
}
