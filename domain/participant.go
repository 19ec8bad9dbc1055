// Package domain contains core concepts of the chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Participant is an active member of the room. The name is both its
// identity and the addressing token used in messages.
type Participant struct {
	Name     string
	LastSeen time.Time
}

// IsStale reports whether the participant has not been seen since cutoff.
func (p Participant) IsStale(cutoff time.Time) bool {
	return p.LastSeen.Before(cutoff)
}
