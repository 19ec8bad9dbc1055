package repositories

import (
	"chat-relay/domain"
	"time"

	"github.com/google/uuid"
)

// ParticipantDocument is the persisted shape of a participant, shared by
// every backend: {name, lastStatus}.
type ParticipantDocument struct {
	Name       string `bson:"name"`
	LastStatus int64  `bson:"lastStatus"`
}

// MessageDocument is the persisted shape of a message:
// {_id, from, to, text, type, time, seq}. Seq orders messages by creation.
type MessageDocument struct {
	ID   string    `bson:"_id"`
	From string    `bson:"from"`
	To   string    `bson:"to"`
	Text string    `bson:"text"`
	Type string    `bson:"type"`
	Time time.Time `bson:"time"`
	Seq  int64     `bson:"seq"`
}

func FromParticipant(p domain.Participant) ParticipantDocument {
	return ParticipantDocument{
		Name:       p.Name,
		LastStatus: p.LastSeen.UnixMilli(),
	}
}

func (d ParticipantDocument) ToParticipant() domain.Participant {
	return domain.Participant{
		Name:     d.Name,
		LastSeen: time.UnixMilli(d.LastStatus).UTC(),
	}
}

func FromMessage(m domain.Message, seq int64) MessageDocument {
	return MessageDocument{
		ID:   m.ID.String(),
		From: m.From,
		To:   m.To,
		Text: m.Text,
		Type: string(m.Kind),
		Time: m.Time.UTC(),
		Seq:  seq,
	}
}

func (d MessageDocument) ToMessage() (domain.Message, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:   id,
		From: d.From,
		To:   d.To,
		Text: d.Text,
		Kind: domain.Kind(d.Type),
		Time: d.Time.UTC(),
	}, nil
}
