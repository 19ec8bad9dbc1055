package api

import (
	"chat-relay/domain"

	"github.com/samber/lo"
)

// timeLayout renders message times as HH:MM:SS, the format chat clients of
// this relay display.
const timeLayout = "15:04:05"

type joinRequest struct {
	Name string `json:"name"`
}

type messageRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
}

type ParticipantResponse struct {
	Name       string `json:"name"`
	LastStatus int64  `json:"lastStatus"`
}

type MessageResponse struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	Time string `json:"time"`
}

func toParticipantResponse(p domain.Participant) ParticipantResponse {
	return ParticipantResponse{Name: p.Name, LastStatus: p.LastSeen.UnixMilli()}
}

func toParticipantResponses(participants []domain.Participant) []ParticipantResponse {
	return lo.Map(participants, func(p domain.Participant, _ int) ParticipantResponse {
		return toParticipantResponse(p)
	})
}

func toMessageResponse(m domain.Message) MessageResponse {
	return MessageResponse{
		ID:   m.ID.String(),
		From: m.From,
		To:   m.To,
		Text: m.Text,
		Type: string(m.Kind),
		Time: m.Time.Format(timeLayout),
	}
}

func toMessageResponses(messages []domain.Message) []MessageResponse {
	return lo.Map(messages, func(m domain.Message, _ int) MessageResponse {
		return toMessageResponse(m)
	})
}
