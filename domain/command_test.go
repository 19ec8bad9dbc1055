package domain

import (
	"chat-relay/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_PostMessageCommand(t *testing.T) {
	valid := PostMessageCommand{From: "Maria", To: Broadcast, Text: "oi", Kind: KindMessage}

	tests := []struct {
		name  string
		mutes func(c *PostMessageCommand)
		ok    bool
	}{
		{name: "Valid broadcast", mutes: func(c *PostMessageCommand) {}, ok: true},
		{name: "Valid private", mutes: func(c *PostMessageCommand) { c.Kind = KindPrivateMessage; c.To = "João" }, ok: true},
		{name: "Missing recipient", mutes: func(c *PostMessageCommand) { c.To = "" }},
		{name: "Missing text", mutes: func(c *PostMessageCommand) { c.Text = "" }},
		{name: "Missing kind", mutes: func(c *PostMessageCommand) { c.Kind = "" }},
		{name: "Status kind is not postable", mutes: func(c *PostMessageCommand) { c.Kind = KindStatus }},
		{name: "Unknown kind", mutes: func(c *PostMessageCommand) { c.Kind = "shout" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := valid
			tt.mutes(&cmd)
			err := Validate(cmd)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Equal(t, errors.CodeValidation, errors.CodeOf(err))
		})
	}
}

func TestValidate_JoinCommand(t *testing.T) {
	req := require.New(t)
	req.NoError(Validate(JoinCommand{Name: "Maria"}))
	req.Equal(errors.CodeValidation, errors.CodeOf(Validate(JoinCommand{})))
}

func TestValidate_EditMessageCommand(t *testing.T) {
	req := require.New(t)
	cmd := EditMessageCommand{Requester: "Maria", To: Broadcast, Text: "fixed", Kind: KindMessage}
	req.NoError(Validate(cmd))

	cmd.Kind = KindStatus
	req.Equal(errors.CodeValidation, errors.CodeOf(Validate(cmd)))
}
