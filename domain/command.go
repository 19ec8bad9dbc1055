package domain

import (
	"chat-relay/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

type JoinCommand struct {
	Name string `validate:"required"`
}

type PostMessageCommand struct {
	From string `validate:"required"`
	To   string `validate:"required"`
	Text string `validate:"required"`
	Kind Kind   `validate:"required,oneof=message private_message"`
}

type EditMessageCommand struct {
	ID        uuid.UUID
	Requester string `validate:"required"`
	To        string `validate:"required"`
	Text      string `validate:"required"`
	Kind      Kind   `validate:"required,oneof=message private_message"`
}

// Validate checks a command struct and reports failures as a validation error.
func Validate(cmd any) error {
	if err := validate.Struct(cmd); err != nil {
		return errors.Validation(err)
	}
	return nil
}
