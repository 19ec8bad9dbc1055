package errors

import stderrors "errors"

var (
	ErrNameRequired        = New(CodeValidation, "participant name is required")
	ErrNameReserved        = New(CodeValidation, "participant name is reserved")
	ErrInvalidLimit        = New(CodeValidation, "limit must be a positive integer")
	ErrNameTaken           = New(CodeNameTaken, "participant name is already taken")
	ErrUnknownSender       = New(CodeUnknownSender, "sender is not an active participant")
	ErrParticipantNotFound = New(CodeNotFound, "participant not found")
	ErrMessageNotFound     = New(CodeNotFound, "message not found")
	ErrNotOwner            = New(CodeForbidden, "only the author can change this message")
	ErrStatusImmutable     = New(CodeForbidden, "status messages cannot be changed")
)

var (
	ErrWorkerPanic = stderrors.New("worker panic")
	ErrEmptyWords  = stderrors.New("no words have been found")
	ErrStoreClosed = New(CodeStoreFault, "store is closed")
)
