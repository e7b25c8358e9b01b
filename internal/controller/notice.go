package controller

import (
	"errors"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// Level is the severity of a Notice.
type Level string

// Notice levels.
const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is the user-facing feedback for one action.
type Notice struct {
	Level   Level
	Message string
	// Fields holds per-field messages of a validation failure.
	Fields map[string]string
}

// Default messages for failures that carry no text of their own.
const (
	MsgUnauthorized = "Unauthorized. Please login again."
	MsgInvalidInput = "Please correct the highlighted fields."
	MsgStale        = "The record changed while saving. Refresh to see the latest data."
)

// noticeFor turns a mutation error into the notice shown to the user.
// Gateway messages are passed through verbatim.
func noticeFor(err error) Notice {
	var ve *types.ValidationError
	if errors.As(err, &ve) {
		msg := MsgInvalidInput
		if len(ve.Fields) == 1 {
			for _, m := range ve.Fields {
				msg = m
			}
		}
		return Notice{Level: LevelWarning, Message: msg, Fields: ve.Fields}
	}
	var ae *types.AuthError
	if errors.As(err, &ae) {
		msg := ae.Message
		if msg == "" {
			msg = MsgUnauthorized
		}
		return Notice{Level: LevelError, Message: msg}
	}
	if errors.Is(err, types.ErrStaleResponse) {
		return Notice{Level: LevelWarning, Message: MsgStale}
	}
	return Notice{Level: LevelError, Message: err.Error()}
}
