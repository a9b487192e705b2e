package model

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrConfig             = errors.New("configuration error")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrNoConnectedDevices = errors.New("No connected devices to backup")
	ErrUnknownDevice      = errors.New("unknown device")
)

// InvalidRequestf returns an error wrapping ErrInvalidRequest whose message is the formatted text only.
func InvalidRequestf(format string, a ...any) error {
	return &requestError{msg: fmt.Sprintf(format, a...)}
}

type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

func (e *requestError) Is(target error) bool {
	return target == ErrInvalidRequest
}
