package session

import (
	"context"

	"github.com/metal-toolbox/snatt/internal/model"
)

// Session abstracts a command session on a network device.
type Session interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	Run(ctx context.Context, command string) (string, error)
}

// Factory returns a session for the device.
type Factory func(device *model.Device) Session
