package tasks

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// LogPublisher writes task status updates to the logger at debug level.
type LogPublisher struct {
	Logger *logrus.Entry
}

func (p *LogPublisher) Publish(_ context.Context, deviceID string, state State, status json.RawMessage) {
	p.Logger.WithFields(logrus.Fields{
		"device_id": deviceID,
		"state":     string(state),
		"status":    string(status),
	}).Debug("task status update")
}
