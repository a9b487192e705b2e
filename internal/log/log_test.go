package log

import (
	"log/slog"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	InitLogger()

	SetLevel("debug")
	assert.Equal(t, slog.LevelDebug, levelVar.Level())

	SetLevel("trace")
	assert.Equal(t, slogLevelTrace, levelVar.Level())

	SetLevel("bogus")
	assert.Equal(t, slog.LevelInfo, levelVar.Level())
}

func TestNewLogrusLoggerLevels(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, NewLogrusLogger("debug").Level)
	assert.Equal(t, logrus.TraceLevel, NewLogrusLogger("trace").Level)
	assert.Equal(t, logrus.InfoLevel, NewLogrusLogger("").Level)
	assert.Equal(t, logrus.ErrorLevel, NewLogrusLogger("error").Level)

	entry := NewComponentLogger("warn", "discovery")
	assert.Equal(t, "discovery", entry.Data["component"])
	assert.Equal(t, logrus.WarnLevel, entry.Logger.Level)
}
