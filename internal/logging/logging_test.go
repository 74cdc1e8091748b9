package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForVerbosityDefaultsToInfo(t *testing.T) {
	assert.Equal(t, LevelInfo, ForVerbosity(false))
}

func TestForVerbosityRaisedDropsToDebug(t *testing.T) {
	assert.Equal(t, LevelDebug, ForVerbosity(true))
}

func TestNewOffLevelDoesNotPanic(t *testing.T) {
	logger := New(LevelOff)
	assert.NotNil(t, logger)
	logger.Infow("this should be silently dropped")
}

func TestNewBuildsUsableLoggerForEachLevel(t *testing.T) {
	for _, level := range []string{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		logger := New(level)
		assert.NotNil(t, logger)
		logger.Infow("probe", "level", level)
	}
}

func TestNewFallsBackOnUnknownLevel(t *testing.T) {
	logger := New("not-a-real-level")
	assert.NotNil(t, logger)
}
