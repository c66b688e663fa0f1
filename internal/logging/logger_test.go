package logging

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	err := InitLogger()
	require.NoError(t, err)
	assert.NotNil(t, Logger)
}

func TestInitLogger_WithLogLevel(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Unsetenv("LOG_LEVEL")

	err := InitLogger()
	require.NoError(t, err)
	assert.NotNil(t, Logger)
	assert.True(t, Logger.Core().Enabled(-1)) // debug level
}

func TestInitLogger_InvalidLogLevel(t *testing.T) {
	os.Setenv("LOG_LEVEL", "not-a-level")
	defer os.Unsetenv("LOG_LEVEL")

	// Invalid levels fall back to the production default
	err := InitLogger()
	require.NoError(t, err)
	assert.NotNil(t, Logger)
}
