package logging

import (
	"bytes"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomOutputForApplicationLog(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{ApplicationLogOutput: &buf}))
	msg := "Hello, world!"
	log.Info(msg)
	assert.Contains(t, buf.String(), msg)
}

func TestCustomPrefixForApplicationLog(t *testing.T) {
	var buf bytes.Buffer
	prefix := "[TEST_PREFIX]"
	require.NoError(t, Init(Options{
		ApplicationLogOutput: &buf,
		ApplicationLogPrefix: prefix}))
	log.Info("Hello, world!")
	got := buf.String()
	assert.True(t, strings.HasPrefix(got, prefix))
	assert.Contains(t, got, "Hello, world!")
}

func TestApplicationLogLevel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{ApplicationLogOutput: &buf, ApplicationLogLevel: "warn"}))
	defer log.SetLevel(log.InfoLevel)

	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestApplicationLogJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{ApplicationLogOutput: &buf, ApplicationLogJSONEnabled: true}))
	defer log.SetFormatter(&log.TextFormatter{})

	log.Info("structured")
	assert.Contains(t, buf.String(), `"msg":"structured"`)
}

func TestInvalidApplicationLogLevel(t *testing.T) {
	assert.Error(t, Init(Options{ApplicationLogLevel: "loud"}))
}
