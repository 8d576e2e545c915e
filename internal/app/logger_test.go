package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)

	logger.Info("hidden")
	logger.Warn("shown", "chain", "root")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"chain":"root"`)

	buf.Reset()
	newLogger("nonsense", "text", &buf).Info("fallback")
	assert.Contains(t, buf.String(), "msg=fallback")
}
