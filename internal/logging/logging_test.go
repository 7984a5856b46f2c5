package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, &Opts{JSON: true, UID: true, Service: "labledger", Version: "v1"})

	log.Debug("hidden")
	log.Info("hello", "k", 1)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "labledger", line["service"])
	assert.Equal(t, "v1", line["version"])
	assert.NotEmpty(t, line["uid"])
}

func TestNewDebugText(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, &Opts{Debug: true})

	log.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
	assert.NotContains(t, buf.String(), "service=")
}
