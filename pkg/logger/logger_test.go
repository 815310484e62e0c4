package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := L.Logger.Out
	origFormatter := L.Logger.Formatter
	origLevel := L.Logger.GetLevel()
	SetLogOutput(&buf)
	t.Cleanup(func() {
		SetLogOutput(orig)
		L.Logger.Formatter = origFormatter
		L.Logger.SetLevel(origLevel)
	})
	return &buf
}

func TestGetLogger_WithoutContextLogger(t *testing.T) {
	entry := G(context.Background())
	require.NotNil(t, entry)
	assert.Equal(t, L.Logger, entry.Logger)
}

func TestWithLogger(t *testing.T) {
	custom := logrus.NewEntry(logrus.New()).WithField("component", "test")
	ctx := WithLogger(context.Background(), custom)

	entry := GetLogger(ctx)
	assert.Equal(t, "test", entry.Data["component"])
}

func TestWithFields(t *testing.T) {
	buf := captureGlobal(t)
	SetLogFormat("json")

	ctx := WithFields(context.Background(), logrus.Fields{"spaceId": "space-1"})
	ctx = WithFields(ctx, logrus.Fields{"operation": "upload"})
	G(ctx).Info("uploaded")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "uploaded", line["message"])
	assert.Equal(t, "info", line["logLevel"])
	assert.Equal(t, "space-1", line["spaceId"])
	assert.Equal(t, "upload", line["operation"])
	assert.Contains(t, line, "timestamp")
}

func TestSetLogLevel(t *testing.T) {
	buf := captureGlobal(t)

	require.NoError(t, SetLogLevel("warn"))
	G(context.Background()).Info("hidden")
	assert.Empty(t, buf.String())

	G(context.Background()).Warn("shown")
	assert.Contains(t, buf.String(), "shown")

	assert.Error(t, SetLogLevel("loud"))
}

func TestMaskID(t *testing.T) {
	assert.Equal(t, "user-1*", MaskID("user-1234567"))
	assert.Equal(t, "******", MaskID("abcdef"))
	assert.Equal(t, "***", MaskID("abc"))
	assert.Equal(t, "", MaskID(""))
}
