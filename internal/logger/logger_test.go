package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(&Config{Level: level, Format: "json", ServiceName: "test", Output: buf}), buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestContextFieldsReachEntries(t *testing.T) {
	log, buf := newBufferLogger("debug")
	ctx := log.WithContext(context.Background())
	ctx = SetComponent(ctx, "api")
	ctx = SetRunID(ctx, "run-1")

	With(Fields{"limit": 10}).WithCount(3).Info(ctx, "Fetching %s", "transcripts")
	CtxError(ctx, "Failed to record run finish: %v", "disk full")

	got := lines(t, buf)
	require.Len(t, got, 2)

	assert.Equal(t, "Fetching transcripts", got[0]["message"])
	assert.Equal(t, "api", got[0][FieldComponent])
	assert.Equal(t, "run-1", got[0][FieldRunID])
	assert.EqualValues(t, 3, got[0][FieldCount])
	assert.EqualValues(t, 10, got[0]["limit"])
	assert.Equal(t, "test", got[0]["service"])

	assert.Equal(t, "error", got[1]["level"])
	assert.Equal(t, "api", got[1][FieldComponent])
	assert.Equal(t, "Failed to record run finish: disk full", got[1]["message"])
}

func TestCtxDebugRespectsLevel(t *testing.T) {
	log, buf := newBufferLogger("info")
	ctx := log.WithContext(context.Background())

	CtxDebug(ctx, "hidden")
	assert.Empty(t, buf.String())

	log, buf = newBufferLogger("debug")
	CtxDebug(log.WithContext(context.Background()), "shown %d", 1)
	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "debug", got[0]["level"])
	assert.Equal(t, "shown 1", got[0]["message"])
}

func TestEntryWithDoesNotMutateParent(t *testing.T) {
	base := With(Fields{FieldStage: "search"})
	child := base.WithCount(2).WithDecision("admitted")

	assert.NotContains(t, base.fields, FieldCount)
	assert.Equal(t, "search", child.fields[FieldStage])
	assert.Equal(t, 2, child.fields[FieldCount])
	assert.Equal(t, "admitted", child.fields[FieldDecision])
}
