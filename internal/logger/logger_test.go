package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextAttrsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json", slog.LevelInfo)

	ctx := Ctx(context.Background(), slog.String("category", "Food"))
	l.InfoContext(ctx, "fetched", "count", 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Food", rec["category"])
	assert.Equal(t, "fetched", rec["msg"])
}

func TestCtxDoesNotLeakBetweenSiblings(t *testing.T) {
	base := Ctx(context.Background(), slog.String("pass", "1"))
	a := Ctx(base, slog.String("category", "Dance"))
	b := Ctx(base, slog.String("category", "Food"))

	aAttrs := a.Value(attrKey).([]slog.Attr)
	bAttrs := b.Value(attrKey).([]slog.Attr)
	require.Len(t, aAttrs, 2)
	require.Len(t, bAttrs, 2)
	assert.Equal(t, "Dance", aAttrs[1].Value.String())
	assert.Equal(t, "Food", bAttrs[1].Value.String())
}
