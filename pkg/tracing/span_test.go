package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/logger"
)

func TestStart_BuildsTree(t *testing.T) {
	ctx := logger.WithRequestID(context.Background(), "req-1")

	ctx, root := Start(ctx, "search")
	_, parse := Start(ctx, "parse")
	parse.End()
	_, eval := Start(ctx, "evaluate")
	eval.SetAttr("candidates", 3)
	eval.End()
	root.End()

	assert.Equal(t, "req-1", root.TraceID)
	require.Len(t, root.Children(), 2)
	assert.Equal(t, "req-1", root.Children()[1].TraceID)
	assert.Same(t, root, FromContext(ctx))
}

func TestStart_GeneratesTraceID(t *testing.T) {
	_, span := Start(context.Background(), "root")
	assert.Len(t, span.TraceID, 36)
	assert.Nil(t, FromContext(context.Background()))
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := Start(context.Background(), "search")
	_, child := Start(ctx, "rank")
	child.SetAttr("terms", 2)
	child.End()
	root.End()
	root.Log(ctx, l, slog.LevelDebug)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "rank", rec["span"])
	assert.Equal(t, float64(1), rec["depth"])
	assert.Equal(t, float64(2), rec["terms"])

	buf.Reset()
	root.Log(ctx, slog.New(slog.NewJSONHandler(&buf, nil)), slog.LevelDebug)
	assert.Empty(t, buf.String())
}
