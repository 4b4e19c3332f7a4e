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
)

func TestChildSpansInheritTrace(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "hybrid_search", "req-1")
	_, prefix := StartChildSpan(ctx, "prefix")
	_, substring := StartChildSpan(ctx, "substring")
	prefix.End()
	substring.End()
	root.End()

	assert.Equal(t, "req-1", prefix.TraceID)
	assert.Equal(t, []*Span{prefix, substring}, root.Children())
}

func TestDetachedChild(t *testing.T) {
	_, child := StartChildSpan(context.Background(), "orphan")
	assert.Empty(t, child.TraceID)
	assert.Nil(t, SpanFromContext(context.Background()))
}

func TestLogDepthFirst(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "root", "t")
	childCtx, a := StartChildSpan(ctx, "a")
	_, a1 := StartChildSpan(childCtx, "a1")
	_, b := StartChildSpan(ctx, "b")
	b.SetAttr("rows", 3)
	for _, s := range []*Span{a1, a, b, root} {
		s.End()
	}

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewJSONHandler(&buf, nil)))

	var names []string
	var depths []float64
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		names = append(names, rec["span"].(string))
		depths = append(depths, rec["depth"].(float64))
		if rec["span"] == "b" {
			assert.Equal(t, float64(3), rec["rows"])
		}
	}
	assert.Equal(t, []string{"root", "a", "a1", "b"}, names)
	assert.Equal(t, []float64{0, 1, 2, 1}, depths)
}
