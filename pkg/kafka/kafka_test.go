package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalogEvent struct {
	Type   string `json:"type"`
	ItemID int64  `json:"item_id"`
}

func TestDecodeJSON(t *testing.T) {
	ev, err := DecodeJSON[catalogEvent]([]byte(`{"type":"item_created","item_id":42}`))
	require.NoError(t, err)
	assert.Equal(t, catalogEvent{Type: "item_created", ItemID: 42}, ev)

	_, err = DecodeJSON[catalogEvent]([]byte(`not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding kafka message")
}

func TestPublishBatchEmptyIsNoop(t *testing.T) {
	var p *Producer
	// an empty batch never touches the writer
	assert.NoError(t, p.PublishBatch(context.Background(), nil))
}

func TestFetchBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, fetchBackoff(1))
	assert.Equal(t, 400*time.Millisecond, fetchBackoff(3))
	assert.Equal(t, 10*time.Second, fetchBackoff(8))
	assert.Equal(t, 10*time.Second, fetchBackoff(50))
}
