package mq

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStreamMessage(t *testing.T) {
	msg, ok := decodeStreamMessage("poa_events_claim", redis.XMessage{
		ID:     "1700000000000-0",
		Values: map[string]interface{}{"key": "0xabc", "payload": `{"a":1}`},
	})
	require.True(t, ok)
	assert.Equal(t, "1700000000000-0", msg.ID)
	assert.Equal(t, "poa_events_claim", msg.Topic)
	assert.Equal(t, "0xabc", msg.Key)
	assert.Equal(t, []byte(`{"a":1}`), msg.Payload)

	_, ok = decodeStreamMessage("t", redis.XMessage{ID: "1-0", Values: map[string]interface{}{"key": "x"}})
	assert.False(t, ok)
}
