package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerMessage_ZeroElapsedStaysOnWire(t *testing.T) {
	// An answer in the same millisecond the round opened is elapsed 0;
	// the ack must still carry the field.
	payload, err := json.Marshal(ServerMessage{Type: "correct", ElapsedMs: 0})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"elapsedMs":0`)
	assert.Contains(t, string(payload), `"countdown":0`)
}
