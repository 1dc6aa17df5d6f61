package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCallEventJSON(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := json.Marshal(CallEvent{CallID: "c1", UserID: "u1", OccurredAt: at})
	require.NoError(t, err)

	assert.JSONEq(t, `{"callId":"c1","userId":"u1","occurredAt":"2024-03-01T12:00:00Z"}`, string(data))
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), SubjectCallCreated, CallEvent{}))
	p.Close()
}

func TestNewNATSUnreachable(t *testing.T) {
	_, err := NewNATS("nats://127.0.0.1:1", zap.NewNop())
	assert.Error(t, err)
}
