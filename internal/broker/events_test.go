package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"sales-ledger/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessageDispatchesChangeEvents(t *testing.T) {
	var got *models.ChangeEvent
	eh := NewEventHandler()
	eh.OnChange(func(ctx context.Context, event *models.ChangeEvent) error {
		got = event
		return nil
	})

	payload, err := json.Marshal(models.ChangeEvent{
		BaseEvent: models.BaseEvent{EventID: "e1", EventType: models.EventTypeRowChange, Timestamp: time.Now()},
		Table:     models.TableInventory,
		Op:        models.ChangeUpdate,
		OwnerID:   "owner-1",
		RowIDs:    []string{"p1", "p2"},
	})
	require.NoError(t, err)

	require.NoError(t, eh.HandleMessage(context.Background(), kafka.Message{Value: payload}))
	require.NotNil(t, got)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.Equal(t, []string{"p1", "p2"}, got.RowIDs)
}

func TestHandleMessageIgnoresOtherEventTypes(t *testing.T) {
	called := false
	eh := NewEventHandler()
	eh.OnChange(func(ctx context.Context, event *models.ChangeEvent) error {
		called = true
		return nil
	})

	payload := []byte(`{"event_id":"e1","event_type":"SOMETHING_ELSE"}`)
	require.NoError(t, eh.HandleMessage(context.Background(), kafka.Message{Value: payload}))
	assert.False(t, called)
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	eh := NewEventHandler()
	err := eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}

func TestOwnerKey(t *testing.T) {
	assert.Equal(t, "owner-abc", ownerKey("abc"))
}
