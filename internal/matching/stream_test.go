package matching

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patternwatch/internal/modules/alerts"
)

func TestStreamPublish(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	stream := NewStream(log)

	ch := stream.subscribe()
	defer stream.unsubscribe(ch)

	alert := &alerts.Alert{ID: "a-1", PatternID: "p-1", Similarity: 92, Status: alerts.StatusUnread}
	stream.Publish(alert)

	select {
	case data := <-ch:
		var got alerts.Alert
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "a-1", got.ID)
		assert.Equal(t, 92, got.Similarity)
	default:
		t.Fatal("expected a frame on the subscriber channel")
	}
}

func TestStreamPublish_SlowSubscriberDropsFrames(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	stream := NewStream(log)

	ch := stream.subscribe()
	defer stream.unsubscribe(ch)

	// Fill the subscriber buffer and keep publishing; Publish must not block
	alert := &alerts.Alert{ID: "a-1", Status: alerts.StatusUnread}
	for i := 0; i < 100; i++ {
		stream.Publish(alert)
	}

	assert.Len(t, ch, cap(ch))
}

func TestStreamPublish_NoSubscribers(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	stream := NewStream(log)

	// Publishing into the void is a no-op
	stream.Publish(&alerts.Alert{ID: "a-1", Status: alerts.StatusUnread})
}
