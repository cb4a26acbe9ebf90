package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapturingSink_RecordsPublishedEventsInOrder(t *testing.T) {
	sink := NewCapturingSink()
	sink.Publish([]string{"order_placed"}, map[string]any{"id": 1})
	sink.Publish([]string{"order_cancelled"}, map[string]any{"id": 1})

	require.Len(t, sink.Events, 2)
	assert.Equal(t, []string{"order_placed"}, sink.Events[0].Topics)
	assert.Equal(t, []string{"order_cancelled"}, sink.Events[1].Topics)
}
