package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalRoundTrip(t *testing.T) {
	ev := NewTurnCompleted("s-1", "PRACTICE_PROBLEM", "field_fallback", "", 1500*time.Millisecond)

	raw, err := Marshal(ev)
	require.NoError(t, err)

	got, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeTurnCompleted, got.EventType())
	assert.Equal(t, "s-1", got.Payload()["session_id"])
	assert.Equal(t, float64(1500), got.Payload()["duration_ms"])
	assert.WithinDuration(t, ev.Timestamp(), got.Timestamp(), time.Millisecond)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := Unmarshal([]byte("not json"))
	assert.Error(t, err)

	_, err = Unmarshal([]byte(`{"data":{}}`))
	assert.Error(t, err)
}
