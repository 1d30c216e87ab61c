package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardchor/frog-pond/internal/sim"
	"github.com/hardchor/frog-pond/internal/world"
)

func TestEncodeStatsEventExpandsToFourFrames(t *testing.T) {
	frames, err := encodeEvent(sim.Event{Kind: sim.EventStats, Stats: sim.Stats{Population: 20, Algae: 130, Oxygen: 250, Nitrogen: 9850}})
	require.NoError(t, err)
	require.Len(t, frames, 4)

	want := []string{
		`{"ver":1,"type":"frogs.stats","args":[{"num":20}]}`,
		`{"ver":1,"type":"algae.stats","args":[{"num":130}]}`,
		`{"ver":1,"type":"oxygen.stats","args":[{"num":250}]}`,
		`{"ver":1,"type":"nitrogen.stats","args":[{"num":9850}]}`,
	}
	for i, frame := range frames {
		assert.JSONEq(t, want[i], string(frame))
	}
}

func TestEncodeFrogEvents(t *testing.T) {
	frames, err := encodeEvent(sim.Event{Kind: sim.EventRemove, ID: "gone"})
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"ver":1,"type":"frog.destroy","args":["gone"]}`, string(frames[0]))

	frames, err = encodeEvent(sim.Event{Kind: sim.EventUpdate, Frog: world.FrogSnapshot{ID: "x", Gender: world.GenderMale, Age: 3, MaxAge: 100}})
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Contains(t, string(frames[0]), `"type":"frog.update"`)

	_, err = encodeEvent(sim.Event{Kind: "bogus"})
	assert.Error(t, err)
}
