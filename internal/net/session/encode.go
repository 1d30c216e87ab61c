package session

import (
	"fmt"

	"github.com/hardchor/frog-pond/internal/net/proto"
	"github.com/hardchor/frog-pond/internal/sim"
)

// encodeEvent renders one engine event as wire frames. Stats events expand
// into four frames.
func encodeEvent(event sim.Event) ([][]byte, error) {
	var (
		data []byte
		err  error
	)
	switch event.Kind {
	case sim.EventCreate:
		data, err = proto.EncodeFrog(proto.TypeFrogCreate, event.Frog)
	case sim.EventUpdate:
		data, err = proto.EncodeFrog(proto.TypeFrogUpdate, event.Frog)
	case sim.EventRemove:
		data, err = proto.EncodeDestroy(event.ID)
	case sim.EventStats:
		return statsFrames(event.Stats)
	default:
		return nil, fmt.Errorf("unknown event kind %q", event.Kind)
	}
	if err != nil {
		return nil, err
	}
	return [][]byte{data}, nil
}

func statsFrames(stats sim.Stats) ([][]byte, error) {
	return proto.EncodeStatsFrames(proto.Totals{
		Frogs:    stats.Population,
		Algae:    stats.Algae,
		Oxygen:   stats.Oxygen,
		Nitrogen: stats.Nitrogen,
	})
}
