package sim

import "sort"

// Schedule tracks pending cooldown expiries by frog id. It is driven by the
// tick counter rather than wall-clock timers, so stopping the engine cancels
// every entry at once.
type Schedule struct {
	due map[string]uint64
}

func NewSchedule() *Schedule {
	return &Schedule{due: make(map[string]uint64)}
}

// Set registers (or replaces) the expiry tick for id.
func (s *Schedule) Set(id string, at uint64) {
	s.due[id] = at
}

func (s *Schedule) Cancel(id string) {
	delete(s.due, id)
}

// Due removes and returns the ids whose expiry is at or before tick, sorted
// for deterministic processing.
func (s *Schedule) Due(tick uint64) []string {
	var ids []string
	for id, at := range s.due {
		if at <= tick {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		delete(s.due, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Schedule) Reset() {
	clear(s.due)
}

func (s *Schedule) Len() int {
	return len(s.due)
}
