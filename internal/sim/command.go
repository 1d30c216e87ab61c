package sim

import "time"

// CommandType enumerates the intents renderers can queue for the next tick.
type CommandType string

const (
	CommandMate CommandType = "Mate"
)

// MateCommand names the two frogs a renderer saw touching.
type MateCommand struct {
	PartnerID string `json:"partnerId"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	ActorID  string       `json:"actorId"`
	Type     CommandType  `json:"type"`
	IssuedAt time.Time    `json:"issuedAt"`
	Mate     *MateCommand `json:"mate,omitempty"`
}

// pairKey identifies a mate request independent of argument order.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
