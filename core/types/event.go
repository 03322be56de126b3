package types

// Event represents a typed record emitted by a state transition. Attributes
// are flat string pairs so downstream indexers can persist them without
// schema knowledge.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
