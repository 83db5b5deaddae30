package domain

// EventType identifies an inbound pool event.
type EventType string

const (
	EventTypeSync EventType = "sync"
	EventTypeSwap EventType = "swap"
	EventTypeMint EventType = "mint"
	EventTypeBurn EventType = "burn"

	// EventTypeExclude is a control message adding a token to the exclusion list.
	EventTypeExclude EventType = "exclude"
)

// String returns the string representation of EventType.
func (t EventType) String() string {
	return string(t)
}

// IsValid checks if the event type is a known value.
func (t EventType) IsValid() bool {
	switch t {
	case EventTypeSync, EventTypeSwap, EventTypeMint, EventTypeBurn, EventTypeExclude:
		return true
	}
	return false
}

// EventMeta locates an event in the chain.
type EventMeta struct {
	Block     int64
	LogIndex  int64
	TxHash    string // canonical 0x-prefixed lower-case hash
	Timestamp int64  // block timestamp, unix seconds
}

// Before reports whether m precedes other in (block, log index) order.
func (m EventMeta) Before(other EventMeta) bool {
	if m.Block != other.Block {
		return m.Block < other.Block
	}
	return m.LogIndex < other.LogIndex
}

// ExcludeEvent adds Token to the exclusion list from its position onwards.
type ExcludeEvent struct {
	EventMeta
	Token string
}
