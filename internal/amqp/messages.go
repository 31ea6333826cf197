package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"kharcha/internal/core"
)

// EventType names what happened to the ledger.
type EventType string

const (
	EventEntriesCommitted EventType = "entries.committed"
	EventEntryDeleted     EventType = "entry.deleted"
)

// LedgerEvent is published after every ledger change. Committed events carry
// the stored entries; deleted events carry only the id.
type LedgerEvent struct {
	Type      EventType          `json:"type"`
	IDs       []string           `json:"ids"`
	Entries   []core.LedgerEntry `json:"entries,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewCommittedEvent describes a batch that was just appended.
func NewCommittedEvent(entries []core.LedgerEntry) *LedgerEvent {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return &LedgerEvent{
		Type:      EventEntriesCommitted,
		IDs:       ids,
		Entries:   entries,
		Timestamp: time.Now(),
	}
}

// NewDeletedEvent describes the removal of one entry.
func NewDeletedEvent(id string) *LedgerEvent {
	return &LedgerEvent{
		Type:      EventEntryDeleted,
		IDs:       []string{id},
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and checks an event.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	switch ev.Type {
	case EventEntriesCommitted, EventEntryDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if len(ev.IDs) == 0 {
		return nil, fmt.Errorf("event %s carries no ids", ev.Type)
	}
	return &ev, nil
}
