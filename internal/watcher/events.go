package watcher

import "time"

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

var eventTypeNames = [...]string{
	EventCreate: "create",
	EventModify: "modify",
	EventDelete: "delete",
	EventRename: "rename",
}

func (e EventType) String() string {
	if e < 0 || int(e) >= len(eventTypeNames) {
		return "unknown"
	}
	return eventTypeNames[e]
}

// FileEvent is one debounced change to a pack file.
type FileEvent struct {
	Path      string
	Type      EventType
	Timestamp time.Time
}

// Paths returns the distinct paths of a batch in the order given.
func Paths(events []FileEvent) []string {
	seen := make(map[string]bool, len(events))
	paths := make([]string, 0, len(events))
	for _, e := range events {
		if seen[e.Path] {
			continue
		}
		seen[e.Path] = true
		paths = append(paths, e.Path)
	}
	return paths
}
