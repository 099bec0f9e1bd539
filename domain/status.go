package domain

// Status is the closed set of task workflow states. Any status may move to any other.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists the allowed values in display order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// Priority is the closed set of optional task priorities.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (s Status) Valid() bool {
	return member(s, Statuses)
}

func (p Priority) Valid() bool {
	return member(p, Priorities)
}

// ParseStatus translates a wire string into a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", InvalidEnum("status", v, Statuses)
	}
	return s, nil
}

// ParsePriority translates a wire string into a Priority.
func ParsePriority(v string) (Priority, error) {
	p := Priority(v)
	if !p.Valid() {
		return "", InvalidEnum("priority", v, Priorities)
	}
	return p, nil
}

func member[T comparable](v T, set []T) bool {
	for _, candidate := range set {
		if candidate == v {
			return true
		}
	}
	return false
}
