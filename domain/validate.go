package domain

import (
	"context"
	"math"
	"strings"
	"time"
)

// BoardLookup reports whether a board exists. Store failures are returned as errors.
type BoardLookup func(ctx context.Context, boardID string) (bool, error)

// ValidateRequiredString fails when the value is absent, null or blank.
func ValidateRequiredString(field string, value Optional[string]) (string, error) {
	v, ok := value.Get()
	if !ok || strings.TrimSpace(v) == "" {
		return "", MissingField(field)
	}
	return v, nil
}

// ValidateEnum checks membership of a present value. Absent and null pass through unchanged.
func ValidateEnum[T ~string](field string, value Optional[string], allowed []T) (Optional[T], error) {
	if !value.IsSet() {
		return Optional[T]{}, nil
	}
	if value.IsNull() {
		return Null[T](), nil
	}
	v, _ := value.Get()
	if !member(T(v), allowed) {
		return Optional[T]{}, InvalidEnum(field, v, allowed)
	}
	return Some(T(v)), nil
}

// ValidateBoardReference fails with BOARD_NOT_FOUND when lookup finds nothing.
func ValidateBoardReference(ctx context.Context, boardID string, lookup BoardLookup) error {
	exists, err := lookup(ctx, boardID)
	if err != nil {
		return err
	}
	if !exists {
		return BoardNotFound(boardID)
	}
	return nil
}

const dateOnly = "2006-01-02"

// ValidateDate accepts RFC 3339 timestamps or YYYY-MM-DD dates (UTC midnight).
func ValidateDate(field string, value Optional[string]) (Optional[time.Time], error) {
	if !value.IsSet() {
		return Optional[time.Time]{}, nil
	}
	v, ok := value.Get()
	if !ok || strings.TrimSpace(v) == "" {
		return Null[time.Time](), nil
	}
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return Some(t.UTC()), nil
	}
	if t, err := time.Parse(dateOnly, v); err == nil {
		return Some(t), nil
	}
	return Optional[time.Time]{}, InvalidField(field, "expected RFC 3339 timestamp or YYYY-MM-DD date")
}

// ValidatePosition keeps a present position within the 32-bit range every store can hold.
func ValidatePosition(field string, value Optional[int]) error {
	v, ok := value.Get()
	if ok && (v < math.MinInt32 || v > math.MaxInt32) {
		return InvalidField(field, "must fit in a 32-bit signed integer")
	}
	return nil
}

// ValidateTaskInput turns a create payload into a draft task. Board existence is checked by the caller.
func ValidateTaskInput(in TaskInput) (*Task, error) {
	title, err := ValidateRequiredString("title", in.Title)
	if err != nil {
		return nil, err
	}
	priority, err := ValidateEnum("priority", in.Priority, Priorities)
	if err != nil {
		return nil, err
	}
	due, err := ValidateDate("dueDate", in.DueDate)
	if err != nil {
		return nil, err
	}
	if err := ValidatePosition("position", in.Position); err != nil {
		return nil, err
	}
	boardID, err := ValidateRequiredString("boardId", in.BoardID)
	if err != nil {
		return nil, err
	}

	return &Task{
		BoardID:     strings.TrimSpace(boardID),
		Title:       title,
		Description: in.Description.Ptr(),
		Status:      StatusTodo,
		Priority:    priority.Ptr(),
		AssignedTo:  in.AssignedTo.Ptr(),
		DueDate:     due.Ptr(),
		Position:    in.Position.Ptr(),
	}, nil
}

// ValidateTaskUpdate turns a partial update payload into a typed patch.
func ValidateTaskUpdate(in TaskUpdateInput) (TaskPatch, error) {
	var patch TaskPatch

	if in.Title.IsSet() {
		title, err := ValidateRequiredString("title", in.Title)
		if err != nil {
			return TaskPatch{}, err
		}
		patch.Title = Some(title)
	}

	if in.Status.IsNull() {
		return TaskPatch{}, InvalidEnum("status", "null", Statuses)
	}
	status, err := ValidateEnum("status", in.Status, Statuses)
	if err != nil {
		return TaskPatch{}, err
	}
	patch.Status = status

	priority, err := ValidateEnum("priority", in.Priority, Priorities)
	if err != nil {
		return TaskPatch{}, err
	}
	patch.Priority = priority

	due, err := ValidateDate("dueDate", in.DueDate)
	if err != nil {
		return TaskPatch{}, err
	}
	patch.DueDate = due

	if err := ValidatePosition("position", in.Position); err != nil {
		return TaskPatch{}, err
	}

	patch.Description = in.Description
	patch.AssignedTo = in.AssignedTo
	patch.Position = in.Position
	return patch, nil
}

// ValidateBoardInput validates a create payload.
func ValidateBoardInput(in BoardInput) (*Board, error) {
	name, err := ValidateRequiredString("name", in.Name)
	if err != nil {
		return nil, err
	}
	return &Board{
		Name:        name,
		Description: in.Description.Ptr(),
		Color:       in.Color.Ptr(),
	}, nil
}

// ValidateBoardUpdate validates a partial update payload.
func ValidateBoardUpdate(in BoardInput) (BoardPatch, error) {
	patch := BoardPatch{Description: in.Description, Color: in.Color}
	if in.Name.IsSet() {
		name, err := ValidateRequiredString("name", in.Name)
		if err != nil {
			return BoardPatch{}, err
		}
		patch.Name = Some(name)
	}
	return patch, nil
}
