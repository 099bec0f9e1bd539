package domain

import (
	"cmp"
	"encoding/json"
	"slices"
	"time"
)

// Board is a named collection of tasks. Deleting a board deletes its tasks.
type Board struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Color       *string   `json:"color,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type BoardPatch struct {
	Name        Optional[string]
	Description Optional[string]
	Color       Optional[string]
}

func (b *Board) Apply(p BoardPatch, now time.Time) {
	if v, ok := p.Name.Get(); ok {
		b.Name = v
	}
	if p.Description.IsSet() {
		b.Description = p.Description.Ptr()
	}
	if p.Color.IsSet() {
		b.Color = p.Color.Ptr()
	}
	b.UpdatedAt = now
}

// BoardInput is used for both create and partial update payloads.
type BoardInput struct {
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
	Color       Optional[string] `json:"color"`
}

func (in BoardInput) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 3)
	putOptional(m, "name", in.Name)
	putOptional(m, "description", in.Description)
	putOptional(m, "color", in.Color)
	return json.Marshal(m)
}

// SortBoards orders newest first with id as tie-break.
func SortBoards(boards []Board) {
	slices.SortStableFunc(boards, func(a, b Board) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
