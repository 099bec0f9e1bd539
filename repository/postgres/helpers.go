package postgres

import (
	"fmt"
	"strings"

	"github.com/fastygo/taskboard/domain"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// setBuilder assembles the SET clause of a partial UPDATE with positional arguments.
type setBuilder struct {
	sets []string
	args []interface{}
}

func (b *setBuilder) add(column string, value interface{}) {
	b.args = append(b.args, value)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

func (b *setBuilder) raw(expr string) {
	b.sets = append(b.sets, expr)
}

// clause returns the SET list and the placeholder reserved for the WHERE id.
func (b *setBuilder) clause() (string, string) {
	return strings.Join(b.sets, ", "), fmt.Sprintf("$%d", len(b.args)+1)
}

func addOptional[T any](b *setBuilder, column string, o domain.Optional[T], conv func(T) interface{}) {
	if !o.IsSet() {
		return
	}
	v, ok := o.Get()
	if !ok {
		b.add(column, nil)
		return
	}
	if conv != nil {
		b.add(column, conv(v))
		return
	}
	b.add(column, v)
}

func buildTaskUpdate(patch domain.TaskPatch) *setBuilder {
	b := &setBuilder{}
	addOptional(b, "title", patch.Title, nil)
	addOptional(b, "description", patch.Description, nil)
	addOptional(b, "status", patch.Status, func(s domain.Status) interface{} { return string(s) })
	addOptional(b, "priority", patch.Priority, func(p domain.Priority) interface{} { return string(p) })
	addOptional(b, "assigned_to", patch.AssignedTo, nil)
	addOptional(b, "due_date", patch.DueDate, nil)
	addOptional(b, "position", patch.Position, nil)
	b.raw("updated_at = NOW()")
	return b
}

func buildBoardUpdate(patch domain.BoardPatch) *setBuilder {
	b := &setBuilder{}
	addOptional(b, "name", patch.Name, nil)
	addOptional(b, "description", patch.Description, nil)
	addOptional(b, "color", patch.Color, nil)
	b.raw("updated_at = NOW()")
	return b
}

func priorityArg(p *domain.Priority) interface{} {
	if p == nil {
		return nil
	}
	return string(*p)
}
