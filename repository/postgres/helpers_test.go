package postgres

import (
	"testing"

	"github.com/fastygo/taskboard/domain"
)

func TestBuildTaskUpdateOnlyPresentFields(t *testing.T) {
	patch := domain.TaskPatch{
		Status:   domain.Some(domain.StatusInProgress),
		Priority: domain.Null[domain.Priority](),
	}

	b := buildTaskUpdate(patch)
	set, idArg := b.clause()

	if set != "status = $1, priority = $2, updated_at = NOW()" {
		t.Fatalf("unexpected SET clause: %s", set)
	}
	if idArg != "$3" {
		t.Fatalf("unexpected id placeholder: %s", idArg)
	}
	if len(b.args) != 2 || b.args[0] != "in_progress" || b.args[1] != nil {
		t.Fatalf("unexpected args: %#v", b.args)
	}
}

func TestBuildTaskUpdateEmptyPatchTouchesTimestamp(t *testing.T) {
	b := buildTaskUpdate(domain.TaskPatch{})
	set, idArg := b.clause()
	if set != "updated_at = NOW()" || idArg != "$1" {
		t.Fatalf("unexpected clause %q %q", set, idArg)
	}
}

func TestBuildBoardUpdate(t *testing.T) {
	b := buildBoardUpdate(domain.BoardPatch{Name: domain.Some("Launch"), Color: domain.Some("#ff0000")})
	set, _ := b.clause()
	if set != "name = $1, color = $2, updated_at = NOW()" {
		t.Fatalf("unexpected SET clause: %s", set)
	}
}
