package mongodb

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fastygo/taskboard/domain"
)

func TestTaskUpdateDocumentSplitsSetAndUnset(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	update := taskUpdateDocument(domain.TaskPatch{
		Status:     domain.Some(domain.StatusDone),
		AssignedTo: domain.Null[string](),
	}, ts)

	set, ok := update["$set"].(bson.M)
	if !ok {
		t.Fatalf("missing $set: %#v", update)
	}
	if set["status"] != "done" || set["updated_at"] != ts {
		t.Fatalf("unexpected $set: %#v", set)
	}
	if _, present := set["title"]; present {
		t.Fatalf("absent field leaked into $set: %#v", set)
	}

	unset, ok := update["$unset"].(bson.M)
	if !ok {
		t.Fatalf("missing $unset: %#v", update)
	}
	if _, present := unset["assigned_to"]; !present || len(unset) != 1 {
		t.Fatalf("unexpected $unset: %#v", unset)
	}
}

func TestBoardUpdateDocumentWithoutNulls(t *testing.T) {
	update := boardUpdateDocument(domain.BoardPatch{Name: domain.Some("Launch")}, time.Now())
	if _, present := update["$unset"]; present {
		t.Fatalf("unexpected $unset: %#v", update)
	}
}

func TestTaskDocumentRoundTrip(t *testing.T) {
	high := domain.PriorityHigh
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	task := domain.Task{ID: "t1", BoardID: "b1", Title: "x", Status: domain.StatusInProgress, Priority: &high, DueDate: &due}

	back := taskFromDocument(taskToDocument(&task))
	if back.Status != domain.StatusInProgress || back.Priority == nil || *back.Priority != high || !back.DueDate.Equal(due) {
		t.Fatalf("document conversion lost data: %+v", back)
	}
}

func TestBoardGuardRejectsMissingBoard(t *testing.T) {
	inc, ok := boardGuardUpdate()["$inc"].(bson.M)
	if !ok || len(inc) != 1 {
		t.Fatalf("guard must only bump its counter: %#v", boardGuardUpdate())
	}

	err := checkBoardGuard(&mongo.UpdateResult{MatchedCount: 0}, "gone")
	if !domain.IsDomainError(err, domain.ErrCodeBoardNotFound) {
		t.Fatalf("expected BOARD_NOT_FOUND, got %v", err)
	}
	if err := checkBoardGuard(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, "b1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBoardDocumentIgnoresGuardCounter(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"_id": "b1", "name": "Launch", "task_writes": 7})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc boardDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if board := boardFromDocument(doc); board.ID != "b1" || board.Name != "Launch" {
		t.Fatalf("unexpected board %+v", board)
	}
}
