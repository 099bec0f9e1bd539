// Package mongodb implements the record store on MongoDB. The board cascade runs inside a
// multi-document transaction, which needs a replica set deployment.
package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fastygo/taskboard/domain"
)

const (
	boardsCollection = "boards"
	tasksCollection  = "tasks"
)

var now = func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

type boardDocument struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description *string   `bson:"description,omitempty"`
	Color       *string   `bson:"color,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

type taskDocument struct {
	ID          string     `bson:"_id"`
	BoardID     string     `bson:"board_id"`
	Title       string     `bson:"title"`
	Description *string    `bson:"description,omitempty"`
	Status      string     `bson:"status"`
	Priority    *string    `bson:"priority,omitempty"`
	AssignedTo  *string    `bson:"assigned_to,omitempty"`
	DueDate     *time.Time `bson:"due_date,omitempty"`
	Position    *int       `bson:"position,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

func boardFromDocument(doc boardDocument) domain.Board {
	return domain.Board{
		ID:          doc.ID,
		Name:        doc.Name,
		Description: doc.Description,
		Color:       doc.Color,
		CreatedAt:   doc.CreatedAt.UTC(),
		UpdatedAt:   doc.UpdatedAt.UTC(),
	}
}

func boardToDocument(b *domain.Board) boardDocument {
	return boardDocument{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		Color:       b.Color,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func taskFromDocument(doc taskDocument) domain.Task {
	task := domain.Task{
		ID:          doc.ID,
		BoardID:     doc.BoardID,
		Title:       doc.Title,
		Description: doc.Description,
		Status:      domain.Status(doc.Status),
		AssignedTo:  doc.AssignedTo,
		Position:    doc.Position,
		CreatedAt:   doc.CreatedAt.UTC(),
		UpdatedAt:   doc.UpdatedAt.UTC(),
	}
	if doc.Priority != nil {
		p := domain.Priority(*doc.Priority)
		task.Priority = &p
	}
	if doc.DueDate != nil {
		due := doc.DueDate.UTC()
		task.DueDate = &due
	}
	return task
}

func taskToDocument(t *domain.Task) taskDocument {
	doc := taskDocument{
		ID:          t.ID,
		BoardID:     t.BoardID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		AssignedTo:  t.AssignedTo,
		DueDate:     t.DueDate,
		Position:    t.Position,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Priority != nil {
		p := string(*t.Priority)
		doc.Priority = &p
	}
	return doc
}

// setOptional routes a patch field to $set, or to $unset when it is an explicit null.
func setOptional[T any](set, unset bson.M, key string, o domain.Optional[T], conv func(T) interface{}) {
	if !o.IsSet() {
		return
	}
	v, ok := o.Get()
	if !ok {
		unset[key] = ""
		return
	}
	if conv != nil {
		set[key] = conv(v)
		return
	}
	set[key] = v
}

func updateDocument(set, unset bson.M) bson.M {
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func taskUpdateDocument(patch domain.TaskPatch, ts time.Time) bson.M {
	set := bson.M{"updated_at": ts}
	unset := bson.M{}
	setOptional(set, unset, "title", patch.Title, nil)
	setOptional(set, unset, "description", patch.Description, nil)
	setOptional(set, unset, "status", patch.Status, func(s domain.Status) interface{} { return string(s) })
	setOptional(set, unset, "priority", patch.Priority, func(p domain.Priority) interface{} { return string(p) })
	setOptional(set, unset, "assigned_to", patch.AssignedTo, nil)
	setOptional(set, unset, "due_date", patch.DueDate, nil)
	setOptional(set, unset, "position", patch.Position, nil)
	return updateDocument(set, unset)
}

func boardUpdateDocument(patch domain.BoardPatch, ts time.Time) bson.M {
	set := bson.M{"updated_at": ts}
	unset := bson.M{}
	setOptional(set, unset, "name", patch.Name, nil)
	setOptional(set, unset, "description", patch.Description, nil)
	setOptional(set, unset, "color", patch.Color, nil)
	return updateDocument(set, unset)
}

// EnsureIndexes creates the board lookup index used by task listings and the cascade.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(tasksCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "board_id", Value: 1}},
		Options: options.Index().SetName("tasks_board_id"),
	})
	return err
}

// boardGuardUpdate bumps a counter that is never read back. Its only job is to put the
// board document into the transaction's write set.
func boardGuardUpdate() bson.M {
	return bson.M{"$inc": bson.M{"task_writes": 1}}
}

func checkBoardGuard(res *mongo.UpdateResult, boardID string) error {
	if res == nil || res.MatchedCount == 0 {
		return domain.BoardNotFound(boardID)
	}
	return nil
}
