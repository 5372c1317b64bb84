package repository

import (
	"context"
	"time"

	"lessonplayer/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SubmoduleCompletion records that a learner finished a submodule
type SubmoduleCompletion struct {
	model.CompletionIdentity `bson:",inline"`
	CompletedAt              time.Time `json:"completedAt" bson:"completedAt"`
}

type CompletionRepo interface {
	// Upsert stores the completion once; repeated calls keep the first CompletedAt
	Upsert(ctx context.Context, id model.CompletionIdentity, at time.Time) error
	ListByStudent(ctx context.Context, studentID string) ([]*SubmoduleCompletion, error)
	EnsureIndexes(ctx context.Context) error
}

type completionRepo struct {
	collection *mongo.Collection
}

func NewCompletionRepo(db *mongo.Database) CompletionRepo {
	return &completionRepo{
		collection: db.Collection("submodule_completions"),
	}
}

func (r *completionRepo) Upsert(ctx context.Context, id model.CompletionIdentity, at time.Time) error {
	filter := bson.M{"studentId": id.StudentID, "submoduleId": id.SubmoduleID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"studentId":   id.StudentID,
			"submoduleId": id.SubmoduleID,
			"moduleId":    id.ModuleID,
			"classId":     id.ClassID,
			"completedAt": at,
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *completionRepo) ListByStudent(ctx context.Context, studentID string) ([]*SubmoduleCompletion, error) {
	opts := options.Find().SetSort(bson.D{{Key: "completedAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"studentId": studentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*SubmoduleCompletion
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *completionRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "studentId", Value: 1}, {Key: "submoduleId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
