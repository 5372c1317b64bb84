package repository

import (
	"context"
	"time"

	"lessonplayer/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SlideRecordRepo interface {
	Create(ctx context.Context, record *model.SlideRecord) error
	// GetByStudent returns the learner's records oldest first
	GetByStudent(ctx context.Context, studentID string) ([]*model.SlideRecord, error)
	EnsureIndexes(ctx context.Context) error
}

type slideRecordRepo struct {
	collection *mongo.Collection
}

func NewSlideRecordRepo(db *mongo.Database) SlideRecordRepo {
	return &slideRecordRepo{
		collection: db.Collection("slide_interactions"),
	}
}

func (r *slideRecordRepo) Create(ctx context.Context, record *model.SlideRecord) error {
	if record.SavedAt.IsZero() {
		record.SavedAt = time.Now()
	}

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return err
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		record.ID = oid.Hex()
	}
	return nil
}

func (r *slideRecordRepo) GetByStudent(ctx context.Context, studentID string) ([]*model.SlideRecord, error) {
	return r.find(ctx, bson.M{"studentId": studentID})
}

func (r *slideRecordRepo) find(ctx context.Context, filter bson.M) ([]*model.SlideRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "savedAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*model.SlideRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *slideRecordRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "savedAt", Value: 1}}},
		{Keys: bson.D{{Key: "moduleId", Value: 1}, {Key: "submoduleId", Value: 1}}},
	})
	return err
}
