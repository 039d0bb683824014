package database

import (
	"context"
	"time"

	"devoverflow/internal/models"
	"devoverflow/internal/query"
	"devoverflow/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionDocument is a question saved by a user.
type CollectionDocument struct {
	ID         string    `bson:"_id"`
	AuthorID   string    `bson:"authorId"`
	QuestionID string    `bson:"questionId"`
	CreatedAt  time.Time `bson:"createdAt"`
}

type collectionRepository struct {
	u *mongoUnit
}

func (r *collectionRepository) Find(ctx context.Context, authorID, questionID uuid.UUID) (*models.Collection, error) {
	defer r.u.lock()()

	var doc CollectionDocument
	err := r.u.db.Collections.FindOne(ctx, bson.M{
		"authorId":   authorID.String(),
		"questionId": questionID.String(),
	}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "collection")
	}

	id, err := parseID(doc.ID, "collection")
	if err != nil {
		return nil, err
	}
	return &models.Collection{ID: id, AuthorID: authorID, QuestionID: questionID, CreatedAt: doc.CreatedAt}, nil
}

func (r *collectionRepository) Insert(ctx context.Context, c *models.Collection) error {
	defer r.u.lock()()

	_, err := r.u.db.Collections.InsertOne(ctx, CollectionDocument{
		ID:         c.ID.String(),
		AuthorID:   c.AuthorID.String(),
		QuestionID: c.QuestionID.String(),
		CreatedAt:  c.CreatedAt,
	})
	return classify(err, "collection")
}

func (r *collectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.u.lock()()

	result, err := r.u.db.Collections.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return classify(err, "collection")
	}
	if result.DeletedCount == 0 {
		return utils.NewNotFoundError("collection")
	}
	return nil
}

func (r *collectionRepository) QuestionIDs(ctx context.Context, authorID uuid.UUID, spec query.Spec) ([]uuid.UUID, int, error) {
	defer r.u.lock()()

	filter := bson.M{"authorId": authorID.String()}
	total, err := r.u.db.Collections.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, classify(err, "collection")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(spec.Skip())).
		SetLimit(int64(spec.PageSize))
	ids, err := findAll(ctx, r.u.db.Collections, filter, opts, func(doc *CollectionDocument) (uuid.UUID, error) {
		return parseID(doc.QuestionID, "question")
	})
	if err != nil {
		return nil, 0, err
	}
	return ids, int(total), nil
}
