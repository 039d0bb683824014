package database

import (
	"context"
	"time"

	"devoverflow/internal/models"
	"devoverflow/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// VoteDocument is one user's vote on a question or answer. The
// (authorId, targetId, targetType) index is unique.
type VoteDocument struct {
	ID         string    `bson:"_id"`
	AuthorID   string    `bson:"authorId"`
	TargetID   string    `bson:"targetId"`
	TargetType string    `bson:"targetType"`
	VoteType   string    `bson:"voteType"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

func voteDocumentToModel(doc *VoteDocument) (*models.Vote, error) {
	id, err := parseID(doc.ID, "vote")
	if err != nil {
		return nil, err
	}
	authorID, err := parseID(doc.AuthorID, "author")
	if err != nil {
		return nil, err
	}
	targetID, err := parseID(doc.TargetID, "target")
	if err != nil {
		return nil, err
	}
	return &models.Vote{
		ID:         id,
		AuthorID:   authorID,
		TargetID:   targetID,
		TargetType: models.TargetType(doc.TargetType),
		VoteType:   models.VoteType(doc.VoteType),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

type voteRepository struct {
	u *mongoUnit
}

func (r *voteRepository) Find(ctx context.Context, authorID, targetID uuid.UUID, targetType models.TargetType) (*models.Vote, error) {
	defer r.u.lock()()

	var doc VoteDocument
	err := r.u.db.Votes.FindOne(ctx, bson.M{
		"authorId":   authorID.String(),
		"targetId":   targetID.String(),
		"targetType": string(targetType),
	}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "vote")
	}
	return voteDocumentToModel(&doc)
}

func (r *voteRepository) Insert(ctx context.Context, v *models.Vote) error {
	defer r.u.lock()()

	_, err := r.u.db.Votes.InsertOne(ctx, VoteDocument{
		ID:         v.ID.String(),
		AuthorID:   v.AuthorID.String(),
		TargetID:   v.TargetID.String(),
		TargetType: string(v.TargetType),
		VoteType:   string(v.VoteType),
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  v.UpdatedAt,
	})
	return classify(err, "vote")
}

func (r *voteRepository) UpdateType(ctx context.Context, id uuid.UUID, voteType models.VoteType) error {
	defer r.u.lock()()

	result, err := r.u.db.Votes.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"voteType": string(voteType), "updatedAt": time.Now().UTC()}},
	)
	return matched(result, err, "vote")
}

func (r *voteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.u.lock()()

	result, err := r.u.db.Votes.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return classify(err, "vote")
	}
	if result.DeletedCount == 0 {
		return utils.NewNotFoundError("vote")
	}
	return nil
}

func (r *voteRepository) All(ctx context.Context) ([]*models.Vote, error) {
	defer r.u.lock()()
	return findAll(ctx, r.u.db.Votes, bson.M{}, options.Find(), voteDocumentToModel)
}
