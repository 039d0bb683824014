package database

import (
	"context"
	"time"

	"devoverflow/internal/models"
	"devoverflow/internal/query"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AnswerDocument represents answer data in MongoDB
type AnswerDocument struct {
	ID         string    `bson:"_id"`
	QuestionID string    `bson:"questionId"`
	AuthorID   string    `bson:"authorId"`
	Content    string    `bson:"content"`
	Upvotes    int       `bson:"upvotes"`
	Downvotes  int       `bson:"downvotes"`
	CreatedAt  time.Time `bson:"createdAt"`
}

func convertAnswerDocumentToModel(doc *AnswerDocument) (*models.Answer, error) {
	id, err := parseID(doc.ID, "answer")
	if err != nil {
		return nil, err
	}
	questionID, err := parseID(doc.QuestionID, "question")
	if err != nil {
		return nil, err
	}
	authorID, err := parseID(doc.AuthorID, "author")
	if err != nil {
		return nil, err
	}
	return &models.Answer{
		ID:         id,
		QuestionID: questionID,
		AuthorID:   authorID,
		Content:    doc.Content,
		Upvotes:    doc.Upvotes,
		Downvotes:  doc.Downvotes,
		CreatedAt:  doc.CreatedAt,
	}, nil
}

type answerRepository struct {
	u *mongoUnit
}

func (r *answerRepository) Insert(ctx context.Context, a *models.Answer) error {
	defer r.u.lock()()

	_, err := r.u.db.Answers.InsertOne(ctx, AnswerDocument{
		ID:         a.ID.String(),
		QuestionID: a.QuestionID.String(),
		AuthorID:   a.AuthorID.String(),
		Content:    a.Content,
		Upvotes:    a.Upvotes,
		Downvotes:  a.Downvotes,
		CreatedAt:  a.CreatedAt,
	})
	return classify(err, "answer")
}

func (r *answerRepository) Get(ctx context.Context, id uuid.UUID) (*models.Answer, error) {
	defer r.u.lock()()

	var doc AnswerDocument
	if err := r.u.db.Answers.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, classify(err, "answer")
	}
	return convertAnswerDocumentToModel(&doc)
}

func (r *answerRepository) ListForQuestion(ctx context.Context, questionID uuid.UUID, spec query.Spec) ([]*models.Answer, int, error) {
	defer r.u.lock()()

	filter := bson.M{"questionId": questionID.String()}
	return findPage(ctx, r.u.db.Answers, filter, spec, convertAnswerDocumentToModel)
}

func (r *answerRepository) AdjustVotes(ctx context.Context, id uuid.UUID, upDelta, downDelta int) (*models.Votable, error) {
	defer r.u.lock()()
	return adjustVotes(ctx, r.u.db.Answers, id, upDelta, downDelta, "answer")
}

func (r *answerRepository) All(ctx context.Context) ([]*models.Answer, error) {
	defer r.u.lock()()
	return findAll(ctx, r.u.db.Answers, bson.M{}, options.Find(), convertAnswerDocumentToModel)
}
