// internal/database/question_repository.go
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

// QuestionDocument represents the MongoDB schema for a question.
type QuestionDocument struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	Content   string    `bson:"content"`
	AuthorID  string    `bson:"authorId"`
	Tags      []string  `bson:"tags"` // Tag ids in attach order
	Answers   int       `bson:"answers"`
	Views     int       `bson:"views"`
	Upvotes   int       `bson:"upvotes"`
	Downvotes int       `bson:"downvotes"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// QuestionToDocument converts a Question model to a MongoDB document.
func QuestionToDocument(q *models.Question) *QuestionDocument {
	return &QuestionDocument{
		ID:        q.ID.String(),
		Title:     q.Title,
		Content:   q.Content,
		AuthorID:  q.AuthorID.String(),
		Tags:      idStrings(q.Tags),
		Answers:   q.Answers,
		Views:     q.Views,
		Upvotes:   q.Upvotes,
		Downvotes: q.Downvotes,
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}

// DocumentToQuestion converts a MongoDB document to a Question model.
func DocumentToQuestion(doc *QuestionDocument) (*models.Question, error) {
	id, err := parseID(doc.ID, "question")
	if err != nil {
		return nil, err
	}
	authorID, err := parseID(doc.AuthorID, "author")
	if err != nil {
		return nil, err
	}
	tags, err := parseIDs(doc.Tags)
	if err != nil {
		return nil, err
	}

	return &models.Question{
		ID:        id,
		Title:     doc.Title,
		Content:   doc.Content,
		AuthorID:  authorID,
		Tags:      tags,
		Answers:   doc.Answers,
		Views:     doc.Views,
		Upvotes:   doc.Upvotes,
		Downvotes: doc.Downvotes,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

type questionRepository struct {
	u *mongoUnit
}

func (r *questionRepository) Insert(ctx context.Context, q *models.Question) error {
	defer r.u.lock()()

	_, err := r.u.db.Questions.InsertOne(ctx, QuestionToDocument(q))
	return classify(err, "question")
}

func (r *questionRepository) Get(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	defer r.u.lock()()

	var doc QuestionDocument
	if err := r.u.db.Questions.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, classify(err, "question")
	}
	return DocumentToQuestion(&doc)
}

func (r *questionRepository) Update(ctx context.Context, q *models.Question) error {
	defer r.u.lock()()

	result, err := r.u.db.Questions.UpdateOne(ctx,
		bson.M{"_id": q.ID.String()},
		bson.M{"$set": bson.M{
			"title":     q.Title,
			"content":   q.Content,
			"tags":      idStrings(q.Tags),
			"updatedAt": q.UpdatedAt,
		}},
	)
	return matched(result, err, "question")
}

func (r *questionRepository) PushTags(ctx context.Context, id uuid.UUID, tagIDs []uuid.UUID) error {
	defer r.u.lock()()

	result, err := r.u.db.Questions.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$push": bson.M{"tags": bson.M{"$each": idStrings(tagIDs)}}},
	)
	return matched(result, err, "question")
}

func (r *questionRepository) IncrementAnswers(ctx context.Context, id uuid.UUID, delta int) error {
	defer r.u.lock()()

	result, err := r.u.db.Questions.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$inc": bson.M{"answers": delta}},
	)
	return matched(result, err, "question")
}

func (r *questionRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	defer r.u.lock()()

	result, err := r.u.db.Questions.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$inc": bson.M{"views": 1}},
	)
	return matched(result, err, "question")
}

func (r *questionRepository) AdjustVotes(ctx context.Context, id uuid.UUID, upDelta, downDelta int) (*models.Votable, error) {
	defer r.u.lock()()
	return adjustVotes(ctx, r.u.db.Questions, id, upDelta, downDelta, "question")
}

func (r *questionRepository) List(ctx context.Context, spec query.Spec) ([]*models.Question, int, error) {
	defer r.u.lock()()
	return findPage(ctx, r.u.db.Questions, filterFor(spec, "title", "content"), spec, DocumentToQuestion)
}

// GetMany returns the questions in the order of ids, skipping missing ones.
func (r *questionRepository) GetMany(ctx context.Context, ids []uuid.UUID) ([]*models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	defer r.u.lock()()

	found, err := findAll(ctx, r.u.db.Questions,
		bson.M{"_id": bson.M{"$in": idStrings(ids)}}, options.Find(), DocumentToQuestion)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Question, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}
	ordered := make([]*models.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered, nil
}

func (r *questionRepository) Count(ctx context.Context) (int, error) {
	defer r.u.lock()()

	n, err := r.u.db.Questions.CountDocuments(ctx, bson.M{})
	return int(n), classify(err, "question")
}

func (r *questionRepository) All(ctx context.Context) ([]*models.Question, error) {
	defer r.u.lock()()
	return findAll(ctx, r.u.db.Questions, bson.M{}, options.Find(), DocumentToQuestion)
}

// votesDocument is the projection returned by counter updates.
type votesDocument struct {
	ID        string `bson:"_id"`
	Upvotes   int    `bson:"upvotes"`
	Downvotes int    `bson:"downvotes"`
}

// adjustVotes applies both counter deltas in one $inc. A missing target is
// NotFound so the enclosing transaction aborts.
func adjustVotes(ctx context.Context, coll *mongo.Collection, id uuid.UUID, upDelta, downDelta int, what string) (*models.Votable, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"upvotes": 1, "downvotes": 1})

	var doc votesDocument
	err := coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$inc": bson.M{"upvotes": upDelta, "downvotes": downDelta}},
		opts,
	).Decode(&doc)
	if err != nil {
		return nil, classify(err, what)
	}
	return &models.Votable{ID: id, Upvotes: doc.Upvotes, Downvotes: doc.Downvotes}, nil
}

func matched(result *mongo.UpdateResult, err error, what string) error {
	if err != nil {
		return classify(err, what)
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError(what)
	}
	return nil
}
