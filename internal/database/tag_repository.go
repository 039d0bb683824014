// internal/database/tag_repository.go
package database

import (
	"context"
	"strings"
	"time"

	"devoverflow/internal/models"
	"devoverflow/internal/query"
	"devoverflow/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TagDocument represents the MongoDB schema for a tag.
type TagDocument struct {
	ID         string    `bson:"_id"`
	Name       string    `bson:"name"`
	NameKey    string    `bson:"nameKey"` // Case-folded name, unique
	UsageCount int       `bson:"usageCount"`
	CreatedAt  time.Time `bson:"createdAt"`
}

// TagLinkDocument represents the MongoDB schema for a tag-question link.
type TagLinkDocument struct {
	ID         string    `bson:"_id"`
	TagID      string    `bson:"tagId"`
	QuestionID string    `bson:"questionId"`
	CreatedAt  time.Time `bson:"createdAt"`
}

func tagDocumentToModel(doc *TagDocument) (*models.Tag, error) {
	id, err := parseID(doc.ID, "tag")
	if err != nil {
		return nil, err
	}
	return &models.Tag{
		ID:         id,
		Name:       doc.Name,
		NameKey:    doc.NameKey,
		UsageCount: doc.UsageCount,
		CreatedAt:  doc.CreatedAt,
	}, nil
}

func linkDocumentToModel(doc *TagLinkDocument) (*models.TagQuestion, error) {
	id, err := parseID(doc.ID, "link")
	if err != nil {
		return nil, err
	}
	tagID, err := parseID(doc.TagID, "tag")
	if err != nil {
		return nil, err
	}
	questionID, err := parseID(doc.QuestionID, "question")
	if err != nil {
		return nil, err
	}
	return &models.TagQuestion{ID: id, TagID: tagID, QuestionID: questionID, CreatedAt: doc.CreatedAt}, nil
}

type tagRepository struct {
	u *mongoUnit
}

// UpsertIncrement is a single findAndModify keyed by nameKey. The equality
// filter populates nameKey on insert.
func (r *tagRepository) UpsertIncrement(ctx context.Context, name string) (*models.Tag, error) {
	defer r.u.lock()()

	filter := bson.M{"nameKey": models.TagKey(name)}
	update := bson.M{
		"$inc": bson.M{"usageCount": 1},
		"$setOnInsert": bson.M{
			"_id":       uuid.NewString(),
			"name":      strings.TrimSpace(name),
			"createdAt": time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc TagDocument
	if err := r.u.db.Tags.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, classify(err, "tag")
	}
	return tagDocumentToModel(&doc)
}

func (r *tagRepository) Increment(ctx context.Context, id uuid.UUID, delta int) (*models.Tag, error) {
	defer r.u.lock()()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc TagDocument
	err := r.u.db.Tags.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$inc": bson.M{"usageCount": delta}},
		opts,
	).Decode(&doc)
	if err != nil {
		return nil, classify(err, "tag")
	}
	return tagDocumentToModel(&doc)
}

func (r *tagRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.u.lock()()

	result, err := r.u.db.Tags.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return classify(err, "tag")
	}
	if result.DeletedCount == 0 {
		return utils.NewNotFoundError("tag")
	}
	return nil
}

func (r *tagRepository) Get(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	defer r.u.lock()()

	var doc TagDocument
	if err := r.u.db.Tags.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, classify(err, "tag")
	}
	return tagDocumentToModel(&doc)
}

func (r *tagRepository) GetMany(ctx context.Context, ids []uuid.UUID) ([]*models.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	defer r.u.lock()()

	found, err := findAll(ctx, r.u.db.Tags,
		bson.M{"_id": bson.M{"$in": idStrings(ids)}}, options.Find(), tagDocumentToModel)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*models.Tag, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}
	ordered := make([]*models.Tag, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			ordered = append(ordered, t)
		}
	}
	return ordered, nil
}

func (r *tagRepository) List(ctx context.Context, spec query.Spec) ([]*models.Tag, int, error) {
	defer r.u.lock()()
	return findPage(ctx, r.u.db.Tags, filterFor(spec, "name"), spec, tagDocumentToModel)
}

func (r *tagRepository) All(ctx context.Context) ([]*models.Tag, error) {
	defer r.u.lock()()
	return findAll(ctx, r.u.db.Tags, bson.M{}, options.Find(), tagDocumentToModel)
}

type linkRepository struct {
	u *mongoUnit
}

func (r *linkRepository) InsertMany(ctx context.Context, links []*models.TagQuestion) error {
	if len(links) == 0 {
		return nil
	}
	defer r.u.lock()()

	docs := make([]interface{}, len(links))
	for i, l := range links {
		docs[i] = TagLinkDocument{
			ID:         l.ID.String(),
			TagID:      l.TagID.String(),
			QuestionID: l.QuestionID.String(),
			CreatedAt:  l.CreatedAt,
		}
	}
	_, err := r.u.db.TagLinks.InsertMany(ctx, docs)
	return classify(err, "tag link")
}

func (r *linkRepository) Delete(ctx context.Context, tagID, questionID uuid.UUID) error {
	defer r.u.lock()()

	result, err := r.u.db.TagLinks.DeleteOne(ctx, bson.M{
		"tagId":      tagID.String(),
		"questionId": questionID.String(),
	})
	if err != nil {
		return classify(err, "tag link")
	}
	if result.DeletedCount == 0 {
		return utils.NewNotFoundError("tag link")
	}
	return nil
}

func (r *linkRepository) All(ctx context.Context) ([]*models.TagQuestion, error) {
	defer r.u.lock()()
	return findAll(ctx, r.u.db.TagLinks, bson.M{}, options.Find(), linkDocumentToModel)
}
