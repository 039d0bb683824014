package database

import (
	"context"
	"fmt"
	"regexp"

	"devoverflow/internal/query"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// filterFor translates the filter clauses of a spec into a bson filter.
// searchFields are the fields a TextSearch clause matches against.
func filterFor(spec query.Spec, searchFields ...string) bson.M {
	var parts []bson.M
	for _, clause := range spec.Filters() {
		switch c := clause.(type) {
		case query.NoFilter:
		case query.TextSearch:
			pattern := bson.M{"$regex": regexp.QuoteMeta(c.Term), "$options": "i"}
			or := make([]bson.M, 0, len(searchFields))
			for _, f := range searchFields {
				or = append(or, bson.M{f: pattern})
			}
			parts = append(parts, bson.M{"$or": or})
		case query.Unanswered:
			parts = append(parts, bson.M{"answers": 0})
		case query.HasTag:
			parts = append(parts, bson.M{"tags": c.TagID.String()})
		}
	}

	switch len(parts) {
	case 0:
		return bson.M{}
	case 1:
		return parts[0]
	default:
		return bson.M{"$and": parts}
	}
}

func sortFor(spec query.Spec) bson.D {
	var sort bson.D
	for _, s := range spec.Sorts() {
		field := string(s.Field)
		if s.Field == query.FieldName {
			field = "nameKey"
		}
		sort = append(sort, bson.E{Key: field, Value: int(s.Direction)})
	}
	// Stable paging needs a unique tiebreaker.
	return append(sort, bson.E{Key: "_id", Value: 1})
}

func findOptions(spec query.Spec) *options.FindOptions {
	return options.Find().
		SetSort(sortFor(spec)).
		SetSkip(int64(spec.Skip())).
		SetLimit(int64(spec.PageSize))
}

// findPage runs a counted, paged query and converts each document.
func findPage[D any, T any](ctx context.Context, coll *mongo.Collection, filter bson.M, spec query.Spec, convert func(*D) (T, error)) ([]T, int, error) {
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, classify(err, coll.Name())
	}

	items, err := findAll(ctx, coll, filter, findOptions(spec), convert)
	if err != nil {
		return nil, 0, err
	}
	return items, int(total), nil
}

func findAll[D any, T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions, convert func(*D) (T, error)) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(err, coll.Name())
	}
	defer cursor.Close(ctx)

	var items []T
	for cursor.Next(ctx) {
		var doc D
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", coll.Name(), err)
		}
		item, err := convert(&doc)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, classify(err, coll.Name())
	}
	return items, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseIDs(ss []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(ss))
	for _, s := range ss {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", s, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func parseID(s, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s ID: %w", what, err)
	}
	return id, nil
}
