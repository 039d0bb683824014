package database

import (
	"testing"

	"devoverflow/internal/query"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestFilterFor(t *testing.T) {
	tagID := uuid.New()

	assert.Equal(t, bson.M{}, filterFor(query.Spec{Clauses: []query.Clause{query.NoFilter{}}}))

	assert.Equal(t, bson.M{"answers": 0}, filterFor(query.Spec{Clauses: []query.Clause{query.Unanswered{}}}))

	search := filterFor(query.Spec{Clauses: []query.Clause{query.TextSearch{Term: "a.b*"}}}, "title", "content")
	pattern := bson.M{"$regex": `a\.b\*`, "$options": "i"}
	assert.Equal(t, bson.M{"$or": []bson.M{{"title": pattern}, {"content": pattern}}}, search)

	both := filterFor(query.Spec{Clauses: []query.Clause{
		query.HasTag{TagID: tagID},
		query.Unanswered{},
		query.SortBy{Field: query.FieldCreatedAt, Direction: query.Descending},
	}})
	assert.Equal(t, bson.M{"$and": []bson.M{{"tags": tagID.String()}, {"answers": 0}}}, both)
}

func TestSortFor(t *testing.T) {
	spec := query.Spec{Clauses: []query.Clause{
		query.SortBy{Field: query.FieldName, Direction: query.Ascending},
	}}
	assert.Equal(t, bson.D{{Key: "nameKey", Value: 1}, {Key: "_id", Value: 1}}, sortFor(spec))

	assert.Equal(t, bson.D{{Key: "_id", Value: 1}}, sortFor(query.Spec{}))
}

func TestParseIDs(t *testing.T) {
	id := uuid.New()
	got, err := parseIDs([]string{id.String()})
	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, got)

	_, err = parseIDs([]string{"not-a-uuid"})
	assert.Error(t, err)
}
