package db

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FilterBuilder assembles bson filters fluently so repositories never
// build raw bson.M literals inline.
type FilterBuilder struct {
	filter bson.M
}

func NewFilter() *FilterBuilder {
	return &FilterBuilder{filter: bson.M{}}
}

// Eq matches documents where field equals value. Against an array field
// Mongo treats this as a membership test, which is how the manager-set
// lookups work.
func (f *FilterBuilder) Eq(field string, value interface{}) *FilterBuilder {
	f.filter[field] = value
	return f
}

// In matches documents where field is any of values.
func (f *FilterBuilder) In(field string, values interface{}) *FilterBuilder {
	f.filter[field] = bson.M{"$in": values}
	return f
}

// ObjectID matches field against the ObjectID parsed from id. A
// malformed id adds no condition; callers that must reject bad ids do so
// before building the filter.
func (f *FilterBuilder) ObjectID(field string, id string) *FilterBuilder {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err == nil {
		f.filter[field] = objectID
	}
	return f
}

func (f *FilterBuilder) Build() bson.M {
	return f.filter
}

// Empty matches every document.
func Empty() bson.M {
	return bson.M{}
}
