package dbmongo

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medious/internal/common"
)

// CursorFilter restricts a (field, _id) scan to documents strictly past c.
// A nil cursor matches everything.
func CursorFilter(field string, c *common.Cursor, descending bool) (bson.D, error) {
	if c == nil {
		return bson.D{}, nil
	}
	oid, err := primitive.ObjectIDFromHex(c.ID)
	if err != nil {
		return nil, common.BadRequest("Invalid cursor")
	}
	op := "$gt"
	if descending {
		op = "$lt"
	}
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: field, Value: bson.D{{Key: op, Value: c.Time}}}},
		bson.D{{Key: field, Value: c.Time}, {Key: "_id", Value: bson.D{{Key: op, Value: oid}}}},
	}}}, nil
}

// PageOptions sorts on (field, _id) and fetches one extra row to detect a next page.
func PageOptions(field string, limit int, descending bool) *options.FindOptions {
	dir := 1
	if descending {
		dir = -1
	}
	return options.Find().
		SetSort(bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}).
		SetLimit(int64(limit) + 1)
}

// And merges filters, skipping empty ones.
func And(filters ...bson.D) bson.D {
	parts := bson.A{}
	for _, f := range filters {
		if len(f) > 0 {
			parts = append(parts, f)
		}
	}
	switch len(parts) {
	case 0:
		return bson.D{}
	case 1:
		return parts[0].(bson.D)
	}
	return bson.D{{Key: "$and", Value: parts}}
}
