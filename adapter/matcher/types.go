package matcher

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/docproj/domain"
	"github.com/vinicius-lino-figueiredo/docproj/pkg/structure"
)

// typeAliases maps the $type string aliases to their codes.
var typeAliases = map[string][]bsontype.Type{
	"double":    {bsontype.Double},
	"string":    {bsontype.String},
	"object":    {bsontype.EmbeddedDocument},
	"array":     {bsontype.Array},
	"binData":   {bsontype.Binary},
	"objectId":  {bsontype.ObjectID},
	"bool":      {bsontype.Boolean},
	"date":      {bsontype.DateTime},
	"null":      {bsontype.Null},
	"regex":     {bsontype.Regex},
	"int":       {bsontype.Int32},
	"timestamp": {bsontype.Timestamp},
	"long":      {bsontype.Int64},
	"decimal":   {bsontype.Decimal128},
	"number": {
		bsontype.Double, bsontype.Int32,
		bsontype.Int64, bsontype.Decimal128,
	},
}

// knownTypes are the codes a value of the document model can have.
var knownTypes = map[bsontype.Type]struct{}{
	bsontype.Double:           {},
	bsontype.String:           {},
	bsontype.EmbeddedDocument: {},
	bsontype.Array:            {},
	bsontype.Binary:           {},
	bsontype.ObjectID:         {},
	bsontype.Boolean:          {},
	bsontype.DateTime:         {},
	bsontype.Null:             {},
	bsontype.Regex:            {},
	bsontype.Int32:            {},
	bsontype.Timestamp:        {},
	bsontype.Int64:            {},
	bsontype.Decimal128:       {},
}

// typeCodes parses a $type argument, which can be a code, an alias or a list
// of them.
func typeCodes(v any) ([]bsontype.Type, error) {
	if s, ok := v.(string); ok {
		codes, ok := typeAliases[s]
		if !ok {
			return nil, domain.ErrTypeMismatch{Operator: "$type", Value: v}
		}
		return codes, nil
	}
	if code, ok := structure.AsInteger(v); ok {
		t := bsontype.Type(code)
		if _, known := knownTypes[t]; !known || code < 0 || code > 0xff {
			return nil, domain.ErrTypeMismatch{Operator: "$type", Value: v}
		}
		return []bsontype.Type{t}, nil
	}
	seq, l, err := structure.Seq(v)
	if err != nil || l == 0 {
		return nil, domain.ErrTypeMismatch{Operator: "$type", Value: v}
	}
	var res []bsontype.Type
	for item := range seq {
		if _, isList := item.([]any); isList {
			return nil, domain.ErrTypeMismatch{Operator: "$type", Value: v}
		}
		codes, err := typeCodes(item)
		if err != nil {
			return nil, err
		}
		res = append(res, codes...)
	}
	return res, nil
}

// typeOf returns the code of a value of the document model.
func typeOf(v any) (bsontype.Type, bool) {
	switch v.(type) {
	case nil:
		return bsontype.Null, true
	case float32, float64:
		return bsontype.Double, true
	case string:
		return bsontype.String, true
	case domain.Document:
		return bsontype.EmbeddedDocument, true
	case []any:
		return bsontype.Array, true
	case []byte, primitive.Binary:
		return bsontype.Binary, true
	case primitive.ObjectID:
		return bsontype.ObjectID, true
	case bool:
		return bsontype.Boolean, true
	case time.Time, primitive.DateTime:
		return bsontype.DateTime, true
	case *regexp.Regexp, primitive.Regex:
		return bsontype.Regex, true
	case int8, int16, int32, uint8, uint16:
		return bsontype.Int32, true
	case int, int64, uint, uint32, uint64:
		return bsontype.Int64, true
	case primitive.Timestamp:
		return bsontype.Timestamp, true
	case primitive.Decimal128:
		return bsontype.Decimal128, true
	}
	return 0, false
}
