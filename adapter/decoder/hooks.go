package decoder

import (
	"reflect"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var objectIDType = reflect.TypeOf(primitive.ObjectID{})

// objectIDHook decodes object ids into strings as their hex representation.
func objectIDHook(from reflect.Type, to reflect.Type, v any) (any, error) {
	if from == objectIDType && to.Kind() == reflect.String {
		return v.(primitive.ObjectID).Hex(), nil
	}
	return v, nil
}
