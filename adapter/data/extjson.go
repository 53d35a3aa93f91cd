package data

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

// FromExtJSON decodes a MongoDB extended JSON object, canonical or relaxed,
// into a document. Key order is preserved.
func FromExtJSON(b []byte) (domain.Document, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON(b, false, &d); err != nil {
		return nil, domain.ErrDecode{Source: err}
	}
	return NewDocument(d)
}

// ToExtJSON encodes a document as relaxed extended JSON.
func ToExtJSON(doc domain.Document) ([]byte, error) {
	return bson.MarshalExtJSON(ToBSON(doc), false, false)
}
