package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Parse decodes a single JSON value into the document value model. Objects keep
// their key order, integral numbers become int64 and all other numbers float64.
// An object of the form {"$oid": "<24 hex>"} decodes to an ObjectID.
func Parse(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	value, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return value, nil
}

// ParseDocument is Parse restricted to a top-level JSON object.
func ParseDocument(data []byte) (Document, error) {
	value, err := Parse(data)
	if err != nil {
		return nil, err
	}
	doc, ok := value.(Document)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %s", TypeTag(value))
	}
	return doc, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch typed := tok.(type) {
	case json.Delim:
		switch typed {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", rune(typed))
		}
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i, nil
		}
		f, err := typed.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", typed.String(), err)
		}
		return f, nil
	case string, bool, nil:
		return typed, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

func decodeObject(dec *json.Decoder) (any, error) {
	doc := Document{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key must be a string, got %v", tok)
		}
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		doc.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if id, ok := extendedObjectID(doc); ok {
		return id, nil
	}
	return doc, nil
}

func decodeArray(dec *json.Decoder) (any, error) {
	items := []any{}
	for dec.More() {
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		items = append(items, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return items, nil
}

func extendedObjectID(doc Document) (ObjectID, bool) {
	if len(doc) != 1 || doc[0].Key != "$oid" {
		return ObjectID{}, false
	}
	raw, ok := doc[0].Value.(string)
	if !ok {
		return ObjectID{}, false
	}
	id, err := ObjectIDFromHex(raw)
	if err != nil {
		return ObjectID{}, false
	}
	return id, true
}
