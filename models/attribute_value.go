package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// ValueKind tags the concrete type held by an AttributeValue.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindNumber ValueKind = "number"
	KindBool   ValueKind = "boolean"
	KindList   ValueKind = "list"
)

// AttributeValue is a tagged union of the value shapes a variant attribute may hold.
// It encodes to the natural JSON/BSON scalar (or string array for KindList).
type AttributeValue struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []string
}

// AttributeValues maps attribute keys to their values on a variant.
type AttributeValues map[string]AttributeValue

func StringValue(s string) AttributeValue { return AttributeValue{kind: KindString, str: s} }
func NumberValue(n float64) AttributeValue { return AttributeValue{kind: KindNumber, num: n} }
func BoolValue(b bool) AttributeValue { return AttributeValue{kind: KindBool, b: b} }
func ListValue(l []string) AttributeValue { return AttributeValue{kind: KindList, list: append([]string(nil), l...)} }
func (v AttributeValue) Kind() ValueKind { return v.kind }
func (v AttributeValue) IsZero() bool { return v.kind == "" }
func (v AttributeValue) AsString() string { return v.str }
func (v AttributeValue) AsNumber() float64 { return v.num }
func (v AttributeValue) AsBool() bool { return v.b }
func (v AttributeValue) AsList() []string { return append([]string(nil), v.list...) }

// String renders the value for logs and error messages.
func (v AttributeValue) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		return fmt.Sprintf("%v", v.list)
	default:
		return "<nil>"
	}
}

func (v AttributeValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	default:
		return []byte("null"), nil
	}
}

func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch t := raw.(type) {
	case nil:
		*v = AttributeValue{}
	case string:
		*v = StringValue(t)
	case float64:
		*v = NumberValue(t)
	case bool:
		*v = BoolValue(t)
	case []interface{}:
		list := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("attribute list element %d must be a string", i)
			}
			list = append(list, s)
		}
		*v = ListValue(list)
	default:
		return fmt.Errorf("attribute value must be a string, number, boolean or list of strings")
	}
	return nil
}

func (v AttributeValue) MarshalBSONValue() (bsontype.Type, []byte, error) {
	switch v.kind {
	case KindString:
		return bson.MarshalValue(v.str)
	case KindNumber:
		return bson.MarshalValue(v.num)
	case KindBool:
		return bson.MarshalValue(v.b)
	case KindList:
		list := v.list
		if list == nil {
			list = []string{}
		}
		return bson.MarshalValue(list)
	default:
		return bson.MarshalValue(nil)
	}
}

func (v *AttributeValue) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	switch t {
	case bsontype.String:
		*v = StringValue(raw.StringValue())
	case bsontype.Double:
		*v = NumberValue(raw.Double())
	case bsontype.Int32:
		*v = NumberValue(float64(raw.Int32()))
	case bsontype.Int64:
		*v = NumberValue(float64(raw.Int64()))
	case bsontype.Boolean:
		*v = BoolValue(raw.Boolean())
	case bsontype.Array:
		var list []string
		if err := raw.Unmarshal(&list); err != nil {
			return fmt.Errorf("decode attribute list: %w", err)
		}
		*v = ListValue(list)
	case bsontype.Null:
		*v = AttributeValue{}
	default:
		return fmt.Errorf("unsupported attribute value type %s", t)
	}
	return nil
}
