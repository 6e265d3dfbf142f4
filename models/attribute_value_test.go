package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/zumerkk/entas-sub001/models"
)

func TestAttributeValues_JSON(t *testing.T) {
	var values models.AttributeValues
	err := json.Unmarshal([]byte(`{"renk":"mavi","agirlik":2.5,"su_gecirmez":false,"etiketler":["yeni"],"bos":null}`), &values)
	require.NoError(t, err)

	assert.Equal(t, models.KindString, values["renk"].Kind())
	assert.Equal(t, "mavi", values["renk"].AsString())
	assert.Equal(t, models.KindNumber, values["agirlik"].Kind())
	assert.Equal(t, 2.5, values["agirlik"].AsNumber())
	assert.Equal(t, models.KindBool, values["su_gecirmez"].Kind())
	assert.False(t, values["su_gecirmez"].AsBool())
	assert.Equal(t, []string{"yeni"}, values["etiketler"].AsList())
	assert.True(t, values["bos"].IsZero())

	out, err := json.Marshal(models.AttributeValues{"etiketler": models.ListValue(nil), "renk": models.StringValue("mavi")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"etiketler":[],"renk":"mavi"}`, string(out))
}

func TestAttributeValue_JSON_Rejects(t *testing.T) {
	var values models.AttributeValues
	assert.Error(t, json.Unmarshal([]byte(`{"olcu":{"en":1}}`), &values))
	assert.Error(t, json.Unmarshal([]byte(`{"etiketler":["a",1]}`), &values))
}

func TestAttributeValue_BSON(t *testing.T) {
	type doc struct {
		Attributes models.AttributeValues `bson:"attributes"`
	}

	raw, err := bson.Marshal(doc{Attributes: models.AttributeValues{
		"renk":     models.StringValue("mavi"),
		"agirlik":  models.NumberValue(2.5),
		"katlanir": models.BoolValue(true),
		"etiket":   models.ListValue([]string{"yeni", "indirim"}),
	}})
	require.NoError(t, err)

	var decoded doc
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, "mavi", decoded.Attributes["renk"].AsString())
	assert.Equal(t, 2.5, decoded.Attributes["agirlik"].AsNumber())
	assert.True(t, decoded.Attributes["katlanir"].AsBool())
	assert.Equal(t, []string{"yeni", "indirim"}, decoded.Attributes["etiket"].AsList())
}

func TestAttributeValue_BSON_IntegersDecodeAsNumbers(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"attributes": bson.M{"adet": int32(3), "stok": int64(40)}})
	require.NoError(t, err)

	var decoded struct {
		Attributes models.AttributeValues `bson:"attributes"`
	}
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, models.KindNumber, decoded.Attributes["adet"].Kind())
	assert.Equal(t, float64(3), decoded.Attributes["adet"].AsNumber())
	assert.Equal(t, float64(40), decoded.Attributes["stok"].AsNumber())
}

func TestAttributeValue_String(t *testing.T) {
	assert.Equal(t, "2.5", models.NumberValue(2.5).String())
	assert.Equal(t, "true", models.BoolValue(true).String())
	assert.Equal(t, "<nil>", models.AttributeValue{}.String())
}
