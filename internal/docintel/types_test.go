package docintel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldUnmarshal_Variants(t *testing.T) {
	raw := `{
	  "CustomerName": {"type": "string", "valueString": "ABC御中", "content": "ABC 御中", "confidence": 0.7},
	  "InvoiceDate": {"type": "date", "valueDate": "2024-01-15", "content": "2024年1月15日"},
	  "Count": {"type": "integer", "valueInteger": 3, "content": "3"},
	  "SubTotal": {"type": "currency", "valueCurrency": {"amount": 10000}, "content": "10,000"},
	  "Items": {"type": "array", "valueArray": [
	    {"type": "object", "valueObject": {
	      "Description": {"type": "string", "valueString": "名刺", "content": "名刺"},
	      "Amount": {"type": "currency", "valueCurrency": {"amount": 5000}, "content": "5,000"}
	    }}
	  ]}
	}`
	var fields map[string]*Field
	require.NoError(t, json.Unmarshal([]byte(raw), &fields))

	assert.Equal(t, "ABC御中", fields["CustomerName"].Value)
	assert.Equal(t, "ABC 御中", fields["CustomerName"].Text())
	assert.Equal(t, "2024-01-15", fields["InvoiceDate"].Value)
	assert.Equal(t, 3.0, fields["Count"].Number())
	assert.Equal(t, 10000.0, fields["SubTotal"].Number())

	items := fields["Items"].Array()
	require.Len(t, items, 1)
	obj := items[0].Object()
	assert.Equal(t, "名刺", obj["Description"].Text())
	assert.Equal(t, 5000.0, obj["Amount"].Number())
}

func TestFieldPlain(t *testing.T) {
	var f Field
	require.NoError(t, json.Unmarshal([]byte(`{"type":"array","valueArray":[{"type":"object","valueObject":{"Amount":{"type":"currency","valueCurrency":{"amount":1200},"content":"1,200","confidence":0.5}}}]}`), &f))

	plain := f.Plain()
	arr, ok := plain["value"].([]any)
	require.True(t, ok)
	require.Len(t, arr, 1)
	obj := arr[0].(map[string]any)["value"].(map[string]any)
	amount := obj["Amount"].(map[string]any)
	assert.Equal(t, 1200.0, amount["value"])
	assert.Equal(t, "1,200", amount["content"])
	assert.Equal(t, 0.5, amount["confidence"])
}

func TestFieldNilSafe(t *testing.T) {
	var f *Field
	assert.Equal(t, "", f.Text())
	assert.Equal(t, 0.0, f.Number())
	assert.Nil(t, f.Object())
	assert.Nil(t, f.Array())
	assert.Nil(t, f.Plain())
	assert.Nil(t, f.ContentOrValue())
}

func TestContentOrValue(t *testing.T) {
	assert.Equal(t, "¥1,000", (&Field{Content: "¥1,000", Value: 1000.0}).ContentOrValue())
	assert.Equal(t, 1000.0, (&Field{Value: 1000.0}).ContentOrValue())
}

func TestValidateEnvelope(t *testing.T) {
	assert.NoError(t, ValidateEnvelope([]byte(`{"status":"running"}`)))
	assert.NoError(t, ValidateEnvelope([]byte(succeededBody)))
	assert.Error(t, ValidateEnvelope([]byte(`{"status":"succeeded"}`)))
	assert.Error(t, ValidateEnvelope([]byte(`{"status":"paused"}`)))
	assert.Error(t, ValidateEnvelope([]byte(`{}`)))
	assert.Error(t, ValidateEnvelope([]byte(`not json`)))
}
