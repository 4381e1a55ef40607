package columnar

import (
	"bytes"
	"testing"

	"github.com/ajitpratap0/nebula-catapi/pkg/connector/core"
	"github.com/ajitpratap0/nebula-catapi/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-catapi/pkg/json"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imageSchema() *core.Schema {
	str := func(name string) core.Field {
		return core.Field{Name: name, Type: core.FieldTypeString, Nullable: true}
	}
	return &core.Schema{
		Name: "images",
		Fields: []core.Field{
			{Name: "id", Type: core.FieldTypeString},
			str("url"),
			{Name: "width", Type: core.FieldTypeInt, Nullable: true},
			{Name: "breeds", Type: core.FieldTypeArray, Nullable: true, Elem: &core.Field{
				Type: core.FieldTypeStruct, Nullable: true, Fields: []core.Field{
					str("id"),
					{Name: "weight", Type: core.FieldTypeStruct, Nullable: true, Fields: []core.Field{
						str("imperial"), str("metric"),
					}},
				},
			}},
		},
	}
}

func sampleRecords() []core.Record {
	return []core.Record{
		{
			"id":    "a",
			"url":   "https://cdn2.thecatapi.com/images/a.jpg",
			"width": int64(640),
			"breeds": []interface{}{
				map[string]interface{}{
					"id":     "abys",
					"weight": map[string]interface{}{"imperial": "7 - 10", "metric": "3 - 5"},
				},
			},
		},
		{"id": "b", "url": nil, "width": float64(480), "breeds": nil},
		{"id": "c", "width": "wide", "breeds": []interface{}{}},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"arrow": Arrow, ".arrow": Arrow, "AVRO": Avro, " avro ": Avro, "feather": Arrow} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("orc")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestGetFormatInfo(t *testing.T) {
	assert.Equal(t, ".arrow", GetFormatInfo(Arrow).FileExtension)
	assert.Equal(t, ".avro", GetFormatInfo(Avro).FileExtension)
	assert.Nil(t, GetFormatInfo("csv"))
}

func TestToArrowSchema(t *testing.T) {
	schema, err := ToArrowSchema(imageSchema())
	require.NoError(t, err)
	require.Equal(t, 4, schema.NumFields())

	id := schema.Field(0)
	assert.Equal(t, "id", id.Name)
	assert.False(t, id.Nullable)
	assert.Equal(t, arrow.STRING, id.Type.ID())

	assert.Equal(t, arrow.INT64, schema.Field(2).Type.ID())

	breeds := schema.Field(3)
	require.Equal(t, arrow.LIST, breeds.Type.ID())
	elem := breeds.Type.(*arrow.ListType).ElemField()
	assert.Equal(t, "item", elem.Name)
	st, ok := elem.Type.(*arrow.StructType)
	require.True(t, ok)
	assert.Equal(t, 2, st.NumFields())
	assert.Equal(t, arrow.STRUCT, st.Field(1).Type.ID())

	table, ok := schema.Metadata().GetValue("table")
	assert.True(t, ok)
	assert.Equal(t, "images", table)
}

func TestToArrowSchema_Invalid(t *testing.T) {
	_, err := ToArrowSchema(nil)
	require.Error(t, err)

	_, err = ToArrowSchema(&core.Schema{Name: "x", Fields: []core.Field{{Name: "tags", Type: core.FieldTypeArray}}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = ToArrowSchema(&core.Schema{Name: "x", Fields: []core.Field{{Name: "ok", Type: "bool"}}})
	require.Error(t, err)
}

func TestArrowWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, &WriterConfig{Format: Arrow, Schema: imageSchema(), BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, Arrow, w.Format())

	require.NoError(t, w.WriteRecords(sampleRecords()))
	assert.Equal(t, int64(2), w.RecordsWritten(), "first batch flushed")
	require.NoError(t, w.Close())
	assert.Equal(t, int64(3), w.RecordsWritten())

	reader, err := ipc.NewFileReader(bytes.NewReader(buf.Bytes()), ipc.WithAllocator(memory.NewGoAllocator()))
	require.NoError(t, err)
	defer reader.Close()

	require.Equal(t, 2, reader.NumRecords())
	first, err := reader.Record(0)
	require.NoError(t, err)
	require.Equal(t, int64(2), first.NumRows())

	ids := first.Column(0).(*array.String)
	assert.Equal(t, "a", ids.Value(0))
	assert.Equal(t, "b", ids.Value(1))

	urls := first.Column(1).(*array.String)
	assert.True(t, urls.IsNull(1))

	widths := first.Column(2).(*array.Int64)
	assert.Equal(t, int64(640), widths.Value(0))
	assert.Equal(t, int64(480), widths.Value(1))

	breeds := first.Column(3).(*array.List)
	assert.False(t, breeds.IsNull(0))
	assert.True(t, breeds.IsNull(1))
	start, end := breeds.ValueOffsets(0)
	assert.Equal(t, int64(1), end-start)

	second, err := reader.Record(1)
	require.NoError(t, err)
	require.Equal(t, int64(1), second.NumRows())
	assert.True(t, second.Column(2).IsNull(0), "non-numeric width becomes null")
}

func TestNewWriter_Errors(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, &WriterConfig{Format: Arrow})
	require.Error(t, err)

	_, err = NewWriter(&bytes.Buffer{}, &WriterConfig{Format: "orc", Schema: imageSchema()})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestToAvroSchema(t *testing.T) {
	raw, err := ToAvroSchema(imageSchema())
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, jsonpool.Unmarshal([]byte(raw), &parsed))
	assert.Equal(t, "record", parsed["type"])
	assert.Equal(t, "images", parsed["name"])

	fields := parsed["fields"].([]interface{})
	require.Len(t, fields, 4)
	assert.Equal(t, "string", fields[0].(map[string]interface{})["type"])

	_, err = goavro.NewCodec(raw)
	assert.NoError(t, err)
	assert.Contains(t, raw, "images_breeds_item_weight")
}

func TestAvroWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, &WriterConfig{Format: Avro, Schema: imageSchema(), Compression: "deflate", BatchSize: 10})
	require.NoError(t, err)

	require.NoError(t, w.WriteRecords(sampleRecords()))
	assert.Equal(t, int64(0), w.RecordsWritten())
	require.NoError(t, w.Close())
	assert.Equal(t, int64(3), w.RecordsWritten())

	reader, err := goavro.NewOCFReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	var rows []map[string]interface{}
	for reader.Scan() {
		datum, err := reader.Read()
		require.NoError(t, err)
		rows = append(rows, datum.(map[string]interface{}))
	}
	require.NoError(t, reader.Err())
	require.Len(t, rows, 3)

	assert.Equal(t, "a", rows[0]["id"])
	assert.Equal(t, map[string]interface{}{"long": int64(640)}, rows[0]["width"])
	assert.Nil(t, rows[1]["url"])
	assert.Nil(t, rows[2]["width"], "non-numeric width becomes null")

	breeds := rows[0]["breeds"].(map[string]interface{})["array"].([]interface{})
	require.Len(t, breeds, 1)
	breed := breeds[0].(map[string]interface{})["images_breeds_item"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"string": "abys"}, breed["id"])
}

func TestAvroWriter_RequiredFieldMissing(t *testing.T) {
	w, err := NewWriter(&bytes.Buffer{}, &WriterConfig{Format: Avro, Schema: imageSchema()})
	require.NoError(t, err)

	err = w.WriteRecords([]core.Record{{"url": "x"}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "field id is not nullable")
}
