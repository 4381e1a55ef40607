package columnar

import (
	"fmt"
	"io"
	"sync"

	"github.com/ajitpratap0/nebula-catapi/pkg/connector/core"
	"github.com/ajitpratap0/nebula-catapi/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-catapi/pkg/json"
	"github.com/linkedin/goavro/v2"
)

// avroNode is a table field resolved to its Avro shape. Nested records are
// named after their path so every record name in a schema is unique.
type avroNode struct {
	field    core.Field
	typeName string
	children []*avroNode
	elem     *avroNode
}

func buildAvroNode(field core.Field, path string) (*avroNode, error) {
	n := &avroNode{field: field}

	switch field.Type {
	case core.FieldTypeString:
		n.typeName = "string"
	case core.FieldTypeInt:
		n.typeName = "long"
	case core.FieldTypeStruct:
		n.typeName = path
		for _, child := range field.Fields {
			c, err := buildAvroNode(child, path+"_"+child.Name)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, c)
		}
	case core.FieldTypeArray:
		if field.Elem == nil {
			return nil, errors.Newf(errors.ErrorTypeValidation, "array field %s has no element type", field.Name)
		}
		elem, err := buildAvroNode(*field.Elem, path+"_item")
		if err != nil {
			return nil, err
		}
		n.typeName = "array"
		n.elem = elem
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported field type: %s", field.Type)
	}
	return n, nil
}

// schema returns the Avro type declaration of the node
func (n *avroNode) schema() interface{} {
	var t interface{}
	switch n.field.Type {
	case core.FieldTypeStruct:
		fields := make([]map[string]interface{}, 0, len(n.children))
		for _, c := range n.children {
			f := map[string]interface{}{
				"name": c.field.Name,
				"type": c.schema(),
			}
			if c.field.Nullable {
				f["default"] = nil
			}
			fields = append(fields, f)
		}
		t = map[string]interface{}{
			"type":   "record",
			"name":   n.typeName,
			"fields": fields,
		}
	case core.FieldTypeArray:
		t = map[string]interface{}{
			"type":  "array",
			"items": n.elem.schema(),
		}
	default:
		t = n.typeName
	}

	if n.field.Nullable {
		return []interface{}{"null", t}
	}
	return t
}

// native converts a decoded JSON value to goavro's native form. Nullable
// values are wrapped as union members.
func (n *avroNode) native(value interface{}) (interface{}, error) {
	if value == nil {
		if n.field.Nullable {
			return nil, nil
		}
		return nil, errors.Newf(errors.ErrorTypeValidation, "field %s is not nullable", n.field.Name)
	}

	var v interface{}
	switch n.field.Type {
	case core.FieldTypeString:
		s, ok := value.(string)
		if !ok {
			s = fmt.Sprintf("%v", value)
		}
		v = s

	case core.FieldTypeInt:
		i, ok := toInt64(value)
		if !ok {
			return n.mismatch(value)
		}
		v = i

	case core.FieldTypeStruct:
		m, ok := value.(map[string]interface{})
		if !ok {
			return n.mismatch(value)
		}
		out := make(map[string]interface{}, len(n.children))
		for _, c := range n.children {
			cv, err := c.native(m[c.field.Name])
			if err != nil {
				return nil, err
			}
			out[c.field.Name] = cv
		}
		v = out

	case core.FieldTypeArray:
		items, ok := value.([]interface{})
		if !ok {
			return n.mismatch(value)
		}
		out := make([]interface{}, 0, len(items))
		for _, item := range items {
			iv, err := n.elem.native(item)
			if err != nil {
				return nil, err
			}
			out = append(out, iv)
		}
		v = out
	}

	if n.field.Nullable {
		return goavro.Union(n.typeName, v), nil
	}
	return v, nil
}

func (n *avroNode) mismatch(value interface{}) (interface{}, error) {
	if n.field.Nullable {
		return nil, nil
	}
	return nil, errors.Newf(errors.ErrorTypeValidation,
		"field %s: cannot convert %T to %s", n.field.Name, value, n.field.Type)
}

func buildAvroRoot(schema *core.Schema) (*avroNode, error) {
	if schema == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "schema is nil")
	}
	return buildAvroNode(core.Field{
		Name:   schema.Name,
		Type:   core.FieldTypeStruct,
		Fields: schema.Fields,
	}, schema.Name)
}

// ToAvroSchema converts a table schema to an Avro record schema in JSON.
// The result is validated by compiling it.
func ToAvroSchema(schema *core.Schema) (string, error) {
	root, err := buildAvroRoot(schema)
	if err != nil {
		return "", err
	}
	codec, err := compileAvro(root)
	if err != nil {
		return "", err
	}
	return codec.Schema(), nil
}

func compileAvro(root *avroNode) (*goavro.Codec, error) {
	data, err := jsonpool.Marshal(root.schema())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode Avro schema")
	}
	codec, err := goavro.NewCodec(string(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid Avro schema")
	}
	return codec, nil
}

// avroWriter implements Writer for Avro object container files
type avroWriter struct {
	config         *WriterConfig
	root           *avroNode
	ocfWriter      *goavro.OCFWriter
	buffer         []interface{}
	recordsWritten int64
	mu             sync.Mutex
}

func newAvroWriter(w io.Writer, config *WriterConfig) (*avroWriter, error) {
	root, err := buildAvroRoot(config.Schema)
	if err != nil {
		return nil, err
	}
	codec, err := compileAvro(root)
	if err != nil {
		return nil, err
	}

	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: getAvroCompression(config.Compression),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create Avro writer")
	}

	return &avroWriter{
		config:    config,
		root:      root,
		ocfWriter: ocfWriter,
		buffer:    make([]interface{}, 0, config.BatchSize),
	}, nil
}

func (aw *avroWriter) WriteRecords(records []core.Record) error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	for _, record := range records {
		native, err := aw.root.native(record)
		if err != nil {
			return err
		}
		aw.buffer = append(aw.buffer, native)
		if len(aw.buffer) >= aw.config.BatchSize {
			if err := aw.flushBatch(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (aw *avroWriter) Flush() error {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.flushBatch()
}

func (aw *avroWriter) Close() error {
	return aw.Flush()
}

func (aw *avroWriter) Format() Format {
	return Avro
}

func (aw *avroWriter) RecordsWritten() int64 {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.recordsWritten
}

func (aw *avroWriter) flushBatch() error {
	if len(aw.buffer) == 0 {
		return nil
	}
	if err := aw.ocfWriter.Append(aw.buffer); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write Avro block")
	}
	aw.recordsWritten += int64(len(aw.buffer))
	aw.buffer = aw.buffer[:0]
	return nil
}

func getAvroCompression(compression string) string {
	switch compression {
	case "snappy":
		return goavro.CompressionSnappyLabel
	case "deflate":
		return goavro.CompressionDeflateLabel
	case "none", "":
		return goavro.CompressionNullLabel
	default:
		return goavro.CompressionSnappyLabel
	}
}
