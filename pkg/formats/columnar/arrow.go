package columnar

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/ajitpratap0/nebula-catapi/pkg/connector/core"
	"github.com/ajitpratap0/nebula-catapi/pkg/errors"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ToArrowSchema converts a table schema to an Arrow schema. Struct fields
// become Arrow structs and array fields become lists.
func ToArrowSchema(schema *core.Schema) (*arrow.Schema, error) {
	if schema == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "schema is nil")
	}

	fields := make([]arrow.Field, 0, len(schema.Fields))
	for _, field := range schema.Fields {
		arrowField, err := toArrowField(field)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation,
				fmt.Sprintf("failed to convert field %s", field.Name))
		}
		fields = append(fields, arrowField)
	}

	md := arrow.NewMetadata([]string{"table"}, []string{schema.Name})
	return arrow.NewSchema(fields, &md), nil
}

func toArrowField(field core.Field) (arrow.Field, error) {
	dt, err := toArrowType(field)
	if err != nil {
		return arrow.Field{}, err
	}
	return arrow.Field{Name: field.Name, Type: dt, Nullable: field.Nullable}, nil
}

func toArrowType(field core.Field) (arrow.DataType, error) {
	switch field.Type {
	case core.FieldTypeString:
		return arrow.BinaryTypes.String, nil
	case core.FieldTypeInt:
		return arrow.PrimitiveTypes.Int64, nil
	case core.FieldTypeStruct:
		children := make([]arrow.Field, 0, len(field.Fields))
		for _, child := range field.Fields {
			f, err := toArrowField(child)
			if err != nil {
				return nil, err
			}
			children = append(children, f)
		}
		return arrow.StructOf(children...), nil
	case core.FieldTypeArray:
		if field.Elem == nil {
			return nil, errors.Newf(errors.ErrorTypeValidation, "array field %s has no element type", field.Name)
		}
		elem, err := toArrowField(*field.Elem)
		if err != nil {
			return nil, err
		}
		elem.Name = "item"
		return arrow.ListOfField(elem), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported field type: %s", field.Type)
	}
}

// arrowWriter implements Writer for the Arrow IPC file format
type arrowWriter struct {
	config         *WriterConfig
	fields         []core.Field
	fileWriter     *ipc.FileWriter
	recordBuilder  *array.RecordBuilder
	recordsWritten int64
	currentBatch   int
	mu             sync.Mutex
}

func newArrowWriter(w io.Writer, config *WriterConfig) (*arrowWriter, error) {
	arrowSchema, err := ToArrowSchema(config.Schema)
	if err != nil {
		return nil, err
	}

	pool := memory.NewGoAllocator()
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(arrowSchema), ipc.WithAllocator(pool))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create Arrow writer")
	}

	return &arrowWriter{
		config:        config,
		fields:        config.Schema.Fields,
		fileWriter:    fw,
		recordBuilder: array.NewRecordBuilder(pool, arrowSchema),
	}, nil
}

func (aw *arrowWriter) WriteRecords(records []core.Record) error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	for _, record := range records {
		for i, field := range aw.fields {
			appendArrowValue(aw.recordBuilder.Field(i), field, record[field.Name])
		}
		aw.currentBatch++
		if aw.currentBatch >= aw.config.BatchSize {
			if err := aw.flushBatch(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (aw *arrowWriter) Flush() error {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.flushBatch()
}

func (aw *arrowWriter) Close() error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	if err := aw.flushBatch(); err != nil {
		return err
	}
	aw.recordBuilder.Release()
	if err := aw.fileWriter.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close Arrow writer")
	}
	return nil
}

func (aw *arrowWriter) Format() Format {
	return Arrow
}

func (aw *arrowWriter) RecordsWritten() int64 {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.recordsWritten
}

func (aw *arrowWriter) flushBatch() error {
	if aw.currentBatch == 0 {
		return nil
	}

	record := aw.recordBuilder.NewRecord()
	defer record.Release()

	if err := aw.fileWriter.Write(record); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write record batch")
	}

	aw.recordsWritten += int64(aw.currentBatch)
	aw.currentBatch = 0
	return nil
}

// appendArrowValue appends value to builder following field. Values of the
// wrong shape are appended as null.
func appendArrowValue(builder array.Builder, field core.Field, value interface{}) {
	if value == nil {
		builder.AppendNull()
		return
	}

	switch b := builder.(type) {
	case *array.StringBuilder:
		if v, ok := value.(string); ok {
			b.Append(v)
		} else {
			b.Append(fmt.Sprintf("%v", value))
		}

	case *array.Int64Builder:
		if v, ok := toInt64(value); ok {
			b.Append(v)
		} else {
			b.AppendNull()
		}

	case *array.StructBuilder:
		m, ok := value.(map[string]interface{})
		if !ok {
			b.AppendNull()
			return
		}
		b.Append(true)
		for i, child := range field.Fields {
			appendArrowValue(b.FieldBuilder(i), child, m[child.Name])
		}

	case *array.ListBuilder:
		items, ok := value.([]interface{})
		if !ok || field.Elem == nil {
			b.AppendNull()
			return
		}
		b.Append(true)
		for _, item := range items {
			appendArrowValue(b.ValueBuilder(), *field.Elem, item)
		}

	default:
		builder.AppendNull()
	}
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
