package core

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/ajitpratap0/nebula-catapi/pkg/errors"
)

// ConnectorType represents the type of connector
type ConnectorType string

const (
	ConnectorTypeSource ConnectorType = "source"
)

// Schema represents the static schema of a table
type Schema struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Field represents a field in the schema. Fields is set for struct fields,
// Elem for array fields.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Nullable bool      `json:"nullable"`
	Fields   []Field   `json:"fields,omitempty"`
	Elem     *Field    `json:"elem,omitempty"`
}

// FieldType represents the data type of a field
type FieldType string

const (
	FieldTypeString FieldType = "string"
	FieldTypeInt    FieldType = "int"
	FieldTypeStruct FieldType = "struct"
	FieldTypeArray  FieldType = "array"
)

// Lookup returns the top-level field with the given name.
func (s *Schema) Lookup(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns top-level field names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// IngestionType describes how a table should be synced downstream
type IngestionType string

const (
	IngestionTypeSnapshot IngestionType = "snapshot"
	IngestionTypeAppend   IngestionType = "append"
	IngestionTypeCDC      IngestionType = "cdc"
)

// TableMetadata describes primary keys and sync behaviour of a table.
// CursorField is empty when the table has no cursor.
type TableMetadata struct {
	PrimaryKeys   []string      `json:"primary_keys" yaml:"primary_keys"`
	CursorField   string        `json:"cursor_field,omitempty" yaml:"cursor_field,omitempty"`
	IngestionType IngestionType `json:"ingestion_type" yaml:"ingestion_type"`
}

// Record is one row as decoded from the upstream payload
type Record = map[string]interface{}

// Offset is the opaque resumption token exchanged with the caller, either
// nil/empty or {"page": n}.
type Offset map[string]interface{}

// IsEmpty returns true for nil or empty offsets
func (o Offset) IsEmpty() bool {
	return len(o) == 0
}

// PageOffsetKey is the offset key holding the page number
const PageOffsetKey = "page"

// PageOffset is the decoded form of a page-number offset
type PageOffset struct {
	Page int
}

// Encode converts the page offset to its wire form
func (p PageOffset) Encode() Offset {
	return Offset{PageOffsetKey: p.Page}
}

// DecodePageOffset reads the page from a wire offset. Missing offsets and
// missing keys decode to page 0 and negative pages clamp to 0. The page may
// be an integer, an integral float or a numeric string.
func DecodePageOffset(o Offset) (PageOffset, error) {
	if o.IsEmpty() {
		return PageOffset{}, nil
	}
	raw, ok := o[PageOffsetKey]
	if !ok || raw == nil {
		return PageOffset{}, nil
	}

	page, err := toInt(raw)
	if err != nil {
		return PageOffset{}, errors.Wrap(err, errors.ErrorTypeValidation, "invalid page offset").
			WithDetail("page", raw)
	}
	if page < 0 {
		page = 0
	}
	return PageOffset{Page: page}, nil
}

func toInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int32:
		return int(t), nil
	case int64:
		return int(t), nil
	case uint64:
		return int(t), nil
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || math.IsNaN(t) {
			return 0, errors.Newf(errors.ErrorTypeValidation, "page %v is not an integer", t)
		}
		return int(t), nil
	case interface{ Int64() (int64, error) }:
		n, err := t.Int64()
		return int(n), err
	case string:
		return strconv.Atoi(strings.TrimSpace(t))
	default:
		return 0, errors.Newf(errors.ErrorTypeValidation, "page has unsupported type %T", v)
	}
}

// TableSource is the interface implemented by table-oriented REST sources.
// Schema and metadata lookups never touch the network.
type TableSource interface {
	// ListTables returns the supported table names in a fixed order
	ListTables() []string

	// GetTableSchema returns the static schema of a table
	GetTableSchema(table string) (*Schema, error)

	// ReadTableMetadata returns keys and ingestion type of a table
	ReadTableMetadata(table string) (*TableMetadata, error)

	// ReadTable reads one page (or the whole unpaginated table) and returns
	// the records plus the offset to resume from.
	ReadTable(ctx context.Context, table string, startOffset Offset, tableOptions map[string]string) ([]Record, Offset, error)

	// Health checks connectivity and credentials
	Health(ctx context.Context) error

	// Close releases resources held by the source
	Close() error
}
