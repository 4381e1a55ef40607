// Package json provides fast JSON serialization backed by goccy/go-json,
// plus decoding helpers for REST payloads.
package json

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

// Number is the decoded form of a JSON number before normalization
type Number = gojson.Number

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetBuffer gets a pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1024*1024 { // Don't pool very large buffers
		return
	}
	bufferPool.Put(buf)
}

// Marshal is a drop-in replacement for json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a drop-in replacement for json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalIndent is a drop-in replacement for json.MarshalIndent
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

// NewDecoder returns a decoder that keeps numbers as Number
func NewDecoder(r io.Reader) *gojson.Decoder {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// FormatError reports well-formed JSON of the wrong shape. Element is -1
// for the top-level value.
type FormatError struct {
	Element int
	Want    string
	Got     string
}

func (e *FormatError) Error() string {
	if e.Element < 0 {
		return fmt.Sprintf("expected JSON %s, got %s", e.Want, e.Got)
	}
	return fmt.Sprintf("element %d: expected JSON %s, got %s", e.Element, e.Want, e.Got)
}

// DecodeObjectArray decodes a JSON array of objects. An empty body or a
// literal null decodes to an empty slice. Numbers are normalized with
// Normalize. Any other top-level value, or a non-object element, is an error.
func DecodeObjectArray(data []byte) ([]map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []map[string]interface{}{}, nil
	}

	dec := NewDecoder(bytes.NewReader(trimmed))
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	var extra interface{}
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, fmt.Errorf("invalid JSON: unexpected data after top-level value")
	}

	items, ok := raw.([]interface{})
	if !ok {
		return nil, &FormatError{Element: -1, Want: "array", Got: kindOf(raw)}
	}

	out := make([]map[string]interface{}, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, &FormatError{Element: i, Want: "object", Got: kindOf(item)}
		}
		out = append(out, Normalize(obj).(map[string]interface{}))
	}
	return out, nil
}

// Normalize rewrites Number values in place: integral numbers become
// int64, everything else float64. Maps and slices are walked recursively.
func Normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]interface{}:
		for k, val := range t {
			t[k] = Normalize(val)
		}
		return t
	case []interface{}:
		for i, val := range t {
			t[i] = Normalize(val)
		}
		return t
	default:
		return v
	}
}

func kindOf(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// StreamingEncoder writes values one at a time, either as newline
// delimited JSON or as a single JSON array.
type StreamingEncoder struct {
	writer      io.Writer
	encoder     *gojson.Encoder
	firstRecord bool
	isArray     bool
	count       int
}

// NewStreamingEncoder creates a new streaming encoder
func NewStreamingEncoder(w io.Writer, isArray bool) (*StreamingEncoder, error) {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)

	se := &StreamingEncoder{
		writer:      w,
		encoder:     enc,
		firstRecord: true,
		isArray:     isArray,
	}

	if isArray {
		if _, err := w.Write([]byte{'['}); err != nil {
			return nil, err
		}
	}

	return se, nil
}

// Encode encodes a single value
func (se *StreamingEncoder) Encode(v interface{}) error {
	if se.isArray {
		if !se.firstRecord {
			if _, err := se.writer.Write([]byte{','}); err != nil {
				return err
			}
		}
		se.firstRecord = false
	}

	// Encode appends the newline that line-delimited output needs
	if err := se.encoder.Encode(v); err != nil {
		return err
	}
	se.count++
	return nil
}

// Count returns the number of values encoded so far
func (se *StreamingEncoder) Count() int {
	return se.count
}

// Close finalizes the encoding
func (se *StreamingEncoder) Close() error {
	if se.isArray {
		_, err := se.writer.Write([]byte{']'})
		return err
	}
	return nil
}
