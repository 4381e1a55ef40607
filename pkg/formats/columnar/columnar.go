// Package columnar converts table schemas to Arrow and Avro and writes
// records in those formats
package columnar

import (
	"io"
	"strings"

	"github.com/ajitpratap0/nebula-catapi/pkg/connector/core"
	"github.com/ajitpratap0/nebula-catapi/pkg/errors"
)

// Format represents a columnar storage format
type Format string

const (
	// Arrow is Apache Arrow IPC file format
	Arrow Format = "arrow"
	// Avro is Apache Avro object container format
	Avro Format = "avro"
)

// Writer writes records in a columnar format
type Writer interface {
	// WriteRecords buffers records and flushes full batches
	WriteRecords(records []core.Record) error
	// Flush writes any buffered records
	Flush() error
	// Close flushes and finalizes the file. It does not close the
	// underlying io.Writer.
	Close() error
	// Format returns the columnar format
	Format() Format
	// RecordsWritten returns records flushed so far
	RecordsWritten() int64
}

// WriterConfig configures columnar writers
type WriterConfig struct {
	Format      Format
	Schema      *core.Schema
	Compression string
	BatchSize   int
}

// DefaultWriterConfig returns default writer configuration
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		Format:      Arrow,
		Compression: "snappy",
		BatchSize:   1000,
	}
}

// NewWriter creates a writer for config.Format
func NewWriter(w io.Writer, config *WriterConfig) (Writer, error) {
	if config == nil {
		config = DefaultWriterConfig()
	}
	if config.Schema == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "schema is required for columnar writer")
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultWriterConfig().BatchSize
	}

	switch config.Format {
	case Arrow:
		return newArrowWriter(w, config)
	case Avro:
		return newAvroWriter(w, config)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported columnar format: %s", config.Format)
	}
}

// ParseFormat resolves a format name or file extension
func ParseFormat(name string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".") {
	case "arrow", "ipc", "feather":
		return Arrow, nil
	case "avro":
		return Avro, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "unsupported columnar format: %q", name)
	}
}

// FormatInfo provides information about columnar formats
type FormatInfo struct {
	Format        Format
	Name          string
	Description   string
	FileExtension string
	MIMEType      string
}

// GetFormatInfo returns information about a columnar format
func GetFormatInfo(format Format) *FormatInfo {
	switch format {
	case Arrow:
		return &FormatInfo{
			Format:        Arrow,
			Name:          "Apache Arrow",
			Description:   "In-memory columnar format",
			FileExtension: ".arrow",
			MIMEType:      "application/vnd.apache.arrow.file",
		}
	case Avro:
		return &FormatInfo{
			Format:        Avro,
			Name:          "Apache Avro",
			Description:   "Row-oriented data serialization format",
			FileExtension: ".avro",
			MIMEType:      "application/avro",
		}
	default:
		return nil
	}
}
