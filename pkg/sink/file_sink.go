// Package sink writes records read from a table to files or stdout
package sink

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ajitpratap0/nebula-catapi/pkg/compression"
	"github.com/ajitpratap0/nebula-catapi/pkg/connector/core"
	"github.com/ajitpratap0/nebula-catapi/pkg/errors"
	"github.com/ajitpratap0/nebula-catapi/pkg/formats/columnar"
	jsonpool "github.com/ajitpratap0/nebula-catapi/pkg/json"
	"go.uber.org/zap"
)

// Format is the record encoding of a sink
type Format string

const (
	// JSONLines writes one JSON object per line
	JSONLines Format = "jsonl"
	// JSONArray writes a single JSON array
	JSONArray Format = "json"
	// Arrow writes an Arrow IPC file
	Arrow Format = "arrow"
	// Avro writes an Avro object container file
	Avro Format = "avro"
)

// Stdout is the path that selects standard output
const Stdout = "-"

// Config configures a FileSink. Format and Compression are derived from
// Path when empty, so "votes.jsonl.zst" is zstd compressed JSON lines.
type Config struct {
	Path        string
	Format      Format
	Compression compression.Algorithm
	Level       compression.Level
	// Schema is required for Arrow and Avro
	Schema     *core.Schema
	BufferSize int
}

// FileSink writes records in one of the supported formats
type FileSink struct {
	path       string
	format     Format
	algorithm  compression.Algorithm
	file       *os.File
	compressor io.WriteCloser
	writer     *bufio.Writer
	encoder    *jsonpool.StreamingEncoder
	columnar   columnar.Writer
	records    int64
	logger     *zap.Logger
	mu         sync.Mutex
	closed     bool
}

// Open creates the file at cfg.Path, or writes to stdout for "-" or an
// empty path, and returns a sink for it
func Open(cfg Config, logger *zap.Logger) (*FileSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	path := cfg.Path
	if path == "" {
		path = Stdout
	}

	algorithm, base := compression.FromPath(path)
	if cfg.Compression != "" {
		algorithm = cfg.Compression
	}
	format := cfg.Format
	if format == "" {
		format = formatFromPath(base)
	}

	var (
		out  io.Writer = os.Stdout
		file *os.File
	)
	if path != Stdout {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create directory "+dir)
			}
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create file "+path)
		}
		file = f
		out = f
	}

	s, err := newSink(out, format, algorithm, cfg)
	if err != nil {
		if file != nil {
			_ = file.Close()
			_ = os.Remove(path)
		}
		return nil, err
	}
	s.path = path
	s.file = file
	s.logger = logger.With(zap.String("component", "file_sink"), zap.String("path", path))
	s.logger.Debug("sink opened",
		zap.String("format", string(format)),
		zap.String("compression", string(algorithm)))
	return s, nil
}

// New returns a sink writing to w. Closing the sink does not close w.
func New(w io.Writer, cfg Config) (*FileSink, error) {
	format := cfg.Format
	if format == "" {
		format = JSONLines
	}
	algorithm := cfg.Compression
	if algorithm == "" {
		algorithm = compression.None
	}
	s, err := newSink(w, format, algorithm, cfg)
	if err != nil {
		return nil, err
	}
	s.logger = zap.NewNop()
	return s, nil
}

func newSink(w io.Writer, format Format, algorithm compression.Algorithm, cfg Config) (*FileSink, error) {
	level := cfg.Level
	if level == 0 {
		level = compression.Default
	}
	comp, err := compression.NewWriter(w, algorithm, level)
	if err != nil {
		return nil, err
	}

	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}

	s := &FileSink{
		path:       Stdout,
		format:     format,
		algorithm:  algorithm,
		compressor: comp,
		writer:     bufio.NewWriterSize(comp, bufSize),
	}

	switch format {
	case JSONLines, JSONArray:
		s.encoder, err = jsonpool.NewStreamingEncoder(s.writer, format == JSONArray)
	case Arrow, Avro:
		s.columnar, err = columnar.NewWriter(s.writer, &columnar.WriterConfig{
			Format:      columnar.Format(format),
			Schema:      cfg.Schema,
			Compression: "none",
		})
	default:
		err = errors.Newf(errors.ErrorTypeConfig, "unsupported sink format: %s", format)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func formatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSONArray
	case ".arrow", ".ipc", ".feather":
		return Arrow
	case ".avro":
		return Avro
	default:
		return JSONLines
	}
}

// Write appends records to the sink
func (s *FileSink) Write(records []core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New(errors.ErrorTypeFile, "sink is closed")
	}

	if s.columnar != nil {
		if err := s.columnar.WriteRecords(records); err != nil {
			return err
		}
	} else {
		for _, record := range records {
			if err := s.encoder.Encode(record); err != nil {
				return errors.Wrap(err, errors.ErrorTypeFile, "failed to encode record")
			}
		}
	}
	s.records += int64(len(records))
	return nil
}

// Flush pushes buffered data to the underlying writer. Compressed streams
// are only complete after Close.
func (s *FileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.columnar != nil {
		if err := s.columnar.Flush(); err != nil {
			return err
		}
	}
	return s.writer.Flush()
}

// Records returns the number of records written
func (s *FileSink) Records() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}

// Path returns the output path, "-" for stdout
func (s *FileSink) Path() string {
	return s.path
}

// Close finalizes the encoding, the compression stream and the file
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.columnar != nil {
		keep(s.columnar.Close())
	} else {
		keep(s.encoder.Close())
	}
	keep(s.writer.Flush())
	keep(s.compressor.Close())
	if s.file != nil {
		keep(s.file.Close())
	}

	s.logger.Debug("sink closed", zap.Int64("records", s.records))
	if firstErr != nil {
		return errors.Wrap(firstErr, errors.ErrorTypeFile, "failed to close sink")
	}
	return nil
}
