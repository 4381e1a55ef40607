// Package catapi implements a table source over The Cat API
package catapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ajitpratap0/nebula-catapi/pkg/clients"
	"github.com/ajitpratap0/nebula-catapi/pkg/config"
	"github.com/ajitpratap0/nebula-catapi/pkg/connector/core"
	"github.com/ajitpratap0/nebula-catapi/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-catapi/pkg/json"
	"github.com/ajitpratap0/nebula-catapi/pkg/logger"
	"github.com/ajitpratap0/nebula-catapi/pkg/metrics"
	"github.com/ajitpratap0/nebula-catapi/pkg/observability"
	"go.uber.org/zap"
)

const (
	// ConnectorName is the registry name of the source
	ConnectorName = "catapi"
	// DefaultBaseURL is used when no base_url is configured
	DefaultBaseURL = "https://api.thecatapi.com/v1"

	defaultRequestTimeout = 30 * time.Second
)

// CatAPISource reads The Cat API resources as tables. It holds no state
// besides its HTTP client, so concurrent reads are safe.
type CatAPISource struct {
	name          string
	baseURL       string
	client        *clients.HTTPClient
	logger        *zap.Logger
	tracer        *observability.ConnectorTracer
	exportMetrics bool
}

var _ core.TableSource = (*CatAPISource)(nil)

// Option customizes a CatAPISource
type Option func(*CatAPISource)

// WithLogger sets the logger; the global logger is used otherwise
func WithLogger(l *zap.Logger) Option {
	return func(s *CatAPISource) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewCatAPISource creates a source from a BaseConfig. api_key must be set
// in Security.Credentials; base_url is optional.
func NewCatAPISource(cfg *config.BaseConfig, opts ...Option) (*CatAPISource, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "configuration is required")
	}

	apiKey := strings.TrimSpace(cfg.Credential(config.CredentialAPIKey))
	if apiKey == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "catapi connector requires 'api_key'")
	}

	baseURL := cfg.Credential(config.CredentialBaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid base_url")
	}

	name := cfg.Name
	if name == "" {
		name = ConnectorName
	}

	s := &CatAPISource{
		name:          name,
		baseURL:       baseURL,
		logger:        logger.Get(),
		tracer:        observability.NewConnectorTracer(string(core.ConnectorTypeSource), ConnectorName),
		exportMetrics: cfg.Observability.EnableMetrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(
		zap.String("component", "catapi_source"),
		zap.String("connector", name),
	)

	httpConfig := clients.HTTPConfigFromBase(cfg)
	if cfg.Timeouts.Request <= 0 {
		httpConfig.RequestTimeout = defaultRequestTimeout
	}
	httpConfig.DefaultHeaders = map[string]string{
		"x-api-key":    apiKey,
		"Content-Type": "application/json",
	}
	s.client = clients.NewHTTPClient(httpConfig, s.logger)

	s.logger.Debug("catapi source created",
		zap.String("base_url", baseURL),
		zap.Duration("request_timeout", httpConfig.RequestTimeout),
		zap.Bool("rate_limited", cfg.Reliability.IsRateLimited()))

	return s, nil
}

// NewFromOptions creates a source from a flat option map with the keys
// api_key and base_url.
func NewFromOptions(options map[string]string, opts ...Option) (*CatAPISource, error) {
	cfg := config.NewBaseConfig(ConnectorName, ConnectorName)
	for k, v := range options {
		cfg.SetCredential(k, v)
	}
	return NewCatAPISource(cfg, opts...)
}

// BaseURL returns the normalized base URL
func (s *CatAPISource) BaseURL() string {
	return s.baseURL
}

// ListTables returns the supported tables in canonical order
func (s *CatAPISource) ListTables() []string {
	names := make([]string, len(AllTables))
	for i, t := range AllTables {
		names[i] = t.String()
	}
	return names
}

// GetTableSchema returns the static schema of a table
func (s *CatAPISource) GetTableSchema(tableName string) (*core.Schema, error) {
	table, err := ParseTable(tableName)
	if err != nil {
		return nil, err
	}
	return table.Schema(), nil
}

// ReadTableMetadata returns keys and ingestion type of a table
func (s *CatAPISource) ReadTableMetadata(tableName string) (*core.TableMetadata, error) {
	table, err := ParseTable(tableName)
	if err != nil {
		return nil, err
	}
	return table.Metadata(), nil
}

// ReadTable reads breeds and categories whole (the returned offset is nil)
// and images, votes and favourites one page at a time. A failed read
// returns no records.
func (s *CatAPISource) ReadTable(ctx context.Context, tableName string, startOffset core.Offset, tableOptions map[string]string) ([]core.Record, core.Offset, error) {
	table, err := ParseTable(tableName)
	if err != nil {
		return nil, nil, err
	}

	ctx, span := s.tracer.StartSpan(ctx, "read_table")
	defer span.End()
	span.SetAttribute("table", table.String())

	var (
		records []core.Record
		next    core.Offset
	)
	if table.Paginated() {
		records, next, err = s.readPage(ctx, table, startOffset, tableOptions)
	} else {
		records, err = s.fetch(ctx, table, nil)
	}

	span.RecordError(err)
	if err != nil {
		if s.exportMetrics {
			metrics.ReadErrors.WithLabelValues(ConnectorName, table.String(), string(errors.GetType(err))).Inc()
		}
		return nil, nil, err
	}

	span.SetAttribute("records", len(records))
	if s.exportMetrics {
		metrics.PagesRead.WithLabelValues(ConnectorName, table.String()).Inc()
		metrics.RecordsRead.WithLabelValues(ConnectorName, table.String()).Add(float64(len(records)))
	}

	return records, next, nil
}

func (s *CatAPISource) readPage(ctx context.Context, table Table, start core.Offset, options map[string]string) ([]core.Record, core.Offset, error) {
	limit := resolveLimit(options)

	offset, err := core.DecodePageOffset(start)
	if err != nil {
		s.logger.Warn("malformed page offset, starting from page 0",
			zap.String("table", table.String()),
			zap.Any("offset", start),
			zap.Error(err))
		offset = core.PageOffset{}
	}

	records, err := s.fetch(ctx, table, buildQuery(table, limit, offset.Page, options))
	if err != nil {
		return nil, nil, err
	}

	next := nextOffset(start, offset.Page, limit, len(records))
	s.logger.Debug("page read",
		zap.String("table", table.String()),
		zap.Int("page", offset.Page),
		zap.Int("limit", limit),
		zap.Int("records", len(records)),
		zap.Any("next_offset", next))

	return records, next, nil
}

// fetch performs one GET on the table endpoint and decodes the array body
func (s *CatAPISource) fetch(ctx context.Context, table Table, query url.Values) ([]core.Record, error) {
	endpoint := s.baseURL + table.Endpoint()
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	resp, err := s.client.GetBody(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAPIError(table.String(), resp.StatusCode, string(resp.Body))
	}

	items, err := jsonpool.DecodeObjectArray(resp.Body)
	if err != nil {
		got := "invalid JSON"
		var fe *jsonpool.FormatError
		if stderrors.As(err, &fe) {
			got = fe.Got
		}
		return nil, errors.Wrap(err, errors.ErrorTypeResponseFormat,
			fmt.Sprintf("unexpected response format for %s", table)).
			WithDetail("table", table.String()).
			WithDetail("got", got)
	}

	ensureKeys := descriptors[table].ensureKeys
	records := make([]core.Record, len(items))
	for i, item := range items {
		for _, key := range ensureKeys {
			if _, ok := item[key]; !ok {
				item[key] = nil
			}
		}
		records[i] = item
	}
	return records, nil
}

// Health probes the breeds endpoint with a one-record page
func (s *CatAPISource) Health(ctx context.Context) error {
	ctx, span := s.tracer.StartSpan(ctx, "health")
	defer span.End()

	q := url.Values{}
	q.Set("limit", "1")
	q.Set("page", "0")
	resp, err := s.client.GetBody(ctx, s.baseURL+TableBreeds.Endpoint()+"?"+q.Encode(), nil)
	if err == nil && resp.StatusCode != http.StatusOK {
		err = errors.NewAPIError("health", resp.StatusCode, string(resp.Body))
	}
	span.RecordError(err)
	return err
}

// Stats returns HTTP client statistics
func (s *CatAPISource) Stats() clients.HTTPStats {
	return s.client.GetStats()
}

// Close releases idle connections
func (s *CatAPISource) Close() error {
	return s.client.Close()
}
