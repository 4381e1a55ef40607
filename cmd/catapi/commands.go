package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-catapi/pkg/connector/core"
	"github.com/ajitpratap0/nebula-catapi/pkg/connector/sources/catapi"
	"github.com/ajitpratap0/nebula-catapi/pkg/formats/columnar"
	jsonpool "github.com/ajitpratap0/nebula-catapi/pkg/json"
	"github.com/ajitpratap0/nebula-catapi/pkg/metrics"
	"github.com/ajitpratap0/nebula-catapi/pkg/sink"
	"github.com/ajitpratap0/nebula-catapi/pkg/state"
)

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List supported tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.catalog()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TABLE\tPAGINATED\tINGESTION\tCURSOR")
			for _, name := range info.Tables {
				table, err := catapi.ParseTable(name)
				if err != nil {
					return err
				}
				md := table.Metadata()
				cursor := md.CursorField
				if cursor == "" {
					cursor = "-"
				}
				fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", name, table.Paginated(), md.IngestionType, cursor)
			}
			return tw.Flush()
		},
	}
}

func newSchemaCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "schema <table>",
		Short: "Print the schema of a table",
		Long: `Print the static schema of a table as JSON (default), as an Arrow schema
or as an Avro record schema.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := catapi.ParseTable(args[0])
			if err != nil {
				return err
			}
			schema := table.Schema()
			out := cmd.OutOrStdout()

			switch strings.ToLower(format) {
			case "json", "":
				data, err := jsonpool.MarshalIndent(schema, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			case "arrow":
				s, err := columnar.ToArrowSchema(schema)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, s.String())
			case "avro":
				s, err := columnar.ToAvroSchema(schema)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, s)
			default:
				return fmt.Errorf("unsupported schema format %q (json, arrow, avro)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, arrow or avro")
	return cmd
}

func newMetadataCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <table>",
		Short: "Print primary keys, cursor field and ingestion type of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := catapi.ParseTable(args[0])
			if err != nil {
				return err
			}
			data, err := jsonpool.MarshalIndent(table.Metadata(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity and credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.source()
			if err != nil {
				return err
			}
			defer src.Close()

			if err := src.Health(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

// readFlags are the flags shared by read and sync
type readFlags struct {
	options map[string]string
	format  string
}

func (f *readFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringToStringVarP(&f.options, "option", "o", nil,
		"Table option key=value (limit, order, breed_id, category_ids, size, mime_types, has_breeds, sub_id)")
	cmd.Flags().StringVar(&f.format, "format", "", "Output format: jsonl, json, arrow or avro (default from file extension)")
}

func (f *readFlags) sinkConfig(path, table string) sink.Config {
	cfg := sink.Config{Path: path, Format: sink.Format(f.format)}
	if t, err := catapi.ParseTable(table); err == nil {
		cfg.Schema = t.Schema()
	}
	return cfg
}

func newReadCmd(a *app) *cobra.Command {
	var (
		rf     readFlags
		offset string
		page   int
		output string
	)

	cmd := &cobra.Command{
		Use:   "read <table>",
		Short: "Read one page of a table",
		Long: `Read one page (or the whole of an unpaginated table) and write the records
to --output. The offset to resume from is printed to stderr as JSON.

Example:
  catapi read images --page 2 -o limit=50 -o order=DESC --output images.jsonl.zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseOffset(offset)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("page") {
				start = core.PageOffset{Page: page}.Encode()
			}

			src, err := a.source()
			if err != nil {
				return err
			}
			defer src.Close()

			records, next, err := src.ReadTable(cmd.Context(), args[0], start, rf.options)
			if err != nil {
				return err
			}

			out, err := sink.Open(rf.sinkConfig(output, args[0]), a.log)
			if err != nil {
				return err
			}
			if err := out.Write(records); err != nil {
				_ = out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}

			encoded, err := jsonpool.Marshal(next)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "next_offset=%s records=%d\n", encoded, len(records))
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&offset, "offset", "", `Start offset as JSON, e.g. '{"page":3}'`)
	cmd.Flags().IntVar(&page, "page", 0, "Start page (shorthand for --offset)")
	cmd.Flags().StringVar(&output, "output", sink.Stdout, "Output file; .gz, .zst, .lz4 and .sz add compression")
	return cmd
}

func parseOffset(raw string) (core.Offset, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var o core.Offset
	if err := jsonpool.Unmarshal([]byte(raw), &o); err != nil {
		return nil, fmt.Errorf("invalid --offset %q: %w", raw, err)
	}
	return o, nil
}

func newSyncCmd(a *app) *cobra.Command {
	var (
		rf          readFlags
		statePath   string
		outputDir   string
		compress    string
		maxPages    int
		reset       bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "sync [table...]",
		Short: "Read tables page by page, saving offsets between runs",
		Long: `Read every page of the given tables (all tables when none are given),
writing records under --output-dir and saving the offset after each page to
--state. A table is done when a page does not advance the offset; the next
run resumes from the saved offset.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tables := args
			if len(tables) == 0 {
				info, err := a.catalog()
				if err != nil {
					return err
				}
				tables = info.Tables
			}
			for _, t := range tables {
				if _, err := catapi.ParseTable(t); err != nil {
					return err
				}
			}

			store, err := state.Open(statePath, a.cfg.Type)
			if err != nil {
				return err
			}

			if metricsAddr != "" {
				stop := serveMetrics(metricsAddr, a.log)
				defer stop()
			}

			src, err := a.source()
			if err != nil {
				return err
			}
			defer src.Close()

			ext := ".jsonl"
			if rf.format != "" {
				ext = "." + rf.format
			}
			if compress != "" {
				ext += "." + strings.TrimPrefix(compress, ".")
			}

			s := &syncer{
				src:      src,
				store:    store,
				options:  rf.options,
				maxPages: maxPages,
				log:      a.log,
				runID:    time.Now().UTC().Format("20060102T150405Z"),
			}
			for _, table := range tables {
				if reset {
					store.Reset(table)
				}
				path := filepath.Join(outputDir, fmt.Sprintf("%s.%s%s", table, s.runID, ext))
				n, err := s.syncTable(cmd.Context(), table, rf.sinkConfig(path, table))
				if err != nil {
					return fmt.Errorf("sync %s: %w", table, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d records\t%s\n", table, n, path)
			}
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&statePath, "state", "catapi-state.yaml", "State file holding per-table offsets")
	cmd.Flags().StringVar(&outputDir, "output-dir", ".", "Directory for output files")
	cmd.Flags().StringVar(&compress, "compress", "", "Compression extension appended to output files (.gz, .zst, .lz4, .sz)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 1000, "Upper bound on pages read per table and run")
	cmd.Flags().BoolVar(&reset, "reset", false, "Ignore saved offsets and start from the first page")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while syncing")
	return cmd
}

// syncer drives ReadTable until a table stops advancing
type syncer struct {
	src      core.TableSource
	store    *state.Store
	options  map[string]string
	maxPages int
	log      *zap.Logger
	runID    string
}

func (s *syncer) syncTable(ctx context.Context, table string, cfg sink.Config) (int64, error) {
	log := s.log.With(zap.String("table", table), zap.String("run_id", s.runID))
	tracker := metrics.NewThroughputTracker(catapi.ConnectorName, "file")
	timer := metrics.NewTimer("sync_" + table)

	out, err := sink.Open(cfg, log)
	if err != nil {
		return 0, err
	}

	offset := s.store.Offset(table)
	log.Info("sync started", zap.Any("offset", offset))

	for pages := 0; pages < s.maxPages; pages++ {
		records, next, err := s.src.ReadTable(ctx, table, offset, s.options)
		if err != nil {
			_ = out.Close()
			return out.Records(), err
		}
		if err := out.Write(records); err != nil {
			_ = out.Close()
			return out.Records(), err
		}
		tracker.Increment(int64(len(records)))

		done := !advanced(offset, next)
		s.store.Advance(table, next, len(records), done)
		if err := s.store.Save(); err != nil {
			_ = out.Close()
			return out.Records(), err
		}

		log.Debug("page synced",
			zap.Int("records", len(records)),
			zap.Any("next_offset", next),
			zap.Bool("done", done))
		if done {
			break
		}
		offset = next
	}

	if err := out.Close(); err != nil {
		return out.Records(), err
	}
	log.Info("sync finished",
		zap.Int64("records", out.Records()),
		zap.Duration("duration", timer.Stop()),
		zap.Float64("records_per_second", tracker.GetAndReset()))
	return out.Records(), nil
}

// advanced reports whether next points past current. Unpaginated tables
// return a nil offset and never advance.
func advanced(current, next core.Offset) bool {
	if next.IsEmpty() {
		return false
	}
	n, err := core.DecodePageOffset(next)
	if err != nil {
		return false
	}
	c, err := core.DecodePageOffset(current)
	if err != nil {
		return true
	}
	return n.Page > c.Page
}

func serveMetrics(addr string, log *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
