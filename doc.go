// Package catapi is a source connector that exposes The Cat API
// (https://thecatapi.com) as five tables: images, breeds, categories, votes
// and favourites.
//
// Every table has a static schema and metadata (primary keys, cursor field,
// ingestion type) that are available without network access. Reading is
// page based: images, votes and favourites are read one page per call and
// return the offset to resume from, while breeds and categories are read
// whole.
//
// # Quick Start
//
//	import (
//	    "github.com/ajitpratap0/nebula-catapi/pkg/config"
//	    "github.com/ajitpratap0/nebula-catapi/pkg/connector/registry"
//	    _ "github.com/ajitpratap0/nebula-catapi/pkg/connector/sources/catapi"
//	)
//
//	cfg := config.NewBaseConfig("cats", "catapi")
//	cfg.SetCredential(config.CredentialAPIKey, os.Getenv("CATAPI_API_KEY"))
//
//	src, _ := registry.CreateSource("catapi", cfg)
//	defer src.Close()
//
//	var offset core.Offset
//	for {
//	    records, next, err := src.ReadTable(ctx, "images", offset, map[string]string{"limit": "100"})
//	    ...
//	    if len(records) < 100 {
//	        break
//	    }
//	    offset = next
//	}
//
// # Key Packages
//
//	pkg/connector/core     - TableSource interface, schemas, offsets
//	pkg/connector/registry - Source factories and connector catalog
//	pkg/connector/sources/catapi - The Cat API source
//	pkg/clients            - HTTP client with rate limiting and metrics
//	pkg/config             - BaseConfig, viper loader, YAML helpers
//	pkg/errors             - Structured errors with types and details
//	pkg/logger             - zap logging
//	pkg/metrics            - Prometheus metrics
//	pkg/observability      - OpenTelemetry tracing
//	pkg/formats/columnar   - Arrow and Avro schemas and writers
//	pkg/compression        - gzip, snappy, lz4 and zstd streams
//	pkg/sink               - Record export to files
//	pkg/state              - Offset persistence for the sync command
//
// # Command Line
//
//	catapi tables
//	catapi schema breeds --format avro
//	catapi read images --page 0 -o limit=50 --output images.jsonl.zst
//	catapi sync --state catapi-state.yaml --output-dir out/
//
// Configuration is read from an optional file, CATAPI_* environment
// variables (api_key, base_url, ...) and flags. ${VAR_NAME} references in
// files are substituted from the environment.
package catapi
