// Package connector groups the pieces that make up a table source.
//
// # Architecture Overview
//
//   - core: the TableSource interface plus the Schema, Field, TableMetadata,
//     Record and Offset types every source speaks.
//
//   - registry: a factory registry so sources can be created by name from a
//     config.BaseConfig, and a catalog describing each registered connector.
//
//   - sources: source implementations. Each registers itself from an init
//     function, so importing the package for side effects is enough.
//
// # Core Concepts
//
// Static schemas: GetTableSchema and ReadTableMetadata never touch the
// network, so callers can plan a sync before any credentials are checked.
//
// Offsets: ReadTable takes the offset returned by the previous call and
// returns the next one. Offsets are plain maps so callers can persist them
// as JSON or YAML; sources decode them with helpers such as
// core.DecodePageOffset.
//
// No hidden retries: a failed read returns no records and a typed error from
// the errors package. Retry policy belongs to the caller.
//
// # Example Usage
//
//	cfg := config.NewBaseConfig("cats", "catapi")
//	cfg.SetCredential(config.CredentialAPIKey, apiKey)
//
//	src, err := registry.CreateSource("catapi", cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer src.Close()
//
//	records, next, err := src.ReadTable(ctx, "votes", nil, map[string]string{"limit": "50"})
//
// Each ReadTable call is traced with OpenTelemetry and counted in Prometheus
// when metrics are enabled in the configuration.
package connector
