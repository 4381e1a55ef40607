// Package connector provides examples of using the connector registry.
package connector_test

import (
	"fmt"
	"log"

	"github.com/ajitpratap0/nebula-catapi/pkg/config"
	"github.com/ajitpratap0/nebula-catapi/pkg/connector/core"
	"github.com/ajitpratap0/nebula-catapi/pkg/connector/registry"

	// Import connectors to register them
	_ "github.com/ajitpratap0/nebula-catapi/pkg/connector/sources/catapi"
)

// Example demonstrates creating a source via the registry and inspecting its
// tables without touching the network.
func Example() {
	cfg := config.NewBaseConfig("cats", "catapi")
	cfg.SetCredential(config.CredentialAPIKey, "example-key")

	source, err := registry.CreateSource("catapi", cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer source.Close()

	for _, table := range source.ListTables() {
		md, err := source.ReadTableMetadata(table)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s: keys=%v ingestion=%s\n", table, md.PrimaryKeys, md.IngestionType)
	}

	// Output:
	// images: keys=[id] ingestion=snapshot
	// breeds: keys=[id] ingestion=snapshot
	// categories: keys=[id] ingestion=snapshot
	// votes: keys=[id] ingestion=append
	// favourites: keys=[id] ingestion=cdc
}

// Example_schema shows how nested fields are described.
func Example_schema() {
	cfg := config.NewBaseConfig("cats", "catapi")
	cfg.SetCredential(config.CredentialAPIKey, "example-key")

	source, err := registry.CreateSource("catapi", cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer source.Close()

	schema, _ := source.GetTableSchema("favourites")
	image, _ := schema.Lookup("image")
	fmt.Println(image.Type, image.Nullable, len(image.Fields))

	breeds := image.Fields[4]
	fmt.Println(breeds.Name, breeds.Type, breeds.Elem.Type == core.FieldTypeStruct)

	// Output:
	// struct true 7
	// breeds array true
}

// Example_catalog lists registered source connectors.
func Example_catalog() {
	fmt.Println(registry.ListSources())

	info, _ := registry.GetConnectorInfo("catapi")
	fmt.Println(info.Tables)

	// Output:
	// [catapi]
	// [images breeds categories votes favourites]
}
