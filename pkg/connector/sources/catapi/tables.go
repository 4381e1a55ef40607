package catapi

import (
	"github.com/ajitpratap0/nebula-catapi/pkg/connector/core"
	"github.com/ajitpratap0/nebula-catapi/pkg/errors"
)

// Table identifies one of the Cat API resources exposed by the connector
type Table int

const (
	TableImages Table = iota
	TableBreeds
	TableCategories
	TableVotes
	TableFavourites
)

// tableDescriptor carries everything static about a table
type tableDescriptor struct {
	name      string
	endpoint  string
	paginated bool
	// ensureKeys are set to nil on records that lack them
	ensureKeys []string
	schema     func() *core.Schema
	metadata   core.TableMetadata
}

var descriptors = [...]tableDescriptor{
	TableImages: {
		name:       "images",
		endpoint:   "/images/search",
		paginated:  true,
		ensureKeys: []string{"breeds", "categories"},
		schema:     imagesSchema,
		metadata: core.TableMetadata{
			PrimaryKeys:   []string{"id"},
			IngestionType: core.IngestionTypeSnapshot,
		},
	},
	TableBreeds: {
		name:     "breeds",
		endpoint: "/breeds",
		schema:   breedsSchema,
		metadata: core.TableMetadata{
			PrimaryKeys:   []string{"id"},
			IngestionType: core.IngestionTypeSnapshot,
		},
	},
	TableCategories: {
		name:     "categories",
		endpoint: "/categories",
		schema:   categoriesSchema,
		metadata: core.TableMetadata{
			PrimaryKeys:   []string{"id"},
			IngestionType: core.IngestionTypeSnapshot,
		},
	},
	TableVotes: {
		name:      "votes",
		endpoint:  "/votes",
		paginated: true,
		schema:    votesSchema,
		metadata: core.TableMetadata{
			PrimaryKeys:   []string{"id"},
			CursorField:   "created_at",
			IngestionType: core.IngestionTypeAppend,
		},
	},
	TableFavourites: {
		name:       "favourites",
		endpoint:   "/favourites",
		paginated:  true,
		ensureKeys: []string{"image"},
		schema:     favouritesSchema,
		metadata: core.TableMetadata{
			PrimaryKeys:   []string{"id"},
			CursorField:   "created_at",
			IngestionType: core.IngestionTypeCDC,
		},
	},
}

// AllTables lists the tables in their canonical order
var AllTables = []Table{TableImages, TableBreeds, TableCategories, TableVotes, TableFavourites}

// ParseTable resolves a table name. Unknown names yield an
// ErrorTypeUnsupportedTable error.
func ParseTable(name string) (Table, error) {
	for _, t := range AllTables {
		if descriptors[t].name == name {
			return t, nil
		}
	}
	return 0, errors.UnsupportedTable(name)
}

func (t Table) String() string {
	if t < 0 || int(t) >= len(descriptors) {
		return "unknown"
	}
	return descriptors[t].name
}

// Endpoint returns the path of the list endpoint relative to the base URL
func (t Table) Endpoint() string {
	return descriptors[t].endpoint
}

// Paginated reports whether reads on the table are page-based
func (t Table) Paginated() bool {
	return descriptors[t].paginated
}

// Schema returns a fresh copy of the table schema
func (t Table) Schema() *core.Schema {
	return descriptors[t].schema()
}

// Metadata returns a copy of the table metadata
func (t Table) Metadata() *core.TableMetadata {
	md := descriptors[t].metadata
	md.PrimaryKeys = append([]string(nil), md.PrimaryKeys...)
	return &md
}

func stringField(name string) core.Field {
	return core.Field{Name: name, Type: core.FieldTypeString, Nullable: true}
}

func intField(name string) core.Field {
	return core.Field{Name: name, Type: core.FieldTypeInt, Nullable: true}
}

func required(f core.Field) core.Field {
	f.Nullable = false
	return f
}

func structField(name string, fields ...core.Field) core.Field {
	return core.Field{Name: name, Type: core.FieldTypeStruct, Nullable: true, Fields: fields}
}

func arrayField(name string, elem core.Field) core.Field {
	return core.Field{Name: name, Type: core.FieldTypeArray, Nullable: true, Elem: &elem}
}

// breedFields builds the breed shape. The id is nullable when nested.
func breedFields(nested bool) []core.Field {
	id := stringField("id")
	if !nested {
		id = required(id)
	}
	return []core.Field{
		id,
		stringField("name"),
		stringField("temperament"),
		stringField("life_span"),
		stringField("alt_names"),
		stringField("wikipedia_url"),
		stringField("origin"),
		structField("weight",
			stringField("imperial"),
			stringField("metric"),
		),
		stringField("cfa_url"),
		stringField("vetstreet_url"),
		stringField("vcahospitals_url"),
		stringField("country_codes"),
		stringField("description"),
		intField("indoor"),
		intField("lap"),
		intField("adaptability"),
		intField("affection_level"),
		intField("child_friendly"),
		intField("dog_friendly"),
		intField("energy_level"),
		intField("grooming"),
		intField("health_issues"),
		intField("intelligence"),
		intField("shedding_level"),
		intField("social_needs"),
		intField("stranger_friendly"),
		intField("vocalisation"),
		intField("experimental"),
		intField("hairless"),
		intField("natural"),
		intField("rare"),
		intField("rex"),
		intField("suppressed_tail"),
		intField("short_legs"),
		intField("hypoallergenic"),
	}
}

// imageFields builds the image shape. The id is nullable when nested.
func imageFields(nested bool) []core.Field {
	id := stringField("id")
	if !nested {
		id = required(id)
	}
	return []core.Field{
		id,
		stringField("url"),
		intField("width"),
		intField("height"),
		arrayField("breeds", structField("", breedFields(true)...)),
		arrayField("categories", structField("",
			intField("id"),
			stringField("name"),
		)),
		stringField("sub_id"),
	}
}

func imagesSchema() *core.Schema {
	return &core.Schema{Name: "images", Fields: imageFields(false)}
}

func breedsSchema() *core.Schema {
	return &core.Schema{Name: "breeds", Fields: breedFields(false)}
}

func categoriesSchema() *core.Schema {
	return &core.Schema{Name: "categories", Fields: []core.Field{
		required(intField("id")),
		stringField("name"),
	}}
}

func votesSchema() *core.Schema {
	return &core.Schema{Name: "votes", Fields: []core.Field{
		required(intField("id")),
		stringField("image_id"),
		stringField("sub_id"),
		stringField("created_at"),
		intField("value"),
		stringField("country_code"),
	}}
}

func favouritesSchema() *core.Schema {
	return &core.Schema{Name: "favourites", Fields: []core.Field{
		required(intField("id")),
		stringField("user_id"),
		stringField("image_id"),
		stringField("sub_id"),
		stringField("created_at"),
		structField("image", imageFields(true)...),
	}}
}
