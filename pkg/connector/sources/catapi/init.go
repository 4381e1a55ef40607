package catapi

import (
	"github.com/ajitpratap0/nebula-catapi/pkg/config"
	"github.com/ajitpratap0/nebula-catapi/pkg/connector/core"
	"github.com/ajitpratap0/nebula-catapi/pkg/connector/registry"
)

func init() {
	// Register Cat API source connector in the global registry
	_ = registry.RegisterSource(ConnectorName, func(cfg *config.BaseConfig) (core.TableSource, error) {
		source, err := NewCatAPISource(cfg)
		if err != nil {
			return nil, err
		}
		return source, nil
	})

	tables := make([]string, len(AllTables))
	for i, t := range AllTables {
		tables[i] = t.String()
	}
	_ = registry.RegisterConnectorInfo(&registry.ConnectorInfo{
		Name:         ConnectorName,
		Type:         string(core.ConnectorTypeSource),
		Description:  "The Cat API images, breeds, categories, votes and favourites",
		Version:      "1.0.0",
		Capabilities: []string{"schema", "metadata", "paginated_read", "health"},
		Tables:       tables,
	})
}
