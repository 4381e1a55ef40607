package registry

import (
	"context"
	"testing"

	"github.com/ajitpratap0/nebula-catapi/pkg/config"
	"github.com/ajitpratap0/nebula-catapi/pkg/connector/core"
	"github.com/ajitpratap0/nebula-catapi/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct{ name string }

func (s *stubSource) ListTables() []string { return []string{"t"} }
func (s *stubSource) GetTableSchema(string) (*core.Schema, error) {
	return &core.Schema{Name: "t"}, nil
}
func (s *stubSource) ReadTableMetadata(string) (*core.TableMetadata, error) {
	return &core.TableMetadata{PrimaryKeys: []string{"id"}, IngestionType: core.IngestionTypeSnapshot}, nil
}
func (s *stubSource) ReadTable(context.Context, string, core.Offset, map[string]string) ([]core.Record, core.Offset, error) {
	return nil, nil, nil
}
func (s *stubSource) Health(context.Context) error { return nil }
func (s *stubSource) Close() error                 { return nil }

func TestRegistry_RegisterAndCreate(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.RegisterSource("stub", func(cfg *config.BaseConfig) (core.TableSource, error) {
		return &stubSource{name: cfg.Name}, nil
	}))
	assert.True(t, r.HasSource("stub"))

	src, err := r.CreateSource("stub", config.NewBaseConfig("my-stub", "stub"))
	require.NoError(t, err)
	assert.Equal(t, "my-stub", src.(*stubSource).name)

	err = r.RegisterSource("stub", nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestRegistry_CreateUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.CreateSource("missing", config.NewBaseConfig("x", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRegistry_FactoryErrorIsWrapped(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSource("broken", func(*config.BaseConfig) (core.TableSource, error) {
		return nil, errors.New(errors.ErrorTypeConfig, "api_key is required")
	}))

	_, err := r.CreateSource("broken", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create source connector broken")
}

func TestRegistry_ListSortedAndClear(t *testing.T) {
	r := NewRegistry()
	factory := func(*config.BaseConfig) (core.TableSource, error) { return &stubSource{}, nil }
	require.NoError(t, r.RegisterSource("zeta", factory))
	require.NoError(t, r.RegisterSource("alpha", factory))

	assert.Equal(t, []string{"alpha", "zeta"}, r.ListSources())

	r.Clear()
	assert.Empty(t, r.ListSources())
}

func TestConnectorCatalog(t *testing.T) {
	c := NewConnectorCatalog()
	require.NoError(t, c.Register(&ConnectorInfo{Name: "b"}))
	require.NoError(t, c.Register(&ConnectorInfo{Name: "a"}))
	require.Error(t, c.Register(&ConnectorInfo{Name: "a"}))

	info, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", info.Name)

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)
}

func TestGlobalRegistry(t *testing.T) {
	factory := func(*config.BaseConfig) (core.TableSource, error) { return &stubSource{name: "global"}, nil }
	require.NoError(t, RegisterSource("global_test", factory))
	assert.True(t, GetRegistry().HasSource("global_test"))
	assert.Contains(t, ListSources(), "global_test")

	require.NoError(t, RegisterConnectorInfo(&ConnectorInfo{Name: "global_test", Tables: []string{"t"}}))
	var names []string
	for _, info := range ListConnectorInfo() {
		names = append(names, info.Name)
	}
	assert.Contains(t, names, "global_test")
}
