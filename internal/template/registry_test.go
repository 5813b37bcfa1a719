package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/perpspot/internal/config"
	"github.com/alanyoungcy/perpspot/internal/domain"
)

func TestRegistryFromDefaults(t *testing.T) {
	r := NewRegistry(config.Defaults().Templates)

	tmpl, err := r.Get("SOL Scalping")
	require.NoError(t, err)
	assert.Equal(t, "SOL", tmpl.Token)
	assert.Equal(t, 5000.0, tmpl.SizeMax)
	assert.Equal(t, 2000.0, tmpl.MaxLatencyMS)
}

func TestRegistryUnknownName(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Get("does-not-exist")
	require.ErrorIs(t, err, domain.ErrTemplateNotFound)
}

func TestRegistryListIsSorted(t *testing.T) {
	r := NewRegistry(config.Defaults().Templates)

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "BTC Large Size", list[0].Name)
	assert.Equal(t, "ETH Conservative", list[1].Name)
	assert.Equal(t, "SOL Scalping", list[2].Name)
}

func TestRegistryPutReplaces(t *testing.T) {
	r := NewRegistry(nil)

	r.Put(domain.ExecutionTemplate{Name: "custom", Token: "ETH", SizeMax: 100})
	r.Put(domain.ExecutionTemplate{Name: "custom", Token: "ETH", SizeMax: 250})

	tmpl, err := r.Get("custom")
	require.NoError(t, err)
	assert.Equal(t, 250.0, tmpl.SizeMax)
}

func TestClampSize(t *testing.T) {
	tmpl := domain.ExecutionTemplate{Name: "x", SizeMin: 100, SizeMax: 5000}

	assert.Equal(t, 100.0, tmpl.ClampSize(10))
	assert.Equal(t, 1000.0, tmpl.ClampSize(1000))
	assert.Equal(t, 5000.0, tmpl.ClampSize(99999))
}
