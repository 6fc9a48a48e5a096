package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	p := &Profile{
		Mode:   "dev",
		Driver: "sqlite",
		Data:   t.TempDir(),
	}
	err := p.Validate()
	require.NoError(t, err)

	assert.NotEmpty(t, p.DSN)
	assert.Equal(t, "compliance_kb", p.Collection)
	assert.Equal(t, 1000, p.ChunkSize)
	assert.Equal(t, 200, p.ChunkOverlap)
	assert.Equal(t, 1536, p.AIDimensions)
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	p := &Profile{Mode: "dev", Driver: "mysql", Data: t.TempDir()}
	err := p.Validate()
	require.Error(t, err)
}

func TestValidateRejectsOverlapNotBelowChunkSize(t *testing.T) {
	p := &Profile{
		Mode:         "dev",
		Driver:       "sqlite",
		Data:         t.TempDir(),
		ChunkSize:    100,
		ChunkOverlap: 100,
	}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strictly less")
}

func TestValidateRequiresDSNForPostgres(t *testing.T) {
	p := &Profile{Mode: "dev", Driver: "postgres", Data: t.TempDir()}
	err := p.Validate()
	require.Error(t, err)
}

func TestIsDev(t *testing.T) {
	assert.True(t, (&Profile{Mode: "dev"}).IsDev())
	assert.False(t, (&Profile{Mode: "prod"}).IsDev())
}
