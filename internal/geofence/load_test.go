package geofence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleZones = `
zones:
  - id: hq
    name: Headquarters
    description: Restricted campus
    severity: red
    polygon:
      - [10.0, 20.0]
      - [10.0, 21.0]
      - [11.0, 21.0]
      - [11.0, 20.0]
  - id: yard
    severity: orange
    polygon:
      - [10.2, 20.2]
      - [10.2, 20.4]
      - [10.4, 20.4]
      - [10.4, 20.2]
      - [10.2, 20.2]
`

func TestLoadYAML(t *testing.T) {
	c, err := LoadYAML([]byte(sampleZones))
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	hq, ok := c.Zone("hq")
	require.True(t, ok)
	assert.Equal(t, "Headquarters", hq.Name)
	assert.Equal(t, SeverityHigh, hq.Severity)
	assert.Len(t, hq.Polygon, 5, "ring closed on load")

	assert.Equal(t, []string{"hq", "yard"}, zoneIDs(c.ZonesContaining(10.3, 20.3)))
}

func TestLoadYAML_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown field": "zones:\n  - id: a\n    color: red\n",
		"bad severity":  "zones:\n  - id: a\n    severity: low\n    polygon: [[0, 0], [0, 1], [1, 1]]\n",
		"bad vertex":    "zones:\n  - id: a\n    severity: high\n    polygon: [[0, 0, 0], [0, 1], [1, 1]]\n",
		"not yaml":      "zones: [",
		"no zones":      "zones: []\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	c, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, 10, c.Len())

	path := filepath.Join(t.TempDir(), "zones.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleZones), 0o600))
	c, err = LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
