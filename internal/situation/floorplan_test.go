package situation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const floorPlanJSON = `{
  "zones": {
    "lobby":   {"name": "Lobby", "floor": 1},
    "kitchen": {"name": "Kitchen", "floor": 1},
    "conf_a":  {"name": "Conference A", "floor": 2}
  },
  "sensors": {
    "motion_01": {"zone_id": "lobby", "type": "motion"},
    "temp_01":   {"zone_id": "conf_a", "type": "temperature"}
  },
  "cameras": [
    {"id": "cam_01", "zones": ["lobby", "kitchen"]}
  ],
  "adjacency": {
    "lobby":   ["kitchen"],
    "kitchen": ["lobby"]
  }
}`

func writeFloorPlan(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "floorplan.json")
	require.NoError(t, os.WriteFile(path, []byte(floorPlanJSON), 0o644))
	return path
}

func TestLoadFloorPlan(t *testing.T) {
	plan, err := LoadFloorPlan(writeFloorPlan(t))
	require.NoError(t, err)

	assert.Len(t, plan.Zones, 3)
	assert.Equal(t, "lobby", plan.Sensors["motion_01"].ZoneID)
	assert.Equal(t, []string{"lobby", "kitchen"}, plan.Cameras[0].Zones)
	assert.Equal(t, 2, plan.Zones["conf_a"].Floor)
}

func TestLoadFloorPlanMissingFile(t *testing.T) {
	plan, err := LoadFloorPlan(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Empty(t, plan.Zones)
	assert.Empty(t, plan.Sensors)
}

func TestLoadFloorPlanBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "floorplan.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := LoadFloorPlan(path)
	require.Error(t, err)
}

func TestAdjacentZones(t *testing.T) {
	plan, err := LoadFloorPlan(writeFloorPlan(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"kitchen"}, plan.AdjacentZones("lobby"))
	assert.Empty(t, plan.AdjacentZones("conf_a"))
}

func TestZoneMap(t *testing.T) {
	plan, err := LoadFloorPlan(writeFloorPlan(t))
	require.NoError(t, err)

	zoneMap := plan.ZoneMap()
	assert.Equal(t, "lobby", zoneMap["Lobby"])
	assert.Equal(t, "conf_a", zoneMap["Conference A"])
}
