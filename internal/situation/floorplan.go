// internal/situation/floorplan.go
package situation

import (
	"encoding/json"
	"fmt"
	"os"
)

// FloorPlan describes the monitored space: zones, sensor placements,
// cameras, and zone adjacency. A missing config file yields an empty plan,
// not an error; the pipeline runs fine without spatial context.
type FloorPlan struct {
	Zones     map[string]Zone   `json:"zones"`
	Sensors   map[string]Sensor `json:"sensors"`
	Cameras   []Camera          `json:"cameras"`
	Adjacency map[string][]string `json:"adjacency"`
}

type Zone struct {
	Name  string `json:"name"`
	Floor int    `json:"floor"`
}

type Sensor struct {
	ZoneID string `json:"zone_id"`
	Type   string `json:"type"`
}

type Camera struct {
	ID    string   `json:"id"`
	Zones []string `json:"zones"`
}

// LoadFloorPlan reads the floor plan JSON at path.
func LoadFloorPlan(path string) (*FloorPlan, error) {
	plan := &FloorPlan{
		Zones:     map[string]Zone{},
		Sensors:   map[string]Sensor{},
		Adjacency: map[string][]string{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return plan, nil
		}
		return nil, fmt.Errorf("reading floor plan: %w", err)
	}

	if err := json.Unmarshal(data, plan); err != nil {
		return nil, fmt.Errorf("parsing floor plan: %w", err)
	}
	return plan, nil
}

// AdjacentZones returns the zones bordering zoneID.
func (p *FloorPlan) AdjacentZones(zoneID string) []string {
	return p.Adjacency[zoneID]
}

// ZoneMap maps human zone names (the area/room fields of legacy payloads)
// to zone ids.
func (p *FloorPlan) ZoneMap() map[string]string {
	zoneMap := make(map[string]string, len(p.Zones))
	for id, zone := range p.Zones {
		if zone.Name != "" {
			zoneMap[zone.Name] = id
		}
	}
	return zoneMap
}
