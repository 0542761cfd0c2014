// ABOUTME: GeoJSON generation utilities
// ABOUTME: Converts location records to Point and per-device LineString FeatureCollections

package geojson

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/harper/tagtrack/internal/models"
)

// FeatureCollection represents a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature represents a GeoJSON Feature.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry represents a GeoJSON Geometry.
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

// Position is [longitude, latitude] or [longitude, latitude, altitude].
type Position []float64

// LineCoordinates represents [[lng, lat], [lng, lat], ...] for a LineString.
type LineCoordinates []Position

func position(r models.LocationRecord) Position {
	if r.Altitude != nil {
		return Position{r.Longitude, r.Latitude, *r.Altitude}
	}
	return Position{r.Longitude, r.Latitude}
}

// ToPointsFeatureCollection converts records to a FeatureCollection of Points, one per record.
func ToPointsFeatureCollection(records []models.LocationRecord) *FeatureCollection {
	features := make([]Feature, 0, len(records))

	for _, r := range records {
		props := map[string]interface{}{
			"id":          r.ID,
			"device_id":   r.DeviceID,
			"observed_at": r.ObservedAt.Format(time.RFC3339Nano),
		}
		if r.Accuracy != nil {
			props["accuracy"] = *r.Accuracy
		}
		if r.SignalStrength != nil {
			props["signal_strength"] = *r.SignalStrength
		}

		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: position(r),
			},
			Properties: props,
		})
	}

	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

// ToLineFeatureCollection converts records to one LineString per device.
// Each line runs oldest to newest; devices with a single record are skipped
// and features are ordered by device id.
func ToLineFeatureCollection(records []models.LocationRecord) *FeatureCollection {
	byDevice := make(map[string][]models.LocationRecord)
	for _, r := range records {
		byDevice[r.DeviceID] = append(byDevice[r.DeviceID], r)
	}

	devices := make([]string, 0, len(byDevice))
	for id := range byDevice {
		devices = append(devices, id)
	}
	sort.Strings(devices)

	features := make([]Feature, 0, len(byDevice))

	for _, deviceID := range devices {
		track := byDevice[deviceID]
		if len(track) < 2 {
			// Need at least 2 points for a line
			continue
		}

		models.SortNewestFirst(track)
		coords := make(LineCoordinates, len(track))
		for i, r := range track {
			coords[len(track)-1-i] = position(r)
		}

		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "LineString",
				Coordinates: coords,
			},
			Properties: map[string]interface{}{
				"device_id":   deviceID,
				"point_count": len(track),
				"started_at":  track[len(track)-1].ObservedAt.Format(time.RFC3339Nano),
				"ended_at":    track[0].ObservedAt.Format(time.RFC3339Nano),
			},
		})
	}

	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

// ToJSON serializes a FeatureCollection to JSON.
func (fc *FeatureCollection) ToJSON() ([]byte, error) {
	return json.Marshal(fc)
}

// ToJSONIndent serializes a FeatureCollection to indented JSON.
func (fc *FeatureCollection) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(fc, "", "  ")
}
