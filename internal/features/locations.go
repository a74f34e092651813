package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/rs/zerolog/log"
)

// ErrMissingLocations marks absent team-location reference data. It is a
// startup configuration error for the feature engine, not a runtime one.
var ErrMissingLocations = errors.New("team locations reference data missing")

// Coord is a geographic arena coordinate in decimal degrees.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Locations maps team identifier to its home arena coordinate.
type Locations map[int64]Coord

// LoadLocations reads the static team-to-arena lookup from a JSON file
// of the form {"1610612737": {"lat": 33.7573, "lon": -84.3963}, ...}.
func LoadLocations(path string) (Locations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingLocations, path)
		}
		return nil, fmt.Errorf("failed to read team locations %s: %w", path, err)
	}

	var raw map[string]Coord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse team locations %s: %w", path, err)
	}

	locs := make(Locations, len(raw))
	for id, coord := range raw {
		var teamID int64
		if _, err := fmt.Sscanf(id, "%d", &teamID); err != nil {
			return nil, fmt.Errorf("invalid team id %q in %s", id, path)
		}
		locs[teamID] = coord
	}

	if len(locs) == 0 {
		return nil, fmt.Errorf("%w: %s contains no teams", ErrMissingLocations, path)
	}

	log.Info().Int("teams", len(locs)).Str("path", path).Msg("Team locations loaded")
	return locs, nil
}

const earthRadiusKm = 6371

// Haversine returns the great-circle distance between two coordinates in
// kilometers. Symmetric and non-negative.
func Haversine(a, b Coord) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
