/**
 * @description
 * Domain models for the forest map: individual tree markers and the
 * snapshot the synchronizer keeps in step with the backend registry.
 */
package domain

// Map canvas dimensions and the marker footprint kept clear of the edges.
const (
	MapWidth        = 1000
	MapHeight       = 600
	MarkerFootprint = 60
	MarkerHeight    = 80
)

// TreeSpecies is the visual type of a planted tree.
type TreeSpecies string

const (
	SpeciesPine    TreeSpecies = "pine"
	SpeciesOak     TreeSpecies = "oak"
	SpeciesBirch   TreeSpecies = "birch"
	SpeciesSequoia TreeSpecies = "sequoia"
	SpeciesMaple   TreeSpecies = "maple"
)

// AllSpecies lists the five valid species in cycle order.
var AllSpecies = []TreeSpecies{SpeciesPine, SpeciesOak, SpeciesBirch, SpeciesSequoia, SpeciesMaple}

// ValidSpecies reports whether s is one of the five rendered species.
func ValidSpecies(s TreeSpecies) bool {
	for _, v := range AllSpecies {
		if v == s {
			return true
		}
	}
	return false
}

// TreeMarker is one tree on the shared map. Ids and positions are assigned
// by the backend; the client only reads and renders them.
type TreeMarker struct {
	ID      string      `json:"id"`
	X       float64     `json:"x"`
	Y       float64     `json:"y"`
	Species TreeSpecies `json:"type"`
	Donor   string      `json:"donor"`
	Message string      `json:"message"`
	Size    float64     `json:"size,omitempty"`
}

// ForestSnapshot is the full set of markers rendered at a point in time.
// Placeholder marks locally generated fallback data that must never be
// mistaken for server truth.
type ForestSnapshot struct {
	Markers     []TreeMarker `json:"markers"`
	Placeholder bool         `json:"placeholder"`
}
