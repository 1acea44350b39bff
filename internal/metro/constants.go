package metro

import (
	"fmt"
	"image/color"

	"github.com/paulmach/orb"
)

// WorldExtent is the area random stations are placed in.
var WorldExtent = orb.Bound{
	Min: orb.Point{-100, -100},
	Max: orb.Point{100, 100},
}

// CarCapacity is how many passengers fit in one car.
const CarCapacity = 6

// LineColors is indexed by LineID.
var LineColors = [10]color.RGBA{
	{R: 102, G: 204, B: 230, A: 255}, // soft cyan
	{R: 230, G: 153, B: 102, A: 255}, // warm peach
	{R: 128, G: 102, B: 204, A: 255}, // lavender
	{R: 179, G: 230, B: 102, A: 255}, // limey green
	{R: 230, G: 102, B: 179, A: 255}, // rose pink
	{R: 102, G: 230, B: 153, A: 255}, // mint green
	{R: 204, G: 128, B: 102, A: 255}, // muted coral
	{R: 102, G: 153, B: 230, A: 255}, // soft blue
	{R: 230, G: 204, B: 102, A: 255}, // mellow yellow
	{R: 153, G: 102, B: 230, A: 255}, // soft violet
}

// LineColor returns the palette colour of a line.
func LineColor(id LineID) color.RGBA {
	return LineColors[int(id)%len(LineColors)]
}

// HexColor formats a palette colour as #rrggbb.
func HexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Resources are the player's line and train budget.
type Resources struct {
	TotalTrains    int `json:"totalTrains"`
	AvailableLines int `json:"availableLines"`
	MaxLines       int `json:"maxLines"`
}

// DefaultResources is the budget at the start of a game.
func DefaultResources() Resources {
	return Resources{
		TotalTrains:    3,
		AvailableLines: 3,
		MaxLines:       9,
	}
}

// DefaultStations is the starting map: one station of each kind.
func DefaultStations() []Station {
	return []Station{
		NewStation(Square, orb.Point{-30, -20}),
		NewStation(Triangle, orb.Point{20, -20}),
		NewStation(Circle, orb.Point{-20, 40}),
	}
}
