// Package tile defines the fixed Spectrangle tile universe and the
// per-game bag of undrawn tiles.
package tile

import "fmt"

// Colour is one edge colour, using the single-letter protocol codes.
type Colour byte

const (
	Red    Colour = 'R'
	Blue   Colour = 'B'
	Green  Colour = 'G'
	Yellow Colour = 'Y'
	Purple Colour = 'P'
	White  Colour = 'W'
)

// ValidColour reports whether b is one of the six protocol colours.
func ValidColour(b byte) bool {
	switch Colour(b) {
	case Red, Blue, Green, Yellow, Purple, White:
		return true
	}
	return false
}

// Tile is an immutable triangular tile in canonical (upward-pointing)
// orientation: Left and Right are the slanted edges, Vertical is the
// bottom edge. Rotation and flipping happen at placement time, never
// on the Tile itself.
type Tile struct {
	Left     Colour
	Vertical Colour
	Right    Colour
	Value    int
}

// IsJoker reports whether t is the all-white wildcard tile.
func (t Tile) IsJoker() bool {
	return t.Left == White && t.Vertical == White && t.Right == White
}

func (t Tile) String() string {
	return fmt.Sprintf("%c%c%c%d", t.Left, t.Vertical, t.Right, t.Value)
}

// catalog is the full 36-tile set: five monochrome 6-point tiles, ten
// two-colour 5-point tiles, ten two-colour 4-point tiles, ten
// three-colour tiles worth 1-3 points, and the white joker.
var catalog = []Tile{
	{Red, Red, Red, 6},
	{Blue, Blue, Blue, 6},
	{Green, Green, Green, 6},
	{Yellow, Yellow, Yellow, 6},
	{Purple, Purple, Purple, 6},

	{Red, Red, Yellow, 5},
	{Red, Red, Purple, 5},
	{Blue, Blue, Red, 5},
	{Blue, Blue, Purple, 5},
	{Green, Green, Red, 5},
	{Green, Green, Blue, 5},
	{Yellow, Yellow, Green, 5},
	{Yellow, Yellow, Blue, 5},
	{Purple, Purple, Yellow, 5},
	{Purple, Purple, Green, 5},

	{Red, Red, Blue, 4},
	{Red, Red, Green, 4},
	{Blue, Blue, Green, 4},
	{Blue, Blue, Yellow, 4},
	{Green, Green, Yellow, 4},
	{Green, Green, Purple, 4},
	{Yellow, Yellow, Red, 4},
	{Yellow, Yellow, Purple, 4},
	{Purple, Purple, Red, 4},
	{Purple, Purple, Blue, 4},

	{Red, Green, Yellow, 3},
	{Blue, Green, Purple, 3},
	{Red, Green, Purple, 3},
	{Blue, Yellow, Purple, 3},

	{Red, Blue, Green, 2},
	{Red, Yellow, Purple, 2},
	{Blue, Green, Yellow, 2},

	{Red, Blue, Yellow, 1},
	{Red, Blue, Purple, 1},
	{Green, Yellow, Purple, 1},
	{White, White, White, 1},
}

// CatalogSize is the number of tiles in the closed universe.
const CatalogSize = 36

// Catalog returns a fresh copy of the full tile set.
func Catalog() []Tile {
	out := make([]Tile, len(catalog))
	copy(out, catalog)
	return out
}
