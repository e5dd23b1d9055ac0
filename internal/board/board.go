// Package board implements the triangular Spectrangle board: the
// fixed slot grid, the adjacency relation between slots, orientation
// resolution and placement legality.
package board

import (
	"errors"
	"fmt"

	"spectrangle/internal/tile"
)

const (
	// Rows is the number of rows in the triangular grid; row r holds
	// 2r+1 slots, 36 in total.
	Rows = 6
	// NumSlots is the number of cells on the board.
	NumSlots = Rows * Rows
	// StartSlot is the designated centre slot the first tile of a game
	// must land on (row 3, middle cell).
	StartSlot = 12
	// Rotations is the number of distinct clockwise rotations.
	Rotations = 3
)

var (
	ErrNoSuchSlot       = errors.New("slot does not exist")
	ErrBadRotation      = errors.New("rotation must be 0, 1 or 2")
	ErrSlotOccupied     = errors.New("slot is occupied")
	ErrNotAdjacent      = errors.New("slot is not adjacent to any placed tile")
	ErrColourMismatch   = errors.New("edge colour does not match neighbour")
	ErrMustUseStartSlot = errors.New("first tile must be placed on the start slot")
)

// Side identifies one edge of a slot.
type Side int

const (
	SideLeft Side = iota
	SideVertical
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideVertical:
		return "vertical"
	case SideRight:
		return "right"
	}
	return "unknown"
}

// Edges holds the resolved edge colours of a tile at a slot.
type Edges struct {
	Left     tile.Colour
	Vertical tile.Colour
	Right    tile.Colour
}

func (e Edges) side(s Side) tile.Colour {
	switch s {
	case SideLeft:
		return e.Left
	case SideRight:
		return e.Right
	default:
		return e.Vertical
	}
}

// Placed is a tile fixed on the board with its resolved orientation.
type Placed struct {
	Tile     tile.Tile
	Rotation int
	Edges    Edges
}

type neighbour struct {
	slot     int
	mySide   Side
	yourSide Side
}

var (
	rowOfSlot  [NumSlots]int
	colOfSlot  [NumSlots]int
	neighbours [NumSlots][]neighbour
)

func init() {
	for r := 0; r < Rows; r++ {
		for c := 0; c <= 2*r; c++ {
			idx := r*r + c
			rowOfSlot[idx] = r
			colOfSlot[idx] = c
			if c > 0 {
				neighbours[idx] = append(neighbours[idx], neighbour{idx - 1, SideLeft, SideRight})
			}
			if c < 2*r {
				neighbours[idx] = append(neighbours[idx], neighbour{idx + 1, SideRight, SideLeft})
			}
			if c%2 == 0 && r < Rows-1 {
				// Upward triangle: its bottom edge meets the top edge of
				// the downward triangle in the row below.
				below := (r+1)*(r+1) + c + 1
				neighbours[idx] = append(neighbours[idx], neighbour{below, SideVertical, SideVertical})
			}
			if c%2 == 1 {
				above := (r-1)*(r-1) + c - 1
				neighbours[idx] = append(neighbours[idx], neighbour{above, SideVertical, SideVertical})
			}
		}
	}
}

// SlotIndex converts protocol (row, column) coordinates to a slot
// index. ok is false when the coordinates fall outside the board.
func SlotIndex(row, col int) (int, bool) {
	if row < 0 || row >= Rows || col < 0 || col > 2*row {
		return 0, false
	}
	return row*row + col, true
}

// RowCol is the inverse of SlotIndex.
func RowCol(slot int) (row, col int) {
	return rowOfSlot[slot], colOfSlot[slot]
}

// PointsUp reports whether the triangle at slot points upward. Slots
// with an even offset within their row point up.
func PointsUp(slot int) bool {
	return colOfSlot[slot]%2 == 0
}

// Resolve computes the edge colours of t after rotating it clockwise
// rotation times and flipping it if the slot points downward. A flip
// swaps the left and right colours; the vertical colour is unchanged.
func Resolve(t tile.Tile, rotation int, up bool) Edges {
	e := Edges{Left: t.Left, Vertical: t.Vertical, Right: t.Right}
	for i := 0; i < rotation; i++ {
		e = Edges{Left: e.Vertical, Vertical: e.Right, Right: e.Left}
	}
	if !up {
		e.Left, e.Right = e.Right, e.Left
	}
	return e
}

// Board is the mutable placement state for one game.
type Board struct {
	cells  [NumSlots]*Placed
	placed int
}

func New() *Board { return &Board{} }

// At returns the tile placed at slot, or nil.
func (b *Board) At(slot int) *Placed {
	if slot < 0 || slot >= NumSlots {
		return nil
	}
	return b.cells[slot]
}

// Empty reports whether no tile has been placed yet.
func (b *Board) Empty() bool { return b.placed == 0 }

// PlacedCount returns the number of tiles on the board.
func (b *Board) PlacedCount() int { return b.placed }

// CheckPlacement reports whether t may be placed at slot with the
// given rotation. A nil return means the placement is legal; otherwise
// the error wraps one of the reason sentinels.
func (b *Board) CheckPlacement(t tile.Tile, rotation, slot int) error {
	if slot < 0 || slot >= NumSlots {
		return fmt.Errorf("slot %d: %w", slot, ErrNoSuchSlot)
	}
	if rotation < 0 || rotation >= Rotations {
		return fmt.Errorf("rotation %d: %w", rotation, ErrBadRotation)
	}
	if b.cells[slot] != nil {
		return fmt.Errorf("slot %d: %w", slot, ErrSlotOccupied)
	}
	if b.placed == 0 {
		if slot != StartSlot {
			return fmt.Errorf("slot %d: %w", slot, ErrMustUseStartSlot)
		}
		return nil
	}
	edges := Resolve(t, rotation, PointsUp(slot))
	touching := 0
	for _, n := range neighbours[slot] {
		other := b.cells[n.slot]
		if other == nil {
			continue
		}
		touching++
		mine := edges.side(n.mySide)
		theirs := other.Edges.side(n.yourSide)
		if !coloursMatch(mine, theirs) {
			return fmt.Errorf("%s edge %c against slot %d: %w", n.mySide, mine, n.slot, ErrColourMismatch)
		}
	}
	if touching == 0 {
		return fmt.Errorf("slot %d: %w", slot, ErrNotAdjacent)
	}
	return nil
}

// White is a wildcard on either side of a shared edge.
func coloursMatch(a, b tile.Colour) bool {
	return a == tile.White || b == tile.White || a == b
}

// Place puts t on the board. Callers must have validated the placement
// with CheckPlacement first; Place panics on an occupied or invalid
// slot because that is a sequencing bug, not a player error.
func (b *Board) Place(t tile.Tile, rotation, slot int) {
	if slot < 0 || slot >= NumSlots || b.cells[slot] != nil {
		panic(fmt.Sprintf("board: place on invalid slot %d", slot))
	}
	b.cells[slot] = &Placed{
		Tile:     t,
		Rotation: rotation,
		Edges:    Resolve(t, rotation, PointsUp(slot)),
	}
	b.placed++
}

// HasLegalMove reports whether any tile in hand can be legally placed
// anywhere, in any rotation. This backs the skip and tile-replace
// honesty checks.
func (b *Board) HasLegalMove(hand []tile.Tile) bool {
	for _, t := range hand {
		for slot := 0; slot < NumSlots; slot++ {
			for rot := 0; rot < Rotations; rot++ {
				if b.CheckPlacement(t, rot, slot) == nil {
					return true
				}
			}
		}
	}
	return false
}
