package board

import (
	"errors"
	"testing"

	"spectrangle/internal/tile"
)

var (
	rrr   = tile.Tile{Left: tile.Red, Vertical: tile.Red, Right: tile.Red, Value: 6}
	ggg   = tile.Tile{Left: tile.Green, Vertical: tile.Green, Right: tile.Green, Value: 6}
	rry   = tile.Tile{Left: tile.Red, Vertical: tile.Red, Right: tile.Yellow, Value: 5}
	rgy   = tile.Tile{Left: tile.Red, Vertical: tile.Green, Right: tile.Yellow, Value: 3}
	joker = tile.Tile{Left: tile.White, Vertical: tile.White, Right: tile.White, Value: 1}
)

func TestSlotIndexRoundTrip(t *testing.T) {
	count := 0
	for row := 0; row < Rows; row++ {
		for col := 0; col <= 2*row; col++ {
			idx, ok := SlotIndex(row, col)
			if !ok {
				t.Fatalf("SlotIndex(%d,%d) rejected", row, col)
			}
			r, c := RowCol(idx)
			if r != row || c != col {
				t.Fatalf("RowCol(%d) = (%d,%d), want (%d,%d)", idx, r, c, row, col)
			}
			count++
		}
	}
	if count != NumSlots {
		t.Fatalf("board has %d slots, want %d", count, NumSlots)
	}
	for _, bad := range [][2]int{{-1, 0}, {0, 1}, {2, 5}, {6, 0}} {
		if _, ok := SlotIndex(bad[0], bad[1]); ok {
			t.Errorf("SlotIndex(%d,%d) accepted", bad[0], bad[1])
		}
	}
}

func TestPointsUpFollowsRowOffsetParity(t *testing.T) {
	if !PointsUp(0) {
		t.Error("slot 0 should point up")
	}
	if PointsUp(StartSlot) {
		t.Error("start slot (row 3, col 3) should point down")
	}
	if !PointsUp(13) {
		t.Error("slot 13 (row 3, col 4) should point up")
	}
}

func TestResolveRotationAndFlip(t *testing.T) {
	cases := []struct {
		name     string
		rotation int
		up       bool
		want     Edges
	}{
		{"identity", 0, true, Edges{tile.Red, tile.Green, tile.Yellow}},
		{"one clockwise", 1, true, Edges{tile.Green, tile.Yellow, tile.Red}},
		{"two clockwise", 2, true, Edges{tile.Yellow, tile.Red, tile.Green}},
		{"flip swaps left and right", 0, false, Edges{tile.Yellow, tile.Green, tile.Red}},
		{"rotate then flip", 1, false, Edges{tile.Red, tile.Yellow, tile.Green}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(rgy, tc.rotation, tc.up); got != tc.want {
				t.Fatalf("Resolve(%s, %d, up=%v) = %+v, want %+v", rgy, tc.rotation, tc.up, got, tc.want)
			}
		})
	}
}

func TestFirstMoveMustUseStartSlot(t *testing.T) {
	b := New()
	err := b.CheckPlacement(rrr, 0, 0)
	if !errors.Is(err, ErrMustUseStartSlot) {
		t.Fatalf("want ErrMustUseStartSlot, got %v", err)
	}
	if err := b.CheckPlacement(rrr, 0, StartSlot); err != nil {
		t.Fatalf("start slot should accept any tile, got %v", err)
	}
}

func TestCheckPlacementReasons(t *testing.T) {
	b := New()
	b.Place(rrr, 0, StartSlot)

	cases := []struct {
		name     string
		tile     tile.Tile
		rotation int
		slot     int
		want     error
	}{
		{"occupied", ggg, 0, StartSlot, ErrSlotOccupied},
		{"not adjacent", ggg, 0, 0, ErrNotAdjacent},
		{"colour mismatch", ggg, 0, 11, ErrColourMismatch},
		{"bad rotation", ggg, 3, 11, ErrBadRotation},
		{"no such slot", ggg, 0, NumSlots, ErrNoSuchSlot},
		{"joker matches anything", joker, 0, 11, nil},
		{"matching edge after rotation", rry, 1, 11, nil},
		{"mismatch when unrotated", rry, 0, 11, ErrColourMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := b.CheckPlacement(tc.tile, tc.rotation, tc.slot)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("want legal, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPlaceThenCheckReportsOccupied(t *testing.T) {
	b := New()
	b.Place(rrr, 0, StartSlot)
	b.Place(rry, 0, 6) // bottom edge R meets the start tile's top edge

	for _, slot := range []int{StartSlot, 6} {
		if err := b.CheckPlacement(joker, 0, slot); !errors.Is(err, ErrSlotOccupied) {
			t.Fatalf("slot %d: want ErrSlotOccupied, got %v", slot, err)
		}
	}
	if b.PlacedCount() != 2 {
		t.Fatalf("PlacedCount = %d, want 2", b.PlacedCount())
	}
}

func TestHasLegalMove(t *testing.T) {
	empty := New()
	if !empty.HasLegalMove([]tile.Tile{ggg}) {
		t.Fatal("any tile is placeable on an empty board's start slot")
	}
	if empty.HasLegalMove(nil) {
		t.Fatal("empty hand can never move")
	}

	b := New()
	b.Place(rrr, 0, StartSlot)
	if b.HasLegalMove([]tile.Tile{ggg}) {
		t.Fatal("all-green tile cannot touch an all-red board")
	}
	if !b.HasLegalMove([]tile.Tile{ggg, joker}) {
		t.Fatal("the joker always fits next to a placed tile")
	}
}
