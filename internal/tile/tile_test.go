package tile

import (
	"math/rand"
	"testing"
)

func TestCatalogIsClosedUniverse(t *testing.T) {
	cat := Catalog()
	if len(cat) != CatalogSize {
		t.Fatalf("catalog has %d tiles, want %d", len(cat), CatalogSize)
	}

	seen := map[Tile]bool{}
	jokers := 0
	for _, tl := range cat {
		if seen[tl] {
			t.Errorf("duplicate tile %s", tl)
		}
		seen[tl] = true
		if tl.Value < 1 || tl.Value > 6 {
			t.Errorf("tile %s has value outside 1..6", tl)
		}
		if tl.IsJoker() {
			jokers++
			if tl.Value != 1 {
				t.Errorf("joker must be worth 1, got %d", tl.Value)
			}
		}
	}
	if jokers != 1 {
		t.Fatalf("want exactly one joker, got %d", jokers)
	}
}

func TestCatalogReturnsCopies(t *testing.T) {
	a := Catalog()
	a[0] = Tile{}
	b := Catalog()
	if b[0] == (Tile{}) {
		t.Fatal("mutating one Catalog() result leaked into another")
	}
}

func TestBagDrawsEveryTileOnce(t *testing.T) {
	b := NewBagWithRand(rand.New(rand.NewSource(1)))
	seen := map[Tile]bool{}
	for i := 0; i < CatalogSize; i++ {
		tl, ok := b.Draw()
		if !ok {
			t.Fatalf("bag empty after %d draws", i)
		}
		if seen[tl] {
			t.Fatalf("tile %s drawn twice", tl)
		}
		seen[tl] = true
	}
	if _, ok := b.Draw(); ok {
		t.Fatal("draw from empty bag reported ok")
	}
	if b.Len() != 0 {
		t.Fatalf("empty bag reports Len=%d", b.Len())
	}
}

func TestBagReturnPutsTilesBack(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	b := NewBagWithRand(rng)
	var drawn []Tile
	for i := 0; i < 5; i++ {
		tl, _ := b.Draw()
		drawn = append(drawn, tl)
	}
	b.Return(drawn...)
	if b.Len() != CatalogSize {
		t.Fatalf("after return Len=%d, want %d", b.Len(), CatalogSize)
	}
}

func TestBagOfDrawOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := Tile{Red, Red, Red, 6}
	c := Tile{Blue, Blue, Blue, 6}
	b := NewBagOf(rng, a, c)
	if got, _ := b.Draw(); got != c {
		t.Fatalf("first draw = %s, want %s", got, c)
	}
	if got, _ := b.Draw(); got != a {
		t.Fatalf("second draw = %s, want %s", got, a)
	}
}
