package tile

import (
	"math/rand"
	"time"
)

// Bag is the mutable pool of undrawn tiles for one game. It is owned
// by a single game instance and is not safe for concurrent use.
type Bag struct {
	rng   *rand.Rand
	tiles []Tile
}

// NewBag returns the full catalog in randomized order.
func NewBag() *Bag {
	return NewBagWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewBagWithRand is NewBag with a caller-supplied source, so tests can
// fix the shuffle.
func NewBagWithRand(rng *rand.Rand) *Bag {
	b := &Bag{rng: rng, tiles: Catalog()}
	b.shuffle()
	return b
}

// NewBagOf builds a bag holding exactly the given tiles, drawn from
// the end of the list. It skips the initial shuffle so draw order can
// be fixed.
func NewBagOf(rng *rand.Rand, tiles ...Tile) *Bag {
	return &Bag{rng: rng, tiles: append([]Tile(nil), tiles...)}
}

func (b *Bag) shuffle() {
	b.rng.Shuffle(len(b.tiles), func(i, j int) {
		b.tiles[i], b.tiles[j] = b.tiles[j], b.tiles[i]
	})
}

// Len reports how many tiles remain undrawn.
func (b *Bag) Len() int { return len(b.tiles) }

// Draw removes and returns one tile. ok is false when the bag is
// empty; callers treat that as "no replenishment", not as a failure.
func (b *Bag) Draw() (t Tile, ok bool) {
	if len(b.tiles) == 0 {
		return Tile{}, false
	}
	t = b.tiles[len(b.tiles)-1]
	b.tiles = b.tiles[:len(b.tiles)-1]
	return t, true
}

// Return reinserts tiles (a kicked player's hand, or a replaced tile)
// and reshuffles so their position cannot be inferred from draw order.
func (b *Bag) Return(tiles ...Tile) {
	b.tiles = append(b.tiles, tiles...)
	b.shuffle()
}
