// Package game implements the authoritative Spectrangle turn state
// machine for one game instance. It owns the board, the bag and the
// players' hands, consumes typed commands and emits typed events.
// Callers must serialize all access; see the lobby package.
package game

import (
	"errors"
	"fmt"
	"sort"

	"spectrangle/internal/board"
	"spectrangle/internal/tile"
)

const (
	HandSize   = 4
	MinPlayers = 2
	MaxPlayers = 4
)

var (
	ErrOutOfTurn      = errors.New("action is not for the active seat")
	ErrGameOver       = errors.New("game is already over")
	ErrUnknownSeat    = errors.New("no such seat")
	ErrUnknownCommand = errors.New("unsupported command")
	ErrPlayerCount    = errors.New("a game needs 2 to 4 players")
)

// Status is a player's lifecycle state within one game.
type Status int

const (
	StatusActive Status = iota
	StatusKicked
	StatusDisconnected
	StatusWinner
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusKicked:
		return "kicked"
	case StatusDisconnected:
		return "disconnected"
	case StatusWinner:
		return "winner"
	}
	return "unknown"
}

// Player is one seat in a game.
type Player struct {
	Name   string
	Hand   []tile.Tile
	Score  int
	Status Status
}

func (p *Player) active() bool {
	return p.Status == StatusActive || p.Status == StatusWinner
}

// holds returns the index of t in the hand, or -1.
func (p *Player) holds(t tile.Tile) int {
	for i, h := range p.Hand {
		if h == t {
			return i
		}
	}
	return -1
}

type CommandType string

const (
	CmdMove       CommandType = "Move"
	CmdReplace    CommandType = "TileReplace"
	CmdSkip       CommandType = "Skip"
	CmdTimeout    CommandType = "Timeout"
	CmdDisconnect CommandType = "Disconnect"
)

// Command is one player action, already parsed and attributed to a
// seat by the session layer.
type Command struct {
	Type     CommandType
	Seat     string
	Tile     tile.Tile
	Rotation int
	Slot     int
}

type EventType string

const (
	EvtGameStarted  EventType = "GameStarted"
	EvtMoveRequest  EventType = "MoveRequest"
	EvtTurnMade     EventType = "TurnMade"
	EvtPlayerKicked EventType = "PlayerKicked"
	EvtGameOver     EventType = "GameOver"
)

// TurnKind distinguishes the three accepted turn resolutions.
type TurnKind string

const (
	TurnMove    TurnKind = "move"
	TurnReplace TurnKind = "replace"
	TurnSkip    TurnKind = "skip"
)

// Score is one row of the final (or running) ranking.
type Score struct {
	Name   string
	Score  int
	Status Status
}

// Event is one outbound fact about the game. Only the fields relevant
// to Type are set.
type Event struct {
	Type     EventType
	Seat     string
	Kind     TurnKind
	Tile     tile.Tile
	Rotation int
	Slot     int
	Drew     bool
	Drawn    tile.Tile
	Hand     []tile.Tile
	Reason   string
	Order    []string
	Hands    map[string][]tile.Tile
	Scores   []Score
}

// Game is one active game instance.
type Game struct {
	board   *board.Board
	bag     *tile.Bag
	players []*Player
	turn    int
	over    bool
}

// New deals HandSize tiles to every seat in the given order and
// returns the game together with its GameStarted and first
// MoveRequest events. The bag's ownership transfers to the game.
func New(names []string, bag *tile.Bag) (*Game, []Event, error) {
	if len(names) < MinPlayers || len(names) > MaxPlayers {
		return nil, nil, ErrPlayerCount
	}
	g := &Game{board: board.New(), bag: bag}
	hands := make(map[string][]tile.Tile, len(names))
	for _, name := range names {
		p := &Player{Name: name}
		for i := 0; i < HandSize; i++ {
			t, ok := bag.Draw()
			if !ok {
				break
			}
			p.Hand = append(p.Hand, t)
		}
		g.players = append(g.players, p)
		hands[name] = copyHand(p.Hand)
	}
	events := []Event{
		{Type: EvtGameStarted, Order: append([]string(nil), names...), Hands: hands},
		{Type: EvtMoveRequest, Seat: names[0]},
	}
	return g, events, nil
}

// Current returns the seat the game is waiting on, or "" after the
// game is over.
func (g *Game) Current() string {
	if g.over {
		return ""
	}
	return g.players[g.turn].Name
}

// Over reports whether the game reached its terminal state.
func (g *Game) Over() bool { return g.over }

// Board exposes the placement state, read-only by convention.
func (g *Game) Board() *board.Board { return g.board }

// BagLen reports how many tiles remain undrawn.
func (g *Game) BagLen() int { return g.bag.Len() }

// Seats returns the seat names in turn order.
func (g *Game) Seats() []string {
	out := make([]string, len(g.players))
	for i, p := range g.players {
		out[i] = p.Name
	}
	return out
}

// Hand returns a copy of a seat's current hand.
func (g *Game) Hand(seat string) []tile.Tile {
	for _, p := range g.players {
		if p.Name == seat {
			return copyHand(p.Hand)
		}
	}
	return nil
}

// Scores returns the ranking sorted by score descending. Ties keep
// seat order; the engine does not break them.
func (g *Game) Scores() []Score {
	out := make([]Score, len(g.players))
	for i, p := range g.players {
		out[i] = Score{Name: p.Name, Score: p.Score, Status: p.Status}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Apply resolves one command. Commands for a seat that is not the
// active one return ErrOutOfTurn and change nothing; every accepted
// outcome, including kicks, is reported as events.
func (g *Game) Apply(cmd Command) ([]Event, error) {
	if g.over {
		return nil, ErrGameOver
	}
	if cmd.Type == CmdDisconnect {
		return g.disconnect(cmd.Seat)
	}
	p := g.players[g.turn]
	if cmd.Seat != p.Name {
		return nil, fmt.Errorf("seat %q: %w", cmd.Seat, ErrOutOfTurn)
	}
	switch cmd.Type {
	case CmdMove:
		return g.applyMove(p, cmd)
	case CmdReplace:
		return g.applyReplace(p, cmd)
	case CmdSkip:
		return g.applySkip(p)
	case CmdTimeout:
		return g.kick(p, StatusKicked, "turn deadline expired"), nil
	default:
		return nil, fmt.Errorf("%q: %w", cmd.Type, ErrUnknownCommand)
	}
}

func (g *Game) applyMove(p *Player, cmd Command) ([]Event, error) {
	i := p.holds(cmd.Tile)
	if i < 0 {
		return g.kick(p, StatusKicked, fmt.Sprintf("tile %s not in hand", cmd.Tile)), nil
	}
	if err := g.board.CheckPlacement(cmd.Tile, cmd.Rotation, cmd.Slot); err != nil {
		return g.kick(p, StatusKicked, err.Error()), nil
	}
	g.board.Place(cmd.Tile, cmd.Rotation, cmd.Slot)
	p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
	p.Score += cmd.Tile.Value

	ev := Event{
		Type:     EvtTurnMade,
		Kind:     TurnMove,
		Seat:     p.Name,
		Tile:     cmd.Tile,
		Rotation: cmd.Rotation,
		Slot:     cmd.Slot,
	}
	if t, ok := g.bag.Draw(); ok {
		p.Hand = append(p.Hand, t)
		ev.Drew, ev.Drawn = true, t
	}
	ev.Hand = copyHand(p.Hand)
	return g.advance([]Event{ev}), nil
}

func (g *Game) applyReplace(p *Player, cmd Command) ([]Event, error) {
	i := p.holds(cmd.Tile)
	if i < 0 {
		return g.kick(p, StatusKicked, fmt.Sprintf("tile %s not in hand", cmd.Tile)), nil
	}
	if g.board.HasLegalMove(p.Hand) {
		return g.kick(p, StatusKicked, "replace declared with a legal move available"), nil
	}
	p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
	g.bag.Return(cmd.Tile)

	ev := Event{Type: EvtTurnMade, Kind: TurnReplace, Seat: p.Name, Tile: cmd.Tile}
	if t, ok := g.bag.Draw(); ok {
		p.Hand = append(p.Hand, t)
		ev.Drew, ev.Drawn = true, t
	}
	ev.Hand = copyHand(p.Hand)
	return g.advance([]Event{ev}), nil
}

func (g *Game) applySkip(p *Player) ([]Event, error) {
	if g.board.HasLegalMove(p.Hand) {
		return g.kick(p, StatusKicked, "skip declared with a legal move available"), nil
	}
	ev := Event{Type: EvtTurnMade, Kind: TurnSkip, Seat: p.Name, Hand: copyHand(p.Hand)}
	return g.advance([]Event{ev}), nil
}

// disconnect removes a seat whether or not it is the active one. The
// outcome matches a kick except for the recorded status.
func (g *Game) disconnect(seat string) ([]Event, error) {
	var p *Player
	for _, q := range g.players {
		if q.Name == seat {
			p = q
			break
		}
	}
	if p == nil {
		return nil, fmt.Errorf("seat %q: %w", seat, ErrUnknownSeat)
	}
	if !p.active() {
		return nil, nil
	}
	wasCurrent := g.players[g.turn] == p
	events := g.remove(p, StatusDisconnected, "disconnected")
	if g.over {
		return events, nil
	}
	if wasCurrent {
		return g.advance(events), nil
	}
	// The active seat is unaffected; its turn and deadline stand.
	return events, nil
}

// kick removes the active player and moves the game on.
func (g *Game) kick(p *Player, status Status, reason string) []Event {
	events := g.remove(p, status, reason)
	if g.over {
		return events
	}
	return g.advance(events)
}

// remove takes a player out of the rotation, recycles their hand into
// the bag, and ends the game if at most one active player remains.
func (g *Game) remove(p *Player, status Status, reason string) []Event {
	p.Status = status
	if len(p.Hand) > 0 {
		g.bag.Return(p.Hand...)
		p.Hand = nil
	}
	events := []Event{{Type: EvtPlayerKicked, Seat: p.Name, Reason: reason}}
	if g.countActive() <= 1 {
		return g.finish(events)
	}
	return events
}

// advance recomputes the terminal condition and either ends the game
// or passes the turn to the next active seat.
func (g *Game) advance(events []Event) []Event {
	if g.bag.Len() == 0 && !g.anyActiveCanMove() {
		return g.finish(events)
	}
	g.turn = g.nextActive()
	events = append(events, Event{Type: EvtMoveRequest, Seat: g.players[g.turn].Name})
	return events
}

func (g *Game) nextActive() int {
	for i := 1; i <= len(g.players); i++ {
		j := (g.turn + i) % len(g.players)
		if g.players[j].active() {
			return j
		}
	}
	return g.turn
}

func (g *Game) countActive() int {
	n := 0
	for _, p := range g.players {
		if p.active() {
			n++
		}
	}
	return n
}

// anyActiveCanMove reports whether some active player could still
// place a tile. With an empty bag and no movable player the game
// would otherwise cycle on forced skips forever.
func (g *Game) anyActiveCanMove() bool {
	for _, p := range g.players {
		if p.active() && g.board.HasLegalMove(p.Hand) {
			return true
		}
	}
	return false
}

// finish marks the winners and appends the GameOver event. Winners
// are the active players with the highest score; a sole survivor wins
// regardless of score.
func (g *Game) finish(events []Event) []Event {
	g.over = true
	best := -1
	for _, p := range g.players {
		if p.active() && p.Score > best {
			best = p.Score
		}
	}
	for _, p := range g.players {
		if p.active() && p.Score == best {
			p.Status = StatusWinner
		}
	}
	return append(events, Event{Type: EvtGameOver, Scores: g.Scores()})
}

func copyHand(hand []tile.Tile) []tile.Tile {
	return append([]tile.Tile(nil), hand...)
}
