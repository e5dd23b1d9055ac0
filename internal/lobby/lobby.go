// Package lobby runs one game instance as an actor: a single loop
// owns the Game and serializes player actions against the turn
// deadline timer, so the action-vs-timeout race always resolves in
// arrival order.
package lobby

import (
	"context"
	"time"

	"go.uber.org/zap"

	"spectrangle/internal/game"
	"spectrangle/internal/tile"
)

type Msg interface{ isLobbyMsg() }

// FromSeat carries one parsed player action.
type FromSeat struct {
	Cmd game.Command
}

// Disconnected reports that a seat's transport dropped.
type Disconnected struct {
	Seat string
}

// GetState mirrors internal state for tests without data races.
type GetState struct {
	Reply chan View
}

type Shutdown struct{}

// turnExpired is posted by the deadline timer back into the inbox.
// The epoch guards against a timer firing for an already-resolved
// turn.
type turnExpired struct {
	seat  string
	epoch int
}

func (FromSeat) isLobbyMsg()     {}
func (Disconnected) isLobbyMsg() {}
func (GetState) isLobbyMsg()     {}
func (Shutdown) isLobbyMsg()     {}
func (turnExpired) isLobbyMsg()  {}

type View struct {
	Active string
	Over   bool
	Epoch  int
	Scores []game.Score
}

// Seat binds a player name to the channel their session drains.
type Seat struct {
	Name   string
	Outbox chan game.Event
}

type Config struct {
	TurnTimeout time.Duration
}

type Lobby struct {
	ID       string
	inbox    chan Msg
	game     *game.Game
	seats    map[string]chan game.Event
	epoch    int
	timer    *time.Timer
	cfg      Config
	log      *zap.Logger
	finished func([]game.Score)
	ctx      context.Context
	cancel   context.CancelFunc
}

// New constructs the game, starts its loop and broadcasts the
// GameStarted and first MoveRequest events. finished is called once,
// from the loop, with the final scores.
func New(parent context.Context, id string, seats []Seat, bag *tile.Bag, cfg Config, log *zap.Logger, finished func([]game.Score)) (*Lobby, error) {
	names := make([]string, len(seats))
	outs := make(map[string]chan game.Event, len(seats))
	for i, s := range seats {
		names[i] = s.Name
		outs[s.Name] = s.Outbox
	}
	g, events, err := game.New(names, bag)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(parent)
	l := &Lobby{
		ID:       id,
		inbox:    make(chan Msg, 64),
		game:     g,
		seats:    outs,
		cfg:      cfg,
		log:      log.With(zap.String("game", id)),
		finished: finished,
		ctx:      ctx,
		cancel:   cancel,
	}
	go l.run(events)
	return l, nil
}

func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the game is torn down; senders select on it so
// a finished lobby never blocks them.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

func (l *Lobby) run(initial []game.Event) {
	l.log.Info("game started", zap.Strings("seats", l.game.Seats()))
	l.dispatch(initial)
	for {
		select {
		case <-l.ctx.Done():
			l.stopTimer()
			return
		case m := <-l.inbox:
			switch msg := m.(type) {
			case FromSeat:
				events, err := l.game.Apply(msg.Cmd)
				if err != nil {
					// Out-of-turn or post-game actions are dropped, not
					// answered: the sender is racing a stale message.
					l.log.Debug("ignored action",
						zap.String("seat", msg.Cmd.Seat),
						zap.String("type", string(msg.Cmd.Type)),
						zap.Error(err))
					break
				}
				l.dispatch(events)

			case Disconnected:
				events, err := l.game.Apply(game.Command{Type: game.CmdDisconnect, Seat: msg.Seat})
				if err != nil {
					break
				}
				delete(l.seats, msg.Seat)
				l.dispatch(events)

			case turnExpired:
				if msg.epoch != l.epoch {
					break // a valid action won the race
				}
				l.log.Info("turn deadline expired", zap.String("seat", msg.seat))
				events, err := l.game.Apply(game.Command{Type: game.CmdTimeout, Seat: msg.seat})
				if err != nil {
					break
				}
				l.dispatch(events)

			case GetState:
				msg.Reply <- View{
					Active: l.game.Current(),
					Over:   l.game.Over(),
					Epoch:  l.epoch,
					Scores: l.game.Scores(),
				}

			case Shutdown:
				l.stopTimer()
				l.cancel()
				return
			}
		}
	}
}

func (l *Lobby) dispatch(events []game.Event) {
	var kicked []string
	for _, ev := range events {
		switch ev.Type {
		case game.EvtMoveRequest:
			// Only the active seat is prompted; everyone else already
			// learned whose turn it is from the preceding event.
			l.send(ev.Seat, ev)
			l.armTimer(ev.Seat)
		case game.EvtPlayerKicked:
			l.log.Info("player removed", zap.String("seat", ev.Seat), zap.String("reason", ev.Reason))
			kicked = append(kicked, ev.Seat)
			l.broadcast(ev)
		case game.EvtGameOver:
			l.log.Info("game over")
			l.broadcast(ev)
			l.stopTimer()
			l.finished(ev.Scores)
			l.cancel()
			return
		default:
			l.broadcast(ev)
		}
	}
	for _, seat := range kicked {
		delete(l.seats, seat)
	}
}

func (l *Lobby) broadcast(ev game.Event) {
	for seat := range l.seats {
		l.send(seat, ev)
	}
}

func (l *Lobby) send(seat string, ev game.Event) {
	ch, ok := l.seats[seat]
	if !ok {
		return
	}
	select {
	case ch <- ev:
	default:
		// Seat cannot keep up; stop sending to it. Its session will
		// report a disconnect when the transport notices.
		l.log.Warn("dropping slow seat", zap.String("seat", seat))
		delete(l.seats, seat)
	}
}

// armTimer starts the per-turn deadline for seat. Every new turn
// bumps the epoch so a stale timer cannot kick the wrong player.
func (l *Lobby) armTimer(seat string) {
	l.stopTimer()
	l.epoch++
	msg := turnExpired{seat: seat, epoch: l.epoch}
	l.timer = time.AfterFunc(l.cfg.TurnTimeout, func() {
		select {
		case l.inbox <- msg:
		case <-l.ctx.Done():
		}
	})
}

func (l *Lobby) stopTimer() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}
