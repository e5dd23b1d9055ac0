// Package hub is the server-wide actor: it owns the connection
// registry, the matchmaking queues per declared player count, the
// challenge flow and the chat relay, and it constructs one lobby per
// filled game.
package hub

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"spectrangle/internal/game"
	"spectrangle/internal/leaderboard"
	"spectrangle/internal/lobby"
	"spectrangle/internal/protocol"
	"spectrangle/internal/tile"
)

var (
	ErrNameTaken     = errors.New("name already in use")
	ErrBadPreference = errors.New("preference must be 2, 3 or 4")
	ErrBusy          = errors.New("player is already queued or in a game")
	ErrUnavailable   = errors.New("player unavailable for a challenge")
	ErrUnknownClient = errors.New("client not registered")
)

// NoticeType tags non-game notifications pushed to sessions.
type NoticeType string

const (
	NoticeChallenge        NoticeType = "Challenge"
	NoticeChallengeExpired NoticeType = "ChallengeExpired"
	NoticeChat             NoticeType = "Chat"
	NoticeNames            NoticeType = "Names"
)

// Notice is one out-of-game notification for a session.
type Notice struct {
	Type  NoticeType
	From  string
	Text  string
	Names []string
}

type Msg interface{ isHubMsg() }

// Register adds a connection to the registry. Reply receives nil or
// the rejection reason.
type Register struct {
	Name       string
	Extensions []string
	Events     chan game.Event
	Notices    chan Notice
	Reply      chan error
}

// Unregister removes a connection; if the player is mid-game their
// seat is reported to the lobby as disconnected.
type Unregister struct {
	Name string
}

// JoinQueue enqueues a player into the queue for games of Pref seats.
type JoinQueue struct {
	Name  string
	Pref  int
	Reply chan error
}

// Chat relays a chat line to every chat-capable client.
type Chat struct {
	From string
	Text string
}

// RequestNames asks for the connected client names visible to Name.
type RequestNames struct {
	Name string
}

// Challenge invites Targets into an immediate game with From.
type Challenge struct {
	From    string
	Targets []string
	Reply   chan error
}

// AcceptChallenge records a target's acceptance; stale accepts are
// ignored.
type AcceptChallenge struct {
	Name string
}

// GetLobby resolves the game a player is currently seated in; the
// reply is nil when they are not in one.
type GetLobby struct {
	Name  string
	Reply chan *lobby.Lobby
}

// GetStats mirrors registry state for tests.
type GetStats struct {
	Reply chan Stats
}

type Shutdown struct{}

type gameFinished struct{ id string }

type challengeExpired struct{ id string }

func (Register) isHubMsg()         {}
func (Unregister) isHubMsg()       {}
func (JoinQueue) isHubMsg()        {}
func (Chat) isHubMsg()             {}
func (RequestNames) isHubMsg()     {}
func (Challenge) isHubMsg()        {}
func (GetLobby) isHubMsg()         {}
func (AcceptChallenge) isHubMsg()  {}
func (GetStats) isHubMsg()         {}
func (Shutdown) isHubMsg()         {}
func (gameFinished) isHubMsg()     {}
func (challengeExpired) isHubMsg() {}

type Stats struct {
	Clients int
	Queued  map[int]int
	Games   int
}

type client struct {
	name    string
	exts    map[string]bool
	events  chan game.Event
	notices chan Notice
	lobby   *lobby.Lobby
	gameID  string
	queued  int
}

type challenge struct {
	id       string
	from     string
	targets  []string
	accepted map[string]bool
	timer    *time.Timer
}

type Config struct {
	TurnTimeout      time.Duration
	ChallengeTimeout time.Duration
}

type Hub struct {
	inbox      chan Msg
	clients    map[string]*client
	queues     map[int][]string
	challenges map[string]*challenge
	games      int
	store      leaderboard.Store
	cfg        Config
	log        *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

func New(parent context.Context, store leaderboard.Store, cfg Config, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:      make(chan Msg, 64),
		clients:    make(map[string]*client),
		queues:     map[int][]string{2: {}, 3: {}, 4: {}},
		challenges: make(map[string]*challenge),
		store:      store,
		cfg:        cfg,
		log:        log.Named("hub"),
		ctx:        ctx,
		cancel:     cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- Msg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case m := <-h.inbox:
			switch msg := m.(type) {
			case Register:
				h.register(msg)
			case Unregister:
				h.unregister(msg.Name)
			case JoinQueue:
				msg.Reply <- h.joinQueue(msg.Name, msg.Pref)
			case Chat:
				h.chat(msg.From, msg.Text)
			case RequestNames:
				h.sendNames(msg.Name)
			case Challenge:
				msg.Reply <- h.startChallenge(msg.From, msg.Targets)
			case AcceptChallenge:
				h.acceptChallenge(msg.Name)
			case GetLobby:
				if c, ok := h.clients[msg.Name]; ok {
					msg.Reply <- c.lobby
				} else {
					msg.Reply <- nil
				}
			case challengeExpired:
				h.expireChallenge(msg.id)
			case gameFinished:
				h.games--
				for _, c := range h.clients {
					if c.gameID == msg.id {
						c.lobby, c.gameID = nil, ""
					}
				}
			case GetStats:
				queued := map[int]int{}
				for pref, q := range h.queues {
					queued[pref] = len(q)
				}
				msg.Reply <- Stats{Clients: len(h.clients), Queued: queued, Games: h.games}
			case Shutdown:
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) register(msg Register) {
	if _, taken := h.clients[msg.Name]; taken {
		msg.Reply <- ErrNameTaken
		return
	}
	exts := make(map[string]bool, len(msg.Extensions))
	for _, e := range msg.Extensions {
		exts[e] = true
	}
	h.clients[msg.Name] = &client{
		name:    msg.Name,
		exts:    exts,
		events:  msg.Events,
		notices: msg.Notices,
	}
	h.log.Info("client registered", zap.String("name", msg.Name), zap.Strings("extensions", msg.Extensions))
	msg.Reply <- nil
}

func (h *Hub) unregister(name string) {
	c, ok := h.clients[name]
	if !ok {
		return
	}
	if c.queued != 0 {
		h.queues[c.queued] = removeName(h.queues[c.queued], name)
	}
	for _, ch := range h.challenges {
		if ch.from == name || containsName(ch.targets, name) {
			h.dissolveChallenge(ch, "participant left")
		}
	}
	if c.lobby != nil {
		select {
		case c.lobby.Inbox() <- lobby.Disconnected{Seat: name}:
		case <-c.lobby.Done():
		}
	}
	delete(h.clients, name)
	h.log.Info("client unregistered", zap.String("name", name))
}

func (h *Hub) joinQueue(name string, pref int) error {
	c, ok := h.clients[name]
	if !ok {
		return ErrUnknownClient
	}
	if pref < game.MinPlayers || pref > game.MaxPlayers {
		return ErrBadPreference
	}
	if c.lobby != nil || c.queued != 0 {
		return ErrBusy
	}
	c.queued = pref
	h.queues[pref] = append(h.queues[pref], name)
	h.log.Info("queued", zap.String("name", name), zap.Int("preference", pref))
	if len(h.queues[pref]) >= pref {
		names := h.queues[pref][:pref]
		h.queues[pref] = append([]string(nil), h.queues[pref][pref:]...)
		h.startGame(names)
	}
	return nil
}

// startGame builds a lobby for the given players, shuffling the turn
// order.
func (h *Hub) startGame(names []string) {
	order := append([]string(nil), names...)
	rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	id := uuid.NewString()
	seats := make([]lobby.Seat, 0, len(order))
	for _, name := range order {
		c := h.clients[name]
		if c == nil {
			h.log.Error("seat vanished before game start", zap.String("name", name))
			return
		}
		seats = append(seats, lobby.Seat{Name: name, Outbox: c.events})
	}
	lb, err := lobby.New(h.ctx, id, seats, tile.NewBag(),
		lobby.Config{TurnTimeout: h.cfg.TurnTimeout}, h.log, h.finisher(id))
	if err != nil {
		h.log.Error("failed to start game", zap.Error(err))
		return
	}
	h.games++
	for _, name := range order {
		c := h.clients[name]
		if c.queued != 0 {
			h.queues[c.queued] = removeName(h.queues[c.queued], name)
			c.queued = 0
		}
		c.lobby, c.gameID = lb, id
	}
}

// finisher records final scores and releases the seats. The store
// write happens off the hub and lobby loops.
func (h *Hub) finisher(id string) func([]game.Score) {
	return func(scores []game.Score) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for _, s := range scores {
				if err := h.store.Add(ctx, s.Name, s.Score); err != nil {
					h.log.Warn("leaderboard write failed", zap.String("name", s.Name), zap.Error(err))
				}
			}
			select {
			case h.inbox <- gameFinished{id: id}:
			case <-h.ctx.Done():
			}
		}()
	}
}

func (h *Hub) chat(from, text string) {
	sender, ok := h.clients[from]
	if !ok || !sender.exts[protocol.ExtChat] {
		return
	}
	for _, c := range h.clients {
		if c.exts[protocol.ExtChat] {
			h.notify(c, Notice{Type: NoticeChat, From: from, Text: text})
		}
	}
}

func (h *Hub) sendNames(name string) {
	c, ok := h.clients[name]
	if !ok {
		return
	}
	var names []string
	for _, other := range h.clients {
		if other.name == name || sharesExtension(c, other) {
			names = append(names, other.name)
		}
	}
	h.notify(c, Notice{Type: NoticeNames, Names: names})
}

// sharesExtension reports whether the two clients declared a common
// extension; a client with none declared sees everyone.
func sharesExtension(a, b *client) bool {
	if len(a.exts) == 0 {
		return true
	}
	for e := range a.exts {
		if b.exts[e] {
			return true
		}
	}
	return false
}

func (h *Hub) startChallenge(from string, targets []string) error {
	challenger, ok := h.clients[from]
	if !ok || !challenger.exts[protocol.ExtChallenge] {
		return ErrUnavailable
	}
	if challenger.lobby != nil {
		return ErrBusy
	}
	if len(targets) < 1 || len(targets) > game.MaxPlayers-1 {
		return ErrBadPreference
	}
	for _, t := range targets {
		c, ok := h.clients[t]
		if !ok || t == from || !c.exts[protocol.ExtChallenge] || c.lobby != nil {
			return ErrUnavailable
		}
	}
	ch := &challenge{
		id:       uuid.NewString(),
		from:     from,
		targets:  append([]string(nil), targets...),
		accepted: make(map[string]bool),
	}
	h.challenges[ch.id] = ch
	id := ch.id
	ch.timer = time.AfterFunc(h.cfg.ChallengeTimeout, func() {
		select {
		case h.inbox <- challengeExpired{id: id}:
		case <-h.ctx.Done():
		}
	})
	for _, t := range targets {
		h.notify(h.clients[t], Notice{Type: NoticeChallenge, From: from})
	}
	h.log.Info("challenge issued", zap.String("from", from), zap.Strings("targets", targets))
	return nil
}

func (h *Hub) acceptChallenge(name string) {
	for _, ch := range h.challenges {
		if !containsName(ch.targets, name) || ch.accepted[name] {
			continue
		}
		ch.accepted[name] = true
		if len(ch.accepted) < len(ch.targets) {
			return
		}
		ch.timer.Stop()
		delete(h.challenges, ch.id)
		names := append([]string{ch.from}, ch.targets...)
		for _, n := range names {
			c, ok := h.clients[n]
			if !ok || c.lobby != nil {
				h.dissolveChallenge(ch, "participant no longer available")
				return
			}
		}
		h.startGame(names)
		return
	}
}

// expireChallenge handles the 60 second accept deadline: an implicit
// decline, never a kick.
func (h *Hub) expireChallenge(id string) {
	ch, ok := h.challenges[id]
	if !ok {
		return
	}
	h.dissolveChallenge(ch, "challenge expired")
}

func (h *Hub) dissolveChallenge(ch *challenge, reason string) {
	ch.timer.Stop()
	delete(h.challenges, ch.id)
	if c, ok := h.clients[ch.from]; ok {
		h.notify(c, Notice{Type: NoticeChallengeExpired, Text: reason})
	}
	h.log.Info("challenge dissolved", zap.String("from", ch.from), zap.String("reason", reason))
}

func (h *Hub) notify(c *client, n Notice) {
	select {
	case c.notices <- n:
	default:
		h.log.Warn("dropping notice for slow client", zap.String("name", c.name))
	}
}

func removeName(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
