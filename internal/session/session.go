// Package session drives one connected client: the connect handshake,
// parsing inbound lines into typed commands for the hub and lobby, and
// serializing game events and hub notices back onto the wire. It is
// transport-agnostic: anything that behaves like a net.Conn carrying
// newline-terminated text works.
package session

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"spectrangle/internal/game"
	"spectrangle/internal/hub"
	"spectrangle/internal/leaderboard"
	"spectrangle/internal/lobby"
	"spectrangle/internal/protocol"
)

const (
	writeTimeout    = 10 * time.Second
	leaderboardSize = 10
)

type Session struct {
	conn  net.Conn
	hub   *hub.Hub
	store leaderboard.Store
	log   *zap.Logger

	name    string
	events  chan game.Event
	notices chan hub.Notice

	mu sync.Mutex // guards lb
	lb *lobby.Lobby

	wmu sync.Mutex // serializes conn writes
}

func New(conn net.Conn, h *hub.Hub, store leaderboard.Store, log *zap.Logger) *Session {
	return &Session{
		conn:    conn,
		hub:     h,
		store:   store,
		log:     log.Named("session"),
		events:  make(chan game.Event, 32),
		notices: make(chan hub.Notice, 16),
	}
}

// Run blocks until the connection drops or ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	defer s.conn.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scanner := bufio.NewScanner(s.conn)
	if !s.handshake(scanner) {
		return
	}
	s.log = s.log.With(zap.String("name", s.name))
	defer func() {
		s.hub.Inbox() <- hub.Unregister{Name: s.name}
	}()

	go s.writeLoop(ctx)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		req, err := protocol.ParseRequest(line)
		if err != nil {
			s.writeLine(protocol.EncodeError(err.Error()))
			continue
		}
		s.route(ctx, req)
	}
	if err := scanner.Err(); err != nil {
		s.log.Info("connection lost", zap.Error(err))
	}
}

// handshake consumes the CONNECTREQUEST, registers with the hub and
// answers CONNECTACCEPT with the server's extension set.
func (s *Session) handshake(scanner *bufio.Scanner) bool {
	if !scanner.Scan() {
		return false
	}
	req, err := protocol.ParseRequest(scanner.Text())
	if err != nil || req.Kind != protocol.MsgConnectRequest {
		s.writeLine(protocol.EncodeError("expected " + protocol.MsgConnectRequest))
		return false
	}
	if !protocol.ValidName(req.Name) {
		s.writeLine(protocol.EncodeError("invalid name"))
		return false
	}
	reply := make(chan error, 1)
	s.hub.Inbox() <- hub.Register{
		Name:       req.Name,
		Extensions: req.Extensions,
		Events:     s.events,
		Notices:    s.notices,
		Reply:      reply,
	}
	if err := <-reply; err != nil {
		s.writeLine(protocol.EncodeError(err.Error()))
		return false
	}
	s.name = req.Name
	s.writeLine(protocol.EncodeConnectAccept(protocol.ServerExtensions))
	return true
}

func (s *Session) route(ctx context.Context, req protocol.Request) {
	switch req.Kind {
	case protocol.MsgConnectRequest:
		s.writeLine(protocol.EncodeError("already connected"))

	case protocol.MsgJoinGame:
		reply := make(chan error, 1)
		s.hub.Inbox() <- hub.JoinQueue{Name: s.name, Pref: req.Preference, Reply: reply}
		if err := <-reply; err != nil {
			s.writeLine(protocol.EncodeError(err.Error()))
		}

	case protocol.MsgMove:
		s.submit(game.Command{
			Type:     game.CmdMove,
			Seat:     s.name,
			Tile:     req.Tile,
			Rotation: req.Rotation,
			Slot:     req.Slot,
		})

	case protocol.MsgTileReplace:
		s.submit(game.Command{Type: game.CmdReplace, Seat: s.name, Tile: req.Tile})

	case protocol.MsgSkip:
		s.submit(game.Command{Type: game.CmdSkip, Seat: s.name})

	case protocol.MsgClientMessage:
		s.hub.Inbox() <- hub.Chat{From: s.name, Text: req.Text}

	case protocol.MsgGetClientNames:
		s.hub.Inbox() <- hub.RequestNames{Name: s.name}

	case protocol.MsgChallengePlayers:
		reply := make(chan error, 1)
		s.hub.Inbox() <- hub.Challenge{From: s.name, Targets: req.Targets, Reply: reply}
		if err := <-reply; err != nil {
			s.writeLine(protocol.EncodeError(err.Error()))
		}

	case protocol.MsgAcceptChallenge:
		s.hub.Inbox() <- hub.AcceptChallenge{Name: s.name}

	case protocol.MsgRequestLeaderboard:
		recs, err := s.store.Top(ctx, leaderboardSize)
		if err != nil {
			s.log.Warn("leaderboard read failed", zap.Error(err))
			s.writeLine(protocol.EncodeError("leaderboard unavailable"))
			return
		}
		entries := make([]protocol.LeaderboardEntry, len(recs))
		for i, r := range recs {
			entries[i] = protocol.LeaderboardEntry{Name: r.Name, Score: r.Score, Time: r.CreatedAt.Unix()}
		}
		s.writeLine(protocol.EncodeLeaderboard(entries))
	}
}

func (s *Session) submit(cmd game.Command) {
	lb := s.lobbyHandle()
	if lb == nil {
		// The hub assigns seats to games; ask it and cache the handle.
		reply := make(chan *lobby.Lobby, 1)
		s.hub.Inbox() <- hub.GetLobby{Name: s.name, Reply: reply}
		lb = <-reply
		if lb == nil {
			s.writeLine(protocol.EncodeError("not in a game"))
			return
		}
		s.setLobby(lb)
	}
	select {
	case lb.Inbox() <- lobby.FromSeat{Cmd: cmd}:
	case <-lb.Done():
		s.setLobby(nil)
		s.writeLine(protocol.EncodeError("game already finished"))
	}
}

func (s *Session) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			s.writeEvent(ev)
		case n := <-s.notices:
			s.writeNotice(n)
		}
	}
}

func (s *Session) writeEvent(ev game.Event) {
	switch ev.Type {
	case game.EvtGameStarted:
		s.writeLine(protocol.EncodeGameStarted(ev.Order, ev.Hands))

	case game.EvtMoveRequest:
		s.writeLine(protocol.EncodeMoveRequest())

	case game.EvtTurnMade:
		if ev.Seat == s.name && ev.Drew {
			s.writeLine(protocol.EncodeTile(ev.Drawn))
		}
		switch ev.Kind {
		case game.TurnMove:
			s.writeLine(protocol.EncodeMove(ev.Seat, ev.Tile, ev.Rotation, ev.Slot))
			s.writeLine(protocol.EncodePlayerTiles(ev.Seat, ev.Hand))
		case game.TurnReplace:
			s.writeLine(protocol.EncodeTileReplace(ev.Seat, ev.Tile))
			s.writeLine(protocol.EncodePlayerTiles(ev.Seat, ev.Hand))
		case game.TurnSkip:
			s.writeLine(protocol.EncodeSkip(ev.Seat))
		}

	case game.EvtPlayerKicked:
		s.writeLine(protocol.EncodeKick(ev.Seat))
		if ev.Seat == s.name {
			s.setLobby(nil)
		}

	case game.EvtGameOver:
		entries := make([]protocol.ScoreEntry, len(ev.Scores))
		for i, sc := range ev.Scores {
			entries[i] = protocol.ScoreEntry{Name: sc.Name, Score: sc.Score}
		}
		s.writeLine(protocol.EncodeGameOver(entries))
		s.setLobby(nil)
	}
}

func (s *Session) writeNotice(n hub.Notice) {
	switch n.Type {
	case hub.NoticeChat:
		s.writeLine(protocol.EncodeServerMessage(n.From, n.Text))
	case hub.NoticeNames:
		s.writeLine(protocol.EncodeClientNames(n.Names))
	case hub.NoticeChallenge:
		s.writeLine(protocol.EncodeNotifyChallenge(n.From))
	case hub.NoticeChallengeExpired:
		s.writeLine(protocol.EncodeError(n.Text))
	}
}

func (s *Session) writeLine(line string) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := s.conn.Write([]byte(line + "\n")); err != nil {
		s.log.Debug("write failed", zap.Error(err))
	}
}

func (s *Session) setLobby(lb *lobby.Lobby) {
	s.mu.Lock()
	s.lb = lb
	s.mu.Unlock()
}

func (s *Session) lobbyHandle() *lobby.Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lb
}
