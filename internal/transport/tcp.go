// Package transport accepts raw TCP connections carrying the
// newline-terminated text protocol and hands each one to a session.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"

	"spectrangle/internal/hub"
	"spectrangle/internal/leaderboard"
	"spectrangle/internal/session"
)

type Server struct {
	addr  string
	hub   *hub.Hub
	store leaderboard.Store
	log   *zap.Logger
}

func New(addr string, h *hub.Hub, store leaderboard.Store, log *zap.Logger) *Server {
	return &Server{addr: addr, hub: h, store: store, log: log.Named("tcp")}
}

// Listen blocks accepting connections until ctx is cancelled.
func (s *Server) Listen(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	s.log.Info("listening", zap.String("addr", s.addr))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go session.New(conn, s.hub, s.store, s.log).Run(ctx)
	}
}
